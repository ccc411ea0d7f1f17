// Package domain defines the core interfaces and types for Shafaf.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// Request paths only read; the Insert methods exist for administrative
// seeding and are never called while serving traffic.
type Repository interface {
	// Citizen operations
	GetCitizenByCNIC(ctx context.Context, cnic string) (*Citizen, error)
	InsertCitizen(ctx context.Context, c *Citizen) error
	CountCitizens(ctx context.Context) (int, error)

	// Bill operations
	ListBillsByCNIC(ctx context.Context, cnic string) ([]*Bill, error)
	GetBillByAccount(ctx context.Context, account string) (*Bill, error)
	InsertBill(ctx context.Context, b *Bill) error

	// Contract operations
	GetContractByNumber(ctx context.Context, number string) (*Contract, error)
	ListContracts(ctx context.Context, filter ContractFilter) ([]*Contract, error)
	InsertContract(ctx context.Context, c *Contract) error
	SupplierHistory(ctx context.Context, supplier string) (*SupplierStats, error)

	// Dashboard aggregates
	ContractStats(ctx context.Context) (*ContractStats, error)
	BillStats(ctx context.Context) (*BillStats, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// ContractFilter narrows ListContracts results.
type ContractFilter struct {
	RiskLevel string
	Supplier  string
	Limit     int
}

// SupplierStats summarizes a supplier's stored contract history.
// Used by the feature extractor for historical z-scores and frequency ranks.
type SupplierStats struct {
	Supplier      string  `json:"supplier"`
	ContractCount int     `json:"contract_count"`
	TotalValue    float64 `json:"total_value"`
	MeanValue     float64 `json:"mean_value"`
	MaxValue      float64 `json:"max_value"`
	MeanRisk      float64 `json:"mean_risk"`
}

// ContractStats holds the contract-side dashboard aggregates.
type ContractStats struct {
	TotalContracts   int                `json:"total_contracts"`
	TotalValue       float64            `json:"total_value"`
	RiskDistribution map[string]int     `json:"risk_distribution"`
	TopSuppliers     map[string]float64 `json:"top_suppliers"`
	MonthlyTrends    map[string]float64 `json:"monthly_trends"`
}

// BillStats holds the bill-side dashboard aggregates.
type BillStats struct {
	TotalBills  int            `json:"total_bills"`
	TotalAmount float64        `json:"total_amount"`
	AvgAmount   float64        `json:"avg_amount"`
	ByType      map[string]int `json:"by_type"`
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
