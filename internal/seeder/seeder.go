// Package seeder populates an empty store with demo data.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opengov-pk/shafaf/internal/domain"
)

// CitizenStore defines the store methods needed to seed citizens.
type CitizenStore interface {
	InsertCitizen(ctx context.Context, c *domain.Citizen) error
	CountCitizens(ctx context.Context) (int, error)
}

// BillStore defines the store methods needed to seed bills.
type BillStore interface {
	InsertBill(ctx context.Context, b *domain.Bill) error
}

// ContractStore defines the store methods needed to seed contracts.
type ContractStore interface {
	InsertContract(ctx context.Context, c *domain.Contract) error
}

// Seeder writes demo citizens, bills, and contracts. Stored contract
// scores come from the bundled model so seeded rows band the same way a
// live submission of the same contract would.
type Seeder struct {
	citizens  CitizenStore
	bills     BillStore
	contracts ContractStore
}

// New creates a seeder over the given stores.
func New(citizens CitizenStore, bills BillStore, contracts ContractStore) *Seeder {
	return &Seeder{
		citizens:  citizens,
		bills:     bills,
		contracts: contracts,
	}
}

// SeedAll populates all stores with demo data. A store that already
// holds citizens is left untouched.
func (s *Seeder) SeedAll(ctx context.Context) error {
	count, err := s.citizens.CountCitizens(ctx)
	if err != nil {
		return fmt.Errorf("failed to check store state: %w", err)
	}
	if count > 0 {
		slog.Info("store already populated, skipping demo seed", "citizens", count)
		return nil
	}

	slog.Info("seeding demo data")

	citizens, err := s.seedCitizens(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed citizens: %w", err)
	}
	billCount, err := s.seedBills(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed bills: %w", err)
	}
	contractCount, err := s.seedContracts(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed contracts: %w", err)
	}

	slog.Info("demo data seeded",
		"citizens", citizens,
		"bills", billCount,
		"contracts", contractCount,
	)
	return nil
}

func (s *Seeder) seedCitizens(ctx context.Context) (int, error) {
	now := time.Now()

	demoCitizens := []struct {
		cnic     string
		name     string
		language string
		phone    string
		address  string
	}{
		{"42101-1234567-1", "احمد علی", domain.LanguageUrdu, "0300-1234567", "House 12, Block A, Gulshan-e-Iqbal, Karachi"},
		{"42101-2345678-2", "فاطمہ خان", domain.LanguageUrdu, "0321-2345678", "Flat 304, Clifton Block 5, Karachi"},
		{"42101-3456789-3", "John Smith", domain.LanguageEnglish, "0333-3456789", "House 45, F-7/2, Islamabad"},
		{"42101-4567890-4", "Maria Garcia", domain.LanguageEnglish, "0345-4567890", "Apartment 7B, Gulberg III, Lahore"},
		{"42101-5678901-5", "محمد حسن", domain.LanguageUrdu, "0301-5678901", "House 89, Satellite Town, Rawalpindi"},
	}

	for _, c := range demoCitizens {
		citizen := &domain.Citizen{
			ID:        uuid.New().String(),
			CNIC:      c.cnic,
			Name:      c.name,
			Language:  c.language,
			Status:    domain.CitizenActive,
			Phone:     c.phone,
			Address:   c.address,
			CreatedAt: now,
		}
		if err := s.citizens.InsertCitizen(ctx, citizen); err != nil {
			return 0, err
		}
	}
	return len(demoCitizens), nil
}

func (s *Seeder) seedBills(ctx context.Context) (int, error) {
	now := time.Now()

	demoBills := []struct {
		account     string
		cnic        string
		billType    string
		amount      float64
		consumption float64
		dueOffset   time.Duration
		status      string
	}{
		{"PWR-100001", "42101-1234567-1", domain.BillElectricity, 2500.50, 125.2, 15 * 24 * time.Hour, domain.BillPending},
		{"GAS-100002", "42101-2345678-2", domain.BillGas, 1800.75, 89.3, 10 * 24 * time.Hour, domain.BillPending},
		{"WTR-100003", "42101-1234567-1", domain.BillWater, 950.25, 45.1, -20 * 24 * time.Hour, domain.BillPaid},
		{"PWR-100004", "42101-3456789-3", domain.BillElectricity, 3200.80, 160.4, -5 * 24 * time.Hour, domain.BillOverdue},
		{"GAS-100005", "42101-4567890-4", domain.BillGas, 2100.60, 105.8, 20 * 24 * time.Hour, domain.BillPending},
	}

	for _, b := range demoBills {
		bill := &domain.Bill{
			ID:          uuid.New().String(),
			Account:     b.account,
			CNIC:        b.cnic,
			Type:        b.billType,
			Amount:      b.amount,
			Consumption: b.consumption,
			DueDate:     now.Add(b.dueOffset),
			Status:      b.status,
			CreatedAt:   now,
		}
		if err := s.bills.InsertBill(ctx, bill); err != nil {
			return 0, err
		}
	}
	return len(demoBills), nil
}

func (s *Seeder) seedContracts(ctx context.Context) (int, error) {
	now := time.Now()

	demoContracts := []struct {
		number      string
		description string
		amount      float64
		supplier    string
		country     string
		awarded     time.Time
		months      int
		bids        int
		score       float64
		level       string
	}{
		{"CONTRACT-001", "Road Construction Project", 5_000_000, "ABC Construction", "Pakistan",
			time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), 18, 4, 0.5090, domain.RiskMedium},
		{"CONTRACT-002", "IT Infrastructure Upgrade", 2_500_000, "Tech Solutions Inc", "USA",
			time.Date(2023, 2, 20, 0, 0, 0, 0, time.UTC), 12, 6, 0.2591, domain.RiskLow},
		{"CONTRACT-003", "Hospital Equipment Purchase", 8_000_000, "MedEquip Ltd", "Germany",
			time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC), 6, 2, 0.7439, domain.RiskHigh},
		{"CONTRACT-004", "Water Treatment Plant", 12_000_000, "AquaTech Systems", "Netherlands",
			time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC), 3, 1, 0.9633, domain.RiskCritical},
		{"CONTRACT-005", "School Building Construction", 3_500_000, "BuildCorp", "Pakistan",
			time.Date(2023, 5, 12, 0, 0, 0, 0, time.UTC), 10, 5, 0.3699, domain.RiskLow},
	}

	for _, c := range demoContracts {
		contract := &domain.Contract{
			ID:             uuid.New().String(),
			ContractNumber: c.number,
			Description:    c.description,
			Amount:         c.amount,
			Supplier:       c.supplier,
			Country:        c.country,
			AwardDate:      c.awarded,
			DurationMonths: c.months,
			BidCount:       c.bids,
			RiskScore:      c.score,
			RiskLevel:      c.level,
			CreatedAt:      now,
		}
		if err := s.contracts.InsertContract(ctx, contract); err != nil {
			return 0, err
		}
	}
	return len(demoContracts), nil
}
