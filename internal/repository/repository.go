// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/opengov-pk/shafaf/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// GetCitizenByCNIC retrieves a citizen by canonical CNIC.
// The caller is responsible for validating and normalizing the CNIC first.
func (r *SQLRepository) GetCitizenByCNIC(ctx context.Context, cnic string) (*domain.Citizen, error) {
	if cnic == "" {
		return nil, fmt.Errorf("%w: cnic is required", ErrInvalidInput)
	}

	query := `
		SELECT id, cnic, name, language, status, phone, email, address, created_at
		FROM citizens
		WHERE cnic = ?
	`

	var c domain.Citizen
	var phone, email, address sql.NullString

	err := r.db.QueryRowContext(ctx, r.rebind(query), cnic).Scan(
		&c.ID, &c.CNIC, &c.Name, &c.Language, &c.Status,
		&phone, &email, &address, &c.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.Phone = phone.String
	c.Email = email.String
	c.Address = address.String

	return &c, nil
}

// InsertCitizen stores a citizen record. Administrative seeding only.
func (r *SQLRepository) InsertCitizen(ctx context.Context, c *domain.Citizen) error {
	if c.CNIC == "" || c.Name == "" {
		return fmt.Errorf("%w: cnic and name are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO citizens (
			id, cnic, name, language, status, phone, email, address, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		c.ID, c.CNIC, c.Name, c.Language, c.Status,
		c.Phone, c.Email, c.Address, c.CreatedAt,
	)
	return err
}

// CountCitizens returns the number of stored citizen records.
func (r *SQLRepository) CountCitizens(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM citizens`).Scan(&count)
	return count, err
}

// ListBillsByCNIC retrieves all bills owned by a citizen, most recent
// due date first.
func (r *SQLRepository) ListBillsByCNIC(ctx context.Context, cnic string) ([]*domain.Bill, error) {
	if cnic == "" {
		return nil, fmt.Errorf("%w: cnic is required", ErrInvalidInput)
	}

	query := `
		SELECT id, account_number, cnic, bill_type, amount, consumption,
			   due_date, status, created_at
		FROM bills
		WHERE cnic = ?
		ORDER BY due_date DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), cnic)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []*domain.Bill
	for rows.Next() {
		var b domain.Bill
		if err := rows.Scan(
			&b.ID, &b.Account, &b.CNIC, &b.Type, &b.Amount, &b.Consumption,
			&b.DueDate, &b.Status, &b.CreatedAt,
		); err != nil {
			return nil, err
		}
		bills = append(bills, &b)
	}

	return bills, rows.Err()
}

// GetBillByAccount retrieves a bill by its account number.
func (r *SQLRepository) GetBillByAccount(ctx context.Context, account string) (*domain.Bill, error) {
	if account == "" {
		return nil, fmt.Errorf("%w: account number is required", ErrInvalidInput)
	}

	query := `
		SELECT id, account_number, cnic, bill_type, amount, consumption,
			   due_date, status, created_at
		FROM bills
		WHERE account_number = ?
	`

	var b domain.Bill
	err := r.db.QueryRowContext(ctx, r.rebind(query), account).Scan(
		&b.ID, &b.Account, &b.CNIC, &b.Type, &b.Amount, &b.Consumption,
		&b.DueDate, &b.Status, &b.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// InsertBill stores a bill record. Administrative seeding only.
func (r *SQLRepository) InsertBill(ctx context.Context, b *domain.Bill) error {
	if b.Account == "" || b.CNIC == "" {
		return fmt.Errorf("%w: account number and cnic are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO bills (
			id, account_number, cnic, bill_type, amount, consumption,
			due_date, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		b.ID, b.Account, b.CNIC, b.Type, b.Amount, b.Consumption,
		b.DueDate, b.Status, b.CreatedAt,
	)
	return err
}

// GetContractByNumber retrieves a contract by its contract number.
func (r *SQLRepository) GetContractByNumber(ctx context.Context, number string) (*domain.Contract, error) {
	if number == "" {
		return nil, fmt.Errorf("%w: contract number is required", ErrInvalidInput)
	}

	query := `
		SELECT id, contract_number, description, amount, supplier, country,
			   award_date, duration_months, bid_count, risk_score, risk_level, created_at
		FROM contracts
		WHERE contract_number = ?
	`

	var c domain.Contract
	err := r.db.QueryRowContext(ctx, r.rebind(query), number).Scan(
		&c.ID, &c.ContractNumber, &c.Description, &c.Amount, &c.Supplier, &c.Country,
		&c.AwardDate, &c.DurationMonths, &c.BidCount, &c.RiskScore, &c.RiskLevel, &c.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// ListContracts retrieves stored contracts, optionally filtered by risk
// level and supplier, highest value first.
func (r *SQLRepository) ListContracts(ctx context.Context, filter domain.ContractFilter) ([]*domain.Contract, error) {
	query := `
		SELECT id, contract_number, description, amount, supplier, country,
			   award_date, duration_months, bid_count, risk_score, risk_level, created_at
		FROM contracts
	`

	var conds []string
	var args []interface{}

	if filter.RiskLevel != "" {
		conds = append(conds, "risk_level = ?")
		args = append(args, filter.RiskLevel)
	}
	if filter.Supplier != "" {
		conds = append(conds, "supplier = ?")
		args = append(args, filter.Supplier)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	query += " ORDER BY amount DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []*domain.Contract
	for rows.Next() {
		var c domain.Contract
		if err := rows.Scan(
			&c.ID, &c.ContractNumber, &c.Description, &c.Amount, &c.Supplier, &c.Country,
			&c.AwardDate, &c.DurationMonths, &c.BidCount, &c.RiskScore, &c.RiskLevel, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		contracts = append(contracts, &c)
	}

	return contracts, rows.Err()
}

// InsertContract stores a contract record. Administrative seeding only.
func (r *SQLRepository) InsertContract(ctx context.Context, c *domain.Contract) error {
	if c.ContractNumber == "" || c.Supplier == "" {
		return fmt.Errorf("%w: contract number and supplier are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO contracts (
			id, contract_number, description, amount, supplier, country,
			award_date, duration_months, bid_count, risk_score, risk_level, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		c.ID, c.ContractNumber, c.Description, c.Amount, c.Supplier, c.Country,
		c.AwardDate, c.DurationMonths, c.BidCount, c.RiskScore, c.RiskLevel, c.CreatedAt,
	)
	return err
}

// SupplierHistory summarizes a supplier's stored contracts. A supplier
// with no history returns zero counts, not ErrNotFound; callers fall
// back to baseline aggregates.
func (r *SQLRepository) SupplierHistory(ctx context.Context, supplier string) (*domain.SupplierStats, error) {
	if supplier == "" {
		return nil, fmt.Errorf("%w: supplier is required", ErrInvalidInput)
	}

	query := `
		SELECT COUNT(*),
			   COALESCE(SUM(amount), 0),
			   COALESCE(AVG(amount), 0),
			   COALESCE(MAX(amount), 0),
			   COALESCE(AVG(risk_score), 0)
		FROM contracts
		WHERE supplier = ?
	`

	stats := &domain.SupplierStats{Supplier: supplier}
	err := r.db.QueryRowContext(ctx, r.rebind(query), supplier).Scan(
		&stats.ContractCount, &stats.TotalValue, &stats.MeanValue, &stats.MaxValue, &stats.MeanRisk,
	)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// ContractStats computes the contract-side dashboard aggregates.
func (r *SQLRepository) ContractStats(ctx context.Context) (*domain.ContractStats, error) {
	stats := &domain.ContractStats{
		RiskDistribution: make(map[string]int),
		TopSuppliers:     make(map[string]float64),
		MonthlyTrends:    make(map[string]float64),
	}

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM contracts`,
	).Scan(&stats.TotalContracts, &stats.TotalValue)
	if err != nil {
		return nil, err
	}

	if err := r.scanGroupedCounts(ctx,
		`SELECT risk_level, COUNT(*) FROM contracts GROUP BY risk_level`,
		stats.RiskDistribution,
	); err != nil {
		return nil, err
	}

	if err := r.scanGroupedSums(ctx,
		`SELECT supplier, SUM(amount) AS total FROM contracts GROUP BY supplier ORDER BY total DESC LIMIT 10`,
		stats.TopSuppliers,
	); err != nil {
		return nil, err
	}

	if err := r.scanGroupedSums(ctx,
		fmt.Sprintf(`SELECT %s AS month, SUM(amount) FROM contracts GROUP BY month ORDER BY month`, r.monthExpr("award_date")),
		stats.MonthlyTrends,
	); err != nil {
		return nil, err
	}

	return stats, nil
}

// BillStats computes the bill-side dashboard aggregates.
func (r *SQLRepository) BillStats(ctx context.Context) (*domain.BillStats, error) {
	stats := &domain.BillStats{
		ByType: make(map[string]int),
	}

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount), 0), COALESCE(AVG(amount), 0) FROM bills`,
	).Scan(&stats.TotalBills, &stats.TotalAmount, &stats.AvgAmount)
	if err != nil {
		return nil, err
	}

	if err := r.scanGroupedCounts(ctx,
		`SELECT bill_type, COUNT(*) FROM bills GROUP BY bill_type`,
		stats.ByType,
	); err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *SQLRepository) scanGroupedCounts(ctx context.Context, query string, dest map[string]int) error {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		dest[key] = count
	}
	return rows.Err()
}

func (r *SQLRepository) scanGroupedSums(ctx context.Context, query string, dest map[string]float64) error {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var sum float64
		if err := rows.Scan(&key, &sum); err != nil {
			return err
		}
		dest[key] = sum
	}
	return rows.Err()
}

// monthExpr returns the driver-specific expression extracting the
// YYYY-MM prefix from a timestamp column.
func (r *SQLRepository) monthExpr(column string) string {
	if r.driver == "postgres" {
		return fmt.Sprintf("to_char(%s, 'YYYY-MM')", column)
	}
	// SQLite stores timestamps as text with a YYYY-MM-DD prefix.
	return fmt.Sprintf("substr(%s, 1, 7)", column)
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
