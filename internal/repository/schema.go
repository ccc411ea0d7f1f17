package repository

// Schema definitions for the Shafaf database.
// Compatible with both SQLite and PostgreSQL.

const schemaCitizens = `
CREATE TABLE IF NOT EXISTS citizens (
    id TEXT PRIMARY KEY,
    cnic TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    language TEXT NOT NULL DEFAULT 'english',
    status TEXT NOT NULL DEFAULT 'active',
    phone TEXT,
    email TEXT,
    address TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_citizens_cnic ON citizens(cnic);
`

const schemaBills = `
CREATE TABLE IF NOT EXISTS bills (
    id TEXT PRIMARY KEY,
    account_number TEXT NOT NULL UNIQUE,
    cnic TEXT NOT NULL,
    bill_type TEXT NOT NULL DEFAULT 'electricity',
    amount REAL NOT NULL,
    consumption REAL NOT NULL DEFAULT 0,
    due_date TIMESTAMP NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bills_cnic ON bills(cnic);
CREATE INDEX IF NOT EXISTS idx_bills_account ON bills(account_number);
CREATE INDEX IF NOT EXISTS idx_bills_type ON bills(bill_type);
`

const schemaContracts = `
CREATE TABLE IF NOT EXISTS contracts (
    id TEXT PRIMARY KEY,
    contract_number TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL,
    amount REAL NOT NULL,
    supplier TEXT NOT NULL,
    country TEXT NOT NULL,
    award_date TIMESTAMP NOT NULL,
    duration_months INTEGER NOT NULL DEFAULT 12,
    bid_count INTEGER NOT NULL DEFAULT 3,
    risk_score REAL NOT NULL DEFAULT 0,
    risk_level TEXT NOT NULL DEFAULT 'LOW',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contracts_number ON contracts(contract_number);
CREATE INDEX IF NOT EXISTS idx_contracts_supplier ON contracts(supplier);
CREATE INDEX IF NOT EXISTS idx_contracts_risk ON contracts(risk_level);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaCitizens,
		schemaBills,
		schemaContracts,
	}
}
