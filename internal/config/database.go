package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"golang.org/x/crypto/bcrypt"
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := seedDefaultUsers(db); err != nil {
		return nil, fmt.Errorf("failed to seed default users: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	// Create users table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL CHECK (role IN ('admin', 'accountant', 'employee')),
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create funds table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS funds (
			id VARCHAR(36) PRIMARY KEY,
			fund_name VARCHAR(255) NOT NULL,
			total_amount DOUBLE PRECISION NOT NULL,
			remaining_amount DOUBLE PRECISION NOT NULL,
			created_by VARCHAR(36) NOT NULL REFERENCES users(id),
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create expenses table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS expenses (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL REFERENCES users(id),
			fund_id VARCHAR(36) NOT NULL REFERENCES funds(id),
			amount DOUBLE PRECISION NOT NULL,
			category VARCHAR(100) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			receipt_url TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
			approved_by VARCHAR(36) REFERENCES users(id),
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create audit_logs table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) REFERENCES users(id),
			action VARCHAR(50) NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create indexes for the common list queries
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_expenses_user_id ON expenses(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_expenses_fund_id ON expenses(fund_id)",
		"CREATE INDEX IF NOT EXISTS idx_expenses_created_at ON expenses(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at)",
	}

	for _, idx := range indexes {
		// Indexes are not critical
		_, _ = db.Exec(idx)
	}

	return nil
}

// seedDefaultUsers creates the bootstrap accounts on first run. Without a
// seeded admin there is no way to create funds or other users.
func seedDefaultUsers(db *sqlx.DB) error {
	var exists bool
	err := db.Get(&exists, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, "admin@company.com")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	seeds := []struct {
		name     string
		email    string
		password string
		role     string
	}{
		{"System Admin", "admin@company.com", "admin123", "admin"},
		{"John Accountant", "accountant@company.com", "acc123", "accountant"},
		{"Jane Employee", "employee@company.com", "emp123", "employee"},
	}

	for _, s := range seeds {
		hashed, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		_, err = db.Exec(
			`INSERT INTO users (id, name, email, password, role, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(), s.name, s.email, string(hashed), s.role, time.Now().UTC(),
		)
		if err != nil {
			return err
		}
	}

	return nil
}
