package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"brand-archetype-api/utils"
)

type DB struct {
	*sql.DB
}

func InitDB(dbPath string) (*DB, error) {
	utils.LogStartup("Initializing database at: %s", dbPath)

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		utils.LogError("Failed to open database: %v", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		utils.LogError("Failed to ping database: %v", err)
		return nil, err
	}

	utils.LogStartup("Database connection established")

	if err := createTables(db); err != nil {
		utils.LogError("Failed to create tables: %v", err)
		return nil, err
	}

	utils.LogStartup("Database tables initialized successfully")
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Users table
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Invite tokens table
		`CREATE TABLE IF NOT EXISTS invites (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			token TEXT UNIQUE NOT NULL,
			invited_by INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			expires_at DATETIME NOT NULL,
			used_at DATETIME,
			FOREIGN KEY (invited_by) REFERENCES users(id)
		)`,

		// Assessment runs
		`CREATE TABLE IF NOT EXISTS assessments (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'in_progress' CHECK (status IN ('in_progress', 'completed', 'abandoned')),
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			completed_at DATETIME,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,

		// In-flight progress snapshots, one per assessment
		`CREATE TABLE IF NOT EXISTS assessment_snapshots (
			assessment_id TEXT PRIMARY KEY,
			responses TEXT NOT NULL,
			current_question_index INTEGER NOT NULL,
			saved_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (assessment_id) REFERENCES assessments(id) ON DELETE CASCADE
		)`,

		// Completed results
		`CREATE TABLE IF NOT EXISTS assessment_results (
			assessment_id TEXT PRIMARY KEY,
			primary_archetype TEXT NOT NULL,
			secondary_archetype TEXT NOT NULL,
			scores TEXT NOT NULL,
			confidence REAL NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (assessment_id) REFERENCES assessments(id) ON DELETE CASCADE
		)`,
	}

	for i, query := range queries {
		utils.LogDB("Creating table %d/%d", i+1, len(queries))
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// Create indexes for performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_assessments_user_id ON assessments(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_assessments_status ON assessments(status)",
		"CREATE INDEX IF NOT EXISTS idx_invites_token ON invites(token)",
		"CREATE INDEX IF NOT EXISTS idx_invites_email ON invites(email)",
	}

	for _, index := range indexes {
		if _, err := db.Exec(index); err != nil {
			utils.LogDB("Failed to create index (non-fatal): %v", err)
		}
	}

	return nil
}
