package postgres

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/ds124wfegd/confhub/config"

	_ "github.com/lib/pq"
)

func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to PostgreSQL")
	return db, nil
}

func RunMigrations(db *sql.DB) error {
	// Read migration files and execute them
	// This is a simplified version - you might want to use a proper migration tool
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL,
			organization VARCHAR(255),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS events (
			id SERIAL PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			description TEXT,
			organizer_id INTEGER REFERENCES users(id),
			start_date TIMESTAMP NOT NULL,
			end_date TIMESTAMP NOT NULL,
			timezone VARCHAR(64) DEFAULT 'UTC',
			category VARCHAR(100),
			status VARCHAR(20) DEFAULT 'draft',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS tickets (
			id SERIAL PRIMARY KEY,
			event_id INTEGER REFERENCES events(id) ON DELETE CASCADE,
			type VARCHAR(20) NOT NULL,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			price BIGINT NOT NULL,
			early_bird_price BIGINT,
			early_bird_deadline TIMESTAMP,
			quantity INTEGER NOT NULL,
			sold INTEGER NOT NULL DEFAULT 0,
			max_per_order INTEGER NOT NULL DEFAULT 10,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT tickets_sold_within_quantity CHECK (sold >= 0 AND sold <= quantity)
		)`,

		`CREATE TABLE IF NOT EXISTS registrations (
			id SERIAL PRIMARY KEY,
			event_id INTEGER REFERENCES events(id) ON DELETE CASCADE,
			user_id INTEGER REFERENCES users(id),
			ticket_id INTEGER REFERENCES tickets(id),
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
			amount BIGINT NOT NULL,
			qr_code VARCHAR(255) NOT NULL,
			checked_in BOOLEAN NOT NULL DEFAULT FALSE,
			check_in_time TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// One non-cancelled registration per user per event
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_registrations_active_user
			ON registrations(event_id, user_id) WHERE status != 'cancelled'`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id SERIAL PRIMARY KEY,
			event_id INTEGER REFERENCES events(id) ON DELETE CASCADE,
			title VARCHAR(255) NOT NULL,
			description TEXT,
			speaker_id INTEGER REFERENCES users(id),
			speaker_name VARCHAR(255),
			room VARCHAR(100),
			start_time TIMESTAMP NOT NULL,
			end_time TIMESTAMP NOT NULL,
			capacity INTEGER NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS session_attendees (
			position SERIAL PRIMARY KEY,
			session_id INTEGER REFERENCES sessions(id) ON DELETE CASCADE,
			user_id INTEGER REFERENCES users(id),
			role VARCHAR(20) NOT NULL DEFAULT 'attendee',
			joined_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (session_id, user_id)
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_tickets_event_id ON tickets(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_registrations_event_id ON registrations(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_registrations_user_id ON registrations(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_registrations_status ON registrations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_registrations_ticket_status ON registrations(ticket_id, status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_event_id ON sessions(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_event_time ON sessions(event_id, start_time, end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_session_attendees_session ON session_attendees(session_id, role)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %v", err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}
