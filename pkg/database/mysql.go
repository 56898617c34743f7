package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/igrejaconnect/campaign-service/environments"
	"github.com/igrejaconnect/campaign-service/pkg/logger"
)

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

func RunMigrations(db *sqlx.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS recipients (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(120) NOT NULL,
			phone VARCHAR(20) NOT NULL,
			gender VARCHAR(10) NOT NULL DEFAULT '',
			city VARCHAR(80) NOT NULL DEFAULT '',
			birth_date DATE,
			registered_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_recipients_registered_at (registered_at),
			INDEX idx_recipients_gender (gender)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS campaigns (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(120) NOT NULL,
			message TEXT NOT NULL,
			media_url VARCHAR(255),
			criteria TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'draft',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			closed_at DATETIME,
			INDEX idx_campaigns_name (name),
			INDEX idx_campaigns_created_at (created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS delivery_records (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			campaign_id BIGINT NOT NULL,
			recipient_id BIGINT NOT NULL,
			phone VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			attempted_at DATETIME,
			error_reason VARCHAR(255),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_delivery_campaign_recipient (campaign_id, recipient_id),
			INDEX idx_delivery_status (campaign_id, status),
			INDEX idx_delivery_attempted_at (attempted_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
	}

	for _, schema := range schemas {
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	logger.Infof("Database migrations completed")

	return nil
}

func SeedTestData(db *sqlx.DB) error {
	var count int

	err := db.Get(&count, "SELECT COUNT(*) FROM recipients")
	if err != nil {
		return err
	}

	if count > 0 {
		logger.Infof("Database already has %d recipients, skipping seed", count)
		return nil
	}

	testRecipients := []struct {
		name      string
		phone     string
		gender    string
		city      string
		birthDate string
	}{
		{"Ana Souza", "5548991234567", "F", "Florianopolis", "1996-03-14"},
		{"Bruno Lima", "5548992345678", "M", "Palhoca", "1988-11-02"},
		{"Carla Mendes", "5548993456789", "F", "Sao Jose", "2001-07-25"},
		{"Daniel Rocha", "5548994567890", "M", "Florianopolis", "1975-01-30"},
		{"Elisa Castro", "5548995678901", "F", "Biguacu", "1999-09-08"},
		{"Felipe Nunes", "5548996789012", "M", "Florianopolis", "1992-05-17"},
		{"Gabriela Dias", "5548997890123", "F", "Sao Jose", "1983-12-21"},
		{"Heitor Alves", "5548998901234", "M", "Palhoca", "2004-04-05"},
		{"Isabela Pinto", "5548999012345", "F", "Florianopolis", "1990-06-11"},
		{"Joao Pereira", "5548990123456", "M", "Biguacu", "1968-08-29"},
	}

	for _, r := range testRecipients {
		_, err := db.Exec(
			"INSERT INTO recipients (name, phone, gender, city, birth_date) VALUES (?, ?, ?, ?, ?)",
			r.name, r.phone, r.gender, r.city, r.birthDate,
		)
		if err != nil {
			return fmt.Errorf("failed to seed test data: %w", err)
		}
	}

	logger.Infof("Seeded %d test recipients", len(testRecipients))
	return nil
}
