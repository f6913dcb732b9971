package db

import (
	"database/sql"
	"fmt"
	"log"

	"Bt1Zen/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
func InitDB() error {
	if err := createGeneratedAudioTable(); err != nil {
		return err
	}

	log.Println("Database initialization completed.")
	return nil
}

func createGeneratedAudioTable() error {
	// Payload bytes live in object storage under object_key; this table
	// only carries the metadata the cache needs for lookup and expiry.
	query := `
	CREATE TABLE IF NOT EXISTS generated_audio (
		id VARCHAR(128) PRIMARY KEY,
		meditation_id VARCHAR(64) NOT NULL,
		object_key VARCHAR(255) NOT NULL,
		duration INT,
		voice_used VARCHAR(128),
		payload_size BIGINT,
		generated_at TIMESTAMP NULL,
		last_accessed TIMESTAMP NULL,
		INDEX idx_generated_audio_meditation (meditation_id),
		INDEX idx_generated_audio_generated_at (generated_at)
	);
	`
	_, err := DB.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create generated_audio table: %w", err)
	}
	log.Println("generated_audio table initialized successfully (or already exists).")
	return nil
}
