package database

import (
	"channelchat-backend/internal/models"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Setup opens the configured database (sqlite by default, mysql when
// cfg.DbDriver says so) and creates the schema.
func Setup(cfg *models.ConfigFile) (*sql.DB, error) {
	var db *sql.DB
	var err error

	switch cfg.DbDriver {
	case "", "sqlite":
		db, err = sql.Open("sqlite", cfg.DbFile)
		if err != nil {
			return nil, err
		}
		if err := setPragmaValues(db); err != nil {
			return nil, err
		}
	case "mysql":
		connString := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&timeout=10s",
			cfg.DbUser, cfg.DbPassword, cfg.DbAddress, cfg.DbPort, cfg.DbDatabase)
		db, err = sql.Open("mysql", connString)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown database driver [%s]", cfg.DbDriver)
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return db, nil
}

func setPragmaValues(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}

	// these next 2 extremely speed up performance of sqlite
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return err
	}

	if _, err := db.Exec("PRAGMA synchronous = normal"); err != nil {
		return err
	}

	return nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			username VARCHAR(32) NOT NULL UNIQUE,
			email VARCHAR(64) NOT NULL UNIQUE,
			password BINARY(60) NOT NULL,
			first_name VARCHAR(64) NOT NULL DEFAULT '',
			last_name VARCHAR(64) NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			profile_picture TEXT NOT NULL DEFAULT '',
			status VARCHAR(16) NOT NULL DEFAULT 'active',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS channels (
			id BIGINT PRIMARY KEY,
			owner_id BIGINT NOT NULL,
			name VARCHAR(64) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			FOREIGN KEY (owner_id) REFERENCES users(id)
		);
	`)
	if err != nil {
		return err
	}

	// deleting a channel cascades into its memberships and messages
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS memberships (
			user_id BIGINT NOT NULL,
			channel_id BIGINT NOT NULL,
			joined_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, channel_id),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (channel_id) REFERENCES channels(id) ON DELETE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id BIGINT PRIMARY KEY,
			channel_id BIGINT NOT NULL,
			author_id BIGINT NOT NULL,
			msg_type VARCHAR(8) NOT NULL,
			content TEXT,
			file_key TEXT,
			file_content_type TEXT,
			file_name TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			FOREIGN KEY (channel_id) REFERENCES channels(id) ON DELETE CASCADE,
			FOREIGN KEY (author_id) REFERENCES users(id) ON DELETE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	return nil
}
