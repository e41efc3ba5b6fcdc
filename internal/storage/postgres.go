package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/karenbot/karen/internal/models"
)

//go:embed schema.sql
var schema embed.FS

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// PostgresStorage persists each thread as one JSONB document keyed by
// phone number, matching the overwrite-on-save contract of the Storage
// interface.
type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db}

	if err := storage.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	schemaSQL, err := schema.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("error reading schema file: %w", err)
	}

	if _, err := s.db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("error executing schema: %w", err)
	}
	return nil
}

func (s *PostgresStorage) LoadThread(ctx context.Context, phoneNumber string) (*models.Thread, error) {
	query := `
		SELECT document
		FROM conversation_threads
		WHERE phone_number = $1`

	var doc []byte
	err := s.db.QueryRowContext(ctx, query, phoneNumber).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying thread: %w", err)
	}

	var thread models.Thread
	if err := json.Unmarshal(doc, &thread); err != nil {
		return nil, fmt.Errorf("error decoding thread document: %w", err)
	}
	return &thread, nil
}

func (s *PostgresStorage) SaveThread(ctx context.Context, thread *models.Thread) error {
	doc, err := json.Marshal(thread)
	if err != nil {
		return fmt.Errorf("error encoding thread document: %w", err)
	}

	query := `
		INSERT INTO conversation_threads (phone_number, document, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone_number)
		DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`

	if _, err := s.db.ExecContext(ctx, query, thread.PhoneNumber, doc, time.Now().UTC()); err != nil {
		return fmt.Errorf("error saving thread: %w", err)
	}
	return nil
}

func (s *PostgresStorage) DeleteThread(ctx context.Context, phoneNumber string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM conversation_threads WHERE phone_number = $1`, phoneNumber)
	if err != nil {
		return fmt.Errorf("error deleting thread: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrThreadNotFound
	}
	return nil
}

func (s *PostgresStorage) ListActiveThreads(ctx context.Context) ([]*models.Thread, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document FROM conversation_threads ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("error querying threads: %w", err)
	}
	defer rows.Close()

	var threads []*models.Thread
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("error scanning thread document: %w", err)
		}
		var thread models.Thread
		if err := json.Unmarshal(doc, &thread); err != nil {
			return nil, fmt.Errorf("error decoding thread document: %w", err)
		}
		threads = append(threads, &thread)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threads: %w", err)
	}
	return threads, nil
}

func (s *PostgresStorage) Type() string {
	return BackendPostgres
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
