package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type dialect struct {
	name   string
	get    string
	upsert string
	delete string
}

var (
	sqliteDialect = dialect{
		name: "sqlite",
		get:  `SELECT value FROM kv_store WHERE key = ?`,
		upsert: `INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		         ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		delete: `DELETE FROM kv_store WHERE key = ?`,
	}
	postgresDialect = dialect{
		name: "postgres",
		get:  `SELECT value FROM kv_store WHERE key = $1`,
		upsert: `INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, NOW())
		         ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		delete: `DELETE FROM kv_store WHERE key = $1`,
	}
)

// SQLStore keeps blobs in a single kv_store table. Keys never expire.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// openDB opens and pings a database, closing the handle if the ping fails.
func openDB(driverName, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// every sqlite connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)
	return &SQLStore{db: db, dialect: sqliteDialect}, nil
}

func NewPostgresStore(cred *Credentials) (*SQLStore, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := openDB("postgres", psqlconn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &SQLStore{db: db, dialect: postgresDialect}, nil
}

// RunMigrations applies <migrationsPath>/<dialect> migrations.
func (s *SQLStore) RunMigrations(migrationsPath string) error {
	var (
		driver database.Driver
		err    error
	)
	switch s.dialect.name {
	case "sqlite":
		driver, err = sqlite.WithInstance(s.db, &sqlite.Config{})
	default:
		driver, err = postgres.WithInstance(s.db, &postgres.Config{
			MigrationsTable: "storefront_schema_migrations",
		})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s/%s", migrationsPath, s.dialect.name),
		s.dialect.name,
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, s.dialect.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query key: %w", err)
	}
	return value, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, key, value); err != nil {
		return fmt.Errorf("failed to upsert key: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.delete, key); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
