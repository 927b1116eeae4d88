package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryLocation opens a private in-memory SQLite database.
const MemoryLocation = ":memory:"

type Kind string

const (
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
)

// Store is an open relational store owned by one process for one run.
type Store struct {
	DB       *gorm.DB
	Kind     Kind
	Location string
}

// KindOf tells which engine a location addresses: postgres URLs go to
// Postgres, everything else is an SQLite file path or MemoryLocation.
func KindOf(location string) Kind {
	if strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://") {
		return KindPostgres
	}
	return KindSQLite
}

func configurePool(sqlDB *sql.DB, kind Kind) {
	if kind == KindSQLite {
		// one connection: pragmas are per connection and :memory: databases
		// vanish with theirs
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
		return
	}

	const (
		maxOpenConns    = 20
		maxIdleConns    = 10
		connMaxLifetime = 30 * time.Minute
		connMaxIdleTime = 5 * time.Minute
	)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
}

func Open(ctx context.Context, location string) (*Store, error) {
	if location == "" {
		return nil, errors.New("store location is empty")
	}

	kind := KindOf(location)
	var dialector gorm.Dialector
	switch kind {
	case KindPostgres:
		dialector = postgres.Open(location)
	default:
		if location != MemoryLocation {
			if err := os.MkdirAll(filepath.Dir(location), 0o755); err != nil {
				return nil, fmt.Errorf("create store directory: %w", err)
			}
		}
		dialector = sqlite.Open(location)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", location, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	configurePool(sqlDB, kind)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}

	s := &Store{DB: db, Kind: kind, Location: location}
	if err := s.SetForeignKeys(ctx, true); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func OpenMemory(ctx context.Context) (*Store, error) {
	return Open(ctx, MemoryLocation)
}

// SetForeignKeys toggles SQLite foreign-key enforcement on the store's single
// connection. Postgres always enforces declared keys, so it is a no-op there.
func (s *Store) SetForeignKeys(ctx context.Context, on bool) error {
	if s.Kind != KindSQLite {
		return nil
	}
	stmt := "PRAGMA foreign_keys = OFF"
	if on {
		stmt = "PRAGMA foreign_keys = ON"
	}
	if err := s.DB.WithContext(ctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("set foreign keys: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Discard tears the store down after a failed mutating run: the SQLite file
// is removed, Postgres tables are dropped.
func (s *Store) Discard(ctx context.Context) error {
	var dropErr error
	if s.Kind == KindPostgres {
		dropErr = s.DropTables(ctx)
	}
	closeErr := s.Close()
	if s.Kind == KindSQLite && s.Location != MemoryLocation {
		if err := RemoveFile(s.Location); err != nil {
			return err
		}
	}
	return errors.Join(dropErr, closeErr)
}

// RemoveFile deletes an SQLite database file. A missing file is fine.
func RemoveFile(location string) error {
	if KindOf(location) != KindSQLite || location == MemoryLocation {
		return nil
	}
	if err := os.Remove(location); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", location, err)
	}
	return nil
}
