// Package storage selects and opens the configured store backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	repository "github.com/okian/rsvp/internal/adapters/repository"
	"github.com/okian/rsvp/internal/adapters/repository/gormstore"
	"github.com/okian/rsvp/internal/adapters/repository/sqlstore"
	"github.com/okian/rsvp/pkg/logger"
)

// Supported drivers.
const (
	DriverMemory     = "memory"
	DriverSQLite     = "sqlite"
	DriverGormSQLite = "gorm-sqlite"
	DriverGormMySQL  = "gorm-mysql"
)

// ErrUnknownDriver is returned for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown storage driver")

// Drivers lists every accepted driver name.
func Drivers() []string {
	return []string{DriverMemory, DriverSQLite, DriverGormSQLite, DriverGormMySQL}
}

// Open builds the store for driver and wraps it with storage metrics.
func Open(ctx context.Context, driver, dsn string, log logger.Logger) (repository.Store, error) {
	if log == nil {
		log = logger.Nop()
	}

	var (
		s   repository.Store
		err error
	)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverMemory:
		s = repository.NewMemoryStore()
	case DriverSQLite:
		s, err = sqlstore.Open(ctx, dsn)
	case DriverGormSQLite:
		s, err = gormstore.OpenSQLite(ctx, dsn, gormstore.WithLogger(log))
	case DriverGormMySQL:
		s, err = gormstore.OpenMySQL(ctx, dsn, gormstore.WithLogger(log))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}

	log.Info(ctx, "storage opened", logger.String("driver", driver))
	return repository.Instrument(s), nil
}
