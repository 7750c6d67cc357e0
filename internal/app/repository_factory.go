package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	billingDomain "github.com/felixgeelhaar/vigil/internal/billing/domain"
	billingPersistence "github.com/felixgeelhaar/vigil/internal/billing/infrastructure/persistence"
	consentDomain "github.com/felixgeelhaar/vigil/internal/consent/domain"
	consentPersistence "github.com/felixgeelhaar/vigil/internal/consent/infrastructure/persistence"
	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/database"
	trackingDomain "github.com/felixgeelhaar/vigil/internal/tracking/domain"
	trackingPersistence "github.com/felixgeelhaar/vigil/internal/tracking/infrastructure/persistence"
	workforceDomain "github.com/felixgeelhaar/vigil/internal/workforce/domain"
	workforcePersistence "github.com/felixgeelhaar/vigil/internal/workforce/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditStore is a table backed consent audit log.
type AuditStore interface {
	consentDomain.AuditLog
	consentDomain.AuditPruner
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*consentDomain.AuditRecord, error)
}

// RepositoryFactory creates repositories based on the database driver.
type RepositoryFactory struct {
	driver database.Driver
	pool   *pgxpool.Pool
	db     *sql.DB
}

// NewPostgresRepositoryFactory creates a factory backed by a pgx pool.
func NewPostgresRepositoryFactory(pool *pgxpool.Pool) *RepositoryFactory {
	return &RepositoryFactory{driver: database.DriverPostgres, pool: pool}
}

// NewSQLiteRepositoryFactory creates a factory backed by a SQLite handle.
func NewSQLiteRepositoryFactory(db *sql.DB) *RepositoryFactory {
	return &RepositoryFactory{driver: database.DriverSQLite, db: db}
}

// Driver returns the backend the factory builds repositories for.
func (f *RepositoryFactory) Driver() database.Driver {
	return f.driver
}

// EmployeeRepository creates an employee repository for the configured driver.
func (f *RepositoryFactory) EmployeeRepository() (workforceDomain.EmployeeRepository, error) {
	switch f.driver {
	case database.DriverPostgres:
		pool, err := f.getPostgresPool()
		if err != nil {
			return nil, err
		}
		return workforcePersistence.NewPostgresEmployeeRepository(pool), nil

	case database.DriverSQLite:
		db, err := f.getSQLiteDB()
		if err != nil {
			return nil, err
		}
		return workforcePersistence.NewSQLiteEmployeeRepository(db), nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// AgreementRepository creates a work agreement repository for the configured driver.
func (f *RepositoryFactory) AgreementRepository() (workforceDomain.AgreementRepository, error) {
	switch f.driver {
	case database.DriverPostgres:
		pool, err := f.getPostgresPool()
		if err != nil {
			return nil, err
		}
		return workforcePersistence.NewPostgresAgreementRepository(pool), nil

	case database.DriverSQLite:
		db, err := f.getSQLiteDB()
		if err != nil {
			return nil, err
		}
		return workforcePersistence.NewSQLiteAgreementRepository(db), nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// SubscriptionRepository creates a subscription repository for the configured driver.
func (f *RepositoryFactory) SubscriptionRepository() (billingDomain.SubscriptionRepository, error) {
	switch f.driver {
	case database.DriverPostgres:
		pool, err := f.getPostgresPool()
		if err != nil {
			return nil, err
		}
		return billingPersistence.NewPostgresSubscriptionRepository(pool), nil

	case database.DriverSQLite:
		db, err := f.getSQLiteDB()
		if err != nil {
			return nil, err
		}
		return billingPersistence.NewSQLiteSubscriptionRepository(db), nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// TimeEntryRepository creates a time entry repository for the configured driver.
func (f *RepositoryFactory) TimeEntryRepository() (trackingDomain.TimeEntryRepository, error) {
	switch f.driver {
	case database.DriverPostgres:
		pool, err := f.getPostgresPool()
		if err != nil {
			return nil, err
		}
		return trackingPersistence.NewPostgresTimeEntryRepository(pool), nil

	case database.DriverSQLite:
		db, err := f.getSQLiteDB()
		if err != nil {
			return nil, err
		}
		return trackingPersistence.NewSQLiteTimeEntryRepository(db), nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// AuditRepository creates a table backed consent audit log for the configured driver.
func (f *RepositoryFactory) AuditRepository() (AuditStore, error) {
	switch f.driver {
	case database.DriverPostgres:
		pool, err := f.getPostgresPool()
		if err != nil {
			return nil, err
		}
		return consentPersistence.NewPostgresAuditRepository(pool), nil

	case database.DriverSQLite:
		db, err := f.getSQLiteDB()
		if err != nil {
			return nil, err
		}
		return consentPersistence.NewSQLiteAuditRepository(db), nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// Ping verifies the underlying connection.
func (f *RepositoryFactory) Ping(ctx context.Context) error {
	switch f.driver {
	case database.DriverPostgres:
		pool, err := f.getPostgresPool()
		if err != nil {
			return err
		}
		return pool.Ping(ctx)
	case database.DriverSQLite:
		db, err := f.getSQLiteDB()
		if err != nil {
			return err
		}
		return db.PingContext(ctx)
	default:
		return fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

func (f *RepositoryFactory) getPostgresPool() (*pgxpool.Pool, error) {
	if f.pool == nil {
		return nil, errors.New("postgres pool is not configured")
	}
	return f.pool, nil
}

func (f *RepositoryFactory) getSQLiteDB() (*sql.DB, error) {
	if f.db == nil {
		return nil, errors.New("sqlite database is not configured")
	}
	return f.db, nil
}
