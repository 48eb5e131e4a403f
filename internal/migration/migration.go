package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	catalogdomain "github.com/smallbiznis/salestream/internal/catalog/domain"
	runlogdomain "github.com/smallbiznis/salestream/internal/runlog/domain"
	salesdomain "github.com/smallbiznis/salestream/internal/sales/domain"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "migrations"

// RunMigrations applies the embedded SQL migrations to a postgres database.
// All ingestion tables are created automatically so the loader is usable
// out of the box for local and self-hosted environments.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Provision ensures the schema exists for whatever dialect the connection
// speaks: versioned SQL migrations on postgres, gorm AutoMigrate elsewhere
// (mysql, and the sqlite used by tests and local runs).
func Provision(conn *gorm.DB) error {
	if conn.Dialector.Name() == "postgres" {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}

	return conn.AutoMigrate(
		&catalogdomain.Region{},
		&catalogdomain.Category{},
		&catalogdomain.PaymentMethod{},
		&salesdomain.Customer{},
		&salesdomain.Product{},
		&salesdomain.Order{},
		&salesdomain.OrderItem{},
		&runlogdomain.RunLog{},
	)
}
