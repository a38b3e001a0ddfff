// Package testutil spins up a throwaway embedded PostgreSQL instance per
// test. The row-locking paths under test need real FOR UPDATE semantics,
// which lighter test databases do not provide.
package testutil

import (
	"fmt"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/models"
	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// freePort asks the kernel for an unused TCP port
func freePort(tb testing.TB) int {
	tb.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("failed to find free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// OpenTestDB starts an embedded PostgreSQL in the test's temp directory,
// opens a gorm connection, migrates the full schema and registers cleanup.
func OpenTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	tmp := tb.TempDir()
	port := freePort(tb)

	cfg := embeddedpostgres.DefaultConfig().
		Port(uint32(port)).
		DataPath(filepath.Join(tmp, "data")).
		RuntimePath(filepath.Join(tmp, "runtime")).
		Database("clinica_camsa_test").
		Username("postgres").
		Password("postgres").
		StartTimeout(45 * time.Second).
		Logger(io.Discard)

	embedded := embeddedpostgres.NewDatabase(cfg)
	if err := embedded.Start(); err != nil {
		tb.Fatalf("failed to start embedded postgres: %v", err)
	}
	tb.Cleanup(func() {
		if err := embedded.Stop(); err != nil {
			tb.Errorf("failed to stop embedded postgres: %v", err)
		}
	})

	dsn := fmt.Sprintf(
		"host=localhost port=%d user=postgres password=postgres dbname=clinica_camsa_test sslmode=disable",
		port,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		tb.Fatalf("failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.StaffUser{},
		&models.ProductCategory{},
		&models.Product{},
		&models.Room{},
		&models.Patient{},
		&models.Device{},
		&models.PatientAssignment{},
		&models.InventoryBalance{},
		&models.InventoryMovement{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusEvent{},
		&models.Feedback{},
	)
	if err != nil {
		tb.Fatalf("failed to migrate test schema: %v", err)
	}

	return db
}
