package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/faskesq-clinical-assist/internal/domain"
)

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(domain.DatabaseConfig{
		Host:         "db",
		Port:         5432,
		Database:     "faskesq",
		Username:     "faskesq",
		Password:     "secret",
		MaxOpenConns: 4,
		MaxIdleConns: 8,
	})

	assert.Equal(t, int32(4), cfg.MaxConns)
	assert.Equal(t, int32(4), cfg.MinConns, "min conns never exceed max conns")
	assert.Equal(t, time.Hour, cfg.MaxConnLife)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, "host=db port=5432 dbname=faskesq user=faskesq password=secret sslmode=disable", cfg.DSN())
}

func TestConfigFrom_DefaultPoolSize(t *testing.T) {
	cfg := ConfigFrom(domain.DatabaseConfig{SSLMode: "require"})
	assert.Equal(t, int32(10), cfg.MaxConns)
	assert.Equal(t, "require", cfg.SSLMode)
}

func TestMigrate_UnknownDirection(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	err := Migrate(context.Background(), "postgres://u:p@127.0.0.1:1/db?sslmode=disable", "../../migrations", "sideways", logger)
	assert.Error(t, err)
}

func TestDatabaseConnectionAndMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}()

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	url := fmt.Sprintf("postgres://testuser:testpass@%s:%d/testdb?sslmode=disable", host, port.Int())
	require.NoError(t, Migrate(ctx, url, "../../migrations", "up", logger))
	require.NoError(t, Migrate(ctx, url, "../../migrations", "up", logger), "second run is a no-op")

	db, err := NewConnection(ctx, Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "testdb",
		Username:    "testuser",
		Password:    "testpass",
		MaxConns:    5,
		MinConns:    1,
		MaxConnLife: time.Hour,
		MaxConnIdle: time.Minute,
		SSLMode:     "disable",
	}, logger)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Health(ctx))
	assert.NotZero(t, db.Stats().TotalConns())

	var tables int
	err = db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_name IN ('recommendation_records', 'examination_feedback')`).Scan(&tables)
	require.NoError(t, err)
	assert.Equal(t, 2, tables)
}
