//go:build integration

package integration

import (
	"context"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/nociq/nociq/internal/app"
	"github.com/nociq/nociq/internal/config"
	"github.com/nociq/nociq/internal/testutil"
)

const testSecretKey = "integration-test-secret"

// API contract path relative to the tests/integration directory.
const apiContractPath = "../../api/openapi/openapi.yaml"

var (
	testServer    *httptest.Server
	testClient    *testutil.Client
	testValidator *testutil.OpenAPIValidator
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := testutil.NewPostgresContainer(ctx)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	migrator, err := migrate.New(
		"file://../../migrations",
		pgContainer.ConnectionString,
	)
	if err != nil {
		log.Fatalf("create migrator: %v", err)
	}
	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("run migrations: %v", err)
	}

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         "0",
			MetricsPort:  "0",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: config.DatabaseConfig{
			URL:             pgContainer.ConnectionString,
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 3,
		},
		Storage: config.StorageConfig{
			Driver: "postgres",
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "text",
		},
		Auth: config.AuthConfig{
			SecretKey: testSecretKey,
		},
		// Geocoding disabled: tests must not reach the public Nominatim
		// endpoint.
		Geocoding: config.GeocodingConfig{
			Enabled: false,
		},
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("create app: %v", err)
	}

	testServer = httptest.NewServer(application.Router())
	defer testServer.Close()

	testValidator, err = testutil.LoadOpenAPIValidator(apiContractPath)
	if err != nil {
		log.Fatalf("load API contract: %v", err)
	}

	// Every response in the suite is checked against the contract.
	// Tests attach themselves with testClient.SetT.
	testClient = testutil.NewClientWithValidator(testServer.URL, testValidator).WithToken(mintTestToken())

	os.Exit(m.Run())
}
