package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	pgOnce      sync.Once
	pgContainer testcontainers.Container
	pgDSN       string
	pgErr       error
)

// GetPostgresDSN starts (once per test binary) a disposable PostgreSQL
// container and returns its DSN. The test is skipped in -short mode or when
// no container runtime is available.
func GetPostgresDSN(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}
	startPostgresOnce()
	if pgErr != nil {
		t.Skipf("postgres container unavailable: %v", pgErr)
	}
	return pgDSN
}

const (
	pgImage    = "postgres:16"
	pgPort     = nat.Port("5432/tcp")
	pgUser     = "orderdesk"
	pgPassword = "orderdesk"
	pgDatabase = "orderdesk_test"
)

func postgresDSN(hostPort string) string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", pgUser, pgPassword, hostPort, pgDatabase)
}

func startPostgresOnce() {
	pgOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		ready := wait.ForAll(
			wait.ForListeningPort(pgPort),
			wait.ForLog("ready to accept connections"),
			wait.ForSQL(pgPort, "pgx", func(host string, port nat.Port) string {
				return postgresDSN(host + ":" + port.Port())
			}).WithQuery("SELECT 1"),
		).WithDeadline(2 * time.Minute)

		c, err := testcontainers.Run(ctx, pgImage,
			testcontainers.WithExposedPorts(string(pgPort)),
			testcontainers.WithWaitStrategy(ready),
			testcontainers.WithEnv(map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDatabase,
			}),
		)
		if err != nil {
			pgErr = fmt.Errorf("start %s: %w", pgImage, err)
			return
		}

		endpoint, err := c.Endpoint(ctx, "")
		if err != nil {
			_ = c.Terminate(context.Background())
			pgErr = fmt.Errorf("resolve postgres endpoint: %w", err)
			return
		}

		pgContainer = c
		pgDSN = postgresDSN(endpoint)
	})
}

// TerminatePostgres stops the shared container; call it from TestMain.
func TerminatePostgres() {
	if pgContainer != nil {
		_ = pgContainer.Terminate(context.Background())
	}
}
