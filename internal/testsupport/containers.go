package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// requireDocker skips integration tests in -short mode or when no container
// runtime is reachable.
func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

func runContainer(t *testing.T, image string, opts ...testcontainers.ContainerCustomizer) (testcontainers.Container, string) {
	t.Helper()
	requireDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	c, err := testcontainers.Run(ctx, image, opts...)
	testcontainers.CleanupContainer(t, c)
	if err != nil {
		t.Fatalf("start %s: %v", image, err)
	}
	endpoint, err := c.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("endpoint %s: %v", image, err)
	}
	return c, endpoint
}

// StartPostgres runs a throwaway Postgres and returns its DSN.
func StartPostgres(t *testing.T) string {
	t.Helper()
	_, endpoint := runContainer(t, "postgres:16",
		testcontainers.WithExposedPorts("5432/tcp"),
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_USER":     "vigil",
			"POSTGRES_PASSWORD": "vigil",
			"POSTGRES_DB":       "vigil_test",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(2*time.Minute),
		),
	)
	return fmt.Sprintf("postgres://vigil:vigil@%s/vigil_test?sslmode=disable", endpoint)
}

// StartMongo runs a throwaway MongoDB and returns its URI.
func StartMongo(t *testing.T) string {
	t.Helper()
	_, endpoint := runContainer(t, "mongo:7",
		testcontainers.WithExposedPorts("27017/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("27017/tcp"),
			wait.ForLog("mongod startup complete"),
		),
	)
	return fmt.Sprintf("mongodb://%s", endpoint)
}

// StartRedis runs a throwaway Redis and returns host:port.
func StartRedis(t *testing.T) string {
	t.Helper()
	_, endpoint := runContainer(t, "redis:7",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("6379/tcp"),
			wait.ForLog("Ready to accept connections"),
		),
	)
	return endpoint
}
