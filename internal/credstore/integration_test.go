package credstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"clubhub/client/internal/config"
)

// Integration tests start real backends with testcontainers-go:
//
//	GO_TEST_INTEGRATION=1 go test ./internal/credstore -v -count=1

func startContainer(t *testing.T, req tc.ContainerRequest, port string) string {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

func TestRedisIntegration(t *testing.T) {
	addr := startContainer(t, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}, "6379/tcp")

	s, err := NewRedis(context.Background(), config.RedisConfig{Addr: addr, Prefix: "test:"})
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestPostgresIntegration(t *testing.T) {
	addr := startContainer(t, tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}, "5432/tcp")

	ctx := context.Background()
	s, err := NewPostgres(ctx, config.PostgresConfig{
		DSN:     fmt.Sprintf("postgres://user:pass@%s/db?sslmode=disable", addr),
		MaxOpen: 2,
		Table:   "credentials",
	})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.EnsureSchema(ctx))
	exerciseStore(t, s)
}

func TestMinioIntegration(t *testing.T) {
	addr := startContainer(t, tc.ContainerRequest{
		Image: "minio/minio:latest",
		Env: map[string]string{
			"MINIO_ROOT_USER":     "root",
			"MINIO_ROOT_PASSWORD": "rootpass",
		},
		Cmd:          []string{"server", "/data"},
		ExposedPorts: []string{"9000/tcp"},
		WaitingFor:   wait.ForListeningPort("9000/tcp").WithStartupTimeout(60 * time.Second),
	}, "9000/tcp")

	ctx := context.Background()
	s, err := NewMinio(config.MinioConfig{
		Endpoint:  "http://" + addr,
		AccessKey: "root",
		SecretKey: "rootpass",
		Bucket:    "clubhub-credentials",
		Region:    "us-east-1",
		Prefix:    "sessions/",
	})
	require.NoError(t, err)
	require.NoError(t, s.EnsureBucket(ctx))

	exerciseStore(t, s)
}
