package e2e

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"

	"github.com/nidhogg/praximous/internal/api"
	"github.com/nidhogg/praximous/internal/audit"
	"github.com/nidhogg/praximous/internal/config"
	"github.com/nidhogg/praximous/internal/dispatch"
	"github.com/nidhogg/praximous/internal/provider"
	"github.com/nidhogg/praximous/internal/skill"
)

// Package-level shared state — set by TestMain, used by all subtests.
var (
	testLogger   *zap.Logger
	testPGStore  *audit.PostgresStore
	testRedisURL string
)

// startPostgres starts a PostgreSQL testcontainer, returns DSN + cleanup func.
func startPostgres(ctx context.Context) (string, func(), error) {
	container, err := tcpg.Run(ctx, "postgres:16-alpine",
		tcpg.WithDatabase("praximous_test"),
		tcpg.WithUsername("test"),
		tcpg.WithPassword("test"),
		tcpg.BasicWaitStrategies(),
	)
	if err != nil {
		return "", nil, fmt.Errorf("start postgres: %w", err)
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return "", nil, fmt.Errorf("pg connection string: %w", err)
	}
	cleanup := func() { container.Terminate(ctx) }
	return dsn, cleanup, nil
}

// startRedis starts a Redis testcontainer, returns URL + cleanup func.
func startRedis(ctx context.Context) (string, func(), error) {
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return "", nil, fmt.Errorf("start redis: %w", err)
	}
	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		container.Terminate(ctx)
		return "", nil, fmt.Errorf("redis endpoint: %w", err)
	}
	url := "redis://" + endpoint
	cleanup := func() { container.Terminate(ctx) }
	return url, cleanup, nil
}

// setupGateway builds the full serving stack over the shared Postgres
// store and a fresh Redis publisher, exposed via httptest.
func setupGateway(t *testing.T) *httptest.Server {
	t.Helper()

	pub, err := audit.NewPublisher(testRedisURL, testLogger)
	if err != nil {
		t.Fatalf("create publisher: %v", err)
	}
	sink := audit.NewSink(testPGStore, pub, testLogger)
	t.Cleanup(pub.Close)

	t.Setenv("E2E_OLLAMA_URL", "http://localhost:11434")
	providers, err := provider.NewRegistry([]config.ProviderConfig{
		{Name: "local-ollama", Type: "ollama", Model: "llama3", BaseURLEnv: "E2E_OLLAMA_URL", Priority: 1, Enabled: true},
	}, testLogger)
	if err != nil {
		t.Fatalf("new provider registry: %v", err)
	}

	skills := skill.NewRegistry(testLogger)
	skills.Register(skill.NewEchoSkill(testLogger))
	skills.Register(skill.NewMathSkill(testLogger))
	skills.Register(skill.NewTextSkill(testLogger))

	d := dispatch.New(skills, sink, testLogger)
	h := api.NewHandler(d, skills, providers, sink, func() error { return nil }, testLogger)

	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv
}
