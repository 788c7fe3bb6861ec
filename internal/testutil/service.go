// Package testutil provides shared helpers for repository tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/artifexhq/artifex/domain/artifact"
	"github.com/artifexhq/artifex/domain/derive"
	"github.com/artifexhq/artifex/domain/repository"
	"github.com/artifexhq/artifex/internal/config"
	"github.com/artifexhq/artifex/internal/storage/memory"
	"github.com/artifexhq/artifex/pkg/metrics"
)

// NewService builds a fully wired repository service over the in-memory
// store, with auditing enabled. Each call gets an isolated store.
func NewService(t *testing.T) *repository.Service {
	t.Helper()
	return NewServiceWithConfig(t, &config.Config{
		Repository: config.RepositoryConfig{
			Driver:       "memory",
			Auditing:     true,
			AuditDerived: true,
		},
	})
}

// NewServiceWithConfig is NewService with caller-controlled settings.
func NewServiceWithConfig(t *testing.T, cfg *config.Config) *repository.Service {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	framework := derive.NewFramework(derive.NewRegistry(), log)
	return repository.NewService(memory.NewStore(), framework, cfg, metrics.NewMetrics(), log)
}

// Ctx returns a context attributed to the given actor.
func Ctx(actor string) context.Context {
	return repository.WithActor(context.Background(), actor)
}

// MustCreate persists an artifact and fails the test on error.
func MustCreate(t *testing.T, svc *repository.Service, ctx context.Context, a *artifact.Artifact, content []byte) *artifact.Artifact {
	t.Helper()
	out, err := svc.PersistArtifact(ctx, a, content)
	require.NoError(t, err)
	return out
}
