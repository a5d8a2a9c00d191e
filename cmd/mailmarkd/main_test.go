package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/emurenMRz/mailmark/internal/store"
)

func TestPruneOnce(t *testing.T) {
	sessions, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sessions.Close() })

	ctx := context.Background()
	now := time.Now()
	for id, created := range map[string]time.Time{
		"old":   now.Add(-48 * time.Hour),
		"fresh": now,
	} {
		require.NoError(t, sessions.SaveSession(ctx, store.Session{
			ID: id, UserID: "uid", Email: "ann@example.com",
			Token: &oauth2.Token{AccessToken: "tok"}, CreatedAt: created,
		}))
	}

	pruneOnce(ctx, sessions, now.Add(-24*time.Hour), zap.NewNop())

	_, err = sessions.GetSession(ctx, "old")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
	_, err = sessions.GetSession(ctx, "fresh")
	assert.NoError(t, err)

	expected := `
# HELP mailmark_sessions_active Sessions held in the session store
# TYPE mailmark_sessions_active gauge
mailmark_sessions_active 1
`
	assert.NoError(t, testutil.GatherAndCompare(prometheus.DefaultGatherer, strings.NewReader(expected), "mailmark_sessions_active"))
}
