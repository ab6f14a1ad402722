package pgstore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/jobchain/internal/statestore"
	"github.com/vk/jobchain/internal/statestore/storetest"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestConfigValidate(t *testing.T) {
	base := Config{URL: "postgres://x", Table: DefaultTable, PingTimeout: time.Second, MaxOpenConns: 2, MaxIdleConns: 1}
	require.NoError(t, base.Validate())

	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty url", mutate: func(c *Config) { c.URL = "" }},
		{name: "injected table", mutate: func(c *Config) { c.Table = "state; DROP TABLE x" }},
		{name: "zero ping", mutate: func(c *Config) { c.PingTimeout = 0 }},
		{name: "no conns", mutate: func(c *Config) { c.MaxOpenConns = 0 }},
		{name: "idle above open", mutate: func(c *Config) { c.MaxIdleConns = 3 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("JOBCHAIN_DATABASE_URL", "postgres://u:p@db:5432/chains")
	t.Setenv("JOBCHAIN_DATABASE_MAX_OPEN_CONNS", "4")
	t.Setenv("JOBCHAIN_DATABASE_MAX_IDLE_CONNS", "2")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/chains", cfg.URL)
	assert.Equal(t, DefaultTable, cfg.Table)
	assert.Equal(t, 4, cfg.MaxOpenConns)
}

func TestNew_RejectsBadTable(t *testing.T) {
	_, err := New(nil, "x")
	assert.Error(t, err)
}

// TestConformance needs a reachable PostgreSQL; it runs only when
// JOBCHAIN_TEST_DATABASE_URL is set.
func TestConformance(t *testing.T) {
	url := os.Getenv("JOBCHAIN_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("JOBCHAIN_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := Open(ctx, Config{URL: url, Table: DefaultTable, PingTimeout: 5 * time.Second, MaxOpenConns: 40, MaxIdleConns: 5})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	storetest.Run(t, func(t *testing.T) (statestore.Store, func(time.Duration)) {
		table := fmt.Sprintf("jobchain_test_%s", uuid.NewString()[:8])
		clock := &manualClock{now: time.Now()}
		s, err := New(db, table, WithClock(clock.Now))
		require.NoError(t, err)
		require.NoError(t, s.Migrate(ctx))
		t.Cleanup(func() {
			_, _ = db.ExecContext(context.Background(), "DROP TABLE IF EXISTS "+table)
		})
		return s, clock.Advance
	})
}
