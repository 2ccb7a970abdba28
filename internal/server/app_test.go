package server

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/heartwall/internal/server/config"
	"github.com/dmitrijs2005/heartwall/internal/server/fanout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.HTTPAddr = "127.0.0.1:0"
	c.DatabaseDSN = ":memory:"
	c.LocalBlobDir = t.TempDir()
	c.LogLevel = "error"
	c.ShutdownTimeout = time.Second
	return c
}

func TestNewApp_SQLiteLocal(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	assert.Equal(t, fanout.Uninitialized, app.hub.State())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool { return app.hub.State() == fanout.Ready }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestNewApp_BadDriver(t *testing.T) {
	c := testConfig(t)
	c.DatabaseDriver = "oracle"
	_, err := NewApp(context.Background(), c)
	assert.Error(t, err)
}

func TestNewApp_BadBlobBackend(t *testing.T) {
	c := testConfig(t)
	c.BlobBackend = "tape"
	_, err := NewApp(context.Background(), c)
	assert.Error(t, err)
}

func TestRun_ListenErrorStopsApp(t *testing.T) {
	c := testConfig(t)
	c.HTTPAddr = "256.0.0.1:bad"
	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
