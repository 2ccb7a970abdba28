package cli

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/dmitrijs2005/heartwall/internal/client/config"
	"github.com/dmitrijs2005/heartwall/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetMode_ChangesAndLogsOnce(t *testing.T) {
	app := newTestApp(t, &fakeServer{}, "")
	var buf bytes.Buffer

	old := log.Default().Writer()
	defer log.SetOutput(old)
	log.SetOutput(&buf)

	app.setMode(ModeOnline)
	assert.Equal(t, ModeOnline, app.Mode())
	assert.NotEmpty(t, buf.String(), "expected log output on mode change")

	buf.Reset()
	app.setMode(ModeOnline)
	assert.Empty(t, buf.String(), "no log output when mode doesn't change")

	app.setMode(ModeOffline)
	assert.Equal(t, ModeOffline, app.Mode())
	assert.NotEmpty(t, buf.String())
}

func TestStartOnlineStatusWatcher_FollowsPing(t *testing.T) {
	old := log.Writer()
	log.SetOutput(&bytes.Buffer{})
	t.Cleanup(func() { log.SetOutput(old) })

	srv := &fakeServer{}
	app := newTestApp(t, srv, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.StartOnlineStatusWatcher(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool { return app.Mode() == ModeOnline }, time.Second, time.Millisecond)

	srv.setPingErr(errors.New("down"))
	require.Eventually(t, func() bool { return app.Mode() == ModeOffline }, time.Second, time.Millisecond)
}

func TestNewApp_RejectsBadServerURL(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ServerURL = "localhost:8080"

	_, err := NewApp(cfg)
	require.Error(t, err)

	cfg.ServerURL = "http://localhost:8080"
	app, err := NewApp(cfg)
	require.NoError(t, err)
	assert.NotNil(t, app)
}

func TestOnGalleryChange_AnnouncesOnlyNewForeignCards(t *testing.T) {
	out := captureOutput(t)
	srv := &fakeServer{history: []models.Memory{{ID: 1, Message: "old", CreatedAt: t0}}}
	app := newTestApp(t, srv, "")

	require.NoError(t, app.svc.Refresh(context.Background()))
	app.startAnnouncing()
	assert.NotContains(t, out(), "old")

	app.svc.Gallery().Insert(models.Memory{ID: 2, Nickname: "Jo", Message: "hello there", CreatedAt: t0.Add(time.Minute)})
	app.svc.Gallery().Insert(models.Memory{ID: 2, Nickname: "Jo", Message: "hello there", CreatedAt: t0.Add(time.Minute)})

	assert.Equal(t, 1, bytes.Count([]byte(out()), []byte("New card:")))
	assert.Contains(t, out(), "Jo: hello there")
}

func TestGetStatus(t *testing.T) {
	app := newTestApp(t, &fakeServer{}, "")
	assert.Equal(t, "", app.getStatus())

	app.setNickname("Mina")
	app.mode = ModeOnline
	assert.Equal(t, "(Mina online)", app.getStatus())

	assert.Equal(t, "", app.prompt())
	app.interactive = true
	assert.Equal(t, "heartwall (Mina online)> ", app.prompt())
}
