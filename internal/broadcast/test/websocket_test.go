package broadcast_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-uploads/internal/auth"
	"github.com/bionicotaku/lingo-services-uploads/internal/broadcast"
	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-uploads/internal/models/vo"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type wsFixture struct {
	hub  *broadcast.Hub
	gate *auth.Gate
	srv  *httptest.Server
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	gate, err := auth.NewGate(configloader.AuthConfig{JWTSecret: "ws-secret"})
	require.NoError(t, err)
	hub := broadcast.NewHub(configloader.BroadcastConfig{}, nil, log.DefaultLogger)
	handler := broadcast.NewWebsocketHandler(hub, gate, configloader.ServerConfig{}, log.DefaultLogger)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &wsFixture{hub: hub, gate: gate, srv: srv}
}

func (f *wsFixture) url(query string) string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws?" + query
}

func TestWebsocketStreamsOwnedEvents(t *testing.T) {
	f := newWSFixture(t)
	owner := uuid.New()
	token, err := f.gate.IssueToken(owner, time.Minute)
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(f.url("token="+token), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool { return f.hub.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	id := uuid.New()
	f.hub.Publish(vo.ProgressEvent{UploadID: uuid.New(), OwnerID: uuid.New(), Progress: 5, Status: "uploading"})
	f.hub.Publish(vo.ProgressEvent{UploadID: id, OwnerID: owner, Progress: 100, Status: "completed"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, id.String(), frame["uploadId"])
	require.EqualValues(t, 100, frame["progress"])
	require.Equal(t, "completed", frame["status"])
	require.NotContains(t, frame, "ownerId")
}

func TestWebsocketRejectsMissingToken(t *testing.T) {
	f := newWSFixture(t)

	_, resp, err := websocket.DefaultDialer.Dial(f.url(""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, f.hub.SubscriberCount())
}

func TestWebsocketRejectsInvalidUploadID(t *testing.T) {
	f := newWSFixture(t)
	token, err := f.gate.IssueToken(uuid.New(), time.Minute)
	require.NoError(t, err)

	_, resp, err := websocket.DefaultDialer.Dial(f.url("token="+token+"&uploadId=nope"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebsocketClosesOnHubStop(t *testing.T) {
	f := newWSFixture(t)
	token, err := f.gate.IssueToken(uuid.New(), time.Minute)
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(f.url("token="+token), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()
	require.Eventually(t, func() bool { return f.hub.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.hub.Stop(context.Background()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestWebsocketUnsubscribesOnClientClose(t *testing.T) {
	f := newWSFixture(t)
	token, err := f.gate.IssueToken(uuid.New(), time.Minute)
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(f.url("token="+token), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Eventually(t, func() bool { return f.hub.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return f.hub.SubscriberCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
