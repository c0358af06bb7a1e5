package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"couchsync/internal/fanout"
	"couchsync/internal/protocol"
	"couchsync/internal/session"
	"couchsync/internal/ws"
)

func newTestServer(t *testing.T, staticPath string) (*httptest.Server, *session.Session) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := fanout.NewHub()
	sess := session.New(hub)
	d := ws.NewDispatcher(sess, hub)
	api := NewServer(sess, ws.NewHandler(ctx, hub, d, ws.Options{}), staticPath)

	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	return srv, sess
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, kind string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var env protocol.InboundEnvelope
		require.NoError(t, conn.ReadJSON(&env))
		if env.Kind == kind {
			return env.Data
		}
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestGetSession(t *testing.T) {
	srv, sess := newTestServer(t, "")
	sess.LoadVideo("x", protocol.VideoRef{URL: "u", VideoID: "v"}, "")
	sess.SendChat("x", "hello", "Anon")

	resp, err := http.Get(srv.URL + "/api/session")
	require.NoError(t, err)
	defer resp.Body.Close()

	var state session.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, "v", state.Playback.Ref.VideoID)
	assert.Equal(t, 0, state.Count)
	require.Len(t, state.History, 1)
	assert.Equal(t, "hello", state.History[0].Content)
}

func TestUnknownRouteReturnsErrorEnvelope(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var env protocol.InboundEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, protocol.KindError, env.Kind)
	var payload protocol.ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "not_found", payload.Code)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "not_found", errorCode(http.StatusNotFound))
	assert.Equal(t, "method_not_allowed", errorCode(http.StatusMethodNotAllowed))
	assert.Equal(t, "internal_server_error", errorCode(http.StatusInternalServerError))
	assert.Equal(t, "http_error", errorCode(599))
}

func TestStaticIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>couch</h1>"), 0o644))
	srv, _ := newTestServer(t, dir)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "couch")
}

func TestWebSocketSession(t *testing.T) {
	srv, sess := newTestServer(t, "")

	alice := dial(t, srv)
	require.NoError(t, alice.WriteJSON(map[string]any{"kind": "join", "data": map[string]any{"username": "Alice"}}))
	readUntil(t, alice, protocol.KindPeerList)

	bob := dial(t, srv)
	require.NoError(t, bob.WriteJSON(map[string]any{"kind": "join", "data": map[string]any{"username": "Bob"}}))

	var peers protocol.PeerList
	require.NoError(t, json.Unmarshal(readUntil(t, bob, protocol.KindPeerList), &peers))
	require.Len(t, peers.Peers, 1)
	assert.Equal(t, "Alice", peers.Peers[0].Identity.Username)

	var joined protocol.Peer
	require.NoError(t, json.Unmarshal(readUntil(t, alice, protocol.KindPeerJoined), &joined))
	assert.Equal(t, "Bob", joined.Identity.Username)

	require.NoError(t, bob.WriteJSON(map[string]any{"kind": "chat-send", "data": map[string]any{"content": "wow"}}))
	var msg protocol.ChatMessage
	require.NoError(t, json.Unmarshal(readUntil(t, alice, protocol.KindChatMessage), &msg))
	assert.Equal(t, "wow", msg.Content)
	assert.Equal(t, "Bob", msg.Identity.Username)
	readUntil(t, alice, protocol.KindTriggerEffect)

	require.NoError(t, bob.Close())
	var left protocol.PresenceChange
	require.NoError(t, json.Unmarshal(readUntil(t, alice, protocol.KindPresenceLeft), &left))
	assert.Equal(t, "Bob", left.Identity.Username)
	assert.Equal(t, 1, sess.State().Count)
}
