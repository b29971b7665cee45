package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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
	"go.uber.org/zap"

	"github.com/Seednode/tabletally/games"
)

type fakeMailer struct {
	sent []Suggestion
	err  error
}

func (m *fakeMailer) Send(_ context.Context, s Suggestion) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, s)
	return nil
}

func testConfig() *Config {
	return &Config{
		cleanupDelay: time.Minute,
		clientURL:    "http://client.test",
		port:         8080,
		smtpPort:     587,
	}
}

func newTestServer(t *testing.T, cfg *Config, mailer Mailer) *httptest.Server {
	t.Helper()

	h := newTestHub(t, cfg.cleanupDelay)
	errs := make(chan error, 64)

	srv := httptest.NewServer(newRouter(cfg, h, mailer, zap.NewNop().Sugar(), errs))
	t.Cleanup(srv.Close)

	return srv
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, testConfig(), nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://client.test", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestPreflight(t *testing.T) {
	srv := newTestServer(t, testConfig(), nil)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/suggestions", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestNewRoomCode(t *testing.T) {
	srv := newTestServer(t, testConfig(), nil)

	resp, err := http.Post(srv.URL+"/api/rooms", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body roomCodeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Code, roomCodeLength)
}

func TestSuggestions(t *testing.T) {
	cases := []struct {
		name   string
		mailer *fakeMailer
		body   string
		status int
		want   string
	}{
		{
			name:   "relayed",
			mailer: &fakeMailer{},
			body:   `{"suggestion":"  Catan  ","email":"a@b.test"}`,
			status: http.StatusOK,
			want:   `{"success":true}`,
		},
		{
			name:   "blank",
			mailer: &fakeMailer{},
			body:   `{"suggestion":"   "}`,
			status: http.StatusBadRequest,
			want:   `{"error":"Suggestion is required."}`,
		},
		{
			name:   "not json",
			mailer: &fakeMailer{},
			body:   `catan`,
			status: http.StatusBadRequest,
			want:   `{"error":"Suggestion is required."}`,
		},
		{
			name:   "smtp failure",
			mailer: &fakeMailer{err: errors.New("connection refused")},
			body:   `{"suggestion":"Azul"}`,
			status: http.StatusInternalServerError,
			want:   `{"error":"Failed to send suggestion."}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, testConfig(), tc.mailer)

			resp, err := http.Post(srv.URL+"/api/suggestions", "application/json", strings.NewReader(tc.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			var buf bytes.Buffer
			_, _ = buf.ReadFrom(resp.Body)

			assert.Equal(t, tc.status, resp.StatusCode)
			assert.JSONEq(t, tc.want, buf.String())
		})
	}
}

func TestSuggestionsDisabled(t *testing.T) {
	srv := newTestServer(t, testConfig(), nil)

	resp, err := http.Post(srv.URL+"/api/suggestions", "application/json", strings.NewReader(`{"suggestion":"Azul"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSuggestionBody(t *testing.T) {
	s := Suggestion{Text: "  Catan\n", Email: ""}

	assert.Equal(t, "Suggestion:\n\nCatan\n\nFrom: Anonymous", s.body())
}

func TestRoomQR(t *testing.T) {
	srv := newTestServer(t, testConfig(), nil)

	resp, err := http.Get(srv.URL + "/rooms/abcd/qr")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	// hosts pick their own codes, of any length
	resp, err = http.Get(srv.URL + "/rooms/game-night/qr")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLobbyURL(t *testing.T) {
	cfg := testConfig()
	cfg.clientURL = "https://tally.example/"

	r := httptest.NewRequest(http.MethodGet, "/rooms/ABCD/qr", nil)

	assert.Equal(t, "https://tally.example/lobby/ABCD", lobbyURL(cfg, r, "ABCD"))
	assert.Equal(t, "https://tally.example/lobby/abcd", lobbyURL(cfg, r, "abcd"))

	cfg.clientURL = ""
	assert.Equal(t, "http://example.com/lobby/ABCD", lobbyURL(cfg, r, "ABCD"))
}

func TestRulebooks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wingspan.pdf"), []byte("%PDF-1.4"), 0o644))

	cfg := testConfig()
	cfg.rulebooks = dir
	srv := newTestServer(t, cfg, nil)

	resp, err := http.Get(srv.URL + "/rulebooks/wingspan.pdf")
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "%PDF-1.4", buf.String())

	for _, path := range []string{"/rulebooks/missing.pdf", "/rulebooks/..%2f..%2fetc%2fpasswd"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestHumanReadableSize(t *testing.T) {
	assert.Equal(t, "999 B", humanReadableSize(999))
	assert.Equal(t, "1.5 kB", humanReadableSize(1500))
	assert.Equal(t, "2.0 MB", humanReadableSize(2_000_000))
}

func TestAllowedOrigin(t *testing.T) {
	cfg := testConfig()

	cases := map[string]bool{
		"":                        true,
		"http://client.test":      true,
		"http://example.com":      true,
		"http://evil.test":        false,
		"http://client.test.evil": false,
	}

	for origin, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}

		assert.Equal(t, want, allowedOrigin(cfg, r), origin)
	}
}

func TestWebsocketRoundTrip(t *testing.T) {
	srv := newTestServer(t, testConfig(), nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	dial := func() (*websocket.Conn, string) {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })

		var hello struct {
			Event string           `json:"event"`
			Data  connectedMessage `json:"data"`
		}
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		require.NoError(t, conn.ReadJSON(&hello))
		require.Equal(t, evConnected, hello.Event)
		require.NotEmpty(t, hello.Data.ConnectionID)

		return conn, hello.Data.ConnectionID
	}

	type frame struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
		Ack   *int64          `json:"ack"`
	}

	send := func(conn *websocket.Conn, event string, data any, ack *int64) {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		require.NoError(t, conn.WriteJSON(envelope{Event: event, Data: raw, Ack: ack}))
	}

	await := func(conn *websocket.Conn, event string) frame {
		for {
			var f frame
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
			require.NoError(t, conn.ReadJSON(&f))
			if f.Event == event {
				return f
			}
		}
	}

	host, hostID := dial()
	guest, _ := dial()

	send(host, evJoinRoom, joinRoomRequest{
		Room:   testRoom,
		Player: playerInfo{ID: "p1", Name: "Ada"},
		Game:   games.TicketToRide,
		Role:   roleHost,
	}, nil)

	var lobby lobbyMessage
	require.NoError(t, json.Unmarshal(await(host, evUpdateLobby).Data, &lobby))
	require.Len(t, lobby.Players, 1)
	assert.Equal(t, hostID, lobby.Players[0].ConnectionID)
	assert.Equal(t, defaultIcon, lobby.Players[0].Icon)

	ack := int64(3)
	send(guest, evCheckRoom, checkRoomRequest{RoomCode: testRoom, Game: games.Wingspan}, &ack)

	reply := await(guest, evAck)
	require.NotNil(t, reply.Ack)
	assert.Equal(t, ack, *reply.Ack)
	assert.JSONEq(t, `{"exists":true,"gameMismatch":true}`, string(reply.Data))

	require.NoError(t, guest.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.JSONEq(t, `{"message":"Malformed message."}`, string(await(guest, evError).Data))

	send(guest, evJoinRoom, joinRoomRequest{
		Room:   testRoom,
		Player: playerInfo{ID: "p2", Name: "Grace", Icon: "owl"},
		Game:   games.TicketToRide,
	}, nil)
	await(host, evUpdateLobby)

	send(host, evStartGame, roomRequest{Room: testRoom}, nil)
	await(host, evGameStarted)
	await(guest, evGameStarted)

	send(host, evPlayerReady, playerReadyRequest{
		Room:     testRoom,
		PlayerID: "p1",
		Cards: []games.Card{
			{Key: "totalPoints", Value: "60"},
			{Key: "longestRoute", Value: "12"},
		},
	}, nil)
	send(guest, evPlayerReady, playerReadyRequest{
		Room:     testRoom,
		PlayerID: "p2",
		Cards: []games.Card{
			{Key: "totalPoints", Value: "65"},
			{Key: "longestRoute", Value: "9"},
		},
	}, nil)

	var result Result
	require.NoError(t, json.Unmarshal(await(guest, evGameResult).Data, &result))

	assert.Equal(t, "Ada", result.WinnerName)
	assert.Equal(t, 70, result.Score)
	assert.Equal(t, games.TicketToRide, result.Game)
	require.Len(t, result.Players, 2)
	assert.Equal(t, "p2", result.Players[1].ID)
}
