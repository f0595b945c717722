package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/mcoot/roomhub/internal/api"
	"github.com/mcoot/roomhub/internal/api/apierr"
	"github.com/mcoot/roomhub/internal/api/response"
	"github.com/mcoot/roomhub/internal/factory"
	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/testutil"
)

// testServer wires the router over a test app with mocked clock and random source
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp(factory.Config{})
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		AuthService: app.AuthService,
		Engine:      app.Engine,
		Notifier:    app.Notifier,
		WebSocket:   app.WebSocket,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any) *httptest.ResponseRecorder {
	reqBody := bytes.NewBuffer(nil)
	switch b := body.(type) {
	case nil:
	case string:
		reqBody.WriteString(b)
	default:
		raw, _ := json.Marshal(b)
		reqBody.Write(raw)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func assertErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, rr.Code)
	body := decode[apierr.ErrorResponse](t, rr)
	assert.Equal(t, code, body.Error.Code)
}

func createPlayer(t *testing.T, ts *testServer, name string) response.Player {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/players", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.Player](t, rr)
}

func createRoom(t *testing.T, ts *testServer, ownerID, code, password string) response.Room {
	t.Helper()
	ts.app.MockRandom.QueueString(code)
	rr := ts.request(http.MethodPost, "/api/v1/rooms", map[string]string{
		"owner_player_id": ownerID,
		"password":        password,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.Room](t, rr)
}

func createGame(t *testing.T, ts *testServer, roomID string) response.Game {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/rooms/"+roomID+"/games", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.Game](t, rr)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		rr := ts.request(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		health := decode[response.Health](t, rr)
		assert.Equal(t, "ok", health.Status)
		assert.Equal(t, 0, health.Connections)
	}
}

func TestCreateAndGetPlayer(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/players", map[string]string{
		"name":  "Alice",
		"email": "alice@example.com",
	})
	assert.Equal(t, http.StatusCreated, rr.Code)

	created := decode[response.Player](t, rr)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "/api/v1/players/"+created.ID, rr.Header().Get("Location"))
	assert.Equal(t, "Alice", created.Name)
	assert.False(t, created.Active)
	assert.Empty(t, created.Stats)

	rr = ts.request(http.MethodGet, "/api/v1/players/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, created.ID, decode[response.Player](t, rr).ID)

	// Email addresses are unique
	rr = ts.request(http.MethodPost, "/api/v1/players", map[string]string{
		"name":  "Impostor",
		"email": "alice@example.com",
	})
	assertErrorCode(t, rr, http.StatusConflict, apierr.CodeEmailTaken)
}

func TestPlayerNotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players/nobody", nil)
	assertErrorCode(t, rr, http.StatusNotFound, apierr.CodePlayerNotFound)
}

func TestListPlayersByRoom(t *testing.T) {
	ts := newTestServer(t)

	alice := createPlayer(t, ts, "Alice")
	createPlayer(t, ts, "Bob")
	room := createRoom(t, ts, alice.ID, "ABCDEF", "")

	rr := ts.request(http.MethodGet, "/api/v1/players?room_id="+room.ID, nil)
	assert.Empty(t, decode[response.List[response.Player]](t, rr).Items, "owner has not connected yet")

	conn := testutil.NewFakeConn()
	require.NoError(t, ts.app.Engine.Connect(t.Context(), conn, model.PlayerID(alice.ID), model.RoomID(room.ID)))

	rr = ts.request(http.MethodGet, "/api/v1/players?size=10", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	all := decode[response.List[response.Player]](t, rr)
	assert.Len(t, all.Items, 2)
	assert.Equal(t, 10, all.Size)

	rr = ts.request(http.MethodGet, "/api/v1/players?room_id="+room.ID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	members := decode[response.List[response.Player]](t, rr)
	require.Len(t, members.Items, 1)
	assert.Equal(t, alice.ID, members.Items[0].ID)

	rr = ts.request(http.MethodGet, "/api/v1/players?active=true", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	active := decode[response.List[response.Player]](t, rr)
	require.Len(t, active.Items, 1)
	assert.Equal(t, alice.ID, active.Items[0].ID)
	assert.Equal(t, room.ID, active.Items[0].CurrentRoomID)

	rr = ts.request(http.MethodGet, "/api/v1/players?active=maybe", nil)
	assertErrorCode(t, rr, http.StatusBadRequest, apierr.CodeInvalidRequest)
}

func TestCreateRoom(t *testing.T) {
	ts := newTestServer(t)
	alice := createPlayer(t, ts, "Alice")

	room := createRoom(t, ts, alice.ID, "HALL42", "secret")
	assert.Equal(t, "HALL42", room.Code)
	assert.Equal(t, alice.ID, room.OwnerPlayerID)
	assert.Equal(t, alice.ID, room.HostPlayerID)
	assert.True(t, room.HasPassword)
	assert.Equal(t, []string{alice.ID}, room.PlayerIDs)
	assert.Empty(t, room.Bans)
	assert.NotContains(t, ts.request(http.MethodGet, "/api/v1/rooms/"+room.ID, nil).Body.String(), "secret")

	rr := ts.request(http.MethodGet, "/api/v1/rooms/code/HALL42", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, room.ID, decode[response.Room](t, rr).ID)

	rr = ts.request(http.MethodGet, "/api/v1/rooms?owner_id="+alice.ID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	owned := decode[response.List[response.Room]](t, rr)
	require.Len(t, owned.Items, 1)
	assert.Equal(t, room.ID, owned.Items[0].ID)
}

func TestCreateRoomErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"missing owner", map[string]string{}, http.StatusBadRequest, apierr.CodeInvalidRequest},
		{"unknown owner", map[string]string{"owner_player_id": "ghost"}, http.StatusNotFound, apierr.CodePlayerNotFound},
		{"malformed body", "{not json", http.StatusBadRequest, apierr.CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPost, "/api/v1/rooms", tt.body)
			assertErrorCode(t, rr, tt.status, tt.code)
		})
	}
}

func TestRoomCodeExhausted(t *testing.T) {
	ts := newTestServer(t)
	alice := createPlayer(t, ts, "Alice")

	// No codes queued: every draw is rejected
	rr := ts.request(http.MethodPost, "/api/v1/rooms", map[string]string{"owner_player_id": alice.ID})
	assertErrorCode(t, rr, http.StatusServiceUnavailable, apierr.CodeRoomCodeExhausted)
}

func TestRoomNotFound(t *testing.T) {
	ts := newTestServer(t)

	assertErrorCode(t, ts.request(http.MethodGet, "/api/v1/rooms/missing", nil), http.StatusNotFound, apierr.CodeRoomNotFound)
	assertErrorCode(t, ts.request(http.MethodGet, "/api/v1/rooms/code/ZZZZZZ", nil), http.StatusNotFound, apierr.CodeRoomNotFound)
	assertErrorCode(t, ts.request(http.MethodPost, "/api/v1/rooms/missing/games", nil), http.StatusNotFound, apierr.CodeRoomNotFound)
}

func TestInvalidPage(t *testing.T) {
	ts := newTestServer(t)

	for _, query := range []string{"page=abc", "size=0", "page=-1"} {
		rr := ts.request(http.MethodGet, "/api/v1/rooms?"+query, nil)
		assertErrorCode(t, rr, http.StatusBadRequest, apierr.CodeInvalidPage)
	}
}

func TestSetCurrentGameTracksChampion(t *testing.T) {
	ts := newTestServer(t)
	alice := createPlayer(t, ts, "Alice")
	room := createRoom(t, ts, alice.ID, "ABCDEF", "")
	path := "/api/v1/rooms/" + room.ID + "/current-game"

	first := createGame(t, ts, room.ID)
	rr := ts.request(http.MethodPut, path, map[string]any{"game_id": first.ID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[response.Room](t, rr)
	assert.Equal(t, first.ID, updated.CurrentGameID)
	assert.Empty(t, updated.PreviousGameIDs)

	// Alice wins twice in a row
	second := createGame(t, ts, room.ID)
	rr = ts.request(http.MethodPut, path, map[string]any{"game_id": second.ID, "champion": alice.ID})
	require.Equal(t, http.StatusOK, rr.Code)
	updated = decode[response.Room](t, rr)
	assert.Equal(t, alice.ID, updated.CurrentChampion)
	assert.Equal(t, 1, updated.CurrentWinningStreak)

	third := createGame(t, ts, room.ID)
	rr = ts.request(http.MethodPut, path, map[string]any{"game_id": third.ID, "champion": alice.ID})
	require.Equal(t, http.StatusOK, rr.Code)
	updated = decode[response.Room](t, rr)
	assert.Equal(t, 2, updated.CurrentWinningStreak)
	assert.Equal(t, []string{first.ID, second.ID}, updated.PreviousGameIDs)

	// A tie clears the champion
	fourth := createGame(t, ts, room.ID)
	rr = ts.request(http.MethodPut, path, map[string]any{"game_id": fourth.ID, "champion": nil})
	require.Equal(t, http.StatusOK, rr.Code)
	updated = decode[response.Room](t, rr)
	assert.Empty(t, updated.CurrentChampion)
	assert.Equal(t, 0, updated.CurrentWinningStreak)

	finished := decode[response.Game](t, ts.request(http.MethodGet, "/api/v1/games/"+first.ID, nil))
	assert.NotNil(t, finished.FinishedAt)
}

func TestSetCurrentGameErrors(t *testing.T) {
	ts := newTestServer(t)
	alice := createPlayer(t, ts, "Alice")
	room := createRoom(t, ts, alice.ID, "ABCDEF", "")
	other := createRoom(t, ts, alice.ID, "GHJKLM", "")
	foreign := createGame(t, ts, other.ID)
	path := "/api/v1/rooms/" + room.ID + "/current-game"

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"missing game", map[string]any{}, http.StatusBadRequest, apierr.CodeInvalidRequest},
		{"unknown game", map[string]any{"game_id": "nope"}, http.StatusNotFound, apierr.CodeGameNotFound},
		{"game of another room", map[string]any{"game_id": foreign.ID}, http.StatusBadRequest, apierr.CodeGameNotActive},
		{"champion not a string", map[string]any{"game_id": foreign.ID, "champion": 7}, http.StatusBadRequest, apierr.CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertErrorCode(t, ts.request(http.MethodPut, path, tt.body), tt.status, tt.code)
		})
	}
}

func TestResolveBan(t *testing.T) {
	ts := newTestServer(t)
	alice := createPlayer(t, ts, "Alice")
	bob := createPlayer(t, ts, "Bob")
	room := createRoom(t, ts, alice.ID, "ABCDEF", "")
	ctx := t.Context()

	aliceConn := testutil.NewFakeConn()
	require.NoError(t, ts.app.Engine.Connect(ctx, aliceConn, model.PlayerID(alice.ID), model.RoomID(room.ID)))
	bobConn := testutil.NewFakeConn()
	require.NoError(t, ts.app.Engine.Connect(ctx, bobConn, model.PlayerID(bob.ID), ""))
	require.NoError(t, ts.app.Engine.JoinRoom(ctx, bobConn, model.PlayerID(bob.ID), model.RoomID(room.ID), ""))
	require.NoError(t, ts.app.Engine.KickPlayer(ctx, aliceConn, model.PlayerID(alice.ID), model.RoomID(room.ID), model.PlayerID(bob.ID), 0))

	banned := decode[response.Room](t, ts.request(http.MethodGet, "/api/v1/rooms/"+room.ID, nil))
	require.Len(t, banned.Bans, 1)
	assert.Equal(t, bob.ID, banned.Bans[0].PlayerID)
	assert.Nil(t, banned.Bans[0].ExpiresAt)

	path := "/api/v1/rooms/" + room.ID + "/bans/" + bob.ID
	rr := ts.request(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[response.BanResolution](t, rr).Resolved)

	rr = ts.request(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[response.BanResolution](t, rr).Resolved)

	require.NoError(t, ts.app.Engine.JoinRoom(ctx, bobConn, model.PlayerID(bob.ID), model.RoomID(room.ID), ""))
}

func TestGamesAndScores(t *testing.T) {
	ts := newTestServer(t)
	alice := createPlayer(t, ts, "Alice")
	room := createRoom(t, ts, alice.ID, "ABCDEF", "")
	game := createGame(t, ts, room.ID)
	assert.Equal(t, room.ID, game.RoomID)
	assert.Empty(t, game.PlayerIDs)

	scorePath := "/api/v1/games/" + game.ID + "/scores"

	// Only participants score
	rr := ts.request(http.MethodPost, scorePath, map[string]any{"player_id": alice.ID, "delta": 3})
	assertErrorCode(t, rr, http.StatusForbidden, apierr.CodeForbidden)

	rr = ts.request(http.MethodPut, "/api/v1/rooms/"+room.ID+"/current-game", map[string]any{"game_id": game.ID})
	require.Equal(t, http.StatusOK, rr.Code)

	ctx := t.Context()
	conn := testutil.NewFakeConn()
	require.NoError(t, ts.app.Engine.Connect(ctx, conn, model.PlayerID(alice.ID), model.RoomID(room.ID)))
	require.NoError(t, ts.app.Engine.JoinGame(ctx, conn, model.PlayerID(alice.ID), model.RoomID(room.ID), model.GameID(game.ID)))

	rr = ts.request(http.MethodPost, scorePath, map[string]any{"player_id": alice.ID, "delta": 3})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = ts.request(http.MethodPost, scorePath, map[string]any{"player_id": alice.ID, "delta": -1})
	require.Equal(t, http.StatusOK, rr.Code)
	scored := decode[response.Game](t, rr)
	assert.Equal(t, 2, scored.Scores[alice.ID])
	assert.Equal(t, []string{alice.ID}, scored.PlayerIDs)

	rr = ts.request(http.MethodPost, scorePath, map[string]any{"delta": 1})
	assertErrorCode(t, rr, http.StatusBadRequest, apierr.CodeInvalidRequest)

	rr = ts.request(http.MethodGet, "/api/v1/rooms/"+room.ID+"/games", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	games := decode[response.List[response.Game]](t, rr)
	require.Len(t, games.Items, 1)
	assert.Equal(t, game.ID, games.Items[0].ID)

	assertErrorCode(t, ts.request(http.MethodGet, "/api/v1/games/missing", nil), http.StatusNotFound, apierr.CodeGameNotFound)
}

func TestWebSocketThroughRouter(t *testing.T) {
	ts := newTestServer(t)
	alice := createPlayer(t, ts, "Alice")
	room := createRoom(t, ts, alice.ID, "ABCDEF", "")

	srv := httptest.NewServer(ts.handler)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.WriteJSON(map[string]any{
		"eventType": "connect",
		"payload":   map[string]any{"playerID": alice.ID, "roomID": room.ID},
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "player_active", gjson.GetBytes(data, "eventType").Str)
	assert.Equal(t, room.ID, gjson.GetBytes(data, "payload.roomID").Str)

	health := decode[response.Health](t, ts.request(http.MethodGet, "/health", nil))
	assert.Equal(t, 1, health.Connections)
}
