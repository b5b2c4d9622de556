package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ctfdojo/internal/app"
	"ctfdojo/internal/catalog"
	"ctfdojo/internal/state"

	clog "github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, duration int, tick time.Duration) (*httptest.Server, *state.MemoryStore, []catalog.Catalog) {
	t.Helper()
	cats, err := catalog.Builtin()
	if err != nil {
		t.Fatalf("builtin catalogs: %v", err)
	}
	store := state.NewMemoryStore()
	srv := New(Options{
		Config:   app.ServerConfig{Addr: "127.0.0.1:0", AllowedOrigins: []string{"http://play.test"}},
		Catalogs: cats,
		Store:    store,
		Log:      clog.New(io.Discard),
		Duration: duration,
		Seed:     7,
		Tick:     tick,
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, store, cats
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, flag := range []string{"CTF{A_RECORD}", "CTF{WHOIS}", "PAGE_SOURCE"} {
		if strings.Contains(string(body), flag) {
			t.Fatalf("response leaked flag %q: %s", flag, body)
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		t.Fatalf("decode %s: %v (%s)", url, err, body)
	}
	return resp.StatusCode
}

func TestHealthAndCatalogRoutes(t *testing.T) {
	ts, _, cats := newTestServer(t, 600, time.Hour)

	var health struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	if code := getJSON(t, ts.URL+"/healthz", &health); code != http.StatusOK || !health.Success || health.Data["ok"] != true {
		t.Fatalf("unexpected health response: %d %+v", code, health)
	}

	var list struct {
		Data []CatalogSummary `json:"data"`
	}
	if code := getJSON(t, ts.URL+"/api/catalogs", &list); code != http.StatusOK || len(list.Data) != len(cats) {
		t.Fatalf("unexpected catalog list: %d %+v", code, list)
	}

	var detail struct {
		Data CatalogDetail `json:"data"`
	}
	if code := getJSON(t, ts.URL+"/api/catalogs/eggs", &detail); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if detail.Data.ID != "eggs" || len(detail.Data.Challenges) == 0 || detail.Data.Duration != 600 {
		t.Fatalf("unexpected detail: %+v", detail.Data)
	}

	var missing struct {
		Success bool      `json:"success"`
		Error   *apiError `json:"error"`
	}
	if code := getJSON(t, ts.URL+"/api/catalogs/nope", &missing); code != http.StatusNotFound || missing.Error == nil || missing.Error.Code != "catalog_not_found" {
		t.Fatalf("unexpected not-found response: %d %+v", code, missing)
	}
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://play.test"}})
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial %s: %v (status %d)", url, err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(Message) bool) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func phase(p string) func(Message) bool {
	return func(m Message) bool { return m.Type == "state" && m.State != nil && m.State.Phase == p }
}

func TestWebsocketRoundToWin(t *testing.T) {
	ts, store, cats := newTestServer(t, 600, time.Hour)
	cat, _ := catalog.Find(cats, "dns")
	conn := dial(t, ts, "?catalog=dns")

	first := readUntil(t, conn, func(m Message) bool { return m.Type == "state" })
	if first.State.Phase != "not_started" || first.State.Total != cat.Total() {
		t.Fatalf("unexpected initial state: %+v", first.State)
	}

	if err := conn.WriteJSON(Message{Type: "start"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, phase("running"))

	if err := conn.WriteJSON(Message{Type: "ping"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, func(m Message) bool { return m.Type == "pong" })

	for _, ch := range cat.Challenges {
		if err := conn.WriteJSON(Message{Type: "command", Data: "submit " + ch.Flag}); err != nil {
			t.Fatal(err)
		}
	}
	over := readUntil(t, conn, phase("over"))
	if over.State.Outcome != "won" || over.State.Result == nil || !over.State.Result.Won {
		t.Fatalf("expected a won result, got %+v", over.State)
	}

	rounds, err := store.RecentRounds(context.Background(), 5)
	if err != nil || len(rounds) != 1 || rounds[0].Outcome != "won" {
		t.Fatalf("expected a recorded win, got %+v (%v)", rounds, err)
	}
}

func TestWebsocketCountdownEndsRound(t *testing.T) {
	ts, _, _ := newTestServer(t, 2, 5*time.Millisecond)
	conn := dial(t, ts, "?catalog=eggs")

	if err := conn.WriteJSON(Message{Type: "start"}); err != nil {
		t.Fatal(err)
	}
	over := readUntil(t, conn, phase("over"))
	if over.State.Outcome != "lost" || over.State.TimeRemaining != 0 || over.State.Clock != "0:00" {
		t.Fatalf("unexpected final state: %+v", over.State)
	}

	if err := conn.WriteJSON(Message{Type: "restart"}); err != nil {
		t.Fatal(err)
	}
	fresh := readUntil(t, conn, phase("not_started"))
	if fresh.State.TimeRemaining != 2 || len(fresh.State.Output) != 0 {
		t.Fatalf("restart should reset the session: %+v", fresh.State)
	}
}

func TestWebsocketRejectsBadInput(t *testing.T) {
	ts, _, _ := newTestServer(t, 600, time.Hour)
	conn := dial(t, ts, "")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{nope")); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, func(m Message) bool { return m.Type == "error" && m.Data == "invalid message" })

	if err := conn.WriteJSON(Message{Type: "teleport"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, func(m Message) bool { return m.Type == "error" && strings.Contains(m.Data, "teleport") })
}

func TestWebsocketDisconnectAbandonsRound(t *testing.T) {
	ts, store, _ := newTestServer(t, 600, time.Hour)
	conn := dial(t, ts, "?catalog=dns")
	if err := conn.WriteJSON(Message{Type: "start"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, phase("running"))
	conn.Close()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		rounds, _ := store.RecentRounds(context.Background(), 5)
		if len(rounds) == 1 && rounds[0].Outcome == "abandoned" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected the round to be abandoned after disconnect")
}

func TestWebsocketUnknownCatalogAndOrigin(t *testing.T) {
	ts, _, _ := newTestServer(t, 600, time.Hour)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url+"?catalog=nope", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown catalog, got %v", err)
	}

	_, resp, err = websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.test"}})
	if err == nil || resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a foreign origin, got %v", err)
	}
}

func TestEachConnectionGetsItsOwnSeed(t *testing.T) {
	seeded := New(Options{Seed: 7, Log: clog.New(io.Discard)})
	first, second := seeded.sessionSeed(), seeded.sessionSeed()
	if first == second || first != 8 || second != 9 {
		t.Fatalf("expected distinct reproducible seeds, got %d and %d", first, second)
	}

	random := New(Options{Log: clog.New(io.Discard)})
	if got := random.sessionSeed(); got != 0 {
		t.Fatalf("an unseeded server should leave seeding to the clock, got %d", got)
	}
}
