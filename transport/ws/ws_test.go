package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ninepins/game"
	"ninepins/internal/store"
	"ninepins/master"
	"ninepins/server"
	"ninepins/transport"
)

func counterGame() game.Game {
	return game.Game{
		Name:  "counter",
		Setup: func(int) any { return 0 },
		Moves: map[string]game.MoveFn{
			"add": func(g any, _ game.Ctx, _ string, _ []any) (any, error) {
				return int(asFloat(g)) + 1, nil
			},
		},
		Flow: game.DefaultFlow(),
	}
}

// asFloat tolerates the JSON round trip turning ints into float64.
func asFloat(g any) float64 {
	switch v := g.(type) {
	case int:
		return float64(v)
	case float64:
		return v
	default:
		return -1
	}
}

type harness struct {
	store     *store.Store
	transport transport.Transport
	matchData chan game.MatchData
}

func newHarness(t *testing.T, url string, g game.Game, gameID, playerID string) *harness {
	t.Helper()
	h := &harness{matchData: make(chan game.MatchData, 16)}
	ctor := NewConstructor(Config{URL: url})
	h.transport = ctor(transport.Context{
		Game:     g,
		GameID:   gameID,
		PlayerID: playerID,
		Dispatch: func(act game.Action) { h.store.Dispatch(act) },
		OnMatchData: func(md game.MatchData) {
			select {
			case h.matchData <- md:
			default:
			}
		},
	})
	h.store = store.New(game.NewReducer(g, 2), nil,
		&store.Relay{Transport: h.transport},
		&store.LogReconciler{})
	t.Cleanup(h.transport.Disconnect)
	return h
}

func (h *harness) move(name, playerID string) {
	h.store.Dispatch(game.NewMakeMove(name, nil, playerID, ""))
}

func (h *harness) waitForStateID(t *testing.T, want int64) *game.State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if state := h.store.State(); state != nil && state.StateID == want {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for stateID %d, have %+v", want, h.store.State())
	return nil
}

func newTestServer(t *testing.T, g game.Game) string {
	t.Helper()
	handler := server.NewHandler([]game.Game{g}, server.Config{Registry: master.NewRegistry()})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectReceivesInitialSync(t *testing.T) {
	g := counterGame()
	url := newTestServer(t, g)
	h := newHarness(t, url, g, "match-1", "0")

	h.transport.Connect()
	if !h.transport.IsConnected() {
		t.Fatalf("expected transport to report connected")
	}
	state := h.waitForStateID(t, 0)
	if asFloat(state.G) != 0 || state.Ctx.CurrentPlayer != "0" {
		t.Fatalf("unexpected initial state: %+v", state)
	}
}

func TestMoveRoundTripsThroughServer(t *testing.T) {
	g := counterGame()
	url := newTestServer(t, g)
	a := newHarness(t, url, g, "match-1", "0")
	b := newHarness(t, url, g, "match-1", "1")
	a.transport.Connect()
	b.transport.Connect()
	a.waitForStateID(t, 0)
	b.waitForStateID(t, 0)

	a.move("add", "0")

	for name, h := range map[string]*harness{"a": a, "b": b} {
		state := h.waitForStateID(t, 1)
		if asFloat(state.G) != 1 {
			t.Fatalf("client %s did not converge: %+v", name, state)
		}
	}
	if entries := b.store.Log(); len(entries) != 1 || entries[0].StateID != 0 {
		t.Fatalf("expected log [0] on the passive client, got %+v", entries)
	}
}

func TestStaleClientIsResynced(t *testing.T) {
	g := counterGame()
	url := newTestServer(t, g)
	a := newHarness(t, url, g, "match-1", "0")
	b := newHarness(t, url, g, "match-1", "1")
	a.transport.Connect()
	b.transport.Connect()
	a.waitForStateID(t, 0)
	b.waitForStateID(t, 0)

	// An inactive player's move is applied optimistically, dropped by the
	// authority, and rolled back by the SYNC answering the next stale relay.
	b.move("add", "1")
	b.move("add", "1")
	state := b.waitForStateID(t, 0)
	if asFloat(state.G) != 0 {
		t.Fatalf("expected the rolled back state, got %+v", state)
	}

	a.move("add", "0")
	b.waitForStateID(t, 1)
}

func TestMatchDataAnnouncesParticipants(t *testing.T) {
	g := counterGame()
	url := newTestServer(t, g)
	a := newHarness(t, url, g, "match-1", "0")
	b := newHarness(t, url, g, "match-1", "1")
	a.transport.Connect()
	b.transport.Connect()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case md := <-a.matchData:
			if len(md.Players) == 2 {
				if md.GameID != "match-1" || md.Players[0].ID != "0" || md.Players[1].ID != "1" {
					t.Fatalf("unexpected match data: %+v", md)
				}
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for both participants in match data")
		}
	}
}

func TestDisconnectStopsDelivery(t *testing.T) {
	g := counterGame()
	url := newTestServer(t, g)
	a := newHarness(t, url, g, "match-1", "0")
	b := newHarness(t, url, g, "match-1", "1")
	a.transport.Connect()
	b.transport.Connect()
	a.waitForStateID(t, 0)
	b.waitForStateID(t, 0)

	b.transport.Disconnect()
	if b.transport.IsConnected() {
		t.Fatalf("expected b to report disconnected")
	}

	a.move("add", "0")
	a.waitForStateID(t, 1)

	time.Sleep(50 * time.Millisecond)
	if state := b.store.State(); state.StateID != 0 {
		t.Fatalf("expected no delivery after disconnect, got %+v", state)
	}
}
