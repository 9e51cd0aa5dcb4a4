package wager_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crickbet/wager-engine/internal/wager"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("ws dial failed: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	return conn
}

func TestEventHub_BroadcastReachesClients(t *testing.T) {
	hub := wager.NewEventHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn := dialHub(t, srv)
	defer conn.Close()

	// Registration runs through the hub loop; give it a moment.
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(wager.Event{
		Type:     wager.EventStakePlaced,
		MarketID: "OU-14",
		Side:     "over",
		Amount:   "20",
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var ev wager.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("bad event payload: %v", err)
	}
	if ev.Type != wager.EventStakePlaced {
		t.Errorf("expected %s event, got %s", wager.EventStakePlaced, ev.Type)
	}
	if ev.MarketID != "OU-14" || ev.Side != "over" {
		t.Errorf("unexpected event fields: %+v", ev)
	}
}

func TestEventHub_SurvivesDisconnectedClient(t *testing.T) {
	// One client drops; broadcasts keep flowing to the rest.
	hub := wager.NewEventHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	dead := dialHub(t, srv)
	live := dialHub(t, srv)
	defer live.Close()

	time.Sleep(50 * time.Millisecond)
	dead.Close()
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(wager.Event{Type: wager.EventMarketSettled, MarketID: "OU-14"})

	live.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := live.ReadMessage()
	if err != nil {
		t.Fatalf("live client read failed: %v", err)
	}

	var ev wager.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("bad event payload: %v", err)
	}
	if ev.Type != wager.EventMarketSettled {
		t.Errorf("expected %s event, got %s", wager.EventMarketSettled, ev.Type)
	}
}
