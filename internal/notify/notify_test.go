package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AdamBeresnev/padel-league/internal/league"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []Event
}

func (r *recorder) Notify(_ context.Context, e Event) {
	r.events = append(r.events, e)
}

func TestMultiDeliversToAll(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, Nop{}, b}

	m.Notify(context.Background(), Event{Type: EventChallengeCreated, Challenge: "xyz"})

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, "xyz", b.events[0].Challenge)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(zerolog.New(&buf))

	id := uuid.New()
	n.Notify(context.Background(), Event{
		Type:      EventPenaltyApplied,
		Division:  league.DivisionWomen,
		Challenge: "abc",
		Entrants:  []uuid.UUID{id},
		Detail:    "no_show",
	})

	out := buf.String()
	assert.Contains(t, out, `"event":"penalty_applied"`)
	assert.Contains(t, out, `"division":"women"`)
	assert.Contains(t, out, id.String())
	assert.NotContains(t, out, `"round"`)
}

func dial(t *testing.T, srv *httptest.Server, division string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?division=" + division
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var e Event
	require.NoError(t, json.Unmarshal(msg, &e))
	return e
}

func TestHubRoutesByDivision(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	men := dial(t, srv, "men")
	all := dial(t, srv, "")
	require.Eventually(t, func() bool {
		return hub.ClientCount("men") == 1 && hub.ClientCount(AllDivisions) == 1
	}, 2*time.Second, 5*time.Millisecond)

	hub.Notify(ctx, Event{Type: EventChallengeAccepted, Division: league.DivisionWomen, Challenge: "w1"})
	hub.Notify(ctx, Event{Type: EventChallengeAccepted, Division: league.DivisionMen, Challenge: "m1"})

	got := readEvent(t, men)
	assert.Equal(t, "m1", got.Challenge, "men room skips women events")

	assert.Equal(t, "w1", readEvent(t, all).Challenge)
	assert.Equal(t, "m1", readEvent(t, all).Challenge)

	men.Close()
	require.Eventually(t, func() bool { return hub.ClientCount("men") == 0 }, 2*time.Second, 5*time.Millisecond)
}
