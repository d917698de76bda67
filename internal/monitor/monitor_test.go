package monitor

import (
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures events in arrival order.
type recorder struct {
	events []string
}

func (r *recorder) StreamStarted(total uint32) {
	r.events = append(r.events, fmt.Sprintf("started:%d", total))
}

func (r *recorder) FrameReceived(id uint32) {
	r.events = append(r.events, fmt.Sprintf("received:%d", id))
}

func (r *recorder) FramePlayed(id, pts uint32) {
	r.events = append(r.events, fmt.Sprintf("played:%d@%d", id, pts))
}

func (r *recorder) StreamEnded() {
	r.events = append(r.events, "ended")
}

func TestMultiFansOutToEveryMonitorInOrder(t *testing.T) {
	a := &recorder{}
	b := &recorder{}
	m := Multi{a, b}

	m.StreamStarted(10)
	m.FrameReceived(0)
	m.FramePlayed(0, 0)
	m.FramePlayed(1, 41)
	m.StreamEnded()

	want := []string{"started:10", "received:0", "played:0@0", "played:1@41", "ended"}
	assert.Equal(t, want, a.events)
	assert.Equal(t, want, b.events)
}

func TestWSFeedBroadcastsEventsToAttachedViewer(t *testing.T) {
	feed, err := NewWSFeed("127.0.0.1:0")
	require.NoError(t, err)
	defer feed.Close()

	url := fmt.Sprintf("ws://%s/monitor", feed.Addr())
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The server registers the viewer after the handshake returns on the
	// client side; wait until it shows up before broadcasting.
	require.Eventually(t, func() bool {
		feed.mu.Lock()
		defer feed.mu.Unlock()
		return len(feed.clients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	feed.StreamStarted(100)
	feed.FramePlayed(3, 125)
	feed.StreamEnded()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventStarted, ev.Type)
	assert.Equal(t, uint32(100), ev.Total)

	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventPlayed, ev.Type)
	assert.Equal(t, uint32(3), ev.FrameID)
	assert.Equal(t, uint32(125), ev.PTSms)

	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventEnded, ev.Type)
}
