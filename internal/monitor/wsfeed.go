package monitor

import (
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// EventType identifies the kind of monitor event on the WebSocket feed.
type EventType string

const (
	EventStarted  EventType = "started"
	EventReceived EventType = "received"
	EventPlayed   EventType = "played"
	EventEnded    EventType = "ended"
)

// Event is the JSON structure broadcast to attached viewers.
type Event struct {
	Type    EventType `json:"type"`
	FrameID uint32    `json:"frameId,omitempty"`
	PTSms   uint32    `json:"ptsMs,omitempty"`
	Total   uint32    `json:"total,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSFeed is a Monitor that re-broadcasts playback events as JSON over
// WebSocket. Viewers attach at ws://<addr>/monitor. A client that cannot
// keep up is dropped rather than allowed to block playback.
type WSFeed struct {
	listener net.Listener
	log      *logrus.Entry

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewWSFeed starts the feed server on addr (":0" picks a free port).
func NewWSFeed(addr string) (*WSFeed, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start monitor feed: %w", err)
	}

	f := &WSFeed{
		listener: listener,
		log:      logrus.WithField("component", "monitor"),
		clients:  make(map[*websocket.Conn]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/monitor", f.handleWS)
	go func() {
		_ = http.Serve(listener, mux)
	}()

	return f, nil
}

// Addr returns the address the feed is listening on.
func (f *WSFeed) Addr() string {
	return f.listener.Addr().String()
}

// Close stops the listener and disconnects all viewers.
func (f *WSFeed) Close() {
	f.listener.Close()
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.clients {
		conn.Close()
	}
	f.clients = make(map[*websocket.Conn]struct{})
}

func (f *WSFeed) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	f.mu.Lock()
	f.clients[conn] = struct{}{}
	f.mu.Unlock()
	f.log.WithField("viewer", conn.RemoteAddr().String()).Info("monitor viewer attached")
}

// broadcast sends an event to every viewer, dropping those that error out.
func (f *WSFeed) broadcast(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.clients {
		if err := conn.WriteJSON(ev); err != nil {
			conn.Close()
			delete(f.clients, conn)
		}
	}
}

func (f *WSFeed) StreamStarted(total uint32) {
	f.broadcast(Event{Type: EventStarted, Total: total})
}

func (f *WSFeed) FrameReceived(id uint32) {
	f.broadcast(Event{Type: EventReceived, FrameID: id})
}

func (f *WSFeed) FramePlayed(id, pts uint32) {
	f.broadcast(Event{Type: EventPlayed, FrameID: id, PTSms: pts})
}

func (f *WSFeed) StreamEnded() {
	f.broadcast(Event{Type: EventEnded})
}
