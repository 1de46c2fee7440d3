package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"pos-ledger/internal/notify"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Conn is the part of a websocket connection the hub needs.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// clientBuffer bounds the frames queued for one subscriber. A client that
// falls this far behind is disconnected.
const clientBuffer = 32

// Client is one subscriber bound to a business room. Each client has its
// own send queue drained by a writer goroutine, so a slow socket never
// holds up the hub or other rooms.
type Client struct {
	Conn       Conn
	BusinessID uuid.UUID

	send chan []byte
	done chan struct{}
}

func NewClient(conn Conn, businessID uuid.UUID) *Client {
	return &Client{
		Conn:       conn,
		BusinessID: businessID,
		send:       make(chan []byte, clientBuffer),
		done:       make(chan struct{}),
	}
}

// Done is closed once the writer has stopped and the connection is closed.
func (c *Client) Done() <-chan struct{} { return c.done }

type message struct {
	businessID uuid.UUID
	payload    []byte
}

var ErrHubStopped = errors.New("hub is not running")

// Hub keeps websocket subscribers per business and fans events out to them.
type Hub struct {
	rooms      map[uuid.UUID]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	mutex      sync.RWMutex
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan message, 64),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "ws").Logger(),
	}
}

// Run owns the room map until ctx is cancelled, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for _, room := range h.rooms {
				for c := range room {
					h.remove(c)
				}
			}
			h.mutex.Unlock()
			return

		case c := <-h.Register:
			h.mutex.Lock()
			room, ok := h.rooms[c.BusinessID]
			if !ok {
				room = make(map[*Client]struct{})
				h.rooms[c.BusinessID] = room
			}
			room[c] = struct{}{}
			h.mutex.Unlock()
			go h.write(c)
			h.log.Debug().Str("business_id", c.BusinessID.String()).Msg("client connected")

		case c := <-h.Unregister:
			h.mutex.Lock()
			h.remove(c)
			h.mutex.Unlock()

		case m := <-h.broadcast:
			h.mutex.Lock()
			for c := range h.rooms[m.businessID] {
				select {
				case c.send <- m.payload:
				default:
					h.log.Warn().Str("business_id", c.BusinessID.String()).Msg("client too slow, disconnecting")
					h.remove(c)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// write drains the client queue onto the socket. After a failed write the
// client is unregistered and the remaining frames are discarded.
func (h *Hub) write(c *Client) {
	defer close(c.done)
	defer c.Conn.Close()

	failed := false
	for payload := range c.send {
		if failed {
			continue
		}
		if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			failed = true
			go h.Leave(c)
		}
	}
}

// remove must be called with the mutex held. Closing the send queue stops
// the writer, which then closes the connection.
func (h *Hub) remove(c *Client) {
	room, ok := h.rooms[c.BusinessID]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, c.BusinessID)
	}
}

// Join registers c unless the hub has stopped.
func (h *Hub) Join(c *Client) error {
	select {
	case h.Register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Leave unregisters c. It is a no-op once the hub has stopped.
func (h *Hub) Leave(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// Subscribers returns how many clients listen on a business room.
func (h *Hub) Subscribers(businessID uuid.UUID) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[businessID])
}

func (h *Hub) Name() string { return "websocket" }

// Deliver implements notify.Sink.
func (h *Hub) Deliver(ctx context.Context, e notify.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.broadcast <- message{businessID: e.BusinessID, payload: payload}:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ notify.Sink = (*Hub)(nil)
