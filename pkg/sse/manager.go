package sse

import (
	"io"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Event is one message pushed to a client
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type client struct {
	userID string
	events chan Event
}

type message struct {
	userID string
	event  Event
}

// Manager fans events out to the open event streams of each user
type Manager struct {
	register   chan *client
	unregister chan *client
	broadcast  chan message
	quit       chan struct{}
	stopOnce   sync.Once

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}

	heartbeat time.Duration
}

func NewManager() *Manager {
	return &Manager{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan message, 256),
		quit:       make(chan struct{}),
		clients:    make(map[string]map[*client]struct{}),
		heartbeat:  30 * time.Second,
	}
}

// Run dispatches events until Stop is called
func (m *Manager) Run() {
	for {
		select {
		case c := <-m.register:
			m.mu.Lock()
			if m.clients[c.userID] == nil {
				m.clients[c.userID] = make(map[*client]struct{})
			}
			m.clients[c.userID][c] = struct{}{}
			m.mu.Unlock()
			log.Printf("[SSE] Client connected for user %s", c.userID)
		case c := <-m.unregister:
			m.mu.Lock()
			if set, ok := m.clients[c.userID]; ok {
				if _, ok := set[c]; ok {
					delete(set, c)
					close(c.events)
				}
				if len(set) == 0 {
					delete(m.clients, c.userID)
				}
			}
			m.mu.Unlock()
			log.Printf("[SSE] Client disconnected for user %s", c.userID)
		case msg := <-m.broadcast:
			m.mu.RLock()
			for c := range m.clients[msg.userID] {
				select {
				case c.events <- msg.event:
				default:
					log.Printf("[SSE] Dropping %s event for slow client of %s", msg.event.Type, msg.userID)
				}
			}
			m.mu.RUnlock()
		case <-m.quit:
			m.mu.Lock()
			for userID, set := range m.clients {
				for c := range set {
					close(c.events)
				}
				delete(m.clients, userID)
			}
			m.mu.Unlock()
			return
		}
	}
}

// Stop ends Run and closes every open stream
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.quit) })
}

// SendToUser queues an event for every stream of userID
func (m *Manager) SendToUser(userID, eventType string, data interface{}) {
	select {
	case m.broadcast <- message{userID: userID, event: Event{Type: eventType, Data: data}}:
	case <-m.quit:
	default:
		log.Printf("[SSE] Broadcast queue full, dropping %s event for %s", eventType, userID)
	}
}

// Connected returns the number of open streams of userID
func (m *Manager) Connected(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[userID])
}

// ServeHTTP streams events to the client until it disconnects
func (m *Manager) ServeHTTP(c *gin.Context, userID string) {
	cl := &client{userID: userID, events: make(chan Event, 16)}
	select {
	case m.register <- cl:
	case <-m.quit:
		return
	}
	defer func() {
		select {
		case m.unregister <- cl:
		case <-m.quit:
		}
	}()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.SSEvent("connected", gin.H{"user_id": userID})
	c.Writer.Flush()

	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-cl.events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev.Data)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"time": time.Now().Unix()})
			return true
		}
	})
}
