package ws

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/esetaro2/progresso-backend-sub000/internal/domain"
)

// AllTopic receives every event regardless of project.
const AllTopic = "*"

const defaultBuffer = 256

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans committed allocation events out to subscribers by topic. A topic
// is a project ID or AllTopic.
type Hub struct {
	clients   map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
	done      chan struct{}
	logger    *slog.Logger
}

// message couples payload with the topics it is delivered to.
type message struct {
	topics  []string
	payload []byte
}

// subscription defines register/unregister requests.
type subscription struct {
	topic  string
	client Subscriber
}

// EventMessage is the wire shape of a streamed event.
type EventMessage struct {
	Type       string    `json:"type"`
	ProjectID  string    `json:"project_id,omitempty"`
	TaskID     string    `json:"task_id,omitempty"`
	TeamID     string    `json:"team_id,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewHub creates an initialized Hub. buffer bounds the queue of undelivered
// events; Publish drops events once it is full.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		clients:   make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message, buffer),
		done:      make(chan struct{}),
		logger:    logger,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			if _, ok := h.clients[sub.topic]; !ok {
				h.clients[sub.topic] = make(map[Subscriber]struct{})
			}
			h.clients[sub.topic][sub.client] = struct{}{}
		case sub := <-h.unreg:
			h.remove(sub.topic, sub.client)
		case msg := <-h.broadcast:
			for _, topic := range msg.topics {
				clients, ok := h.clients[topic]
				if !ok {
					continue
				}
				for c := range clients {
					if err := c.Send(msg.payload); err != nil {
						c.Close()
						h.remove(topic, c)
					}
				}
			}
		case <-h.done:
			for _, clients := range h.clients {
				for c := range clients {
					c.Close()
				}
			}
			h.clients = map[string]map[Subscriber]struct{}{}
			return
		}
	}
}

func (h *Hub) remove(topic string, client Subscriber) {
	clients, ok := h.clients[topic]
	if !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, topic)
	}
}

// Register adds a client to a topic.
func (h *Hub) Register(topic string, client Subscriber) {
	select {
	case h.register <- subscription{topic: topic, client: client}:
	case <-h.done:
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(topic string, client Subscriber) {
	select {
	case h.unreg <- subscription{topic: topic, client: client}:
	case <-h.done:
	}
}

// Broadcast queues payload for the given topics without blocking.
func (h *Hub) Broadcast(payload []byte, topics ...string) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- message{topics: topics, payload: payload}:
		return true
	default:
		return false
	}
}

// Publish streams a committed event to its project topic and AllTopic.
func (h *Hub) Publish(event domain.Event) {
	payload, err := json.Marshal(EventMessage{
		Type:       string(event.Type),
		ProjectID:  event.ProjectID,
		TaskID:     event.TaskID,
		TeamID:     event.TeamID,
		UserID:     event.UserID,
		ActorID:    event.ActorID,
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		h.logger.Error("encode event failed", "type", event.Type, "error", err)
		return
	}
	topics := []string{AllTopic}
	if event.ProjectID != "" {
		topics = append(topics, event.ProjectID)
	}
	if !h.Broadcast(payload, topics...) {
		h.logger.Warn("event dropped", "type", event.Type, "project_id", event.ProjectID)
	}
}

// Close stops the hub and closes every subscriber.
func (h *Hub) Close() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}
