package stream

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Event is one state push sent to a device's open sockets.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	EventSession = "session"
	EventVehicle = "vehicle"
	EventNotice  = "notice"
	EventRoute   = "route"
)

// envelope wraps payloads relayed through Redis so an instance can skip its
// own messages.
type envelope struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans events out to the sockets of each device. With Redis configured,
// events also reach sockets held by other instances.
type Hub struct {
	redis   *redis.Client
	id      string
	pubsub  *redis.PubSub
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	DeviceID string
	Send     chan []byte
}

// push queues event for this client only. Full buffers drop the event.
func (c *Client) push(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("encode %s event: %v", event.Type, err)
		return
	}
	select {
	case c.Send <- payload:
	default:
	}
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		id:      uuid.NewString(),
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		h.pubsub = redisClient.PSubscribe(context.Background(), redisPattern)
		go h.forward(h.pubsub.Channel())
	}
	return h
}

func (h *Hub) Register(deviceID string) *Client {
	client := &Client{
		DeviceID: deviceID,
		Send:     make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[deviceID] == nil {
		h.clients[deviceID] = map[*Client]struct{}{}
	}
	h.clients[deviceID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if deviceClients, ok := h.clients[client.DeviceID]; ok {
		delete(deviceClients, client)
		if len(deviceClients) == 0 {
			delete(h.clients, client.DeviceID)
		}
	}
	close(client.Send)
}

// Publish encodes event and broadcasts it to deviceID.
func (h *Hub) Publish(deviceID string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("encode %s event: %v", event.Type, err)
		return
	}
	h.Broadcast(deviceID, payload)
}

func (h *Hub) Broadcast(deviceID string, payload []byte) {
	h.deliver(deviceID, payload)

	if h.redis == nil {
		return
	}
	relayed, err := json.Marshal(envelope{Origin: h.id, Payload: payload})
	if err != nil {
		log.Printf("encode relay envelope: %v", err)
		return
	}
	if err := h.redis.Publish(context.Background(), redisChannel(deviceID), relayed).Err(); err != nil {
		log.Printf("redis publish error: %v", err)
	}
}

// Close stops relaying events from Redis.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	return h.pubsub.Close()
}

func (h *Hub) deliver(deviceID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[deviceID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) forward(messages <-chan *redis.Message) {
	for msg := range messages {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			log.Printf("drop malformed relay on %s: %v", msg.Channel, err)
			continue
		}
		if env.Origin == h.id {
			continue
		}
		deviceID := deviceIDFromChannel(msg.Channel)
		if deviceID == "" {
			continue
		}
		h.deliver(deviceID, env.Payload)
	}
}

const (
	channelPrefix = "motorota:"
	channelSuffix = ":events"
	redisPattern  = channelPrefix + "*" + channelSuffix
)

func redisChannel(deviceID string) string {
	return channelPrefix + deviceID + channelSuffix
}

func deviceIDFromChannel(ch string) string {
	if len(ch) <= len(channelPrefix)+len(channelSuffix) ||
		!strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
