package stream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func receive(t *testing.T, client *Client) []byte {
	t.Helper()
	select {
	case msg := <-client.Send:
		return msg
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for message")
	}
	return nil
}

func TestHubPublishToDevice(t *testing.T) {
	hub := NewHub(nil)
	client := hub.Register("device-1")
	other := hub.Register("device-2")
	defer hub.Unregister(client)
	defer hub.Unregister(other)

	hub.Publish("device-1", Event{Type: EventNotice, Data: map[string]string{"message": "trip started"}})

	var event struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(receive(t, client), &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Type != EventNotice || event.Data["message"] != "trip started" {
		t.Fatalf("unexpected event %+v", event)
	}
	select {
	case <-other.Send:
		t.Fatalf("event leaked to another device")
	default:
	}
}

func TestHubHelpers(t *testing.T) {
	ch := redisChannel("abc")
	if ch != "motorota:abc:events" {
		t.Fatalf("unexpected channel %q", ch)
	}
	if deviceIDFromChannel(ch) != "abc" {
		t.Fatalf("unexpected device id")
	}
	if deviceIDFromChannel("bad") != "" || deviceIDFromChannel("tracking:abc:broadcast") != "" {
		t.Fatalf("expected empty device id")
	}
}

func TestUnregisterCloses(t *testing.T) {
	hub := NewHub(nil)
	client := hub.Register("device-2")
	hub.Unregister(client)
	if _, ok := <-client.Send; ok {
		t.Fatalf("expected channel closed")
	}
}

func TestHubRelaysAcrossInstances(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()

	local := NewHub(rdb)
	defer local.Close()
	remote := NewHub(rdb)
	defer remote.Close()

	mine := local.Register("device-r")
	defer local.Unregister(mine)
	theirs := remote.Register("device-r")
	defer remote.Unregister(theirs)

	time.Sleep(20 * time.Millisecond)
	local.Broadcast("device-r", []byte(`{"type":"session"}`))

	if got := string(receive(t, mine)); got != `{"type":"session"}` {
		t.Fatalf("unexpected local message %s", got)
	}
	if got := string(receive(t, theirs)); got != `{"type":"session"}` {
		t.Fatalf("unexpected relayed message %s", got)
	}

	select {
	case msg := <-mine.Send:
		t.Fatalf("own relay delivered twice: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubIgnoresMalformedRelay(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()

	hub := NewHub(rdb)
	defer hub.Close()
	client := hub.Register("device-m")
	defer hub.Unregister(client)

	time.Sleep(20 * time.Millisecond)
	if err := rdb.Publish(context.Background(), redisChannel("device-m"), "not json").Err(); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case msg := <-client.Send:
		t.Fatalf("malformed relay delivered: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRedisPublishError(t *testing.T) {
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: server.Addr(), MaxRetries: -1})
	defer client.Close()

	hub := NewHub(client)
	defer hub.Close()
	server.Close()

	node := hub.Register("device-bad")
	defer hub.Unregister(node)

	hub.Broadcast("device-bad", []byte("ping"))
	if got := string(receive(t, node)); got != "ping" {
		t.Fatalf("local delivery should survive redis failure")
	}
}
