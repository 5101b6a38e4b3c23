package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// DeviceFunc names the device a request belongs to.
type DeviceFunc func(c *fiber.Ctx) (string, error)

// SnapshotFunc returns the events replayed to a socket right after it opens.
type SnapshotFunc func(deviceID string) []Event

func RegisterRoutes(r fiber.Router, hub *Hub, device DeviceFunc, snapshot SnapshotFunc) {
	r.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		deviceID, err := device(c)
		if err != nil {
			return err
		}
		c.Locals("device_id", deviceID)
		return c.Next()
	})

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		deviceID, _ := c.Locals("device_id").(string)
		client := hub.Register(deviceID)
		if snapshot != nil {
			for _, event := range snapshot(deviceID) {
				client.push(event)
			}
		}

		done := make(chan struct{})
		go func() {
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					break
				}
			}
			close(done)
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		// Unregister closes Send, which ends the writer.
		hub.Unregister(client)
		<-done
	}))
}
