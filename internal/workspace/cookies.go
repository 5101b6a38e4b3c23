package workspace

import (
	"time"

	"backend-motorota/internal/notice"
	"backend-motorota/internal/route"
	"backend-motorota/internal/session"
	"backend-motorota/internal/vehicle"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

const (
	DeviceCookie = "motorota_device"
	TabCookie    = "motorota_tab"

	deviceCookieTTL = 365 * 24 * time.Hour

	localDevice = "device_id"
	localTab    = "tab_id"
)

// Cookies makes sure every request carries a device id and a browser-session
// id. The tab cookie has no expiry, so it dies with the browser session.
func Cookies(secure bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deviceID := ensureCookie(c, DeviceCookie, secure, time.Now().Add(deviceCookieTTL))
		tabID := ensureCookie(c, TabCookie, secure, time.Time{})
		c.Locals(localDevice, deviceID)
		c.Locals(localTab, tabID)
		return c.Next()
	}
}

func ensureCookie(c *fiber.Ctx, name string, secure bool, expires time.Time) string {
	if id := c.Cookies(name); id != "" {
		if _, err := uuid.Parse(id); err == nil {
			// Cookie values point into the request buffer, which fiber reuses.
			return utils.CopyString(id)
		}
	}
	id := uuid.NewString()
	c.Cookie(&fiber.Cookie{
		Name:        name,
		Value:       id,
		Path:        "/",
		Expires:     expires,
		SessionOnly: expires.IsZero(),
		HTTPOnly:    true,
		Secure:      secure,
		SameSite:    fiber.CookieSameSiteLaxMode,
	})
	return id
}

func DeviceID(c *fiber.Ctx) string {
	id, _ := c.Locals(localDevice).(string)
	return id
}

func TabID(c *fiber.Ctx) string {
	id, _ := c.Locals(localTab).(string)
	return id
}

func (r *Registry) current(c *fiber.Ctx) (*Workspace, error) {
	deviceID := DeviceID(c)
	if deviceID == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "missing device cookie")
	}
	return r.Get(deviceID), nil
}

func (r *Registry) Device(c *fiber.Ctx) (string, error) {
	w, err := r.current(c)
	if err != nil {
		return "", err
	}
	return w.DeviceID(), nil
}

func (r *Registry) SessionStore(c *fiber.Ctx) (*session.Store, error) {
	w, err := r.current(c)
	if err != nil {
		return nil, err
	}
	return w.Session(), nil
}

func (r *Registry) VehicleStore(c *fiber.Ctx) (*vehicle.Store, error) {
	w, err := r.current(c)
	if err != nil {
		return nil, err
	}
	return w.Vehicles(), nil
}

func (r *Registry) NoticeBoard(c *fiber.Ctx) (*notice.Board, error) {
	w, err := r.current(c)
	if err != nil {
		return nil, err
	}
	return w.Notices(), nil
}

func (r *Registry) RouteClient(c *fiber.Ctx) (route.Client, error) {
	w, err := r.current(c)
	if err != nil {
		return nil, err
	}
	return w.ForTab(TabID(c)), nil
}
