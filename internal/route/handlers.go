package route

import (
	"backend-motorota/internal/apperr"
	"backend-motorota/internal/vehicle"

	"github.com/gofiber/fiber/v2"
)

// Client is what the route handlers need from the caller's workspace.
type Client interface {
	Planner() *Planner
	Drafts() Drafts
	OwnerID() string
	Vehicle() *vehicle.Profile
	VehicleLoading() bool
}

type Resolver func(c *fiber.Ctx) (Client, error)

func RegisterRoutes(r fiber.Router, resolve Resolver) {
	r.Get("/draft", func(c *fiber.Ctx) error {
		client, err := resolve(c)
		if err != nil {
			return err
		}
		draft, err := LoadDraft(c.Context(), client.Drafts())
		if err != nil {
			return apperr.External(err)
		}
		return c.JSON(draft)
	})

	r.Put("/draft", func(c *fiber.Ctx) error {
		var draft Draft
		if err := c.BodyParser(&draft); err != nil {
			return apperr.Validation("invalid request body")
		}
		client, err := resolve(c)
		if err != nil {
			return err
		}
		if err := SaveDraft(c.Context(), client.Drafts(), draft); err != nil {
			return apperr.External(err)
		}
		return c.JSON(draft)
	})

	r.Get("/enabled", func(c *fiber.Ctx) error {
		client, err := resolve(c)
		if err != nil {
			return err
		}
		enabled := !client.VehicleLoading() && CanPlan(c.Query("origin"), c.Query("destination"), client.Vehicle())
		return c.JSON(fiber.Map{"enabled": enabled})
	})

	r.Post("/", func(c *fiber.Ctx) error {
		var draft Draft
		if err := c.BodyParser(&draft); err != nil {
			return apperr.Validation("invalid request body")
		}
		client, err := resolve(c)
		if err != nil {
			return err
		}
		if client.VehicleLoading() {
			return fiber.NewError(fiber.StatusConflict, "vehicle profile is loading")
		}
		view, err := client.Planner().Plan(c.Context(), client.Drafts(), draft, client.Vehicle())
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(view)
	})

	r.Get("/", func(c *fiber.Ctx) error {
		client, err := resolve(c)
		if err != nil {
			return err
		}
		view := client.Planner().Current()
		if view == nil {
			return fiber.NewError(fiber.StatusNotFound, "no route planned")
		}
		return c.JSON(view)
	})

	r.Post("/start", func(c *fiber.Ctx) error {
		client, err := resolve(c)
		if err != nil {
			return err
		}
		trip, err := client.Planner().StartTrip(c.Context(), client.OwnerID())
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(trip)
	})

	r.Get("/recent", func(c *fiber.Ctx) error {
		client, err := resolve(c)
		if err != nil {
			return err
		}
		trips := client.Planner().Recent(c.Context(), client.OwnerID(), c.QueryInt("limit", DefaultRecentLimit))
		return c.JSON(trips)
	})
}

// RegisterAPIRoutes exposes the caller's trips to bearer-authenticated clients.
func RegisterAPIRoutes(r fiber.Router, trips TripStore, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		ownerID, _ := c.Locals("user_id").(string)
		if ownerID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing user")
		}
		list, err := trips.Recent(c.Context(), ownerID, clampLimit(c.QueryInt("limit", DefaultRecentLimit)))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if list == nil {
			list = []Trip{}
		}
		return c.JSON(list)
	})
}
