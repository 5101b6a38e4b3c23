package vehicle

import (
	"backend-motorota/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

// Resolver finds the Store belonging to the caller of a request.
type Resolver func(c *fiber.Ctx) (*Store, error)

type View struct {
	Loading    bool     `json:"loading"`
	Configured bool     `json:"configured"`
	Vehicle    *Profile `json:"vehicle"`
}

func (s *Store) View() View {
	p := s.Current()
	return View{Loading: s.Loading(), Configured: p != nil, Vehicle: p}
}

func RegisterRoutes(r fiber.Router, resolve Resolver) {
	r.Get("/", func(c *fiber.Ctx) error {
		store, err := resolve(c)
		if err != nil {
			return err
		}
		return c.JSON(store.View())
	})

	r.Put("/", func(c *fiber.Ctx) error {
		store, err := resolve(c)
		if err != nil {
			return err
		}
		var req Profile
		if err := c.BodyParser(&req); err != nil {
			return apperr.Validation("invalid request body")
		}
		if err := store.Save(c.Context(), req); err != nil {
			return err
		}
		return c.JSON(store.View())
	})

	r.Delete("/", func(c *fiber.Ctx) error {
		store, err := resolve(c)
		if err != nil {
			return err
		}
		if err := store.Clear(c.Context()); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
