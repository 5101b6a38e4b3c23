package session

import (
	"backend-motorota/internal/apperr"
	"backend-motorota/internal/identity"
	"backend-motorota/internal/profile"

	"github.com/gofiber/fiber/v2"
)

// Resolver finds the Store belonging to the caller of a request.
type Resolver func(c *fiber.Ctx) (*Store, error)

// View is the JSON shape of a State. Tokens never leave the server.
type View struct {
	Loading  bool                 `json:"loading"`
	SignedIn bool                 `json:"signed_in"`
	User     *identity.User       `json:"user,omitempty"`
	Profile  *profile.UserProfile `json:"profile"`
}

func (s State) View() View {
	v := View{Loading: s.Loading, SignedIn: s.SignedIn(), Profile: s.Profile}
	if s.Session != nil {
		user := s.Session.User
		v.User = &user
	}
	return v
}

func RegisterRoutes(r fiber.Router, resolve Resolver) {
	r.Get("/", func(c *fiber.Ctx) error {
		store, err := resolve(c)
		if err != nil {
			return err
		}
		return c.JSON(store.Current().View())
	})

	r.Post("/signup", func(c *fiber.Ctx) error {
		var req SignUpRequest
		if err := c.BodyParser(&req); err != nil {
			return apperr.Validation("invalid request body")
		}
		store, err := resolve(c)
		if err != nil {
			return err
		}
		if err := store.SignUp(c.Context(), req); err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(store.Current().View())
	})

	r.Post("/signin", func(c *fiber.Ctx) error {
		var req SignInRequest
		if err := c.BodyParser(&req); err != nil {
			return apperr.Validation("invalid request body")
		}
		store, err := resolve(c)
		if err != nil {
			return err
		}
		if err := store.SignIn(c.Context(), req); err != nil {
			return err
		}
		return c.JSON(store.Current().View())
	})

	r.Post("/signout", func(c *fiber.Ctx) error {
		store, err := resolve(c)
		if err != nil {
			return err
		}
		if err := store.SignOut(c.Context()); err != nil {
			return err
		}
		return c.JSON(store.Current().View())
	})
}
