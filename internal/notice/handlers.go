package notice

import "github.com/gofiber/fiber/v2"

type Resolver func(c *fiber.Ctx) (*Board, error)

func RegisterRoutes(r fiber.Router, resolve Resolver) {
	r.Get("/", func(c *fiber.Ctx) error {
		board, err := resolve(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"notice": board.Current()})
	})
}
