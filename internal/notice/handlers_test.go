package notice

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestNoticeHandler(t *testing.T) {
	board := NewBoard(time.Minute)
	app := fiber.New()
	RegisterRoutes(app.Group("/notice"), func(c *fiber.Ctx) (*Board, error) { return board, nil })

	board.Success("trip started")
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/notice/", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("notice status: %v", err)
	}
	var body struct {
		Notice *Notice `json:"notice"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Notice == nil || body.Notice.Kind != KindSuccess || body.Notice.Message != "trip started" {
		t.Fatalf("unexpected body %+v", body.Notice)
	}
}
