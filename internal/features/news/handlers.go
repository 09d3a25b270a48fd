package news

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type NewsHandler struct {
	service *NewsService
}

func NewNewsHandler(service *NewsService) *NewsHandler {
	return &NewsHandler{service: service}
}

func (h *NewsHandler) Feed(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	items, err := h.service.Feed(c.UserContext(), c.Query("symbol"), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: true, Message: "Failed to load news feed"})
	}
	return c.JSON(fiber.Map{"news": items})
}

func (h *NewsHandler) Ingest(c *fiber.Ctx) error {
	var req IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: true, Message: "Invalid request body"})
	}
	if len(req.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: true, Message: "items is required"})
	}

	resp, err := h.service.Ingest(c.UserContext(), &req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: true, Message: "Failed to ingest news"})
	}
	return c.JSON(resp)
}
