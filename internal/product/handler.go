package product

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the public catalog read endpoints. Display prices come
// from the same pricing engine checkout locks prices with, so the two can
// never disagree for the same instant.
type Handler struct {
	service *Service
	now     func() time.Time
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s, now: time.Now}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/v1/products", h.listProducts)
	app.Get("/api/v1/products/:id<[0-9]+>", h.getProduct)
}

func (h *Handler) listProducts(c *fiber.Ctx) error {
	priced, err := h.service.PricedList(c.Context(), h.now())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(priced)
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}

	priced, err := h.service.PricedByID(c.Context(), id, h.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(priced)
}
