package order

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Badr070118/lupeti-backend/internal/middleware"
	"github.com/Badr070118/lupeti-backend/internal/user"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/api/v1/orders/checkout", h.checkout)
	app.Get("/api/v1/orders", h.listOrders)
	app.Post("/api/v1/orders/:id<[0-9]+>/cancel", h.cancelOrder)
	app.Post("/api/v1/orders/:id<[0-9]+>/ship", h.shipOrder)
	app.Post("/api/v1/orders/:id<[0-9]+>/deliver", h.deliverOrder)
}

func (h *Handler) checkout(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	created, err := h.service.Checkout(c.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyCart):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "cart is empty"})
		case errors.Is(err, ErrProductUnavailable):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
		}
	}
	middleware.RecordOrderCreated()
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) listOrders(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	orders, err := h.service.ListByUser(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(orders)
}

func (h *Handler) cancelOrder(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	orderID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}

	ord, err := h.service.Cancel(c.Context(), userID, orderID)
	return respondTransition(c, ord, err)
}

func (h *Handler) shipOrder(c *fiber.Ctx) error {
	if _, err := user.GetUserIDFromCtx(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	orderID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}

	ord, err := h.service.MarkShipped(c.Context(), orderID)
	return respondTransition(c, ord, err)
}

func (h *Handler) deliverOrder(c *fiber.Ctx) error {
	if _, err := user.GetUserIDFromCtx(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	orderID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}

	ord, err := h.service.MarkDelivered(c.Context(), orderID)
	return respondTransition(c, ord, err)
}

func respondTransition(c *fiber.Ctx, ord Order, err error) error {
	switch {
	case err == nil:
		return c.JSON(ord)
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "order not found"})
	case errors.Is(err, ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "invalid order status transition"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
}
