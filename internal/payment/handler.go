package payment

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Badr070118/lupeti-backend/internal/middleware"
	"github.com/Badr070118/lupeti-backend/internal/order"
	"github.com/Badr070118/lupeti-backend/internal/user"
	"github.com/Badr070118/lupeti-backend/internal/validation"
)

type Handler struct {
	initiator  *Initiator
	reconciler *Reconciler
	validate   *validation.Validator
	logger     *zap.Logger
}

func NewHandler(initiator *Initiator, reconciler *Reconciler, validate *validation.Validator, logger *zap.Logger) *Handler {
	return &Handler{initiator: initiator, reconciler: reconciler, validate: validate, logger: logger}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/api/v1/payments/paytr/initiate", h.initiate)
}

// The callback endpoint is public: it authenticates via the keyed hash, not
// a session.
func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Post("/api/v1/payments/paytr/callback", h.callback)
}

type initiateRequest struct {
	OrderID int `json:"orderId" validate:"required,gt=0"`
}

func (h *Handler) initiate(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	payload := new(initiateRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if err := h.validate.Struct(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	result, err := h.initiator.Initiate(c.Context(), payload.OrderID, userID)
	switch {
	case err == nil:
		return c.JSON(result)
	case errors.Is(err, order.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "order not found"})
	case errors.Is(err, ErrOrderNotPayable):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "order is not payable"})
	case errors.Is(err, ErrAmountMismatch):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "order amount changed since initiation"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
}

// callback receives PayTR's form POST. Response policy: plaintext ack for
// anything applied or already known, non-2xx only for authenticity and
// payload failures, where a provider retry is the right outcome.
func (h *Handler) callback(c *fiber.Ctx) error {
	// keep the raw body before parsing; payment disputes need the exact
	// payload for replay
	rawBody := string(c.Body())

	cb := Callback{
		MerchantOID:      c.FormValue("merchant_oid"),
		Status:           c.FormValue("status"),
		TotalAmount:      c.FormValue("total_amount"),
		Hash:             c.FormValue("hash"),
		FailedReasonCode: c.FormValue("failed_reason_code"),
		FailedReasonMsg:  c.FormValue("failed_reason_msg"),
	}
	if err := h.validate.Struct(cb); err != nil {
		middleware.RecordCallback("rejected")
		h.logger.Error("callback payload rejected",
			zap.String("merchant_oid", cb.MerchantOID),
			zap.String("raw_payload", rawBody),
			zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	ack, err := h.reconciler.Handle(c.Context(), cb)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSignature):
			middleware.RecordCallback("rejected")
			// the hash inputs stay out of the log; the raw payload is
			// enough for forensics
			h.logger.Error("callback signature rejected",
				zap.String("merchant_oid", cb.MerchantOID),
				zap.String("raw_payload", rawBody))
			return c.SendStatus(fiber.StatusBadRequest)
		case errors.Is(err, ErrMalformedCallback):
			middleware.RecordCallback("rejected")
			h.logger.Error("callback payload rejected",
				zap.String("merchant_oid", cb.MerchantOID),
				zap.String("raw_payload", rawBody),
				zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid payload"})
		case ack != "":
			// application-level error on an authentic callback: log for
			// operator follow-up but acknowledge so the provider stops
			// redelivering
			middleware.RecordCallback("error")
			h.logger.Error("callback acknowledged with error",
				zap.String("merchant_oid", cb.MerchantOID),
				zap.String("raw_payload", rawBody),
				zap.Error(err))
			return c.SendString(ack)
		default:
			middleware.RecordCallback("error")
			h.logger.Error("callback processing failed",
				zap.String("merchant_oid", cb.MerchantOID),
				zap.String("raw_payload", rawBody),
				zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	middleware.RecordCallback("applied")
	return c.SendString(ack)
}
