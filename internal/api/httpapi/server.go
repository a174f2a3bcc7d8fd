// Package httpapi - JSON API кассы поверх checkout-сервиса и счётчика номеров.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
	"github.com/vladislavdragonenkov/cleanerspos/internal/service/checkout"
	"github.com/vladislavdragonenkov/cleanerspos/internal/version"
)

// Handler обслуживает HTTP-запросы кассы.
type Handler struct {
	checkout *checkout.Service
	sequence domain.SequenceAllocator
	logger   *log.Entry
}

// NewHandler создаёт обработчики; logger=nil означает логгер по умолчанию.
func NewHandler(svc *checkout.Service, sequence domain.SequenceAllocator, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	return &Handler{checkout: svc, sequence: sequence, logger: logger}
}

// NewApp собирает Fiber-приложение с middleware и маршрутами.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      version.Service,
		BodyLimit:    1 * 1024 * 1024,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: h.handleError,
	})

	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(h.logRequests)

	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes вешает маршруты API на router.
func (h *Handler) RegisterRoutes(router fiber.Router) {
	router.Post("/customers", h.createCustomer)
	router.Get("/customers", h.searchCustomers)
	router.Get("/customers/:id", h.getCustomer)
	router.Patch("/customers/:id", h.updateCustomer)
	router.Delete("/customers/:id", h.deleteCustomer)
	router.Get("/customers/:id/orders", h.customerOrders)

	router.Post("/orders", h.placeOrder)
	router.Get("/orders/:id", h.getOrder)
	router.Post("/orders/:id/payments", h.applyPayment)
	router.Post("/orders/:id/pickup", h.pickUp)
	router.Post("/orders/:id/void", h.voidOrder)
	router.Delete("/orders/:id", h.deleteOrder)

	router.Get("/sequence", h.getSequence)
	router.Put("/sequence", h.setSequence)
	router.Post("/sequence/next", h.nextSequence)
}

// statusFor сопоставляет ошибку домена с HTTP-статусом.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) handleError(c fiber.Ctx, err error) error {
	code, body := h.errorBody(c, err)
	return c.Status(code).JSON(body)
}

func (h *Handler) errorBody(c fiber.Ctx, err error) (int, errorResponse) {
	code := statusFor(err)
	message := err.Error()
	if code >= http.StatusInternalServerError {
		h.logger.WithError(err).WithFields(log.Fields{
			"method":     c.Method(),
			"path":       c.Path(),
			"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
		}).Error("request failed")
		message = http.StatusText(code)
	}
	return code, errorResponse{Status: "error", Message: message}
}

func (h *Handler) logRequests(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	entry := h.logger.WithFields(log.Fields{
		"method":      c.Method(),
		"path":        c.Path(),
		"duration_ms": time.Since(start).Milliseconds(),
		"request_id":  c.GetRespHeader(fiber.HeaderXRequestID),
	})
	if err != nil {
		entry.WithField("status", statusFor(err)).Debug("request handled with error")
		return err
	}
	entry.WithField("status", c.Response().StatusCode()).Debug("request handled")
	return nil
}

func parseID(c fiber.Ctx) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return primitive.NilObjectID, domain.ErrInvalidID
	}
	return id, nil
}

func bindJSON(c fiber.Ctx, out any) error {
	if err := c.Bind().Body(out); err != nil {
		return &domain.ValidationError{Entity: "request", Reason: "malformed JSON body"}
	}
	return nil
}
