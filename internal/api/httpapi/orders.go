package httpapi

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
	"github.com/vladislavdragonenkov/cleanerspos/internal/service/checkout"
)

func (h *Handler) placeOrder(c fiber.Ctx) error {
	var req dropoffRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	dropoff := checkout.Dropoff{
		Store:      req.Store,
		Employee:   req.Employee,
		Note:       req.Note,
		RackNumber: req.RackNumber,
		ReadyDate:  req.ReadyDate,
		Cart:       req.cart(),
	}
	switch {
	case req.CustomerID != "":
		id, err := primitive.ObjectIDFromHex(req.CustomerID)
		if err != nil {
			return domain.ErrInvalidID
		}
		customer, err := h.checkout.GetCustomer(c.Context(), id)
		if err != nil {
			return err
		}
		dropoff.Customer = customer
	case req.Customer != nil:
		dropoff.Customer = req.Customer.toDomain()
	default:
		return &domain.ValidationError{Entity: "dropoff", Fields: []string{"customerId"}}
	}
	if req.Prepayment != nil {
		p := req.Prepayment.toDomain()
		dropoff.Prepayment = &p
	}

	order, err := h.checkout.PlaceOrder(c.Context(), dropoff)
	if err != nil {
		if order.ID.IsZero() {
			return err
		}
		// заказ сохранён, не прошла только предоплата
		code, body := h.errorBody(c, err)
		body.OrderID = order.ID.Hex()
		return c.Status(code).JSON(body)
	}
	return c.Status(http.StatusCreated).JSON(orderFrom(order))
}

func (h *Handler) getOrder(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	order, err := h.checkout.GetOrder(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(orderFrom(order))
}

func (h *Handler) applyPayment(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req paymentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	order, err := h.checkout.ApplyPayment(c.Context(), id, req.toDomain())
	if err != nil {
		return err
	}
	return c.JSON(orderFrom(order))
}

func (h *Handler) pickUp(c fiber.Ctx) error {
	return h.employeeAction(c, h.checkout.MarkPickedUp)
}

func (h *Handler) voidOrder(c fiber.Ctx) error {
	return h.employeeAction(c, h.checkout.VoidOrder)
}

type employeeActionFunc func(ctx context.Context, id primitive.ObjectID, employee string) (domain.Order, error)

func (h *Handler) employeeAction(c fiber.Ctx, action employeeActionFunc) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req employeeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.Employee == "" {
		return &domain.ValidationError{Entity: "request", Fields: []string{"employee"}}
	}
	order, err := action(c.Context(), id, req.Employee)
	if err != nil {
		return err
	}
	return c.JSON(orderFrom(order))
}

func (h *Handler) deleteOrder(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.checkout.DeleteOrder(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
