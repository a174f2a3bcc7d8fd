package httpapi

import (
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
)

func (h *Handler) createCustomer(c fiber.Ctx) error {
	var req customerRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	customer, err := h.checkout.RegisterCustomer(c.Context(), req.toDomain())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(customerFrom(customer))
}

func (h *Handler) searchCustomers(c fiber.Ctx) error {
	customers, err := h.checkout.FindCustomers(c.Context(), domain.CustomerSearch{
		FirstName: c.Query("firstName"),
		LastName:  c.Query("lastName"),
		Phone:     c.Query("phone"),
		Ticket:    c.Query("ticket"),
	})
	if err != nil {
		return err
	}
	out := make([]customerResponse, 0, len(customers))
	for _, customer := range customers {
		out = append(out, customerFrom(customer))
	}
	return c.JSON(out)
}

func (h *Handler) getCustomer(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	customer, err := h.checkout.GetCustomer(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(customerFrom(customer))
}

func (h *Handler) updateCustomer(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req customerPatchRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	customer, err := h.checkout.UpdateCustomer(c.Context(), id, req.toDomain())
	if err != nil {
		return err
	}
	return c.JSON(customerFrom(customer))
}

func (h *Handler) deleteCustomer(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.checkout.DeleteCustomer(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *Handler) customerOrders(c fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	orders, err := h.checkout.CustomerOrders(c.Context(), id)
	if err != nil {
		return err
	}
	out := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, orderFrom(order))
	}
	return c.JSON(out)
}
