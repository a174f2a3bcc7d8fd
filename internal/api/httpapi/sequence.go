package httpapi

import (
	"github.com/gofiber/fiber/v3"
)

func (h *Handler) getSequence(c fiber.Ctx) error {
	value, err := h.sequence.Get(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(sequenceDTO{Value: value})
}

// setSequence - административный сброс счётчика.
func (h *Handler) setSequence(c fiber.Ctx) error {
	var req sequenceDTO
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := h.sequence.Set(c.Context(), req.Value); err != nil {
		return err
	}
	h.logger.WithField("value", req.Value).Warn("sequence counter overwritten")
	return c.JSON(req)
}

func (h *Handler) nextSequence(c fiber.Ctx) error {
	value, err := h.sequence.GetThenIncrement(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(sequenceDTO{Value: value})
}
