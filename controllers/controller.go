package controller

import (
	"errors"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"

	"prospector/engine"
	"prospector/gateway"
)

// fail maps engine and gateway errors onto HTTP responses. Unexpected
// errors go to sentry before the client sees a 500.
func fail(c *fiber.Ctx, err error) error {
	var notFound *engine.NotFoundError
	if errors.As(err, &notFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": notFound.Error()})
	}

	var invalid *engine.ValidationError
	if errors.As(err, &invalid) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": invalid.Error()})
	}

	var upstream *gateway.UpstreamError
	if errors.As(err, &upstream) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": upstream.Error()})
	}

	var aggregation *engine.AggregationError
	if errors.As(err, &aggregation) {
		sentry.CaptureException(err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": aggregation.Error()})
	}

	sentry.CaptureException(err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
