package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/company-directory/internal/store"
	apperrors "github.com/spec-kit/company-directory/pkg/util"
)

const populateParam = "populate"

// parseFields decodes a JSON object body into a raw field map so validation
// sees the submitted value types.
func parseFields(c *fiber.Ctx) (map[string]any, error) {
	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return nil, apperrors.NewValidationError("invalid payload", nil)
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, nil
}

// queryFilter turns query parameters into an exact-match predicate.
func queryFilter(c *fiber.Ctx) store.Filter {
	filter := store.Filter{}
	for key, value := range c.Queries() {
		if key == populateParam {
			continue
		}
		filter[key] = value
	}
	return filter
}
