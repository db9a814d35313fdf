package server

import (
	"strconv"
	"strings"
)

// parseAmountQuery reads a required decimal query value. Syntax errors are
// reported under field; range checks are left to the engine.
func parseAmountQuery(value, field string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, newValidationError(field, "required", field+" is required")
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, newValidationError(field, "invalid_"+field, "invalid "+strings.ReplaceAll(field, "_", " "))
	}
	return parsed, nil
}
