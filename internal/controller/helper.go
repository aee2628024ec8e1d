package controller

import (
	"github.com/google/uuid"
)

// generateTimeBasedId returns a time ordered unique id for request tracing.
func (c controller) generateTimeBasedId() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}
