// Package users resolves minimal user projections from the user service.
// This module never stores users; everything here is display resolution.
package users

import (
	"context"

	"github.com/fathima-sithara/conversation-service/internal/models"
)

// Lookup resolves a user id to a minimal projection. A missing user is
// (nil, nil), never an error; callers fall back to a generic display.
type Lookup interface {
	MinimalUser(ctx context.Context, userID string) (*models.MinimalUser, error)
}
