package application

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/example/synccircle/internal/persistence"
)

// NewID returns a random UUID string for members and events.
func NewID() string {
	return uuid.NewString()
}

// NewCircleCode returns an eight character invite code taken from a random
// UUID.
func NewCircleCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		vErr := &ValidationError{}
		vErr.add("user_id", MsgMemberUnknown)
		return vErr
	}
	return err
}
