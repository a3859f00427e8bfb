// Package records defines the port for persisting user records.
package records

import (
	"context"
	"errors"

	"finpal/internal/core"
)

// ErrNotFound is returned by Load when no record exists for the username.
var ErrNotFound = errors.New("record not found")

type (
	// Loader reads a stored user record.
	Loader interface {
		Load(ctx context.Context, username string) (core.UserRecord, error)
	}

	// Saver replaces the stored user record, expenses included.
	Saver interface {
		Save(ctx context.Context, rec core.UserRecord) error
	}

	Store interface {
		Loader
		Saver
	}
)
