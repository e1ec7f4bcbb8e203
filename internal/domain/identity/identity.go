// Package identity exposes the read-only view of user accounts owned by
// the auth service. The checkout and booking flows only need existence and
// active-state checks.
package identity

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a referenced user does not exist.
var ErrNotFound = errors.New("user not found")

// User is the subset of the account record this service consumes.
type User struct {
	ID     string
	Name   string
	Email  string
	Role   string
	Active bool
}

// Reader provides lookup of users by id.
type Reader interface {
	FindUserByID(ctx context.Context, id string) (*User, error)
}
