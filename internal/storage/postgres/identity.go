package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arroyoseco/marketplace/internal/domain/identity"
)

var _ identity.Reader = (*UserRepository)(nil)

// UserRepository reads user accounts. The table is owned by the auth
// service; this repository never writes it.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindUserByID(ctx context.Context, id string) (*identity.User, error) {
	var u identity.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, role, active
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find user %s", id)
	}
	return &u, nil
}
