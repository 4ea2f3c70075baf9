package sqlite

import (
	"context"

	"github.com/fennelworks/gatehouse/internal/gatehouse/domain"
)

type identitiesRepo struct {
	db dbtx
}

func (r *identitiesRepo) CreateIdentity(ctx context.Context, i domain.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (id, user_id, provider, subject)
		 VALUES (?, ?, ?, ?)`,
		i.ID, i.UserID, i.Provider, i.Subject,
	)
	return mapConstraint(err)
}

func (r *identitiesRepo) GetIdentity(ctx context.Context, provider, subject string) (domain.Identity, error) {
	var i domain.Identity
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, provider, subject, created_at
		 FROM identities WHERE provider = ? AND subject = ?`, provider, subject).
		Scan(&i.ID, &i.UserID, &i.Provider, &i.Subject, &i.CreatedAt)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	return i, nil
}
