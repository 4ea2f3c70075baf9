package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/fennelworks/gatehouse/internal/gatehouse/domain"
)

type tokensRepo struct {
	db dbtx
}

func (r *tokensRepo) CreateToken(ctx context.Context, t domain.VerificationToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verification_tokens (id, user_id, token_hash, purpose, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, string(t.Purpose), t.ExpiresAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *tokensRepo) GetTokenByHash(ctx context.Context, hash string) (domain.VerificationToken, error) {
	var t domain.VerificationToken
	var purpose string
	var usedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, purpose, expires_at, used_at, created_at
		 FROM verification_tokens WHERE token_hash = ?`, hash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &purpose, &t.ExpiresAt, &usedAt, &t.CreatedAt)
	if err != nil {
		return domain.VerificationToken{}, mapNotFound(err)
	}
	t.Purpose = domain.TokenPurpose(purpose)
	t.UsedAt = mapNullTimePtr(usedAt)
	return t, nil
}

// ConsumeToken guards single use at the SQL level: the UPDATE only matches an
// unused row, so a concurrent second consumption sees zero rows affected and
// gets ErrNotFound.
func (r *tokensRepo) ConsumeToken(ctx context.Context, id string, usedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE verification_tokens SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		usedAt.UTC(), id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE expires_at < ?`, now.UTC())
	return err
}
