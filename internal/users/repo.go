package users

import (
	"context"
	"errors"

	"github.com/2beens/trainplan/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Get(ctx context.Context, userID int64) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.get")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int64("user.id", userID))

	user := &User{}
	err = r.db.
		QueryRow(ctx, `
			SELECT id, first_name, username, timezone, created_at
			FROM users
			WHERE id = $1
		`, userID).
		Scan(&user.ID, &user.FirstName, &user.Username, &user.Timezone, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Upsert registers a user or refreshes their profile fields.
// An empty timezone never overwrites a stored one.
func (r *Repo) Upsert(ctx context.Context, user User) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.upsert")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int64("user.id", user.ID))

	_, err = r.db.Exec(ctx, `
		INSERT INTO users (id, first_name, username, timezone, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE
		SET first_name = EXCLUDED.first_name,
		    username = EXCLUDED.username,
		    timezone = COALESCE(NULLIF(EXCLUDED.timezone, ''), users.timezone)
	`,
		user.ID,
		user.FirstName,
		user.Username,
		user.Timezone,
	)
	return err
}
