package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tbuckley92/eyelog/internal/common"
	"github.com/tbuckley92/eyelog/internal/entity"
)

type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error)
	GetOrCreateByName(ctx context.Context, name string) (*entity.Profile, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type profileRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewProfileRepository(db *sql.DB, logger *slog.Logger) ProfileRepository {
	return &profileRepo{db: db, logger: logger}
}

func (r *profileRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM profiles WHERE id = $1`, id.String())
	return r.scan(row)
}

func (r *profileRepo) GetOrCreateByName(ctx context.Context, name string) (*entity.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM profiles WHERE name = $1`, name)
	p, err := r.scan(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	p = &entity.Profile{ID: uuid.New(), Name: name, CreatedAt: now, UpdatedAt: now}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		p.ID.String(), p.Name, formatTS(p.CreatedAt), formatTS(p.UpdatedAt))
	if err != nil {
		r.logger.Error("failed to create profile", "name", name, "error", err)
		return nil, common.WrapError(err, "create profile")
	}
	r.logger.Info("profile created", "profile_id", p.ID, "name", name)
	return p, nil
}

func (r *profileRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM profiles WHERE id = $1`, id.String()).Scan(&n)
	if err != nil {
		r.logger.Error("failed to check profile existence", "profile_id", id, "error", err)
		return false, err
	}
	return n > 0, nil
}

func (r *profileRepo) scan(row *sql.Row) (*entity.Profile, error) {
	var (
		id, name, createdAt, updatedAt string
	)
	if err := row.Scan(&id, &name, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		r.logger.Error("failed to scan profile", "error", err)
		return nil, err
	}
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	return &entity.Profile{
		ID:        pid,
		Name:      name,
		CreatedAt: parseTS(createdAt),
		UpdatedAt: parseTS(updatedAt),
	}, nil
}
