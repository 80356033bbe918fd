package repository

import (
	"context"

	"campusrate/internal/app/reviews/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type targetRepository struct {
	pool *pgxpool.Pool
}

// NewTargetRepository создает read-only репозиторий каталога целей.
// CRUD каталога живёт в другом сервисе; здесь только проверка существования.
func NewTargetRepository(pool *pgxpool.Pool) TargetRepository {
	return &targetRepository{pool: pool}
}

// Exists проверяет, существует ли цель отзыва в каталоге
func (r *targetRepository) Exists(ctx context.Context, id uuid.UUID, kind entity.TargetKind) (bool, error) {
	table := "professors"
	if kind == entity.TargetCollege {
		table = "colleges"
	}

	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM "+table+" WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}
