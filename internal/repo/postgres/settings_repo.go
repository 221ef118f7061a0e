package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/domain"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/repo"
)

// SettingsRepoImpl keeps the settings document in a single jsonb row.
type SettingsRepoImpl struct{ pool *pgxpool.Pool }

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepoImpl { return &SettingsRepoImpl{pool: pool} }

var _ repo.SettingsRepository = (*SettingsRepoImpl)(nil)

func (r *SettingsRepoImpl) Load(ctx context.Context) (*domain.Settings, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM site_settings WHERE id=1`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var s domain.Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SettingsRepoImpl) Save(ctx context.Context, s domain.Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	const q = `INSERT INTO site_settings (id, data, updated_at) VALUES (1, $1, now())
	ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err = r.pool.Exec(ctx, q, raw)
	return err
}
