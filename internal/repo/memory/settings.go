package memory

import (
	"context"
	"sync"

	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/domain"
	"github.com/Mohammed-Azab/HagzYomi-sub000/internal/repo"
)

type SettingsRepo struct {
	mu sync.Mutex
	s  *domain.Settings
}

func NewSettingsRepo() *SettingsRepo { return &SettingsRepo{} }

var _ repo.SettingsRepository = (*SettingsRepo)(nil)

func (r *SettingsRepo) Load(context.Context) (*domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.s == nil {
		return nil, nil
	}
	s := r.s.Clone()
	return &s, nil
}

func (r *SettingsRepo) Save(_ context.Context, s domain.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := s.Clone()
	r.s = &c
	return nil
}
