package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tooltime-pro/session-guard/internal/repository"
)

var _ repository.PasswordResetRepository = (*FakePasswordResetRepo)(nil)

type FakePasswordResetRepo struct {
	lock   sync.Mutex
	tokens map[string]*repository.PasswordResetToken
}

func NewFakePasswordResetRepo() *FakePasswordResetRepo {
	return &FakePasswordResetRepo{tokens: make(map[string]*repository.PasswordResetToken)}
}

func (r *FakePasswordResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	token.ID = uuid.NewString()
	token.CreatedAt = time.Now()
	stored := *token
	r.tokens[token.Token] = &stored
	return nil
}

func (r *FakePasswordResetRepo) GetByToken(_ context.Context, token string) (*repository.PasswordResetToken, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	stored, ok := r.tokens[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *stored
	return &out, nil
}

func (r *FakePasswordResetRepo) MarkUsed(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, stored := range r.tokens {
		if stored.ID == id {
			if stored.UsedAt != nil {
				return pgx.ErrNoRows
			}
			now := time.Now()
			stored.UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}
