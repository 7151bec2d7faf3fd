package repofake

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tooltime-pro/session-guard/internal/domain"
	"github.com/tooltime-pro/session-guard/internal/repository"
)

var _ repository.UserRepository = (*FakeUserRepo)(nil)

// FakeUserRepo is an in-memory UserRepository for tests.
// SessionGetErr and SessionSetErr, when set, are returned by the session slot methods.
type FakeUserRepo struct {
	lock  sync.RWMutex
	users map[string]*domain.User

	SessionGetErr error
	SessionSetErr error
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{users: make(map[string]*domain.User)}
}

// Put stores a copy of user, assigning an id when empty.
func (r *FakeUserRepo) Put(user *domain.User) *domain.User {
	r.lock.Lock()
	defer r.lock.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	stored := *user
	r.users[user.ID] = &stored
	return user
}

func (r *FakeUserRepo) CreateWithCompany(_ context.Context, _ string, user *domain.User) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	user.ID = uuid.NewString()
	user.CompanyID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *FakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	existing, ok := r.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	updated := *user
	updated.ActiveSessionID = existing.ActiveSessionID
	updated.TokenVersion = existing.TokenVersion
	updated.UpdatedAt = time.Now()
	r.users[user.ID] = &updated
	return nil
}

func (r *FakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *user
	return &out, nil
}

func (r *FakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			out := *user
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *FakeUserRepo) GetActiveSessionID(_ context.Context, id string) (*string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.SessionGetErr != nil {
		return nil, r.SessionGetErr
	}
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if user.ActiveSessionID == nil {
		return nil, nil
	}
	sid := *user.ActiveSessionID
	return &sid, nil
}

func (r *FakeUserRepo) SetActiveSessionID(_ context.Context, id string, sessionID *string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.SessionSetErr != nil {
		return r.SessionSetErr
	}
	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if sessionID == nil {
		user.ActiveSessionID = nil
		return nil
	}
	sid := *sessionID
	user.ActiveSessionID = &sid
	return nil
}

func (r *FakeUserRepo) IncrementTokenVersion(_ context.Context, id string) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	user, ok := r.users[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	user.TokenVersion++
	return user.TokenVersion, nil
}
