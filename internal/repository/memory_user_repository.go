package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/auth-service/internal/domain"
)

// memoryUserRepository keeps users in process memory. Uniqueness is enforced
// under a single lock, mirroring the unique indexes of the Postgres schema.
type memoryUserRepository struct {
	mu         sync.RWMutex
	byID       map[string]*domain.User
	byEmail    map[string]string
	byUsername map[string]string
}

// NewMemoryUserRepository returns a UserRepository that does not outlive the process.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		byID:       make(map[string]*domain.User),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
	}
}

func (r *memoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if user.Email != "" {
		if _, exists := r.byEmail[user.Email]; exists {
			return ErrDuplicateIdentifier
		}
	}
	if user.Username != "" {
		if _, exists := r.byUsername[user.Username]; exists {
			return ErrDuplicateIdentifier
		}
	}

	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()

	stored := *user
	r.byID[stored.ID] = &stored
	if stored.Email != "" {
		r.byEmail[stored.Email] = stored.ID
	}
	if stored.Username != "" {
		r.byUsername[stored.Username] = stored.ID
	}
	return nil
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyOf(id)
}

func (r *memoryUserRepository) FindByIdentifier(ctx context.Context, kind domain.IdentifierKind, identifier string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		id string
		ok bool
	)
	switch kind {
	case domain.IdentifierUsername:
		id, ok = r.byUsername[identifier]
	default:
		id, ok = r.byEmail[identifier]
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.copyOf(id)
}

// Count returns how many users are stored.
func (r *memoryUserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *memoryUserRepository) copyOf(id string) (*domain.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *user
	return &out, nil
}
