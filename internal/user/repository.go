package user

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrConflict           = errors.New("user already exists")
	ErrInvalidService     = errors.New("service that user used to register is not correct with the system")
	ErrInvalidGender      = errors.New("gender must be one of male, female or other")
	ErrInvalidBirthDate   = errors.New("birth_date must use the YYYY-MM-DD format")
	ErrMissingFields      = errors.New("missing required fields")
	ErrEmptyField         = errors.New("email, username, phone and password cannot be cleared")
)

// ConflictError reports which unique field collided with an existing user.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return "this " + e.Field + " is already in use by other user"
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

type Repository interface {
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	FindOne(ctx context.Context, filter Filter) (User, error)
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, id string, patch Patch) (User, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// InMemoryRepository keeps users in a slice guarded by a mutex. It enforces
// the same uniqueness rules as the users table.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users []User
	now   func() time.Time
}

var _ Repository = (*InMemoryRepository)(nil)

func NewInMemoryRepository(seed []User) *InMemoryRepository {
	repo := &InMemoryRepository{
		users: make([]User, 0, len(seed)),
		now:   time.Now,
	}
	repo.users = append(repo.users, seed...)
	return repo
}

func (r *InMemoryRepository) List(ctx context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]User, len(r.users))
	copy(users, r.users)
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}

	return User{}, ErrNotFound
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}

	return User{}, ErrNotFound
}

func (r *InMemoryRepository) FindOne(ctx context.Context, filter Filter) (User, error) {
	if filter.empty() {
		return User{}, ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if filter.matches(user) {
			return user, nil
		}
	}

	return User{}, ErrNotFound
}

func (r *InMemoryRepository) Create(ctx context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUnique(user, ""); err != nil {
		return User{}, err
	}

	now := r.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users = append(r.users, user)
	return user, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id string, patch Patch) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, user := range r.users {
		if user.ID != id {
			continue
		}
		updated := patch.Apply(user)
		if err := r.checkUnique(updated, id); err != nil {
			return User{}, err
		}
		updated.UpdatedAt = r.now().UTC()
		r.users[i] = updated
		return updated, nil
	}

	return User{}, ErrNotFound
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, user := range r.users {
		if user.ID == id {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return nil
		}
	}

	return ErrNotFound
}

func (r *InMemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// checkUnique must be called with the write lock held.
func (r *InMemoryRepository) checkUnique(candidate User, skipID string) error {
	for _, user := range r.users {
		if user.ID == skipID {
			continue
		}
		switch {
		case user.Email == candidate.Email:
			return &ConflictError{Field: "email"}
		case user.Username == candidate.Username:
			return &ConflictError{Field: "username"}
		case user.Phone == candidate.Phone:
			return &ConflictError{Field: "phone"}
		}
	}
	return nil
}
