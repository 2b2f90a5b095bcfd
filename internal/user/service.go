package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used for stored passwords.
const DefaultBcryptCost = 12

type Service struct {
	repo   Repository
	tokens *TokenIssuer
	cost   int
	newID  func() string
}

func NewService(repo Repository, tokens *TokenIssuer, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = DefaultBcryptCost
	}
	return &Service{
		repo:   repo,
		tokens: tokens,
		cost:   bcryptCost,
		newID:  uuid.NewString,
	}
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	if !validID(id) {
		return User{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// Register creates a new account. user.Password is the plaintext password.
func (s *Service) Register(ctx context.Context, user User) (User, error) {
	if user.Email == "" || user.Username == "" || user.Phone == "" || user.Password == "" || user.Service == "" {
		return User{}, ErrMissingFields
	}

	if err := s.checkUnique(ctx, Filter{Email: user.Email, Username: user.Username, Phone: user.Phone}); err != nil {
		return User{}, err
	}

	if !IsServiceType(user.Service) {
		return User{}, ErrInvalidService
	}

	if user.AvatarImage == "" {
		avatar, ok := DefaultAvatar(user.Gender)
		if !ok {
			return User{}, ErrInvalidGender
		}
		user.AvatarImage = avatar
	}

	if user.BirthDate != "" && !validBirthDate(user.BirthDate) {
		return User{}, ErrInvalidBirthDate
	}

	hashed, err := s.hash(user.Password)
	if err != nil {
		return User{}, err
	}
	user.Password = hashed
	user.ID = s.newID()

	return s.repo.Create(ctx, user)
}

// Authenticate never says whether the email or the password was wrong.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}

// Login authenticates and returns a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// UpdateProfile applies a self-service patch. Admin flags in patch are ignored.
func (s *Service) UpdateProfile(ctx context.Context, id string, patch Patch) (User, error) {
	if !validID(id) {
		return User{}, ErrNotFound
	}
	patch.IsAdmin, patch.IsBlocked = nil, nil

	for _, v := range []*string{patch.Email, patch.Username, patch.Phone, patch.Password} {
		if v != nil && *v == "" {
			return User{}, ErrEmptyField
		}
	}
	if patch.BirthDate != nil && *patch.BirthDate != "" && !validBirthDate(*patch.BirthDate) {
		return User{}, ErrInvalidBirthDate
	}
	if patch.Gender != nil && *patch.Gender != "" {
		gender, ok := ParseGender(*patch.Gender)
		if !ok {
			return User{}, ErrInvalidGender
		}
		patch.Gender = &gender
	}

	if patch.Email != nil || patch.Username != nil || patch.Phone != nil {
		filter := Filter{ExcludeID: id}
		setString(&filter.Email, patch.Email)
		setString(&filter.Username, patch.Username)
		setString(&filter.Phone, patch.Phone)
		if err := s.checkUnique(ctx, filter); err != nil {
			return User{}, err
		}
	}

	if _, err := s.GetByID(ctx, id); err != nil {
		return User{}, err
	}

	if patch.Password != nil {
		hashed, err := s.hash(*patch.Password)
		if err != nil {
			return User{}, err
		}
		patch.Password = &hashed
	}

	return s.repo.Update(ctx, id, patch)
}

// UpdateAdmin changes only the is_admin and is_blocked flags.
func (s *Service) UpdateAdmin(ctx context.Context, id string, isAdmin, isBlocked *bool) (User, error) {
	if !validID(id) {
		return User{}, ErrNotFound
	}
	return s.repo.Update(ctx, id, Patch{IsAdmin: isAdmin, IsBlocked: isBlocked})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// checkUnique reports the first colliding field, in email, username, phone order.
func (s *Service) checkUnique(ctx context.Context, filter Filter) error {
	existing, err := s.repo.FindOne(ctx, filter)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	switch {
	case filter.Email != "" && existing.Email == filter.Email:
		return &ConflictError{Field: "email"}
	case filter.Username != "" && existing.Username == filter.Username:
		return &ConflictError{Field: "username"}
	case filter.Phone != "" && existing.Phone == filter.Phone:
		return &ConflictError{Field: "phone"}
	}
	return nil
}

func (s *Service) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func validID(id string) bool {
	return uuid.Validate(id) == nil
}
