// Package users manages coaching profiles and plain login accounts.
package users

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"coachai/internal/gateway/entity"
	"coachai/internal/gateway/repository/user"
	"coachai/internal/gateway/service"
)

const (
	minPasswordLen        = 6
	maxPasswordLen        = 72 // bcrypt input limit
	minAccountUsernameLen = 3
	maxAge                = 255
	maxHeight             = 65535
	maxWeight             = 999.99
)

// ProfileInput is the body of a profile registration or update. Password is
// optional on update; a blank one keeps the stored hash.
type ProfileInput struct {
	Username       string   `json:"username"`
	Password       string   `json:"password"`
	PreferredSport string   `json:"preferredSport"`
	Age            *int     `json:"age"`
	Height         *int     `json:"height"`
	Weight         *float64 `json:"weight"`
	Gender         string   `json:"gender"`
}

type AccountInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Service struct {
	store user.Store
	cost  int
}

func New(store user.Store) *Service {
	return &Service{store: store, cost: bcrypt.DefaultCost}
}

func (s *Service) Register(ctx context.Context, in ProfileInput) (*entity.CoachUser, error) {
	u, err := in.profile(true)
	if err != nil {
		return nil, err
	}
	if u.PasswordHash, err = s.hash(in.Password); err != nil {
		return nil, err
	}
	saved, err := s.store.CreateProfile(ctx, u)
	if err != nil {
		return nil, err
	}
	log.Printf("users: registered id=%d username=%s", saved.ID, saved.Username)
	return saved, nil
}

func (s *Service) Profile(ctx context.Context, id int64) (*entity.CoachUser, error) {
	return s.store.Profile(ctx, id)
}

func (s *Service) ProfileByUsername(ctx context.Context, username string) (*entity.CoachUser, error) {
	if strings.TrimSpace(username) == "" {
		return nil, service.Invalid("username", "is required")
	}
	return s.store.ProfileByUsername(ctx, username)
}

func (s *Service) Profiles(ctx context.Context) ([]entity.CoachUser, error) {
	return s.store.ListProfiles(ctx, user.ProfileFilter{})
}

func (s *Service) ProfilesByAge(ctx context.Context, minAge, maxAge int) ([]entity.CoachUser, error) {
	if minAge < 0 || maxAge < minAge {
		return nil, service.Invalid("age", "range %d-%d is invalid", minAge, maxAge)
	}
	return s.store.ListProfiles(ctx, user.ProfileFilter{MinAge: &minAge, MaxAge: &maxAge})
}

func (s *Service) ProfilesBySport(ctx context.Context, raw string) ([]entity.CoachUser, error) {
	sport, ok := entity.ParseSport(raw)
	if !ok {
		return nil, service.Invalid("sport", "unknown sport %q", raw)
	}
	return s.store.ListProfiles(ctx, user.ProfileFilter{Sport: sport})
}

func (s *Service) ProfilesByGender(ctx context.Context, raw string) ([]entity.CoachUser, error) {
	gender, ok := entity.ParseGender(raw)
	if !ok {
		return nil, service.Invalid("gender", "unknown gender %q", raw)
	}
	return s.store.ListProfiles(ctx, user.ProfileFilter{Gender: gender})
}

func (s *Service) SearchProfiles(ctx context.Context, fragment string) ([]entity.CoachUser, error) {
	if strings.TrimSpace(fragment) == "" {
		return nil, service.Invalid("username", "is required")
	}
	return s.store.ListProfiles(ctx, user.ProfileFilter{UsernameContains: fragment})
}

// UpdateProfile replaces every profile field with in.
func (s *Service) UpdateProfile(ctx context.Context, id int64, in ProfileInput) (*entity.CoachUser, error) {
	u, err := in.profile(false)
	if err != nil {
		return nil, err
	}
	cur, err := s.store.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	u.ID = id
	u.PasswordHash = cur.PasswordHash
	if in.Password != "" {
		if u.PasswordHash, err = s.hash(in.Password); err != nil {
			return nil, err
		}
	}
	return s.store.UpdateProfile(ctx, u)
}

func (s *Service) DeleteProfile(ctx context.Context, id int64) error {
	if err := s.store.DeleteProfile(ctx, id); err != nil {
		return err
	}
	log.Printf("users: deleted profile id=%d", id)
	return nil
}

func (s *Service) CreateAccount(ctx context.Context, in AccountInput) (*entity.Account, error) {
	a, err := in.account()
	if err != nil {
		return nil, err
	}
	if a.PasswordHash, err = s.hash(in.Password); err != nil {
		return nil, err
	}
	return s.store.CreateAccount(ctx, a)
}

func (s *Service) Account(ctx context.Context, id int64) (*entity.Account, error) {
	return s.store.Account(ctx, id)
}

func (s *Service) AccountByUsername(ctx context.Context, username string) (*entity.Account, error) {
	if strings.TrimSpace(username) == "" {
		return nil, service.Invalid("username", "is required")
	}
	return s.store.AccountByUsername(ctx, username)
}

func (s *Service) Accounts(ctx context.Context) ([]entity.Account, error) {
	return s.store.ListAccounts(ctx)
}

func (s *Service) UpdateAccount(ctx context.Context, id int64, in AccountInput) (*entity.Account, error) {
	a, err := in.account()
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Account(ctx, id); err != nil {
		return nil, err
	}
	if a.PasswordHash, err = s.hash(in.Password); err != nil {
		return nil, err
	}
	a.ID = id
	return s.store.UpdateAccount(ctx, a)
}

func (s *Service) DeleteAccount(ctx context.Context, id int64) error {
	return s.store.DeleteAccount(ctx, id)
}

func (s *Service) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func (in ProfileInput) profile(passwordRequired bool) (entity.CoachUser, error) {
	u := entity.CoachUser{
		Username: strings.TrimSpace(in.Username),
		Age:      in.Age,
		Height:   in.Height,
		Weight:   in.Weight,
		Gender:   entity.GenderNotDisclosed,
	}
	if err := checkUsername(u.Username, 1); err != nil {
		return u, err
	}
	if passwordRequired || in.Password != "" {
		if err := checkPassword(in.Password); err != nil {
			return u, err
		}
	}
	if raw := strings.TrimSpace(in.PreferredSport); raw != "" {
		sport, ok := entity.ParseSport(raw)
		if !ok {
			return u, service.Invalid("preferredSport", "unknown sport %q", raw)
		}
		u.PreferredSport = sport
	}
	if raw := strings.TrimSpace(in.Gender); raw != "" {
		gender, ok := entity.ParseGender(raw)
		if !ok {
			return u, service.Invalid("gender", "unknown gender %q", raw)
		}
		u.Gender = gender
	}
	switch {
	case in.Age != nil && (*in.Age < 0 || *in.Age > maxAge):
		return u, service.Invalid("age", "must be between 0 and %d", maxAge)
	case in.Height != nil && (*in.Height < 0 || *in.Height > maxHeight):
		return u, service.Invalid("height", "must be between 0 and %d", maxHeight)
	case in.Weight != nil && (*in.Weight < 0 || *in.Weight > maxWeight):
		return u, service.Invalid("weight", "must be between 0 and %.2f", maxWeight)
	}
	return u, nil
}

func (in AccountInput) account() (entity.Account, error) {
	a := entity.Account{
		Username: strings.TrimSpace(in.Username),
		Email:    strings.TrimSpace(in.Email),
	}
	if err := checkUsername(a.Username, minAccountUsernameLen); err != nil {
		return a, err
	}
	if addr, err := mail.ParseAddress(a.Email); err != nil || addr.Address != a.Email {
		return a, service.Invalid("email", "is not a valid address")
	}
	if err := checkPassword(in.Password); err != nil {
		return a, err
	}
	return a, nil
}

func checkUsername(name string, minLen int) error {
	n := len([]rune(name))
	switch {
	case n == 0:
		return service.Invalid("username", "is required")
	case n < minLen:
		return service.Invalid("username", "must be at least %d characters", minLen)
	case n > entity.MaxUsernameLen:
		return service.Invalid("username", "must be at most %d characters", entity.MaxUsernameLen)
	}
	return nil
}

func checkPassword(p string) error {
	switch {
	case len(p) < minPasswordLen:
		return service.Invalid("password", "must be at least %d characters", minPasswordLen)
	case len(p) > maxPasswordLen:
		return service.Invalid("password", "must be at most %d bytes", maxPasswordLen)
	}
	return nil
}
