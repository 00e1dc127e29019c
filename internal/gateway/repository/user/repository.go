package user

import (
	"context"
	"errors"
	"time"

	"coachai/internal/gateway/entity"
)

// Store persists coaching profiles and login accounts. Single lookups return
// ErrNotFound; list lookups return an empty slice, ordered by id.
type Store interface {
	CreateProfile(ctx context.Context, u entity.CoachUser) (*entity.CoachUser, error)
	Profile(ctx context.Context, id int64) (*entity.CoachUser, error)
	ProfileByUsername(ctx context.Context, username string) (*entity.CoachUser, error)
	ListProfiles(ctx context.Context, f ProfileFilter) ([]entity.CoachUser, error)
	UpdateProfile(ctx context.Context, u entity.CoachUser) (*entity.CoachUser, error)
	DeleteProfile(ctx context.Context, id int64) error

	CreateAccount(ctx context.Context, a entity.Account) (*entity.Account, error)
	Account(ctx context.Context, id int64) (*entity.Account, error)
	AccountByUsername(ctx context.Context, username string) (*entity.Account, error)
	ListAccounts(ctx context.Context) ([]entity.Account, error)
	UpdateAccount(ctx context.Context, a entity.Account) (*entity.Account, error)
	DeleteAccount(ctx context.Context, id int64) error

	Close() error
}

// ProfileFilter narrows ListProfiles; zero fields match everything. The age
// bounds are inclusive and exclude profiles without an age.
type ProfileFilter struct {
	MinAge           *int
	MaxAge           *int
	Sport            entity.Sport
	Gender           entity.Gender
	UsernameContains string
}

func (f ProfileFilter) matches(u entity.CoachUser) bool {
	if f.MinAge != nil || f.MaxAge != nil {
		if u.Age == nil {
			return false
		}
		if f.MinAge != nil && *u.Age < *f.MinAge {
			return false
		}
		if f.MaxAge != nil && *u.Age > *f.MaxAge {
			return false
		}
	}
	if f.Sport != "" && u.PreferredSport != f.Sport {
		return false
	}
	if f.Gender != "" && u.Gender != f.Gender {
		return false
	}
	if f.UsernameContains != "" && !containsFold(u.Username, f.UsernameContains) {
		return false
	}
	return true
}

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already exists")
)

func nowMillis(now func() time.Time) int64 {
	if now == nil {
		return time.Now().UnixMilli()
	}
	return now().UnixMilli()
}
