package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"coachai/internal/gateway/entity"
	"coachai/internal/gateway/repository/sqldb"
)

// SQLStore keeps profiles in coach_ai_users and accounts in users. It
// borrows db; Close leaves the handle open for its owner.
type SQLStore struct {
	db         *sqldb.DB
	now        func() time.Time
	schemaOnce sync.Once
	schemaErr  error
}

func NewSQLStore(db *sqldb.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil || s.db.DB == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS coach_ai_users (
    id %[1]s,
    username VARCHAR(50) NOT NULL UNIQUE,
    password_hash VARCHAR(60),
    preferred_sport TEXT NOT NULL DEFAULT '',
    age INTEGER,
    height INTEGER,
    weight DOUBLE PRECISION,
    gender TEXT NOT NULL DEFAULT 'NOT_DISCLOSED',
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
    id %[1]s,
    username VARCHAR(50) NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    password_hash VARCHAR(60) NOT NULL,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);
`, s.db.IDColumn())
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			s.schemaErr = fmt.Errorf("init user schema: %w", err)
		}
	})
	return s.schemaErr
}

const profileColumns = `id, username, COALESCE(password_hash, ''), preferred_sport, age, height, weight, gender,
    created_at, updated_at`

func (s *SQLStore) CreateProfile(ctx context.Context, u entity.CoachUser) (*entity.CoachUser, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	if taken, err := s.exists(ctx, `SELECT 1 FROM coach_ai_users WHERE username = ?`, u.Username); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrUsernameTaken
	}
	u.CreatedAt = nowMillis(s.now)
	u.UpdatedAt = u.CreatedAt
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`
INSERT INTO coach_ai_users (username, password_hash, preferred_sport, age, height, weight, gender, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`),
		u.Username, nullString(u.PasswordHash), string(u.PreferredSport), nullInt(u.Age), nullInt(u.Height),
		nullFloat(u.Weight), string(u.Gender), u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		return nil, fmt.Errorf("insert coach user: %w", err)
	}
	return &u, nil
}

func (s *SQLStore) Profile(ctx context.Context, id int64) (*entity.CoachUser, error) {
	return s.oneProfile(ctx, `WHERE id = ?`, id)
}

func (s *SQLStore) ProfileByUsername(ctx context.Context, username string) (*entity.CoachUser, error) {
	return s.oneProfile(ctx, `WHERE username = ?`, strings.TrimSpace(username))
}

func (s *SQLStore) ListProfiles(ctx context.Context, f ProfileFilter) ([]entity.CoachUser, error) {
	var conds []string
	var args []any
	if f.MinAge != nil {
		conds = append(conds, "age >= ?")
		args = append(args, *f.MinAge)
	}
	if f.MaxAge != nil {
		conds = append(conds, "age <= ?")
		args = append(args, *f.MaxAge)
	}
	if f.Sport != "" {
		conds = append(conds, "preferred_sport = ?")
		args = append(args, string(f.Sport))
	}
	if f.Gender != "" {
		conds = append(conds, "gender = ?")
		args = append(args, string(f.Gender))
	}
	if sub := strings.TrimSpace(f.UsernameContains); sub != "" {
		conds = append(conds, `LOWER(username) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(sub))+"%")
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	return s.queryProfiles(ctx, where+" ORDER BY id", args...)
}

func (s *SQLStore) UpdateProfile(ctx context.Context, u entity.CoachUser) (*entity.CoachUser, error) {
	cur, err := s.Profile(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if taken, err := s.exists(ctx, `SELECT 1 FROM coach_ai_users WHERE username = ? AND id <> ?`, u.Username, u.ID); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrUsernameTaken
	}
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = nowMillis(s.now)
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
UPDATE coach_ai_users SET username = ?, password_hash = ?, preferred_sport = ?, age = ?, height = ?, weight = ?,
    gender = ?, updated_at = ?
WHERE id = ?`),
		u.Username, nullString(u.PasswordHash), string(u.PreferredSport), nullInt(u.Age), nullInt(u.Height),
		nullFloat(u.Weight), string(u.Gender), u.UpdatedAt, u.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update coach user: %w", err)
	}
	return &u, nil
}

func (s *SQLStore) DeleteProfile(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "coach_ai_users", id)
}

func (s *SQLStore) CreateAccount(ctx context.Context, a entity.Account) (*entity.Account, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	if err := s.accountConflict(ctx, a, 0); err != nil {
		return nil, err
	}
	a.CreatedAt = nowMillis(s.now)
	a.UpdatedAt = a.CreatedAt
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`
INSERT INTO users (username, email, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`),
		a.Username, a.Email, a.PasswordHash, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return &a, nil
}

func (s *SQLStore) Account(ctx context.Context, id int64) (*entity.Account, error) {
	return s.oneAccount(ctx, `WHERE id = ?`, id)
}

func (s *SQLStore) AccountByUsername(ctx context.Context, username string) (*entity.Account, error) {
	return s.oneAccount(ctx, `WHERE username = ?`, strings.TrimSpace(username))
}

func (s *SQLStore) ListAccounts(ctx context.Context) ([]entity.Account, error) {
	return s.queryAccounts(ctx, `ORDER BY id`)
}

func (s *SQLStore) UpdateAccount(ctx context.Context, a entity.Account) (*entity.Account, error) {
	cur, err := s.Account(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if err := s.accountConflict(ctx, a, a.ID); err != nil {
		return nil, err
	}
	a.CreatedAt = cur.CreatedAt
	a.UpdatedAt = nowMillis(s.now)
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
UPDATE users SET username = ?, email = ?, password_hash = ?, updated_at = ? WHERE id = ?`),
		a.Username, a.Email, a.PasswordHash, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	return &a, nil
}

func (s *SQLStore) DeleteAccount(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "users", id)
}

func (s *SQLStore) Close() error { return nil }

func (s *SQLStore) accountConflict(ctx context.Context, a entity.Account, self int64) error {
	if taken, err := s.exists(ctx, `SELECT 1 FROM users WHERE username = ? AND id <> ?`, a.Username, self); err != nil {
		return err
	} else if taken {
		return ErrUsernameTaken
	}
	if taken, err := s.exists(ctx, `SELECT 1 FROM users WHERE LOWER(email) = LOWER(?) AND id <> ?`, a.Email, self); err != nil {
		return err
	} else if taken {
		return ErrEmailTaken
	}
	return nil
}

func (s *SQLStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return false, err
	}
	var one int
	err := s.db.QueryRowContext(ctx, s.db.Rebind(query+` LIMIT 1`), args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user uniqueness: %w", err)
	}
	return true, nil
}

func (s *SQLStore) deleteByID(ctx context.Context, table string, id int64) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM `+table+` WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) oneProfile(ctx context.Context, where string, args ...any) (*entity.CoachUser, error) {
	list, err := s.queryProfiles(ctx, where+` LIMIT 1`, args...)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (s *SQLStore) queryProfiles(ctx context.Context, tail string, args ...any) ([]entity.CoachUser, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`SELECT `+profileColumns+` FROM coach_ai_users `+tail), args...)
	if err != nil {
		return nil, fmt.Errorf("query coach users: %w", err)
	}
	defer rows.Close()

	out := make([]entity.CoachUser, 0, 8)
	for rows.Next() {
		var (
			u             entity.CoachUser
			sport, gender string
			age, height   sql.NullInt64
			weight        sql.NullFloat64
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &sport, &age, &height, &weight, &gender,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan coach user: %w", err)
		}
		u.PreferredSport = entity.Sport(sport)
		u.Gender = entity.Gender(gender)
		u.Age = intPtr(age)
		u.Height = intPtr(height)
		if weight.Valid {
			w := weight.Float64
			u.Weight = &w
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLStore) oneAccount(ctx context.Context, where string, args ...any) (*entity.Account, error) {
	list, err := s.queryAccounts(ctx, where+` LIMIT 1`, args...)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (s *SQLStore) queryAccounts(ctx context.Context, tail string, args ...any) ([]entity.Account, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`SELECT id, username, email, password_hash, created_at, updated_at FROM users `+tail), args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	out := make([]entity.Account, 0, 8)
	for rows.Next() {
		var a entity.Account
		if err := rows.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
