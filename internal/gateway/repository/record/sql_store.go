package record

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

// SQLStore keeps records in pose_analysis_record_flat and
// issue_analysis_record. Queries are written with ? placeholders and rebound
// per dialect. Close closes the shared handle.
type SQLStore struct {
	db         *sqldb.DB
	now        func() time.Time
	schemaOnce sync.Once
	schemaErr  error
}

func NewSQLStore(db *sqldb.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// OpenPostgres opens dsn with the pgx driver and checks the connection.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sqldb.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return NewSQLStore(db), nil
}

// OpenSQLite opens or creates the database file at path and its schema.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sqldb.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	s := NewSQLStore(db)
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// DB returns the handle so other stores can share the connection pool.
func (s *SQLStore) DB() *sqldb.DB { return s.db }

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil || s.db.DB == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS pose_analysis_record_flat (
    id %[1]s,
    username TEXT NOT NULL,
    sport TEXT NOT NULL DEFAULT '',
    posture TEXT NOT NULL,
    user_pose_image TEXT NOT NULL,
    reference_pose_image TEXT NOT NULL,
    analysis_results TEXT NOT NULL,
    improvement_results TEXT,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pose_user_posture ON pose_analysis_record_flat(username, posture, created_at);
CREATE TABLE IF NOT EXISTS issue_analysis_record (
    id %[1]s,
    username TEXT NOT NULL,
    sport TEXT NOT NULL,
    posture TEXT NOT NULL,
    risk_level TEXT NOT NULL,
    primary_diagnosis TEXT NOT NULL,
    confidence INTEGER NOT NULL,
    is_normal BOOLEAN NOT NULL,
    symptoms TEXT NOT NULL,
    treatment TEXT NOT NULL,
    pose_reference TEXT,
    rehabilitation_videos TEXT,
    created_at BIGINT,
    updated_at BIGINT
);
CREATE INDEX IF NOT EXISTS idx_issue_user_sport ON issue_analysis_record(username, sport, created_at);
CREATE INDEX IF NOT EXISTS idx_issue_risk ON issue_analysis_record(risk_level);
`, s.db.IDColumn())
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			s.schemaErr = fmt.Errorf("init record schema: %w", err)
		}
	})
	return s.schemaErr
}

const poseColumns = `id, username, sport, posture, user_pose_image, reference_pose_image,
    analysis_results, COALESCE(improvement_results, ''), created_at, updated_at`

const issueColumns = `id, username, sport, posture, risk_level, primary_diagnosis, confidence, is_normal,
    symptoms, treatment, COALESCE(pose_reference, ''), COALESCE(rehabilitation_videos, ''),
    COALESCE(created_at, 0), COALESCE(updated_at, 0)`

func (s *SQLStore) CreatePose(ctx context.Context, rec entity.PoseAnalysisRecord) (*entity.PoseAnalysisRecord, error) {
	if err := validatePose(rec); err != nil {
		return nil, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rec.CreatedAt = nowMillis(s.now)
	rec.UpdatedAt = rec.CreatedAt
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`
INSERT INTO pose_analysis_record_flat (username, sport, posture, user_pose_image, reference_pose_image,
    analysis_results, improvement_results, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`),
		rec.Username, rec.Sport, rec.Posture, rec.UserPoseImage, rec.ReferencePoseImage,
		rec.AnalysisResults, rec.ImprovementResults, rec.CreatedAt, rec.UpdatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return nil, fmt.Errorf("insert pose record: %w", err)
	}
	return &rec, nil
}

func (s *SQLStore) LatestPose(ctx context.Context, username, posture string) (*entity.PoseAnalysisRecord, error) {
	list, err := s.queryPoses(ctx, `WHERE username = ? AND posture = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		strings.TrimSpace(username), strings.TrimSpace(posture))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (s *SQLStore) PosesByUsername(ctx context.Context, username string) ([]entity.PoseAnalysisRecord, error) {
	return s.queryPoses(ctx, `WHERE username = ? ORDER BY created_at DESC, id DESC`, strings.TrimSpace(username))
}

func (s *SQLStore) CreateIssue(ctx context.Context, rec entity.IssueAnalysisRecord) (*entity.IssueAnalysisRecord, error) {
	if err := validateIssue(rec); err != nil {
		return nil, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rec.CreatedAt = nowMillis(s.now)
	rec.UpdatedAt = rec.CreatedAt
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`
INSERT INTO issue_analysis_record (username, sport, posture, risk_level, primary_diagnosis, confidence, is_normal,
    symptoms, treatment, pose_reference, rehabilitation_videos, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`),
		rec.Username, rec.Sport, rec.Posture, rec.RiskLevel, rec.PrimaryDiagnosis, rec.Confidence, rec.IsNormal,
		rec.Symptoms, rec.Treatment, rec.PoseReference, rec.RehabilitationVideos, rec.CreatedAt, rec.UpdatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return nil, fmt.Errorf("insert issue record: %w", err)
	}
	return &rec, nil
}

func (s *SQLStore) LatestIssue(ctx context.Context, username, sport string) (*entity.IssueAnalysisRecord, error) {
	list, err := s.queryIssues(ctx, `WHERE username = ? AND sport = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		strings.TrimSpace(username), strings.TrimSpace(sport))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (s *SQLStore) IssuesByUsername(ctx context.Context, username string) ([]entity.IssueAnalysisRecord, error) {
	return s.queryIssues(ctx, `WHERE username = ? ORDER BY created_at DESC, id DESC`, strings.TrimSpace(username))
}

func (s *SQLStore) AbnormalIssues(ctx context.Context) ([]entity.IssueAnalysisRecord, error) {
	return s.queryIssues(ctx, `WHERE is_normal = ? ORDER BY created_at DESC, id DESC`, false)
}

func (s *SQLStore) IssuesByRiskLevel(ctx context.Context, riskLevel string) ([]entity.IssueAnalysisRecord, error) {
	return s.queryIssues(ctx, `WHERE risk_level = ? ORDER BY created_at DESC, id DESC`, strings.TrimSpace(riskLevel))
}

func (s *SQLStore) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) queryPoses(ctx context.Context, where string, args ...any) ([]entity.PoseAnalysisRecord, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`SELECT `+poseColumns+` FROM pose_analysis_record_flat `+where), args...)
	if err != nil {
		return nil, fmt.Errorf("query pose records: %w", err)
	}
	defer rows.Close()

	out := make([]entity.PoseAnalysisRecord, 0, 8)
	for rows.Next() {
		var r entity.PoseAnalysisRecord
		if err := rows.Scan(&r.ID, &r.Username, &r.Sport, &r.Posture, &r.UserPoseImage, &r.ReferencePoseImage,
			&r.AnalysisResults, &r.ImprovementResults, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pose record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) queryIssues(ctx context.Context, where string, args ...any) ([]entity.IssueAnalysisRecord, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`SELECT `+issueColumns+` FROM issue_analysis_record `+where), args...)
	if err != nil {
		return nil, fmt.Errorf("query issue records: %w", err)
	}
	defer rows.Close()

	out := make([]entity.IssueAnalysisRecord, 0, 8)
	for rows.Next() {
		var r entity.IssueAnalysisRecord
		if err := rows.Scan(&r.ID, &r.Username, &r.Sport, &r.Posture, &r.RiskLevel, &r.PrimaryDiagnosis,
			&r.Confidence, &r.IsNormal, &r.Symptoms, &r.Treatment, &r.PoseReference, &r.RehabilitationVideos,
			&r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan issue record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return out, nil
}
