package record

import (
	"context"
	"errors"
	"time"

	"coachai/internal/gateway/entity"
)

// Store persists analysis records. Lookups return ErrNotFound when nothing
// matches; list lookups return an empty slice instead.
type Store interface {
	CreatePose(ctx context.Context, rec entity.PoseAnalysisRecord) (*entity.PoseAnalysisRecord, error)
	LatestPose(ctx context.Context, username, posture string) (*entity.PoseAnalysisRecord, error)
	PosesByUsername(ctx context.Context, username string) ([]entity.PoseAnalysisRecord, error)

	CreateIssue(ctx context.Context, rec entity.IssueAnalysisRecord) (*entity.IssueAnalysisRecord, error)
	LatestIssue(ctx context.Context, username, sport string) (*entity.IssueAnalysisRecord, error)
	IssuesByUsername(ctx context.Context, username string) ([]entity.IssueAnalysisRecord, error)
	AbnormalIssues(ctx context.Context) ([]entity.IssueAnalysisRecord, error)
	IssuesByRiskLevel(ctx context.Context, riskLevel string) ([]entity.IssueAnalysisRecord, error)

	Close() error
}

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidRecord = errors.New("invalid record")
)

func nowMillis(now func() time.Time) int64 {
	if now == nil {
		return time.Now().UnixMilli()
	}
	return now().UnixMilli()
}
