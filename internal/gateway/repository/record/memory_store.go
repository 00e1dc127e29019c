package record

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"coachai/internal/gateway/entity"
)

type MemoryStore struct {
	mu     sync.RWMutex
	poses  []entity.PoseAnalysisRecord
	issues []entity.IssueAnalysisRecord
	nextID int64
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) CreatePose(_ context.Context, rec entity.PoseAnalysisRecord) (*entity.PoseAnalysisRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if err := validatePose(rec); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec.ID = s.nextID
	rec.CreatedAt = nowMillis(s.now)
	rec.UpdatedAt = rec.CreatedAt
	s.poses = append(s.poses, rec)
	out := rec
	return &out, nil
}

func (s *MemoryStore) LatestPose(_ context.Context, username, posture string) (*entity.PoseAnalysisRecord, error) {
	username = strings.TrimSpace(username)
	posture = strings.TrimSpace(posture)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *entity.PoseAnalysisRecord
	for i := range s.poses {
		r := &s.poses[i]
		if r.Username != username || r.Posture != posture {
			continue
		}
		if best == nil || newer(r.CreatedAt, r.ID, best.CreatedAt, best.ID) {
			best = r
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	out := *best
	return &out, nil
}

func (s *MemoryStore) PosesByUsername(_ context.Context, username string) ([]entity.PoseAnalysisRecord, error) {
	username = strings.TrimSpace(username)
	s.mu.RLock()
	out := make([]entity.PoseAnalysisRecord, 0, 8)
	for _, r := range s.poses {
		if r.Username == username {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	return out, nil
}

func (s *MemoryStore) CreateIssue(_ context.Context, rec entity.IssueAnalysisRecord) (*entity.IssueAnalysisRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if err := validateIssue(rec); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec.ID = s.nextID
	rec.CreatedAt = nowMillis(s.now)
	rec.UpdatedAt = rec.CreatedAt
	s.issues = append(s.issues, rec)
	out := rec
	return &out, nil
}

func (s *MemoryStore) LatestIssue(_ context.Context, username, sport string) (*entity.IssueAnalysisRecord, error) {
	username = strings.TrimSpace(username)
	sport = strings.TrimSpace(sport)
	list := s.filterIssues(func(r entity.IssueAnalysisRecord) bool {
		return r.Username == username && r.Sport == sport
	})
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (s *MemoryStore) IssuesByUsername(_ context.Context, username string) ([]entity.IssueAnalysisRecord, error) {
	username = strings.TrimSpace(username)
	return s.filterIssues(func(r entity.IssueAnalysisRecord) bool { return r.Username == username }), nil
}

func (s *MemoryStore) AbnormalIssues(_ context.Context) ([]entity.IssueAnalysisRecord, error) {
	return s.filterIssues(func(r entity.IssueAnalysisRecord) bool { return !r.IsNormal }), nil
}

func (s *MemoryStore) IssuesByRiskLevel(_ context.Context, riskLevel string) ([]entity.IssueAnalysisRecord, error) {
	riskLevel = strings.TrimSpace(riskLevel)
	return s.filterIssues(func(r entity.IssueAnalysisRecord) bool { return r.RiskLevel == riskLevel }), nil
}

func (s *MemoryStore) Close() error { return nil }

// filterIssues returns matching issues, newest first.
func (s *MemoryStore) filterIssues(keep func(entity.IssueAnalysisRecord) bool) []entity.IssueAnalysisRecord {
	s.mu.RLock()
	out := make([]entity.IssueAnalysisRecord, 0, 8)
	for _, r := range s.issues {
		if keep(r) {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	return out
}

func newer(aCreated, aID, bCreated, bID int64) bool {
	if aCreated != bCreated {
		return aCreated > bCreated
	}
	return aID > bID
}

func validatePose(rec entity.PoseAnalysisRecord) error {
	switch {
	case strings.TrimSpace(rec.Username) == "":
		return fmt.Errorf("%w: username is required", ErrInvalidRecord)
	case len(rec.Username) > entity.MaxUsernameLen:
		return fmt.Errorf("%w: username exceeds %d characters", ErrInvalidRecord, entity.MaxUsernameLen)
	case strings.TrimSpace(rec.Posture) == "":
		return fmt.Errorf("%w: posture is required", ErrInvalidRecord)
	case strings.TrimSpace(rec.UserPoseImage) == "":
		return fmt.Errorf("%w: userPoseImage is required", ErrInvalidRecord)
	case strings.TrimSpace(rec.ReferencePoseImage) == "":
		return fmt.Errorf("%w: referencePoseImage is required", ErrInvalidRecord)
	}
	return nil
}

func validateIssue(rec entity.IssueAnalysisRecord) error {
	switch {
	case strings.TrimSpace(rec.Username) == "":
		return fmt.Errorf("%w: username is required", ErrInvalidRecord)
	case len(rec.Username) > entity.MaxUsernameLen:
		return fmt.Errorf("%w: username exceeds %d characters", ErrInvalidRecord, entity.MaxUsernameLen)
	case strings.TrimSpace(rec.Sport) == "":
		return fmt.Errorf("%w: sport is required", ErrInvalidRecord)
	case rec.Confidence < 0 || rec.Confidence > 100:
		return fmt.Errorf("%w: confidence %d out of range [0,100]", ErrInvalidRecord, rec.Confidence)
	}
	return nil
}
