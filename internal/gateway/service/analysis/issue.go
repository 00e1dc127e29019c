package analysis

import (
	"context"
	"fmt"
	"log"
	"strings"

	"coachai/internal/gateway/entity"
	"coachai/internal/gateway/repository/record"
	"coachai/internal/gateway/service"
	"coachai/internal/util/jsonutil"
	"coachai/internal/workflow"
)

type IssueRequest struct {
	Username    string   `json:"username"`
	BodyParts   []string `json:"bodyParts"`
	Sport       string   `json:"sport"`
	Posture     []string `json:"posture"`
	Description string   `json:"description"`
}

type IssueService struct {
	records record.Store
	caller  workflow.Caller
	flow    workflow.Flow
}

func NewIssueService(records record.Store, caller workflow.Caller, flow workflow.Flow) *IssueService {
	if strings.TrimSpace(flow.Name) == "" {
		flow.Name = "issue"
	}
	return &IssueService{records: records, caller: caller, flow: flow}
}

// Analyze runs the issue workflow and stores the diagnosis. A request
// without a username is recorded under entity.AnonymousUsername.
func (s *IssueService) Analyze(ctx context.Context, req IssueRequest) (*IssueView, error) {
	username := entity.NormalizeUsername(req.Username).OrAnonymous()
	if len(username.String()) > entity.MaxUsernameLen {
		return nil, service.Invalid("username", "must be at most %d characters", entity.MaxUsernameLen)
	}
	params := workflow.IssueParams{
		BodyParts:   nonNil(req.BodyParts),
		Sport:       strings.TrimSpace(req.Sport),
		Posture:     nonNil(req.Posture),
		Description: strings.TrimSpace(req.Description),
	}

	env, err := s.caller.Call(ctx, s.flow, params)
	if err != nil {
		return nil, err
	}
	diag, err := workflow.DecodeIssue(env)
	if err != nil {
		return nil, err
	}

	rec, err := issueRecord(username.String(), params.Sport, diag)
	if err != nil {
		return nil, err
	}
	saved, err := s.records.CreateIssue(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("save issue record: %w", err)
	}
	log.Printf("analysis: issue done id=%d user=%s risk=%s confidence=%d refs=%d videos=%d",
		saved.ID, saved.Username, saved.RiskLevel, saved.Confidence, len(diag.PoseReference), len(diag.RehabilitationVideos))
	return NewIssueView(saved), nil
}

// issueRecord flattens a diagnosis into the stored shape. The diagnosed sport
// wins over the requested one.
func issueRecord(username, requestedSport string, diag *workflow.DiagnosisData) (entity.IssueAnalysisRecord, error) {
	sport := strings.TrimSpace(diag.Sport)
	if sport == "" {
		sport = requestedSport
	}
	texts := make([]string, 0, 5)
	for _, v := range []any{
		nonNil(diag.Posture),
		nonNil(diag.Symptoms),
		diag.Treatment,
		nonNil(diag.PoseReference),
		nonNil(diag.RehabilitationVideos),
	} {
		t, err := jsonutil.MarshalText(v)
		if err != nil {
			return entity.IssueAnalysisRecord{}, err
		}
		texts = append(texts, t)
	}
	return entity.IssueAnalysisRecord{
		Username:             username,
		Sport:                sport,
		Posture:              texts[0],
		RiskLevel:            diag.RiskLevel,
		PrimaryDiagnosis:     diag.PrimaryDiagnosis,
		Confidence:           diag.Confidence,
		IsNormal:             diag.IsNormal,
		Symptoms:             texts[1],
		Treatment:            texts[2],
		PoseReference:        texts[3],
		RehabilitationVideos: texts[4],
	}, nil
}

func (s *IssueService) Latest(ctx context.Context, username, sport string) (*IssueView, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(sport) == "" {
		return nil, service.Invalid("username/sport", "are required")
	}
	rec, err := s.records.LatestIssue(ctx, username, sport)
	if err != nil {
		return nil, err
	}
	return NewIssueView(rec), nil
}

func (s *IssueService) ByUsername(ctx context.Context, username string) ([]*IssueView, error) {
	if strings.TrimSpace(username) == "" {
		return nil, service.Invalid("username", "is required")
	}
	recs, err := s.records.IssuesByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return NewIssueViews(recs), nil
}

func (s *IssueService) Abnormal(ctx context.Context) ([]*IssueView, error) {
	recs, err := s.records.AbnormalIssues(ctx)
	if err != nil {
		return nil, err
	}
	return NewIssueViews(recs), nil
}

func (s *IssueService) ByRiskLevel(ctx context.Context, riskLevel string) ([]*IssueView, error) {
	if strings.TrimSpace(riskLevel) == "" {
		return nil, service.Invalid("riskLevel", "is required")
	}
	recs, err := s.records.IssuesByRiskLevel(ctx, riskLevel)
	if err != nil {
		return nil, err
	}
	return NewIssueViews(recs), nil
}
