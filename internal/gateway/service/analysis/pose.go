package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"coachai/internal/artifact"
	"coachai/internal/gateway/entity"
	"coachai/internal/gateway/repository/record"
	"coachai/internal/gateway/service"
	"coachai/internal/gateway/service/files"
	"coachai/internal/util/jsonutil"
	"coachai/internal/workflow"
)

// ImageSaver stores an inline image and returns where it landed.
type ImageSaver interface {
	SaveBase64(ctx context.Context, raw string) (*files.Stored, error)
}

type PoseRequest struct {
	ImageLink string `json:"imageLink"`
	Username  string `json:"username"`
	Sport     string `json:"sport"`
	Posture   string `json:"posture"`
}

func (r PoseRequest) validate() error {
	switch {
	case strings.TrimSpace(r.ImageLink) == "":
		return service.Invalid("imageLink", "is required")
	case strings.TrimSpace(r.Username) == "":
		return service.Invalid("username", "is required")
	case len(strings.TrimSpace(r.Username)) > entity.MaxUsernameLen:
		return service.Invalid("username", "must be at most %d characters", entity.MaxUsernameLen)
	case strings.TrimSpace(r.Sport) == "":
		return service.Invalid("sport", "is required")
	case strings.TrimSpace(r.Posture) == "":
		return service.Invalid("posture", "is required")
	}
	if _, err := parseSport(r.Sport); err != nil {
		return err
	}
	return nil
}

// parseSport maps a sport name in any case to its canonical form.
func parseSport(raw string) (entity.Sport, error) {
	sport, ok := entity.ParseSport(raw)
	if !ok {
		return "", service.Invalid("sport", "unknown sport %q", strings.TrimSpace(raw))
	}
	return sport, nil
}

// CreatePoseRequest stores a record as given; the result columns are JSON
// text.
type CreatePoseRequest struct {
	Username           string `json:"username"`
	Sport              string `json:"sport"`
	Posture            string `json:"posture"`
	UserPoseImage      string `json:"userPoseImage"`
	ReferencePoseImage string `json:"referencePoseImage"`
	AnalysisResults    string `json:"analysisResults"`
	ImprovementResults string `json:"improvementResults"`
}

type PoseService struct {
	records record.Store
	caller  workflow.Caller
	flow    workflow.Flow
	images  ImageSaver
}

func NewPoseService(records record.Store, caller workflow.Caller, flow workflow.Flow, images ImageSaver) *PoseService {
	if strings.TrimSpace(flow.Name) == "" {
		flow.Name = "pose"
	}
	return &PoseService{records: records, caller: caller, flow: flow, images: images}
}

// Analyze runs the pose workflow for req, stores the outcome and returns it
// with the overall score.
func (s *PoseService) Analyze(ctx context.Context, req PoseRequest) (*PoseView, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(req.Username)
	posture := strings.TrimSpace(req.Posture)
	imageLink := strings.TrimSpace(req.ImageLink)
	sport, _ := parseSport(req.Sport)

	var last *workflow.LastProblem
	if problems := s.LastProblems(ctx, username, posture); len(problems) > 0 {
		last = &workflow.LastProblem{Problem: problems}
	}
	params := workflow.PoseParams{
		Username:    username,
		Sport:       string(sport),
		Posture:     posture,
		Image:       imageLink,
		LastProblem: last,
	}

	env, err := s.caller.Call(ctx, s.flow, params)
	if err != nil {
		return nil, err
	}
	sd, final, err := workflow.DecodePose(env)
	if err != nil {
		return nil, err
	}

	userImage, err := s.resolveImage(ctx, sd.UserPoseImage, imageLink)
	if err != nil {
		return nil, fmt.Errorf("resolve userPoseImage: %w", err)
	}
	refImage, err := s.resolveImage(ctx, sd.ReferencePoseImage, imageLink)
	if err != nil {
		return nil, fmt.Errorf("resolve referencePoseImage: %w", err)
	}

	analysisText, err := jsonutil.MarshalText(nonNil(final.AnalysisResults))
	if err != nil {
		return nil, err
	}
	improvementText, err := jsonutil.MarshalText(nonNil(final.ImprovementResults))
	if err != nil {
		return nil, err
	}
	saved, err := s.records.CreatePose(ctx, entity.PoseAnalysisRecord{
		Username:           username,
		Sport:              params.Sport,
		Posture:            posture,
		UserPoseImage:      userImage,
		ReferencePoseImage: refImage,
		AnalysisResults:    analysisText,
		ImprovementResults: improvementText,
	})
	if err != nil {
		return nil, fmt.Errorf("save pose record: %w", err)
	}

	view := NewPoseView(saved)
	score := final.OverallScore
	view.OverallScore = &score
	log.Printf("analysis: pose done id=%d user=%s score=%d problems=%d", saved.ID, username, score, len(view.AnalysisResults))
	return view, nil
}

// LastProblems returns the problems of the newest record for the pair. Any
// failure yields an empty list.
func (s *PoseService) LastProblems(ctx context.Context, username, posture string) []string {
	rec, err := s.records.LatestPose(ctx, username, posture)
	if err != nil {
		if !errors.Is(err, record.ErrNotFound) {
			log.Printf("analysis: last problems lookup failed user=%s posture=%s: %v", username, posture, err)
		}
		return nil
	}
	if strings.TrimSpace(rec.AnalysisResults) == "" {
		return nil
	}
	var results []workflow.AnalysisResult
	if err := jsonutil.UnmarshalText([]byte(rec.AnalysisResults), &results); err != nil {
		log.Printf("analysis: unreadable analysis results record=%d: %v", rec.ID, err)
		return nil
	}
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Problem)
	}
	return out
}

// resolveImage keeps URLs, stores inline payloads, and falls back when the
// payload holds no image.
func (s *PoseService) resolveImage(ctx context.Context, value, fallback string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return fallback, nil
	}
	if !artifact.IsInline(v) {
		return v, nil
	}
	if s.images == nil {
		return fallback, nil
	}
	stored, err := s.images.SaveBase64(ctx, v)
	if errors.Is(err, artifact.ErrArtifactNotFound) {
		log.Printf("analysis: no inline image located, using imageLink")
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	return stored.URL, nil
}

// Create stores req as given. A sport, when present, must be a known one.
func (s *PoseService) Create(ctx context.Context, req CreatePoseRequest) (*entity.PoseAnalysisRecord, error) {
	sport := strings.TrimSpace(req.Sport)
	if sport != "" {
		parsed, err := parseSport(sport)
		if err != nil {
			return nil, err
		}
		sport = string(parsed)
	}
	return s.records.CreatePose(ctx, entity.PoseAnalysisRecord{
		Username:           strings.TrimSpace(req.Username),
		Sport:              sport,
		Posture:            strings.TrimSpace(req.Posture),
		UserPoseImage:      strings.TrimSpace(req.UserPoseImage),
		ReferencePoseImage: strings.TrimSpace(req.ReferencePoseImage),
		AnalysisResults:    req.AnalysisResults,
		ImprovementResults: req.ImprovementResults,
	})
}

func (s *PoseService) Latest(ctx context.Context, username, posture string) (*entity.PoseAnalysisRecord, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(posture) == "" {
		return nil, service.Invalid("username/posture", "are required")
	}
	return s.records.LatestPose(ctx, username, posture)
}

// ByUsername lists a user's pose records, newest first.
func (s *PoseService) ByUsername(ctx context.Context, username string) ([]*PoseView, error) {
	if strings.TrimSpace(username) == "" {
		return nil, service.Invalid("username", "is required")
	}
	recs, err := s.records.PosesByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return NewPoseViews(recs), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
