package analysis

import (
	"encoding/json"
	"log"
	"strings"

	"coachai/internal/gateway/entity"
	"coachai/internal/workflow"
)

// PoseView is a pose record with its JSON columns expanded.
type PoseView struct {
	ID                 int64                        `json:"id"`
	Username           string                       `json:"username"`
	Sport              string                       `json:"sport"`
	Posture            string                       `json:"posture"`
	UserPoseImage      string                       `json:"userPoseImage"`
	ReferencePoseImage string                       `json:"referencePoseImage"`
	AnalysisResults    []workflow.AnalysisResult    `json:"analysisResults"`
	ImprovementResults []workflow.ImprovementResult `json:"improvementResults"`
	OverallScore       *int                         `json:"overallScore,omitempty"`
	CreatedAt          int64                        `json:"createdAt"`
	UpdatedAt          int64                        `json:"updatedAt"`
}

func NewPoseView(rec *entity.PoseAnalysisRecord) *PoseView {
	if rec == nil {
		return nil
	}
	return &PoseView{
		ID:                 rec.ID,
		Username:           rec.Username,
		Sport:              rec.Sport,
		Posture:            rec.Posture,
		UserPoseImage:      rec.UserPoseImage,
		ReferencePoseImage: rec.ReferencePoseImage,
		AnalysisResults:    parseColumn[[]workflow.AnalysisResult]("analysisResults", rec.AnalysisResults),
		ImprovementResults: parseColumn[[]workflow.ImprovementResult]("improvementResults", rec.ImprovementResults),
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}
}

// IssueView is an issue record with its JSON columns expanded.
type IssueView struct {
	ID                   int64                          `json:"id"`
	Username             string                         `json:"username"`
	Sport                string                         `json:"sport"`
	Posture              []string                       `json:"posture"`
	RiskLevel            string                         `json:"riskLevel"`
	PrimaryDiagnosis     string                         `json:"primaryDiagnosis"`
	Confidence           int                            `json:"confidence"`
	IsNormal             bool                           `json:"isNormal"`
	Symptoms             []workflow.Symptom             `json:"symptoms"`
	Treatment            *workflow.Treatment            `json:"treatment"`
	PoseReference        []workflow.PoseReference       `json:"poseReference"`
	RehabilitationVideos []workflow.RehabilitationVideo `json:"rehabilitationVideos"`
	CreatedAt            int64                          `json:"createdAt"`
	UpdatedAt            int64                          `json:"updatedAt"`
}

func NewIssueView(rec *entity.IssueAnalysisRecord) *IssueView {
	if rec == nil {
		return nil
	}
	return &IssueView{
		ID:                   rec.ID,
		Username:             rec.Username,
		Sport:                rec.Sport,
		Posture:              parseColumn[[]string]("posture", rec.Posture),
		RiskLevel:            rec.RiskLevel,
		PrimaryDiagnosis:     rec.PrimaryDiagnosis,
		Confidence:           rec.Confidence,
		IsNormal:             rec.IsNormal,
		Symptoms:             parseColumn[[]workflow.Symptom]("symptoms", rec.Symptoms),
		Treatment:            parseColumn[*workflow.Treatment]("treatment", rec.Treatment),
		PoseReference:        parseColumn[[]workflow.PoseReference]("poseReference", rec.PoseReference),
		RehabilitationVideos: parseColumn[[]workflow.RehabilitationVideo]("rehabilitationVideos", rec.RehabilitationVideos),
		CreatedAt:            rec.CreatedAt,
		UpdatedAt:            rec.UpdatedAt,
	}
}

func NewPoseViews(recs []entity.PoseAnalysisRecord) []*PoseView {
	out := make([]*PoseView, 0, len(recs))
	for i := range recs {
		out = append(out, NewPoseView(&recs[i]))
	}
	return out
}

func NewIssueViews(recs []entity.IssueAnalysisRecord) []*IssueView {
	out := make([]*IssueView, 0, len(recs))
	for i := range recs {
		out = append(out, NewIssueView(&recs[i]))
	}
	return out
}

// parseColumn decodes a stored JSON column. A blank or unreadable column
// yields the zero value; reads never fail on stored history.
func parseColumn[T any](column, raw string) T {
	var out T
	if strings.TrimSpace(raw) == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Printf("analysis: unreadable %s column: %v", column, err)
		var zero T
		return zero
	}
	return out
}
