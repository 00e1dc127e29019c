package workflow

import "encoding/json"

// Envelope is the outer response of the analysis workflow. Data.Result holds
// the layer-1 document as a JSON string.
type Envelope struct {
	Code      int           `json:"code"`
	Message   string        `json:"message"`
	Success   bool          `json:"success"`
	Data      *ResponseData `json:"data"`
	RequestID string        `json:"requestId"`
}

type ResponseData struct {
	Usage    int     `json:"usage"`
	UsageMap any     `json:"usageMap,omitempty"`
	Result   *string `json:"result"`
}

// ParsedResult is the layer-1 document. S is the flow-specific structData.
type ParsedResult[S any] struct {
	Data      *ParsedData[S] `json:"data"`
	Success   bool           `json:"success"`
	RequestID string         `json:"requestId"`
}

type ParsedData[S any] struct {
	Message    []any `json:"message"`
	StructData *S    `json:"structData"`
}

// PoseStructData carries the generated images and the layer-2 message.
type PoseStructData struct {
	UserPoseImage      string          `json:"userPoseImage,omitempty"`
	ReferencePoseImage string          `json:"referencePoseImage,omitempty"`
	Message            json.RawMessage `json:"message"`
}

// IssueStructData carries the layer-2 diagnosis plus auxiliary references,
// each element of which is a JSON string of its own.
type IssueStructData struct {
	PoseReference        []json.RawMessage `json:"poseReference"`
	Message              json.RawMessage   `json:"message"`
	RehabilitationVideos []json.RawMessage `json:"rehabilitationVideos"`
}

// FinalMessage is the decoded pose analysis.
type FinalMessage struct {
	Success                   bool                `json:"success"`
	OverallScore              int                 `json:"overallScore"`
	AnalysisResults           []AnalysisResult    `json:"analysisResults"`
	ImprovementResults        []ImprovementResult `json:"improvementResults"`
	UserPoseImageInstructions string              `json:"userPoseImageInstructions"`
}

type AnalysisResult struct {
	Problem       string `json:"problem"`
	Suggestion    string `json:"suggestion"`
	IsLastProblem bool   `json:"isLastProblem"`
}

type ImprovementResult struct {
	Problem    string `json:"problem"`
	Evaluation string `json:"evaluation"`
}

// DiagnosisData is the decoded issue analysis. PoseReference and
// RehabilitationVideos are filled from the sibling arrays of structData.
type DiagnosisData struct {
	Sport                string                `json:"sport"`
	Posture              []string              `json:"posture"`
	RiskLevel            string                `json:"riskLevel"`
	PrimaryDiagnosis     string                `json:"primaryDiagnosis"`
	Confidence           int                   `json:"confidence"`
	IsNormal             bool                  `json:"isNormal"`
	Symptoms             []Symptom             `json:"symptoms"`
	Treatment            *Treatment            `json:"treatment"`
	PoseReference        []PoseReference       `json:"poseReference,omitempty"`
	RehabilitationVideos []RehabilitationVideo `json:"rehabilitationVideos,omitempty"`
}

type Symptom struct {
	Name     string `json:"name"`
	Severity string `json:"severity"`
	Cause    string `json:"cause"`
}

type Treatment struct {
	Prevention []string `json:"prevention"`
	Immediate  []string `json:"immediate"`
	Recovery   []string `json:"recovery"`
	FollowUp   []string `json:"followUp"`
}

type PoseReference struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}

type RehabilitationVideo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	VideoURL    string `json:"videoUrl"`
	Duration    string `json:"duration"`
}

// Request is the outbound call body.
type Request struct {
	APICode   string `json:"apiCode"`
	Stream    bool   `json:"stream"`
	ParamJSON any    `json:"paramJson"`
}

// PoseParams is paramJson for the pose flow. LastProblem is sent as null
// when the user has no earlier record.
type PoseParams struct {
	Username    string       `json:"username"`
	Sport       string       `json:"sport"`
	Posture     string       `json:"posture"`
	Image       string       `json:"image"`
	LastProblem *LastProblem `json:"lastProblem"`
}

type LastProblem struct {
	Problem []string `json:"problem"`
}

// IssueParams is paramJson for the issue flow.
type IssueParams struct {
	BodyParts   []string `json:"bodyParts"`
	Sport       string   `json:"sport"`
	Posture     []string `json:"posture"`
	Description string   `json:"description"`
}
