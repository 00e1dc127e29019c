package entity

// PoseAnalysisRecord is one stored pose analysis. AnalysisResults and
// ImprovementResults hold JSON text; timestamps are unix milliseconds.
type PoseAnalysisRecord struct {
	ID                 int64  `json:"id"`
	Username           string `json:"username"`
	Sport              string `json:"sport"`
	Posture            string `json:"posture"`
	UserPoseImage      string `json:"userPoseImage"`
	ReferencePoseImage string `json:"referencePoseImage"`
	AnalysisResults    string `json:"analysisResults"`
	ImprovementResults string `json:"improvementResults"`
	CreatedAt          int64  `json:"createdAt"`
	UpdatedAt          int64  `json:"updatedAt"`
}

// IssueAnalysisRecord is one stored issue diagnosis. Posture, Symptoms,
// Treatment, PoseReference and RehabilitationVideos hold JSON text.
type IssueAnalysisRecord struct {
	ID                   int64  `json:"id"`
	Username             string `json:"username"`
	Sport                string `json:"sport"`
	Posture              string `json:"posture"`
	RiskLevel            string `json:"riskLevel"`
	PrimaryDiagnosis     string `json:"primaryDiagnosis"`
	Confidence           int    `json:"confidence"`
	IsNormal             bool   `json:"isNormal"`
	Symptoms             string `json:"symptoms"`
	Treatment            string `json:"treatment"`
	PoseReference        string `json:"poseReference"`
	RehabilitationVideos string `json:"rehabilitationVideos"`
	CreatedAt            int64  `json:"createdAt"`
	UpdatedAt            int64  `json:"updatedAt"`
}
