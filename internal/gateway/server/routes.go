package server

import (
	"net/http"

	"coachai/internal/gateway/handler"
	"coachai/internal/gateway/middleware"
)

// Handlers groups the route handlers the mux serves.
type Handlers struct {
	Pose     *handler.PoseHandler
	Issue    *handler.IssueHandler
	Data     *handler.DataHandler
	Files    *handler.FilesHandler
	Users    *handler.UsersHandler
	Accounts *handler.AccountsHandler
}

func NewMux(h Handlers) http.Handler {
	mux := http.NewServeMux()

	// Pose analysis records
	mux.HandleFunc("POST /pose-analysis-records/analyze", h.Pose.HandleAnalyze)
	mux.HandleFunc("POST /pose-analysis-records", h.Pose.HandleCreate)
	mux.HandleFunc("GET /pose-analysis-records/latest", h.Pose.HandleLatest)
	mux.HandleFunc("GET /pose-analysis-records/user/{username}", h.Pose.HandleByUsername)
	mux.HandleFunc("GET /pose-analysis-records/health", h.Pose.HandleHealth)

	// Issue analysis records
	mux.HandleFunc("POST /issue-analysis-records/analyze", h.Issue.HandleAnalyze)
	mux.HandleFunc("GET /issue-analysis-records/latest", h.Issue.HandleLatest)
	mux.HandleFunc("GET /issue-analysis-records/user/{username}", h.Issue.HandleByUsername)
	mux.HandleFunc("GET /issue-analysis-records/abnormal", h.Issue.HandleAbnormal)
	mux.HandleFunc("GET /issue-analysis-records/risk-level/{riskLevel}", h.Issue.HandleByRiskLevel)

	// Instruction blocks
	mux.HandleFunc("POST /data/process", h.Data.HandleProcess)
	mux.HandleFunc("POST /data/pose-analysis", h.Data.HandlePoseAnalysis)

	// Files
	mux.HandleFunc("POST /files/upload/image", h.Files.HandleUploadImage)
	mux.HandleFunc("POST /files/upload/document", h.Files.HandleUploadDocument)
	mux.HandleFunc("POST /files/upload/temp", h.Files.HandleUploadTemp)
	mux.HandleFunc("POST /files/upload/base64", h.Files.HandleUploadBase64)
	mux.HandleFunc("POST /files/upload/base64-json", h.Files.HandleUploadBase64JSON)
	mux.HandleFunc("POST /files/download/image", h.Files.HandleDownloadImage)
	mux.HandleFunc("GET /files/download", h.Files.HandleDownload)
	mux.HandleFunc("GET /files/info", h.Files.HandleInfo)
	mux.HandleFunc("GET /files/exists", h.Files.HandleExists)
	mux.HandleFunc("GET /files/presigned-url", h.Files.HandlePresign)
	mux.HandleFunc("DELETE /files/delete", h.Files.HandleDelete)
	mux.HandleFunc("POST /files/compress/test", h.Files.HandleCompressTest)
	mux.HandleFunc("POST /files/compress/upload", h.Files.HandleCompressUpload)
	mux.HandleFunc("GET /files/proxy/{path...}", h.Files.HandleProxy)

	// Coaching profiles
	mux.HandleFunc("POST /coach-ai-users/register", h.Users.HandleRegister)
	mux.HandleFunc("GET /coach-ai-users", h.Users.HandleList)
	mux.HandleFunc("GET /coach-ai-users/{id}", h.Users.HandleGet)
	mux.HandleFunc("GET /coach-ai-users/username/{username}", h.Users.HandleByUsername)
	mux.HandleFunc("GET /coach-ai-users/age-range", h.Users.HandleAgeRange)
	mux.HandleFunc("GET /coach-ai-users/sport/{sport}", h.Users.HandleBySport)
	mux.HandleFunc("GET /coach-ai-users/gender/{gender}", h.Users.HandleByGender)
	mux.HandleFunc("GET /coach-ai-users/search", h.Users.HandleSearch)
	mux.HandleFunc("PUT /coach-ai-users/{id}", h.Users.HandleUpdate)
	mux.HandleFunc("DELETE /coach-ai-users/{id}", h.Users.HandleDelete)
	mux.HandleFunc("GET /coach-ai-users/sports", h.Users.HandleSports)
	mux.HandleFunc("GET /coach-ai-users/genders", h.Users.HandleGenders)
	mux.HandleFunc("GET /coach-ai-users/health", h.Users.HandleHealth)

	// Accounts
	mux.HandleFunc("POST /users", h.Accounts.HandleCreate)
	mux.HandleFunc("GET /users", h.Accounts.HandleList)
	mux.HandleFunc("GET /users/{id}", h.Accounts.HandleGet)
	mux.HandleFunc("GET /users/username/{username}", h.Accounts.HandleByUsername)
	mux.HandleFunc("PUT /users/{id}", h.Accounts.HandleUpdate)
	mux.HandleFunc("DELETE /users/{id}", h.Accounts.HandleDelete)
	mux.HandleFunc("GET /users/health", h.Accounts.HandleHealth)
	mux.HandleFunc("GET /users/hello", h.Accounts.HandleHello)

	// Middleware
	return middleware.CORS(mux)
}
