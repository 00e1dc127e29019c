package handler

import (
	"log"
	"net/http"
	"strings"

	"coachai/internal/gateway/service/analysis"
)

type IssueHandler struct {
	svc *analysis.IssueService
}

func NewIssueHandler(svc *analysis.IssueService) *IssueHandler {
	return &IssueHandler{svc: svc}
}

func (h *IssueHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var in analysis.IssueRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, "issue analysis", err)
		return
	}
	log.Printf("handler: issue analyze username=%s sport=%s parts=%d", in.Username, in.Sport, len(in.BodyParts))
	view, err := h.svc.Analyze(r.Context(), in)
	if err != nil {
		writeError(w, "issue analysis", err)
		return
	}
	writeSuccess(w, "issue analysis completed", view)
}

func (h *IssueHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Latest(r.Context(), queryParam(r, "username"), queryParam(r, "sport"))
	if err != nil {
		writeError(w, "query latest issue record", err)
		return
	}
	writeSuccess(w, "query succeeded", view)
}

func (h *IssueHandler) HandleByUsername(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ByUsername(r.Context(), strings.TrimSpace(r.PathValue("username")))
	if err != nil {
		writeError(w, "query issue records", err)
		return
	}
	writeSuccess(w, "query succeeded", views)
}

func (h *IssueHandler) HandleAbnormal(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.Abnormal(r.Context())
	if err != nil {
		writeError(w, "query abnormal issue records", err)
		return
	}
	writeSuccess(w, "query succeeded", views)
}

func (h *IssueHandler) HandleByRiskLevel(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ByRiskLevel(r.Context(), strings.TrimSpace(r.PathValue("riskLevel")))
	if err != nil {
		writeError(w, "query issue records", err)
		return
	}
	writeSuccess(w, "query succeeded", views)
}
