package handler

import (
	"log"
	"net/http"
	"strings"
	"time"

	objectcache "coachai/internal/cache/objectstore"
	"coachai/internal/gateway/service/analysis"
)

const (
	serviceName = "coach-ai-core-service"
	poseModule  = "Pose Analysis Record Management"
)

// CacheStats reports object cache counters for the health route.
type CacheStats interface {
	Stats() objectcache.Stats
}

type PoseHandler struct {
	svc   *analysis.PoseService
	cache CacheStats
	now   func() time.Time
}

// NewPoseHandler builds the pose routes. cache may be nil.
func NewPoseHandler(svc *analysis.PoseService, cache CacheStats) *PoseHandler {
	return &PoseHandler{svc: svc, cache: cache, now: time.Now}
}

func (h *PoseHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var in analysis.PoseRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, "pose analysis", err)
		return
	}
	log.Printf("handler: pose analyze username=%s sport=%s posture=%s", in.Username, in.Sport, in.Posture)
	view, err := h.svc.Analyze(r.Context(), in)
	if err != nil {
		writeError(w, "pose analysis", err)
		return
	}
	writeSuccess(w, "pose analysis completed", view)
}

func (h *PoseHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in analysis.CreatePoseRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, "create pose record", err)
		return
	}
	rec, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, "create pose record", err)
		return
	}
	writeSuccess(w, "pose record created", analysis.NewPoseView(rec))
}

func (h *PoseHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Latest(r.Context(), queryParam(r, "username"), queryParam(r, "posture"))
	if err != nil {
		writeError(w, "query latest pose record", err)
		return
	}
	writeSuccess(w, "query succeeded", analysis.NewPoseView(rec))
}

func (h *PoseHandler) HandleByUsername(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ByUsername(r.Context(), strings.TrimSpace(r.PathValue("username")))
	if err != nil {
		writeError(w, "query pose records", err)
		return
	}
	writeSuccess(w, "query succeeded", views)
}

func (h *PoseHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status":    "UP",
		"service":   serviceName,
		"module":    poseModule,
		"timestamp": h.now().Format(time.RFC3339),
	}
	if h.cache != nil {
		body["objectCache"] = h.cache.Stats()
	}
	writeJSON(w, http.StatusOK, body)
}
