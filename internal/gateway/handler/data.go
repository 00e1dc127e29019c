package handler

import (
	"net/http"

	"coachai/internal/gateway/service/instruction"
)

type DataHandler struct {
	svc *instruction.Service
}

func NewDataHandler(svc *instruction.Service) *DataHandler {
	return &DataHandler{svc: svc}
}

func (h *DataHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	var in struct {
		JSONString   string `json:"jsonString"`
		Base64String string `json:"base64String"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, "data processing", err)
		return
	}
	node, err := h.svc.NextNodeContent(in.JSONString, in.Base64String)
	if err != nil {
		writeError(w, "data processing", err)
		return
	}
	writeSuccess(w, "data processed", node)
}

func (h *DataHandler) HandlePoseAnalysis(w http.ResponseWriter, r *http.Request) {
	var in struct {
		JSONString string `json:"jsonString"`
		ImageURL   string `json:"imageUrl"`
		Type       string `json:"type"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, "pose image instructions", err)
		return
	}
	content, err := h.svc.PoseImageContent(in.JSONString, in.ImageURL, in.Type)
	if err != nil {
		writeError(w, "pose image instructions", err)
		return
	}
	writeSuccess(w, "pose image instructions built", content)
}
