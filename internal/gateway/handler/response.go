package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"coachai/internal/gateway/repository/record"
	"coachai/internal/gateway/service"
)

const (
	ResultSuccess = "SUCCESS"
	ResultError   = "ERROR"

	maxJSONBody = 32 << 20
)

// Response is the envelope every JSON route answers with.
type Response struct {
	Result  string `json:"result"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("handler: encode response failed: %v", err)
	}
}

func writeSuccess(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Response{Result: ResultSuccess, Message: message, Data: data})
}

// writeError answers with "<op> failed: <cause>". Client mistakes get 400;
// everything else keeps 200 and reports the failure in the envelope.
func writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	log.Printf("handler: %s failed status=%d err=%v", op, status, err)
	writeJSON(w, status, Response{Result: ResultError, Message: fmt.Sprintf("%s failed: %v", op, err)})
}

func statusFor(err error) int {
	switch {
	case service.IsValidation(err), errors.Is(err, record.ErrInvalidRecord):
		return http.StatusBadRequest
	default:
		return http.StatusOK
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return service.Invalid("body", "request body is empty")
		}
		return service.Invalid("body", "invalid json body: %v", err)
	}
	return nil
}

func queryParam(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}
