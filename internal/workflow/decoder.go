package workflow

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"coachai/internal/util/jsonutil"
)

const logPreviewLen = 100

// Decode validates env and decodes its layer-1 document. The status check
// runs first so a failed call is reported as such even without a payload.
func Decode[S any](env *Envelope) (*ParsedResult[S], error) {
	if env == nil {
		return nil, ErrEmptyPayload
	}
	if !env.Success || env.Code != 200 {
		return nil, &UpstreamError{Code: env.Code, Message: env.Message, RequestID: env.RequestID}
	}
	if env.Data == nil || env.Data.Result == nil {
		return nil, ErrEmptyPayload
	}

	raw := strings.TrimSpace(*env.Data.Result)
	var parsed ParsedResult[S]
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		log.Printf("workflow: layer-1 decode failed request=%s payload=%s", env.RequestID, truncateForLog(raw))
		return nil, fmt.Errorf("%w: %v", ErrMalformedLayer1, err)
	}
	if parsed.Data == nil || parsed.Data.StructData == nil {
		return nil, fmt.Errorf("%w: data.structData is missing", ErrMalformedLayer1)
	}
	return &parsed, nil
}

// DecodePose runs both layers of the pose flow.
func DecodePose(env *Envelope) (*PoseStructData, *FinalMessage, error) {
	parsed, err := Decode[PoseStructData](env)
	if err != nil {
		return nil, nil, err
	}
	sd := parsed.Data.StructData
	msg, err := DecodeFinalMessage(sd)
	if err != nil {
		return nil, nil, err
	}
	return sd, msg, nil
}

// DecodeIssue runs both layers of the issue flow.
func DecodeIssue(env *Envelope) (*DiagnosisData, error) {
	parsed, err := Decode[IssueStructData](env)
	if err != nil {
		return nil, err
	}
	return DecodeDiagnosis(parsed.Data.StructData)
}

// DecodeFinalMessage decodes structData.message of the pose flow.
func DecodeFinalMessage(sd *PoseStructData) (*FinalMessage, error) {
	if sd == nil {
		return nil, fmt.Errorf("%w: structData is nil", ErrMalformedLayer2)
	}
	var msg *FinalMessage
	if err := decodeMessage(sd.Message, &msg); err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: message decodes to null", ErrMalformedLayer2)
	}
	log.Printf("workflow: pose message decoded score=%d analysis=%d improvement=%d",
		msg.OverallScore, len(msg.AnalysisResults), len(msg.ImprovementResults))
	return msg, nil
}

// DecodeDiagnosis decodes structData.message of the issue flow, then each
// poseReference and rehabilitationVideos element on its own. A bad element is
// logged and dropped; a bad message fails the whole decode.
func DecodeDiagnosis(sd *IssueStructData) (*DiagnosisData, error) {
	if sd == nil {
		return nil, fmt.Errorf("%w: structData is nil", ErrMalformedLayer2)
	}
	var diag *DiagnosisData
	if err := decodeMessage(sd.Message, &diag); err != nil {
		return nil, err
	}
	if diag == nil {
		return nil, fmt.Errorf("%w: message decodes to null", ErrMalformedLayer2)
	}
	if diag.Confidence < 0 || diag.Confidence > 100 {
		return nil, fmt.Errorf("%w: confidence %d out of range [0,100]", ErrMalformedLayer2, diag.Confidence)
	}
	diag.PoseReference = decodeEach[PoseReference]("poseReference", sd.PoseReference)
	diag.RehabilitationVideos = decodeEach[RehabilitationVideo]("rehabilitationVideos", sd.RehabilitationVideos)
	log.Printf("workflow: diagnosis decoded risk=%s confidence=%d normal=%t references=%d videos=%d",
		diag.RiskLevel, diag.Confidence, diag.IsNormal, len(diag.PoseReference), len(diag.RehabilitationVideos))
	return diag, nil
}

func decodeMessage(raw json.RawMessage, v any) error {
	inner, err := jsonutil.UnwrapText(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedLayer2, err)
	}
	if err := json.Unmarshal(inner, v); err != nil {
		log.Printf("workflow: layer-2 decode failed payload=%s", truncateForLog(string(inner)))
		return fmt.Errorf("%w: %v", ErrMalformedLayer2, err)
	}
	return nil
}

func decodeEach[T any](field string, raws []json.RawMessage) []T {
	if len(raws) == 0 {
		return nil
	}
	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		var item *T
		if err := jsonutil.UnmarshalText(raw, &item); err != nil {
			log.Printf("workflow: skip %s[%d]: %v", field, i, err)
			continue
		}
		if item == nil {
			log.Printf("workflow: skip %s[%d]: null element", field, i)
			continue
		}
		out = append(out, *item)
	}
	return out
}

func truncateForLog(s string) string {
	if len(s) <= logPreviewLen {
		return s
	}
	return fmt.Sprintf("%s... (len=%d)", s[:logPreviewLen], len(s))
}
