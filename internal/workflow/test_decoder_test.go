package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelopeFor(t *testing.T, structData any) *Envelope {
	t.Helper()
	layer1 := map[string]any{
		"success":   true,
		"requestId": "req-1",
		"data": map[string]any{
			"message":    []any{},
			"structData": structData,
		},
	}
	b, err := json.Marshal(layer1)
	require.NoError(t, err)
	s := string(b)
	return &Envelope{Code: 200, Success: true, RequestID: "req-1", Data: &ResponseData{Result: &s}}
}

func mustText(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestDecodePoseScoreFromNestedStrings(t *testing.T) {
	raw := `{"code":200,"success":true,"data":{"result":"{\"success\":true,\"data\":{\"structData\":{\"message\":\"{\\\"overallScore\\\":80}\"}}}"}}`
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))

	_, msg, err := DecodePose(&env)
	require.NoError(t, err)
	assert.Equal(t, 80, msg.OverallScore)
}

func TestDecodeUpstreamFailureKeepsMessage(t *testing.T) {
	raw := `{"code":500,"success":false,"message":"node llm-2 timed out after 300s","requestId":"req-9"}`
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))

	_, _, err := DecodePose(&env)
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, 500, upstream.Code)
	assert.Equal(t, "node llm-2 timed out after 300s", upstream.Message)
	assert.Equal(t, "req-9", upstream.RequestID)

	ok := envelopeFor(t, map[string]any{"message": `{"overallScore":1}`})
	ok.Success = false
	_, err = Decode[PoseStructData](ok)
	assert.True(t, errors.As(err, &upstream))

	ok.Success = true
	ok.Code = 201
	_, err = Decode[PoseStructData](ok)
	assert.True(t, errors.As(err, &upstream))
}

func TestDecodeEmptyPayload(t *testing.T) {
	_, err := Decode[PoseStructData](nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = Decode[PoseStructData](&Envelope{Code: 200, Success: true})
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = Decode[PoseStructData](&Envelope{Code: 200, Success: true, Data: &ResponseData{}})
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestDecodeMalformedLayer1(t *testing.T) {
	for _, result := range []string{``, `not json`, `{"data":{}}`, `{"data":{"structData":null}}`, `{"success":true}`, `[1,2]`} {
		r := result
		env := &Envelope{Code: 200, Success: true, Data: &ResponseData{Result: &r}}
		_, err := Decode[IssueStructData](env)
		assert.ErrorIs(t, err, ErrMalformedLayer1, "result %q", result)
	}
}

func TestDecodeFinalMessageMalformedLayer2(t *testing.T) {
	cases := map[string]any{
		"missing message": map[string]any{"userPoseImage": "https://cdn/x.png"},
		"null message":    map[string]any{"message": "null"},
		"empty message":   map[string]any{"message": ""},
		"array message":   map[string]any{"message": "[1,2]"},
		"broken message":  map[string]any{"message": `{"overallScore":`},
		"wrong type":      map[string]any{"message": `{"overallScore":"high"}`},
	}
	for name, sd := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := DecodePose(envelopeFor(t, sd))
			assert.ErrorIs(t, err, ErrMalformedLayer2)
		})
	}
}

func TestDecodeFinalMessageAcceptsInlineObject(t *testing.T) {
	env := envelopeFor(t, map[string]any{
		"userPoseImage": "data:image/png;base64,AAAA",
		"message":       map[string]any{"overallScore": 64, "success": true},
	})
	sd, msg, err := DecodePose(env)
	require.NoError(t, err)
	assert.Equal(t, 64, msg.OverallScore)
	assert.Equal(t, "data:image/png;base64,AAAA", sd.UserPoseImage)
	assert.Empty(t, sd.ReferencePoseImage)
}

func TestDecodeDiagnosisDropsBadSubRecords(t *testing.T) {
	logs := captureLog(t)
	env := envelopeFor(t, map[string]any{
		"message": mustText(t, map[string]any{
			"sport":            "running",
			"posture":          []string{"landing"},
			"riskLevel":        "medium",
			"primaryDiagnosis": "patellar tendinopathy",
			"confidence":       72,
			"isNormal":         false,
			"symptoms":         []map[string]string{{"name": "knee pain", "severity": "moderate", "cause": "overstriding"}},
			"treatment":        map[string]any{"prevention": []string{"cadence drills"}, "immediate": []string{"ice"}},
		}),
		"poseReference": []string{
			`{"title":"Midfoot landing","description":"land under the hip","imageUrl":"https://cdn/ref.png"}`,
			`{"title":`,
		},
		"rehabilitationVideos": []any{
			`{"title":"Eccentric squats","videoUrl":"https://cdn/v1.mp4","duration":"04:30"}`,
			"null",
		},
	})

	diag, err := DecodeIssue(env)
	require.NoError(t, err)
	require.Len(t, diag.PoseReference, 1)
	assert.Equal(t, "Midfoot landing", diag.PoseReference[0].Title)
	assert.Equal(t, "https://cdn/ref.png", diag.PoseReference[0].ImageURL)
	require.Len(t, diag.RehabilitationVideos, 1)
	assert.Equal(t, "04:30", diag.RehabilitationVideos[0].Duration)
	assert.Equal(t, 72, diag.Confidence)
	assert.Equal(t, []string{"ice"}, diag.Treatment.Immediate)

	assert.Contains(t, logs.String(), "skip poseReference[1]")
	assert.Contains(t, logs.String(), "skip rehabilitationVideos[1]")
}

func TestDecodeDiagnosisMessageIsFatal(t *testing.T) {
	for name, sd := range map[string]any{
		"missing":    map[string]any{"poseReference": []string{`{"title":"ok"}`}},
		"broken":     map[string]any{"message": `{"sport":`},
		"confidence": map[string]any{"message": `{"sport":"yoga","confidence":140}`},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeIssue(envelopeFor(t, sd))
			assert.ErrorIs(t, err, ErrMalformedLayer2)
		})
	}
	_, err := DecodeDiagnosis(nil)
	assert.ErrorIs(t, err, ErrMalformedLayer2)
}

func TestFinalMessageRoundTrip(t *testing.T) {
	want := FinalMessage{
		Success:      true,
		OverallScore: 87,
		AnalysisResults: []AnalysisResult{
			{Problem: "knees cave in", Suggestion: "push knees out over toes", IsLastProblem: true},
			{Problem: "heels lift", Suggestion: "sit back <into> the hips"},
		},
		ImprovementResults:        []ImprovementResult{{Problem: "depth", Evaluation: "improved since last session"}},
		UserPoseImageInstructions: "draw arrows on both knees",
	}

	_, first, err := DecodePose(envelopeFor(t, map[string]any{"message": mustText(t, want)}))
	require.NoError(t, err)
	if diff := cmp.Diff(want, *first); diff != "" {
		t.Fatalf("first decode mismatch (-want +got):\n%s", diff)
	}

	_, second, err := DecodePose(envelopeFor(t, map[string]any{"message": mustText(t, first)}))
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("re-encoded decode mismatch (-first +second):\n%s", diff)
	}
}

func TestDiagnosisRoundTrip(t *testing.T) {
	want := DiagnosisData{
		Sport:            "tennis",
		Posture:          []string{"serve", "backhand"},
		RiskLevel:        "high",
		PrimaryDiagnosis: "lateral epicondylitis",
		Confidence:       91,
		Symptoms:         []Symptom{{Name: "elbow pain", Severity: "severe", Cause: "wrist-led backhand"}},
		Treatment: &Treatment{
			Prevention: []string{"two-handed backhand"},
			Immediate:  []string{"rest", "ice"},
			Recovery:   []string{"eccentric wrist extension"},
			FollowUp:   []string{"physio review in 2 weeks"},
		},
		PoseReference:        []PoseReference{{Title: "Backhand", Description: "shoulder turn", ImageURL: "https://cdn/bh.png"}},
		RehabilitationVideos: []RehabilitationVideo{{Title: "Tyler twist", VideoURL: "https://cdn/tt.mp4", Duration: "02:10"}},
	}

	encode := func(d DiagnosisData) *Envelope {
		refs := make([]string, 0, len(d.PoseReference))
		for _, r := range d.PoseReference {
			refs = append(refs, mustText(t, r))
		}
		videos := make([]string, 0, len(d.RehabilitationVideos))
		for _, v := range d.RehabilitationVideos {
			videos = append(videos, mustText(t, v))
		}
		msg := d
		msg.PoseReference, msg.RehabilitationVideos = nil, nil
		return envelopeFor(t, map[string]any{
			"message":              mustText(t, msg),
			"poseReference":        refs,
			"rehabilitationVideos": videos,
		})
	}

	first, err := DecodeIssue(encode(want))
	require.NoError(t, err)
	if diff := cmp.Diff(want, *first, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("first decode mismatch (-want +got):\n%s", diff)
	}
	second, err := DecodeIssue(encode(*first))
	require.NoError(t, err)
	if diff := cmp.Diff(first, second, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("re-encoded decode mismatch (-first +second):\n%s", diff)
	}
}

func TestUpstreamErrorMessage(t *testing.T) {
	err := &UpstreamError{Code: 401, Message: "invalid ak"}
	assert.Equal(t, "workflow call failed, code: 401, message: invalid ak", err.Error())
	err.RequestID = "abc"
	assert.Contains(t, err.Error(), "(request abc)")
}

func TestTruncateForLog(t *testing.T) {
	assert.Equal(t, "short", truncateForLog("short"))
	long := string(bytes.Repeat([]byte("x"), 150))
	got := truncateForLog(long)
	assert.Contains(t, got, "(len=150)")
	assert.Less(t, len(got), 150)
}
