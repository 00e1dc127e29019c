package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coachai/internal/artifact"
	"coachai/internal/workflow"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func envelopeFile(t *testing.T, structData any) string {
	t.Helper()
	inner, err := json.Marshal(map[string]any{"success": true, "data": map[string]any{"structData": structData}})
	require.NoError(t, err)
	raw, err := json.Marshal(map[string]any{"code": 200, "success": true, "data": map[string]any{"result": string(inner)}})
	require.NoError(t, err)
	return writeFile(t, "envelope.json", raw)
}

func TestDecodePose(t *testing.T) {
	path := envelopeFile(t, map[string]any{
		"userPoseImage": "https://cdn/u.png",
		"message":       `{"success":true,"overallScore":91,"analysisResults":[{"problem":"elbow flare"}]}`,
	})

	out, err := run(t, "decode", "--flow=pose", path)
	require.NoError(t, err)

	var got struct {
		UserPoseImage string                `json:"userPoseImage"`
		Message       workflow.FinalMessage `json:"message"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "https://cdn/u.png", got.UserPoseImage)
	assert.Equal(t, 91, got.Message.OverallScore)
	require.Len(t, got.Message.AnalysisResults, 1)
}

func TestDecodeIssue(t *testing.T) {
	path := envelopeFile(t, map[string]any{
		"message":              `{"sport":"swimming","riskLevel":"low","confidence":30,"isNormal":true}`,
		"rehabilitationVideos": []string{`{"title":"Band pulls","videoUrl":"https://cdn/b.mp4"}`},
	})

	out, err := run(t, "decode", "--flow", "issue", path)
	require.NoError(t, err)
	var diag workflow.DiagnosisData
	require.NoError(t, json.Unmarshal([]byte(out), &diag))
	assert.Equal(t, "swimming", diag.Sport)
	assert.True(t, diag.IsNormal)
	require.Len(t, diag.RehabilitationVideos, 1)
}

func TestDecodeErrors(t *testing.T) {
	path := envelopeFile(t, map[string]any{"message": `{"sport":"x"}`})

	_, err := run(t, "decode", "--flow=squat", path)
	assert.ErrorContains(t, err, "unknown flow")

	failed := writeFile(t, "failed.json", []byte(`{"code":500,"success":false,"message":"quota exceeded"}`))
	_, err = run(t, "decode", "--flow=issue", failed)
	var upstream *workflow.UpstreamError
	assert.ErrorAs(t, err, &upstream)

	_, err = run(t, "decode", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "read envelope")
}

func TestLocate(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString([]byte("GIF89a"))
	doc := writeFile(t, "doc.json", []byte(`{"data":{"response":{"candidates":[{"content":{"parts":[
		{"text":"here"},{"inlineData":{"mimeType":"image/gif","data":"`+b64+`"}}]}}]}}}`))

	out, err := run(t, "locate", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "Query:   $.data.response.candidates[*].content.parts[*].inlineData.data")
	assert.Contains(t, out, "Length:  8")
	assert.Contains(t, out, "MIME:    image/gif")

	out, err = run(t, "locate", "--query=$.nothing", doc)
	assert.ErrorIs(t, err, artifact.ErrArtifactNotFound)
	assert.Contains(t, out, "No match (1 queries tried)")
}

func TestExtract(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A}
	in := writeFile(t, "in.txt", []byte("data:image/png;base64,"+base64.StdEncoding.EncodeToString(png)+"\n"))
	dst := filepath.Join(t.TempDir(), "out.png")

	out, err := run(t, "extract", in, "-o", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "MIME:      image/png")
	assert.Contains(t, out, "Size:      6")
	assert.Contains(t, out, "Extension: .png")
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, png, got)

	bad := writeFile(t, "bad.txt", []byte("not*base64"))
	_, err = run(t, "extract", bad)
	assert.ErrorIs(t, err, artifact.ErrInvalidBase64)
}
