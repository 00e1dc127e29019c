package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coachai/internal/artifact"
	"coachai/internal/gateway/entity"
	"coachai/internal/gateway/repository/objectstore"
	"coachai/internal/gateway/repository/record"
	"coachai/internal/gateway/service"
	"coachai/internal/gateway/service/files"
	"coachai/internal/workflow"
)

type fakeCaller struct {
	env    *workflow.Envelope
	err    error
	calls  int
	flow   workflow.Flow
	params any
}

func (c *fakeCaller) Call(_ context.Context, flow workflow.Flow, params any) (*workflow.Envelope, error) {
	c.calls++
	c.flow = flow
	c.params = params
	return c.env, c.err
}

func envelopeFor(t *testing.T, structData any) *workflow.Envelope {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"success": true,
		"data":    map[string]any{"message": []any{}, "structData": structData},
	})
	require.NoError(t, err)
	s := string(b)
	return &workflow.Envelope{Code: 200, Success: true, Data: &workflow.ResponseData{Result: &s}}
}

func mustText(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func poseEnvelope(t *testing.T, userImage, refImage string) *workflow.Envelope {
	return envelopeFor(t, map[string]any{
		"userPoseImage":      userImage,
		"referencePoseImage": refImage,
		"message": mustText(t, map[string]any{
			"success":      true,
			"overallScore": 78,
			"analysisResults": []map[string]any{
				{"problem": "knees cave in", "suggestion": "push knees out"},
				{"problem": "heels lift", "suggestion": "sit back", "isLastProblem": true},
			},
			"improvementResults": []map[string]any{{"problem": "depth", "evaluation": "improved"}},
		}),
	})
}

type failingImages struct{ err error }

func (f failingImages) SaveBase64(context.Context, string) (*files.Stored, error) {
	return nil, f.err
}

func newPoseService(t *testing.T, caller workflow.Caller) (*PoseService, *record.MemoryStore, *objectstore.MemoryStore) {
	t.Helper()
	records := record.NewMemoryStore()
	objects := objectstore.NewMemoryStore("https://files.test")
	svc := NewPoseService(records, caller, workflow.Flow{APICode: "pose-code", AccessKey: "ak"}, files.New(objects, files.Config{}))
	return svc, records, objects
}

func TestPoseAnalyzeFirstVisitSendsNullLastProblem(t *testing.T) {
	caller := &fakeCaller{env: poseEnvelope(t, "https://cdn/u.png", "")}
	svc, records, _ := newPoseService(t, caller)

	view, err := svc.Analyze(context.Background(), PoseRequest{
		ImageLink: "https://img/in.jpg", Username: "alice", Sport: "fitness", Posture: "squat",
	})
	require.NoError(t, err)

	params, ok := caller.params.(workflow.PoseParams)
	require.True(t, ok)
	assert.Nil(t, params.LastProblem)
	assert.Equal(t, "https://img/in.jpg", params.Image)
	assert.Equal(t, "pose-code", caller.flow.APICode)
	assert.JSONEq(t, `{"username":"alice","sport":"FITNESS","posture":"squat","image":"https://img/in.jpg","lastProblem":null}`, mustText(t, params))

	require.NotNil(t, view.OverallScore)
	assert.Equal(t, 78, *view.OverallScore)
	assert.Equal(t, "https://cdn/u.png", view.UserPoseImage)
	assert.Equal(t, "https://img/in.jpg", view.ReferencePoseImage)
	require.Len(t, view.AnalysisResults, 2)
	assert.True(t, view.AnalysisResults[1].IsLastProblem)

	stored, err := records.LatestPose(context.Background(), "alice", "squat")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"problem":"depth","evaluation":"improved"}]`, stored.ImprovementResults)
}

func TestPoseAnalyzeSendsPreviousProblems(t *testing.T) {
	caller := &fakeCaller{env: poseEnvelope(t, "", "")}
	svc, _, _ := newPoseService(t, caller)
	ctx := context.Background()
	req := PoseRequest{ImageLink: "https://img/in.jpg", Username: "alice", Sport: "fitness", Posture: "squat"}

	_, err := svc.Analyze(ctx, req)
	require.NoError(t, err)
	_, err = svc.Analyze(ctx, req)
	require.NoError(t, err)

	params := caller.params.(workflow.PoseParams)
	require.NotNil(t, params.LastProblem)
	assert.Equal(t, []string{"knees cave in", "heels lift"}, params.LastProblem.Problem)
}

func TestPoseAnalyzeStoresInlineImages(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	inline := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	caller := &fakeCaller{env: poseEnvelope(t, inline, `{"note":"no image here"}`)}
	svc, _, objects := newPoseService(t, caller)

	view, err := svc.Analyze(context.Background(), PoseRequest{
		ImageLink: "https://img/in.jpg", Username: "bob", Sport: "yoga", Posture: "tree",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^https://files\.test/images/\d{14}_[0-9a-f]{8}\.png$`, view.UserPoseImage)
	assert.Equal(t, "https://img/in.jpg", view.ReferencePoseImage)

	name := view.UserPoseImage[len("https://files.test/"):]
	got, err := objects.Get(context.Background(), name)
	require.NoError(t, err)
	assert.Equal(t, png, got)
}

func TestPoseAnalyzeFailures(t *testing.T) {
	ctx := context.Background()
	req := PoseRequest{ImageLink: "https://img/in.jpg", Username: "alice", Sport: "fitness", Posture: "squat"}

	t.Run("validation before call", func(t *testing.T) {
		caller := &fakeCaller{}
		svc, _, _ := newPoseService(t, caller)
		_, err := svc.Analyze(ctx, PoseRequest{Username: "alice", Sport: "fitness", Posture: "squat"})
		assert.True(t, service.IsValidation(err))
		assert.Zero(t, caller.calls)
	})

	t.Run("unknown sport before call", func(t *testing.T) {
		caller := &fakeCaller{}
		svc, _, _ := newPoseService(t, caller)
		bad := req
		bad.Sport = "quidditch"
		_, err := svc.Analyze(ctx, bad)
		var verr *service.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "sport", verr.Field)
		assert.Zero(t, caller.calls)
	})

	t.Run("upstream", func(t *testing.T) {
		caller := &fakeCaller{env: &workflow.Envelope{Code: 500, Message: "flow timed out"}}
		svc, records, _ := newPoseService(t, caller)
		_, err := svc.Analyze(ctx, req)
		var up *workflow.UpstreamError
		require.True(t, errors.As(err, &up))
		assert.Equal(t, "flow timed out", up.Message)
		list, _ := records.PosesByUsername(ctx, "alice")
		assert.Empty(t, list)
	})

	t.Run("invalid inline image is fatal", func(t *testing.T) {
		caller := &fakeCaller{env: poseEnvelope(t, "data:image/png;base64,@@@", "")}
		svc, records, _ := newPoseService(t, caller)
		_, err := svc.Analyze(ctx, req)
		assert.ErrorIs(t, err, artifact.ErrInvalidBase64)
		list, _ := records.PosesByUsername(ctx, "alice")
		assert.Empty(t, list)
	})

	t.Run("storage failure", func(t *testing.T) {
		caller := &fakeCaller{env: poseEnvelope(t, "AAAA", "")}
		records := record.NewMemoryStore()
		svc := NewPoseService(records, caller, workflow.Flow{APICode: "c"}, failingImages{err: errors.New("bucket offline")})
		_, err := svc.Analyze(ctx, req)
		assert.ErrorContains(t, err, "bucket offline")
	})
}

func TestPoseLastProblemsToleratesBadHistory(t *testing.T) {
	svc, records, _ := newPoseService(t, &fakeCaller{})
	ctx := context.Background()
	_, err := records.CreatePose(ctx, entity.PoseAnalysisRecord{
		Username: "alice", Posture: "squat", UserPoseImage: "u", ReferencePoseImage: "r", AnalysisResults: "not json",
	})
	require.NoError(t, err)
	assert.Empty(t, svc.LastProblems(ctx, "alice", "squat"))
	assert.Empty(t, svc.LastProblems(ctx, "nobody", "squat"))
}

func TestPoseCreateAndLatest(t *testing.T) {
	svc, _, _ := newPoseService(t, &fakeCaller{})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreatePoseRequest{Username: "alice", Posture: "squat", UserPoseImage: "u"})
	assert.ErrorIs(t, err, record.ErrInvalidRecord)

	rec, err := svc.Create(ctx, CreatePoseRequest{
		Username: "alice", Sport: "fitness", Posture: "squat", UserPoseImage: "u", ReferencePoseImage: "r",
		AnalysisResults: `[{"problem":"p"}]`,
	})
	require.NoError(t, err)
	assert.Equal(t, "FITNESS", rec.Sport)

	_, err = svc.Create(ctx, CreatePoseRequest{
		Username: "alice", Sport: "chess", Posture: "squat", UserPoseImage: "u", ReferencePoseImage: "r",
	})
	assert.True(t, service.IsValidation(err))

	latest, err := svc.Latest(ctx, "alice", "squat")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, latest.ID)

	views, err := svc.ByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, rec.ID, views[0].ID)
	none, err := svc.ByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
	_, err = svc.ByUsername(ctx, " ")
	assert.True(t, service.IsValidation(err))

	_, err = svc.Latest(ctx, "alice", "plank")
	assert.ErrorIs(t, err, record.ErrNotFound)
	_, err = svc.Latest(ctx, "", "plank")
	assert.True(t, service.IsValidation(err))
}

func issueEnvelope(t *testing.T) *workflow.Envelope {
	return envelopeFor(t, map[string]any{
		"message": mustText(t, map[string]any{
			"sport":            "running",
			"posture":          []string{"forward lean"},
			"riskLevel":        "high",
			"primaryDiagnosis": "runner's knee",
			"confidence":       85,
			"isNormal":         false,
			"symptoms":         []map[string]string{{"name": "knee pain", "severity": "moderate", "cause": "overuse"}},
			"treatment":        map[string]any{"immediate": []string{"rest"}, "recovery": []string{"strength work"}},
		}),
		"poseReference":        []string{`{"title":"Knee alignment","imageUrl":"https://cdn/k.png"}`, `{broken`},
		"rehabilitationVideos": []string{`{"title":"Clamshells","videoUrl":"https://cdn/c.mp4","duration":"05:00"}`},
	})
}

func TestIssueAnalyzeDefaultsToAnonymous(t *testing.T) {
	caller := &fakeCaller{env: issueEnvelope(t)}
	records := record.NewMemoryStore()
	svc := NewIssueService(records, caller, workflow.Flow{APICode: "issue-code"})
	ctx := context.Background()

	view, err := svc.Analyze(ctx, IssueRequest{
		BodyParts: []string{"knee"}, Sport: "running", Posture: []string{"forward lean"}, Description: "pain after long runs",
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.AnonymousUsername), view.Username)
	assert.Equal(t, "runner's knee", view.PrimaryDiagnosis)
	assert.Equal(t, []string{"forward lean"}, view.Posture)
	require.Len(t, view.PoseReference, 1)
	assert.Equal(t, "https://cdn/k.png", view.PoseReference[0].ImageURL)
	require.Len(t, view.RehabilitationVideos, 1)
	require.NotNil(t, view.Treatment)
	assert.Equal(t, []string{"rest"}, view.Treatment.Immediate)

	params := caller.params.(workflow.IssueParams)
	assert.Equal(t, []string{"knee"}, params.BodyParts)
	assert.Equal(t, "issue-code", caller.flow.APICode)

	stored, err := records.LatestIssue(ctx, "anonymous_user", "running")
	require.NoError(t, err)
	assert.JSONEq(t, `["forward lean"]`, stored.Posture)
	assert.JSONEq(t, `[{"title":"Knee alignment","description":"","imageUrl":"https://cdn/k.png"}]`, stored.PoseReference)
}

func TestIssueQueries(t *testing.T) {
	caller := &fakeCaller{env: issueEnvelope(t)}
	records := record.NewMemoryStore()
	svc := NewIssueService(records, caller, workflow.Flow{APICode: "issue-code"})
	ctx := context.Background()

	_, err := svc.Analyze(ctx, IssueRequest{Username: "carol", Sport: "running"})
	require.NoError(t, err)

	latest, err := svc.Latest(ctx, "carol", "running")
	require.NoError(t, err)
	assert.Equal(t, "carol", latest.Username)

	byUser, err := svc.ByUsername(ctx, "carol")
	require.NoError(t, err)
	assert.Len(t, byUser, 1)

	abnormal, err := svc.Abnormal(ctx)
	require.NoError(t, err)
	assert.Len(t, abnormal, 1)

	high, err := svc.ByRiskLevel(ctx, "high")
	require.NoError(t, err)
	assert.Len(t, high, 1)

	low, err := svc.ByRiskLevel(ctx, "low")
	require.NoError(t, err)
	assert.Empty(t, low)

	_, err = svc.ByRiskLevel(ctx, " ")
	assert.True(t, service.IsValidation(err))
}

func TestIssueAnalyzeMalformedDiagnosis(t *testing.T) {
	caller := &fakeCaller{env: envelopeFor(t, map[string]any{"message": `{"sport":`})}
	records := record.NewMemoryStore()
	svc := NewIssueService(records, caller, workflow.Flow{APICode: "c"})

	_, err := svc.Analyze(context.Background(), IssueRequest{Username: "dave", Sport: "tennis"})
	assert.ErrorIs(t, err, workflow.ErrMalformedLayer2)
	list, _ := records.IssuesByUsername(context.Background(), "dave")
	assert.Empty(t, list)
}

func TestViewsTolerateBadColumns(t *testing.T) {
	v := NewIssueView(&entity.IssueAnalysisRecord{Posture: "oops", Treatment: "null", Symptoms: ""})
	assert.Nil(t, v.Posture)
	assert.Nil(t, v.Treatment)
	assert.Nil(t, v.Symptoms)
	assert.Nil(t, NewPoseView(nil))
}
