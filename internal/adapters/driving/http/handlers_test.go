package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/custodia-labs/sitrep-core/docs"
	"github.com/custodia-labs/sitrep-core/internal/adapters/driven/memory"
	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driving"
	"github.com/custodia-labs/sitrep-core/internal/core/services"
	"github.com/custodia-labs/sitrep-core/internal/metrics"
)

// mockAuthService implements driving.AuthService for testing
type mockAuthService struct {
	authenticateFn  func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
}

func (m *mockAuthService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, req)
	}
	return nil, domain.ErrInvalidCredentials
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	return nil, domain.ErrUnauthorized
}

func (m *mockAuthService) RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error) {
	return nil, domain.ErrTokenInvalid
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error { return nil }

func (m *mockAuthService) LogoutAll(ctx context.Context, userID string) error { return nil }

func (m *mockAuthService) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	return nil
}

// roleTokens accepts the role name as the bearer token
func roleTokens() *mockAuthService {
	return &mockAuthService{
		validateTokenFn: func(ctx context.Context, token string) (*domain.AuthContext, error) {
			role := domain.Role(token)
			if !role.Valid() {
				return nil, domain.ErrTokenInvalid
			}
			return &domain.AuthContext{UserID: "user-" + token, Email: token + "@example.com", Role: role, SessionID: "s-" + token}, nil
		},
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testServer struct {
	handler http.Handler
	queue   *mocks.MockTaskQueue
}

func newTestServer(t *testing.T, checks map[string]Pinger) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	dom := services.DomConfig{
		Store:   memory.NewDomStore(),
		Lock:    mocks.NewMockDistributedLock(),
		Metrics: metrics.New(reg),
	}
	users := services.NewUserService(mocks.NewMockUserStore(), mocks.NewMockSessionStore(), mocks.NewMockAuthAdapter(), nil)
	queue := mocks.NewMockTaskQueue()

	srv := NewServer(Config{Version: "test", Gatherer: reg}, Services{
		Auth:        roleTokens(),
		Users:       users,
		Ingest:      services.NewIngestService(dom),
		Lifecycle:   services.NewLifecycleService(dom),
		Review:      services.NewReviewService(dom),
		Eligibility: services.NewEligibilityService(dom),
	}, queue, checks)
	return &testServer{handler: srv.Handler(), queue: queue}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[ErrorResponse](t, rr).Code
}

func scenarioBody(doc string) driving.IngestRequest {
	return driving.IngestRequest{
		DocumentKey: domain.DocumentKey{DocumentID: doc, ExtractionRunID: "run-1"},
		RecordSet: domain.ExtractionRecordSet{
			Sections: []domain.SectionRecord{{ID: "s1", Text: "Morning report"}},
			Events: []domain.EventRecord{{
				ID:        "e1",
				SectionID: "s1",
				Text:      "Shelling reported near Alpha and Bravo",
				LocationSeries: []domain.LocationSeriesRecord{{
					ID: "ls1",
					Items: []domain.LocationRecord{
						{ID: "A", Text: "Alpha"},
						{ID: "B", Text: "Bravo"},
					},
				}},
			}},
		},
	}
}

func (ts *testServer) ingest(t *testing.T, doc string) driving.IngestResult {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/api/v1/posts", "analyst", scenarioBody(doc))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[driving.IngestResult](t, rr)
}

func TestHealthVersionMetrics(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[StatusResponse](t, rr).Status)

	rr = ts.do(t, http.MethodGet, "/version", "", nil)
	assert.Equal(t, "test", decode[VersionResponse](t, rr).Version)

	ts.ingest(t, "doc-1")
	rr = ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "sitrep_ingests_total 1")
}

func TestSwaggerDoc(t *testing.T) {
	ts := newTestServer(t, nil)
	rr := ts.do(t, http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var doc struct {
		BasePath string                    `json:"basePath"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Equal(t, "/api/v1", doc.BasePath)
	assert.Contains(t, doc.Paths["/posts/{id}/advance"], "post")
	assert.Contains(t, doc.Paths["/snapshots/{id}/eligibility"], "get")
}

func TestReady(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	ts := newTestServer(t, map[string]Pinger{"postgres": ok})
	rr := ts.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[ReadyResponse](t, rr).Checks["postgres"])

	ts = newTestServer(t, map[string]Pinger{"postgres": ok, "redis": down})
	rr = ts.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	resp := decode[ReadyResponse](t, rr)
	assert.Equal(t, "unavailable", resp.Status)
	assert.Equal(t, "connection refused", resp.Checks["redis"])
}

func TestIngestAndReadPost(t *testing.T) {
	ts := newTestServer(t, nil)
	res := ts.ingest(t, "doc-1")
	assert.Equal(t, domain.StageCreated, res.Snapshot.Stage)

	rr := ts.do(t, http.MethodGet, "/api/v1/posts/"+res.Post.ID, "viewer", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, res.Post.ID, decode[domain.DomPost](t, rr).ID)

	rr = ts.do(t, http.MethodGet, "/api/v1/posts", "viewer", nil)
	assert.Len(t, decode[[]domain.DomPost](t, rr), 1)

	rr = ts.do(t, http.MethodGet, "/api/v1/posts/"+res.Post.ID+"/tree", "viewer", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var root struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		Children []json.RawMessage
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &root))
	assert.Equal(t, res.Records.Post, root.ID)
	assert.Len(t, root.Children, 1)

	rr = ts.do(t, http.MethodPost, "/api/v1/posts", "analyst", scenarioBody("doc-1"))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "ALREADY_INGESTED", errorCode(t, rr))

	rr = ts.do(t, http.MethodGet, "/api/v1/posts/missing", "viewer", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestIngest_Errors(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.do(t, http.MethodPost, "/api/v1/posts", "", scenarioBody("doc-1"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.do(t, http.MethodPost, "/api/v1/posts", "viewer", scenarioBody("doc-1"))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.do(t, http.MethodPost, "/api/v1/posts", "analyst", "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	bad := scenarioBody("doc-2")
	bad.RecordSet.Events[0].SectionID = "nowhere"
	rr = ts.do(t, http.MethodPost, "/api/v1/posts", "analyst", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "INVALID_TREE_SHAPE", errorCode(t, rr))

	rr = ts.do(t, http.MethodGet, "/api/v1/posts?limit=0", "viewer", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestIngest_Async(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.do(t, http.MethodPost, "/api/v1/posts?async=true", "analyst", scenarioBody("doc-1"))
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	task := decode[domain.Task](t, rr)
	assert.Equal(t, domain.TaskTypeIngestDocument, task.Type)

	queued, err := ts.queue.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", queued.DocumentKey().DocumentID)

	var rs domain.ExtractionRecordSet
	require.NoError(t, json.Unmarshal([]byte(queued.RecordSet()), &rs))
	assert.Len(t, rs.Events, 1)

	rr = ts.do(t, http.MethodGet, "/api/v1/tasks/"+task.ID, "viewer", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, http.MethodGet, "/api/v1/tasks/missing", "viewer", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(t, http.MethodPost, "/api/v1/posts?async=true", "analyst", driving.IngestRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestTasks_BatchListCancelStats(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()

	rr := ts.do(t, http.MethodPost, "/api/v1/posts/batch", "analyst",
		[]driving.IngestRequest{scenarioBody("doc-1"), scenarioBody("doc-2"), scenarioBody("doc-3")})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	queued := decode[[]domain.Task](t, rr)
	require.Len(t, queued, 3)
	assert.Len(t, ts.queue.Pending(), 3)

	rr = ts.do(t, http.MethodPost, "/api/v1/posts/batch", "analyst",
		[]driving.IngestRequest{scenarioBody("doc-4"), {}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Len(t, ts.queue.Pending(), 3, "a rejected batch queues nothing")

	rr = ts.do(t, http.MethodPost, "/api/v1/posts/batch", "analyst", []driving.IngestRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do(t, http.MethodGet, "/api/v1/tasks?type=ingest_document", "viewer", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]domain.Task](t, rr), 3)

	rr = ts.do(t, http.MethodGet, "/api/v1/tasks?status=done", "viewer", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do(t, http.MethodGet, "/api/v1/tasks?type=recompute_snapshot", "viewer", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())

	rr = ts.do(t, http.MethodDelete, "/api/v1/tasks/"+queued[0].ID, "viewer", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.do(t, http.MethodDelete, "/api/v1/tasks/"+queued[0].ID, "analyst", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Len(t, ts.queue.Pending(), 2)

	running, err := ts.queue.Dequeue(ctx)
	require.NoError(t, err)
	rr = ts.do(t, http.MethodDelete, "/api/v1/tasks/"+running.ID, "analyst", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "TASK_NOT_PENDING", errorCode(t, rr))

	rr = ts.do(t, http.MethodDelete, "/api/v1/tasks/missing", "analyst", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(t, http.MethodGet, "/api/v1/tasks/stats", "analyst", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.do(t, http.MethodGet, "/api/v1/tasks/stats", "admin", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(1), decode[driven.QueueStats](t, rr).PendingCount)
}

func TestAlterNode(t *testing.T) {
	ts := newTestServer(t, nil)
	res := ts.ingest(t, "doc-1")

	for _, method := range []string{http.MethodPatch, http.MethodDelete} {
		rr := ts.do(t, method, "/api/v1/nodes/"+res.Records.Locations["A"], "admin", `{"text":"changed"}`)
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "STRUCTURAL_IMMUTABILITY", errorCode(t, rr))

		rr = ts.do(t, method, "/api/v1/nodes/missing", "admin", `{"text":"changed"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "NODE_NOT_FOUND", errorCode(t, rr))
	}
}

func TestAdvance(t *testing.T) {
	ts := newTestServer(t, nil)
	res := ts.ingest(t, "doc-1")
	advance := "/api/v1/posts/" + res.Post.ID + "/advance"

	rr := ts.do(t, http.MethodPost, advance, "analyst", AdvanceRequest{Stage: domain.StageInitialReview})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	snap := decode[domain.DomSnapshot](t, rr)
	assert.Equal(t, domain.StageInitialReview, snap.Stage)

	rr = ts.do(t, http.MethodPost, advance, "analyst", `{"stage":"FINAL_REVIEW"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "OUT_OF_ORDER_ADVANCE", errorCode(t, rr))

	rr = ts.do(t, http.MethodPost, advance, "analyst", `{"stage":"INITIAL_REVIEW"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = ts.do(t, http.MethodPost, advance, "analyst", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do(t, http.MethodPost, advance, "analyst", `{"stage":"LAUNCHED"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, http.MethodPost, advance, "viewer", `{"stage":"PROCESSED"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	for _, stage := range []string{"PROCESSED", "FINAL_REVIEW"} {
		rr = ts.do(t, http.MethodPost, advance, "analyst", `{"stage":"`+stage+`"}`)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr = ts.do(t, http.MethodPost, advance, "analyst", `{"stage":"AUDIT"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = ts.do(t, http.MethodPost, advance, "auditor", `{"stage":"AUDIT"}`)
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.do(t, http.MethodGet, "/api/v1/posts/"+res.Post.ID+"/snapshots", "viewer", nil)
	assert.Len(t, decode[[]domain.DomSnapshot](t, rr), 5)

	rr = ts.do(t, http.MethodGet, "/api/v1/posts/"+res.Post.ID+"/snapshots/current", "viewer", nil)
	assert.Equal(t, domain.StageAudit, decode[domain.DomSnapshot](t, rr).Stage)

	rr = ts.do(t, http.MethodGet, "/api/v1/posts/"+res.Post.ID+"/snapshots/2", "viewer", nil)
	assert.Equal(t, snap.ID, decode[domain.DomSnapshot](t, rr).ID)

	rr = ts.do(t, http.MethodGet, "/api/v1/posts/"+res.Post.ID+"/snapshots/bogus", "viewer", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestReviewAndEligibility(t *testing.T) {
	ts := newTestServer(t, nil)
	res := ts.ingest(t, "doc-1")
	snap := "/api/v1/snapshots/" + res.Snapshot.ID
	a, b := res.Records.Locations["A"], res.Records.Locations["B"]

	rr := ts.do(t, http.MethodPatch, snap+"/nodes/"+a, "analyst", `{"resolved":true,"selected":true}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	state := decode[domain.NodeState](t, rr)
	assert.True(t, state.IsResolved())
	assert.Equal(t, domain.ResolutionManual, state.ResolutionSource)

	rr = ts.do(t, http.MethodGet, snap+"/eligibility", "viewer", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	verdicts := map[string]domain.CommitEligibility{}
	for _, row := range decode[[]domain.CommitEligibility](t, rr) {
		verdicts[row.NodeID] = row
	}
	assert.True(t, verdicts[a].Eligible)
	assert.Equal(t, domain.ReasonUnresolved, verdicts[b].Reason)
	assert.True(t, verdicts[res.Records.Post].Eligible)

	rr = ts.do(t, http.MethodPost, snap+"/recompute", "analyst", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, http.MethodPut, snap+"/nodes/"+res.Records.Events["e1"]+"/context", "analyst",
		driving.ContextRequest{Kind: domain.ContextRegion, Value: "North", Overridden: true})
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.do(t, http.MethodPut, snap+"/nodes/"+res.Records.Events["e1"]+"/context", "analyst", `{"kind":"WEATHER","value":"x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do(t, http.MethodPut, snap+"/nodes/"+res.Records.Events["e1"]+"/actors", "analyst", driving.ActorRequest{Text: "militia", Selected: true})
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.do(t, http.MethodPost, snap+"/context/rederive", "analyst", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, http.MethodGet, snap+"/tree", "viewer", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, res.Snapshot.ID, decode[domain.SnapshotTree](t, rr).Snapshot.ID)

	rr = ts.do(t, http.MethodPatch, snap+"/nodes/missing", "analyst", `{"selected":false}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWriteToFrozenSnapshot(t *testing.T) {
	ts := newTestServer(t, nil)
	res := ts.ingest(t, "doc-1")

	rr := ts.do(t, http.MethodPost, "/api/v1/posts/"+res.Post.ID+"/advance", "analyst", `{"stage":"INITIAL_REVIEW"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	frozen := "/api/v1/snapshots/" + res.Snapshot.ID
	rr = ts.do(t, http.MethodPatch, frozen+"/nodes/"+res.Records.Locations["A"], "analyst", `{"selected":true}`)
	assert.Equal(t, http.StatusLocked, rr.Code)
	assert.Equal(t, "IMMUTABLE_SNAPSHOT", errorCode(t, rr))

	rr = ts.do(t, http.MethodPost, frozen+"/recompute", "analyst", nil)
	assert.Equal(t, http.StatusLocked, rr.Code)

	// Reads of the frozen snapshot still succeed.
	rr = ts.do(t, http.MethodGet, frozen+"/eligibility", "viewer", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestDedupEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	res := ts.ingest(t, "doc-1")
	snap := "/api/v1/snapshots/" + res.Snapshot.ID
	a, b := res.Records.Locations["A"], res.Records.Locations["B"]

	rr := ts.do(t, http.MethodPost, snap+"/nodes/"+a+"/duplicate", "analyst", DuplicateRequest{TargetID: b})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, decode[domain.NodeState](t, rr).Deduped)

	rr = ts.do(t, http.MethodGet, snap+"/nodes/"+a+"/resolve", "viewer", nil)
	assert.Equal(t, ResolveResponse{NodeID: a, TerminalID: b}, decode[ResolveResponse](t, rr))

	rr = ts.do(t, http.MethodPost, snap+"/nodes/"+b+"/duplicate", "analyst", DuplicateRequest{TargetID: a})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do(t, http.MethodPost, snap+"/nodes/"+a+"/duplicate", "analyst", DuplicateRequest{TargetID: res.Records.Events["e1"]})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "INVALID_DEDUP", errorCode(t, rr))

	rr = ts.do(t, http.MethodDelete, snap+"/nodes/"+a+"/duplicate", "analyst", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[domain.NodeState](t, rr).Deduped)

	rr = ts.do(t, http.MethodPost, snap+"/dedup/suggest", "analyst", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[[]domain.DedupSuggestion](t, rr))
}

func TestRecompute_Async(t *testing.T) {
	ts := newTestServer(t, nil)
	res := ts.ingest(t, "doc-1")

	rr := ts.do(t, http.MethodPost, "/api/v1/snapshots/"+res.Snapshot.ID+"/recompute?async=1", "analyst", nil)
	require.Equal(t, http.StatusAccepted, rr.Code)
	task := decode[domain.Task](t, rr)
	assert.Equal(t, domain.TaskTypeRecomputeSnapshot, task.Type)
	assert.Equal(t, res.Post.ID, task.PostID)
	assert.Equal(t, res.Snapshot.ID, task.SnapshotID())

	rr = ts.do(t, http.MethodPost, "/api/v1/snapshots/missing/recompute?async=1", "analyst", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeletePost(t *testing.T) {
	ts := newTestServer(t, nil)
	res := ts.ingest(t, "doc-1")

	rr := ts.do(t, http.MethodDelete, "/api/v1/posts/"+res.Post.ID, "analyst", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.do(t, http.MethodDelete, "/api/v1/posts/"+res.Post.ID, "admin", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, http.MethodGet, "/api/v1/snapshots/"+res.Snapshot.ID, "viewer", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSetupAndUsers(t *testing.T) {
	ts := newTestServer(t, nil)

	setup := driving.SetupRequest{Email: "admin@example.com", Password: "password123", Name: "Admin"}
	rr := ts.do(t, http.MethodPost, "/api/v1/setup", "", setup)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = ts.do(t, http.MethodPost, "/api/v1/setup", "", setup)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	create := driving.CreateUserRequest{Email: "a@example.com", Password: "password123", Name: "A", Role: domain.RoleAnalyst}
	rr = ts.do(t, http.MethodPost, "/api/v1/users", "analyst", create)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.do(t, http.MethodPost, "/api/v1/users", "admin", create)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[domain.UserSummary](t, rr)

	rr = ts.do(t, http.MethodPost, "/api/v1/users", "admin", create)
	assert.Equal(t, http.StatusConflict, rr.Code)

	create.Email = "not-an-email"
	rr = ts.do(t, http.MethodPost, "/api/v1/users", "admin", create)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do(t, http.MethodGet, "/api/v1/users", "admin", nil)
	assert.Len(t, decode[[]domain.UserSummary](t, rr), 2)

	rr = ts.do(t, http.MethodGet, "/api/v1/users/"+created.ID, "admin", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "a@example.com", decode[domain.UserSummary](t, rr).Email)

	rr = ts.do(t, http.MethodPatch, "/api/v1/users/"+created.ID, "admin", map[string]any{"role": "auditor", "active": false})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[domain.UserSummary](t, rr)
	assert.Equal(t, domain.RoleAuditor, updated.Role)
	assert.False(t, updated.Active)

	rr = ts.do(t, http.MethodPatch, "/api/v1/users/"+created.ID, "admin", map[string]any{"role": "root"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do(t, http.MethodPut, "/api/v1/users/"+created.ID+"/password", "admin", SetPasswordRequest{Password: "short"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	rr = ts.do(t, http.MethodPut, "/api/v1/users/"+created.ID+"/password", "admin", SetPasswordRequest{Password: "long-enough-now"})
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = ts.do(t, http.MethodPut, "/api/v1/users/"+created.ID+"/password", "analyst", SetPasswordRequest{Password: "long-enough-now"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.do(t, http.MethodDelete, "/api/v1/users/"+created.ID, "admin", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = ts.do(t, http.MethodDelete, "/api/v1/users/"+created.ID, "admin", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLogin(t *testing.T) {
	auth := &mockAuthService{
		authenticateFn: func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
			switch req.Password {
			case "right":
				return &domain.LoginResponse{Token: "tok"}, nil
			case "disabled":
				return nil, domain.ErrUnauthorized
			}
			return nil, domain.ErrInvalidCredentials
		},
	}
	srv := NewServer(DefaultConfig(), Services{Auth: auth}, nil, nil)

	tests := []struct {
		password string
		status   int
	}{
		{"right", http.StatusOK},
		{"wrong", http.StatusUnauthorized},
		{"disabled", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			body, _ := json.Marshal(domain.LoginRequest{Email: "a@example.com", Password: tt.password})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, req)
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestSessionEndpoints(t *testing.T) {
	var loggedOut, changed string
	auth := roleTokens()
	srv := NewServer(DefaultConfig(), Services{Auth: &sessionAuth{mockAuthService: auth, loggedOut: &loggedOut, changed: &changed}}, nil, nil)
	ts := &testServer{handler: srv.Handler()}

	rr := ts.do(t, http.MethodPost, "/api/v1/auth/logout-all", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.do(t, http.MethodPost, "/api/v1/auth/logout-all", "viewer", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "user-viewer", loggedOut)

	rr = ts.do(t, http.MethodPost, "/api/v1/auth/password", "analyst", domain.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "password123"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, rr))

	rr = ts.do(t, http.MethodPost, "/api/v1/auth/password", "analyst", domain.ChangePasswordRequest{CurrentPassword: "right", NewPassword: "password123"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "user-analyst", changed)

	rr = ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "", domain.RefreshRequest{RefreshToken: "used"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "TOKEN_INVALID", errorCode(t, rr))
}

// sessionAuth records LogoutAll and ChangePassword calls
type sessionAuth struct {
	*mockAuthService
	loggedOut *string
	changed   *string
}

func (a *sessionAuth) LogoutAll(ctx context.Context, userID string) error {
	*a.loggedOut = userID
	return nil
}

func (a *sessionAuth) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	if req.CurrentPassword != "right" {
		return domain.ErrInvalidCredentials
	}
	*a.changed = userID
	return nil
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.NewDomError("resolve", domain.ErrNodeNotFound), http.StatusNotFound, "NODE_NOT_FOUND"},
		{domain.ErrAlreadyIngested, http.StatusConflict, "ALREADY_INGESTED"},
		{domain.ErrDuplicateStage, http.StatusConflict, "DUPLICATE_STAGE"},
		{domain.ErrOutOfOrderAdvance, http.StatusConflict, "OUT_OF_ORDER_ADVANCE"},
		{domain.ErrStructuralImmutability, http.StatusConflict, "STRUCTURAL_IMMUTABILITY"},
		{domain.ErrInvalidTreeShape, http.StatusUnprocessableEntity, "INVALID_TREE_SHAPE"},
		{domain.ErrDedupCycle, http.StatusUnprocessableEntity, "DEDUP_CYCLE"},
		{domain.ErrImmutableSnapshot, http.StatusLocked, "IMMUTABLE_SNAPSHOT"},
		{domain.ErrAdvanceInProgress, http.StatusLocked, "ADVANCE_IN_PROGRESS"},
		{fmt.Errorf("cancel: %w", domain.ErrTaskNotPending), http.StatusConflict, "TASK_NOT_PENDING"},
		{domain.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{domain.ErrSessionNotFound, http.StatusUnauthorized, "SESSION_NOT_FOUND"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		status, code := statusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
