package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/miniworld/modgen/internal/allocator"
	"github.com/miniworld/modgen/internal/bundles"
	"github.com/miniworld/modgen/internal/catalog"
	"github.com/miniworld/modgen/internal/dispatch"
	"github.com/miniworld/modgen/internal/generator"
	"github.com/miniworld/modgen/internal/middleware"
	"github.com/miniworld/modgen/internal/packaging"
	"github.com/miniworld/modgen/internal/synth"
	"github.com/miniworld/modgen/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret   = "test-jwt-secret"
	testPassword = "hunter2hunter2"
	signingKey   = "bundle-signing-key"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	alloc  *allocator.Memory
	jobs   *BatchJobs
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cat, err := catalog.Builtin(catalog.VariantLeveled)
	if err != nil {
		t.Fatal(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	alloc := allocator.NewMemory()
	svc := generator.NewService(cat, alloc, synth.New(), generator.WithMetrics(metrics))
	jobs := dispatch.NewJobs[BatchSummary, generator.Progress](1, time.Hour, zap.NewNop())
	t.Cleanup(jobs.Close)

	router := gin.New()
	RegisterRoutes(router, Deps{
		Service:           svc,
		Bundles:           bundles.NewStore(time.Hour),
		Signer:            packaging.NewSigner(signingKey),
		Jobs:              jobs,
		Metrics:           metrics,
		Gatherer:          reg,
		Backend:           allocator.BackendMemory,
		JWTSecret:         testSecret,
		AdminPasswordHash: string(hash),
		RateLimiter:       middleware.NewRateLimiter(1000, 1000, time.Minute),
		StrictLimiter:     middleware.NewRateLimiter(1000, 1000, time.Minute),
		Breaker:           middleware.NewBreaker(middleware.DefaultBreakerConfig),
	})
	return &testServer{router: router, alloc: alloc, jobs: jobs}
}

func (s *testServer) do(t *testing.T, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, path, nil)
	case url.Values:
		req = httptest.NewRequest(method, path, strings.NewReader(b.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) adminHeader(t *testing.T) map[string]string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/token", gin.H{"username": AdminUsername, "password": testPassword}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("token: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp TokenResponse
	decodeBody(t, w, &resp)
	return map[string]string{"Authorization": "Bearer " + resp.Token}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	if w := s.do(t, http.MethodGet, "/health", nil, nil); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	w := s.do(t, http.MethodGet, "/health/deep", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp HealthResponse
	decodeBody(t, w, &resp)
	if p := resp.Dependencies["allocator"]; p.Status != "healthy" || p.Detail != "memory" {
		t.Errorf("unexpected allocator status %+v", p)
	}
	if p := resp.Dependencies["nats"]; p.Status != "disabled" {
		t.Errorf("unexpected nats status %+v", p)
	}
	if resp.Counters == nil || resp.Counters.NextID != allocator.DefaultNextID {
		t.Errorf("unexpected counters %+v", resp.Counters)
	}
	if w := s.do(t, http.MethodGet, "/metrics", nil, nil); w.Code != http.StatusOK {
		t.Errorf("metrics: expected 200, got %d", w.Code)
	}
}

func TestCreatureEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/creatures/4533", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var cr catalog.Creature
	decodeBody(t, w, &cr)
	if cr.Name != "Chó con (Cấp 1)" {
		t.Errorf("unexpected creature %+v", cr)
	}

	if w := s.do(t, http.MethodGet, "/api/v1/creatures/999999", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/v1/creatures/abc", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/v1/creatures?q="+url.QueryEscape("cho con"), nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "4533") {
		t.Errorf("search failed: %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/v1/families", nil, nil)
	var fams struct {
		Count int `json:"count"`
	}
	decodeBody(t, w, &fams)
	if fams.Count != 6 {
		t.Errorf("expected 6 families, got %d", fams.Count)
	}

	w = s.do(t, http.MethodGet, "/api/v1/schemas/crafting", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "material_id10") {
		t.Errorf("crafting schema: %d %s", w.Code, w.Body.String())
	}
	if w := s.do(t, http.MethodGet, "/api/v1/schemas/bogus", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown schema, got %d", w.Code)
	}
}

func TestGenerateAndDownload(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/generate", gin.H{"mod_id": 2, "copy_id": 4533, "author": "tester"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var gen GenerateResponse
	decodeBody(t, w, &gen)
	if gen.ResultID != 4097 || gen.ModID != 2 || len(gen.Files) != 4 {
		t.Errorf("unexpected response %+v", gen)
	}
	if gen.ArchiveName != "4533_Chó_con_Cấp_1.zip" {
		t.Errorf("unexpected archive name %q", gen.ArchiveName)
	}

	w = s.do(t, http.MethodGet, gen.PreviewURL, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("preview: expected 200, got %d", w.Code)
	}
	var preview struct {
		Files []FilePreview `json:"files"`
	}
	decodeBody(t, w, &preview)
	if len(preview.Files) != 4 {
		t.Fatalf("expected 4 previews, got %d", len(preview.Files))
	}
	for _, f := range preview.Files {
		if len([]rune(f.Preview)) > previewLength+3 {
			t.Errorf("%s preview too long", f.Name)
		}
	}

	w = s.do(t, http.MethodGet, gen.DownloadURL, nil, nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/zip" {
		t.Fatalf("download: %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	data := w.Body.Bytes()
	a, err := packaging.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if r := packaging.NewSigner(signingKey).Verify(a); !r.OK() {
		t.Errorf("archive did not verify: %v", r.Problems)
	}

	w = s.do(t, http.MethodGet, "/api/v1/bundles/"+gen.Key+"/files/item4533.json", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"id": 4097`) {
		t.Errorf("single file download failed: %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/v1/bundles/"+gen.Key+"/files/nope.json", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing file, got %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/v1/bundles/unknown/preview", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown bundle, got %d", w.Code)
	}
}

func TestGenerateForm(t *testing.T) {
	s := newTestServer(t)
	form := url.Values{"id_value": {"7"}, "creature_select": {"4533"}, "author_value": {"tester"}}
	w := s.do(t, http.MethodPost, "/api/v1/generate", form, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var gen GenerateResponse
	decodeBody(t, w, &gen)
	if gen.ModID != 7 || gen.ResultID != 4097 {
		t.Errorf("unexpected ids %d/%d", gen.ModID, gen.ResultID)
	}
}

func TestGenerateValidationDoesNotConsumeIDs(t *testing.T) {
	s := newTestServer(t)
	cases := []gin.H{
		{"mod_id": 2, "copy_id": 4533, "author": ""},
		{"mod_id": 0, "copy_id": 4533, "author": "tester"},
		{"mod_id": 2, "copy_id": 1, "author": "tester"},
	}
	for _, body := range cases {
		if w := s.do(t, http.MethodPost, "/api/v1/generate", body, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%v: expected 400, got %d", body, w.Code)
		}
	}
	form := url.Values{"id_value": {"abc"}, "creature_select": {"4533"}, "author_value": {"tester"}}
	if w := s.do(t, http.MethodPost, "/api/v1/generate", form, nil); w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id: expected 400, got %d", w.Code)
	}

	w := s.do(t, http.MethodGet, "/api/v1/counters", nil, nil)
	var state allocator.State
	decodeBody(t, w, &state)
	if state != allocator.DefaultState() {
		t.Errorf("counters moved: %+v", state)
	}
}

func TestCountersReset(t *testing.T) {
	s := newTestServer(t)
	if w := s.do(t, http.MethodPost, "/api/v1/counters/reset", nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/api/v1/auth/token", gin.H{"username": AdminUsername, "password": "wrong"}, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong password, got %d", w.Code)
	}

	s.do(t, http.MethodPost, "/api/v1/generate", gin.H{"mod_id": 2, "copy_id": 4533, "author": "tester"}, nil)
	w := s.do(t, http.MethodPost, "/api/v1/counters/reset", nil, s.adminHeader(t))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var state allocator.State
	decodeBody(t, w, &state)
	if state != allocator.DefaultState() {
		t.Errorf("unexpected state after reset %+v", state)
	}
}

func TestBatchSync(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v1/batch", gin.H{"author": "tester"}, s.adminHeader(t))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var summary BatchSummary
	decodeBody(t, w, &summary)
	if summary.Generated != 6 || summary.Failed != 0 || summary.TotalFiles != 24 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if summary.NextIDAfter != 8 {
		t.Errorf("expected next id 8, got %d", summary.NextIDAfter)
	}
	if !strings.HasPrefix(summary.ArchiveName, "miniworld_auto_mod_tester_") {
		t.Errorf("unexpected archive name %q", summary.ArchiveName)
	}
	if w := s.do(t, http.MethodGet, summary.DownloadURL, nil, nil); w.Code != http.StatusOK {
		t.Errorf("download: expected 200, got %d", w.Code)
	}
}

func TestBatchJob(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminHeader(t)
	w := s.do(t, http.MethodPost, "/api/v1/batch/jobs", gin.H{"author": "tester"}, admin)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var accepted struct {
		JobID     string `json:"job_id"`
		StatusURL string `json:"status_url"`
	}
	decodeBody(t, w, &accepted)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		w = s.do(t, http.MethodGet, accepted.StatusURL, nil, admin)
		var job dispatch.Job[BatchSummary, generator.Progress]
		decodeBody(t, w, &job)
		if job.Status == dispatch.StatusSucceeded {
			if job.Result == nil || job.Result.Generated != 6 {
				t.Errorf("unexpected job result %+v", job.Result)
			}
			return
		}
		if job.Status == dispatch.StatusFailed {
			t.Fatalf("job failed: %s", job.Error)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not finish")
}

func TestBatchStream(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminHeader(t)
	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/api/v1/batch/stream"
	u.RawQuery = url.Values{"author": {"tester"}}.Encode()

	header := http.Header{}
	header.Set("Authorization", admin["Authorization"])
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})

	progress := 0
	for {
		var msg StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		switch msg.Type {
		case "progress":
			progress++
			if msg.Progress == nil || msg.Progress.ModID != int64(progress+1) {
				t.Errorf("unexpected progress %+v", msg.Progress)
			}
		case "done":
			if progress != 6 || msg.Summary == nil || msg.Summary.Generated != 6 {
				t.Errorf("unexpected completion after %d progress messages: %+v", progress, msg.Summary)
			}
			return
		default:
			t.Fatalf("unexpected message %+v", msg)
		}
	}
}
