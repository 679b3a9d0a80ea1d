package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/motionworks/workspace/internal/config"
	"github.com/motionworks/workspace/internal/handler"
	"github.com/motionworks/workspace/internal/middleware"
	"github.com/motionworks/workspace/internal/model"
	"github.com/motionworks/workspace/internal/session"
)

const testJWTSecret = "test-secret-for-e2e"

// fakeBackend simulates the remote generation backend: every submission is
// accepted, and status calls walk a fixed script to finished.
type fakeBackend struct {
	srv *httptest.Server

	mu      sync.Mutex
	submits int
	polls   map[string]int
	script  []model.StatusResponse
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{
		polls: make(map[string]int),
		script: []model.StatusResponse{
			{Status: model.JobStatusQueued},
			{Status: model.JobStatusProcessing, Progress: 50},
			{Status: model.JobStatusFinished, Progress: 100, OutputPath: "/outputs/result.mp4"},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.submits++
		jobID := "e2e-job-" + time.Now().Format("150405.000000000")
		fb.polls[jobID] = 0
		fb.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(model.SubmitResponse{JobID: jobID, Status: model.JobStatusQueued})
	})
	mux.HandleFunc("/api/status/", func(w http.ResponseWriter, r *http.Request) {
		jobID := strings.TrimPrefix(r.URL.Path, "/api/status/")

		fb.mu.Lock()
		n, ok := fb.polls[jobID]
		if ok {
			fb.polls[jobID] = n + 1
		}
		fb.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		if n >= len(fb.script) {
			n = len(fb.script) - 1
		}
		resp := fb.script[n]
		resp.JobID = jobID

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

// testApp holds the components needed for testing.
type testApp struct {
	app     *fiber.App
	session *session.Session
	backend *fakeBackend
	auth    *middleware.AuthMiddleware
}

// setupApp creates a Fiber app identical to the gateway main but pointed at
// a fake backend with a millisecond poll interval.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	backend := newFakeBackend(t)

	validate := validator.New()

	sess := session.New(&config.BackendConfig{
		BaseURL:      backend.srv.URL,
		PollInterval: 5 * time.Millisecond,
		MaxPolls:     100,
	}, nil)

	workspaceHandler := handler.NewWorkspaceHandler(sess, validate)
	imageHandler := handler.NewImageHandler(sess.Images)
	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)

	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	workspace := app.Group("/workspace", authMiddleware.Authenticate())

	workspace.Get("/images", imageHandler.ListSlots)
	workspace.Post("/images/:slotId", imageHandler.UploadSlot)
	workspace.Delete("/images/:slotId", imageHandler.ClearSlot)

	workspace.Get("/workflow", workspaceHandler.GetWorkflow)
	workspace.Post("/workflow", workspaceHandler.SelectWorkflow)
	workspace.Post("/workflow/toggle", workspaceHandler.ToggleSegmentMode)

	workspace.Post("/generate", workspaceHandler.Generate)
	workspace.Get("/jobs", workspaceHandler.ListJobs)
	workspace.Get("/jobs/:jobId", workspaceHandler.JobStatus)
	workspace.Post("/jobs/:jobId/cancel", workspaceHandler.CancelJob)

	return &testApp{
		app:     app,
		session: sess,
		backend: backend,
		auth:    authMiddleware,
	}
}

// generateToken creates an HMAC JWT token for test requests.
func generateToken(t *testing.T, ta *testApp) string {
	t.Helper()
	token, err := ta.auth.GenerateToken("test-user-123")
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// doRequest performs an HTTP request against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, ta *testApp, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t, ta)
	return doRequest(ta.app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// uploadImage performs an authenticated multipart upload into a slot.
func uploadImage(t *testing.T, ta *testApp, slotID, contentType string, data []byte) (*http.Response, error) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="frame.png"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("failed to create multipart part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write multipart part: %v", err)
	}
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, "/workspace/images/"+slotID, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+generateToken(t, ta))

	return ta.app.Test(req, -1)
}

// waitForJobStatus polls the gateway until the job reaches a terminal state.
func waitForJobStatus(t *testing.T, ta *testApp, jobID string) map[string]interface{} {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := doAuthRequest(t, ta, http.MethodGet, "/workspace/jobs/"+jobID, "")
		if err != nil {
			t.Fatalf("status request failed: %v", err)
		}
		result := parseJSON(t, resp)
		status, _ := result["status"].(string)
		if model.JobStatus(status).Terminal() {
			return result
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", jobID)
	return nil
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
