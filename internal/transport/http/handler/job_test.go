package handler_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/olmedhq/erp-gateway/internal/registry"
	"github.com/olmedhq/erp-gateway/internal/transport/http/handler"
)

func newJobRouter() (*gin.Engine, *registry.Registry) {
	gin.SetMode(gin.TestMode)

	reg := registry.New()
	h := handler.NewJobHandler(reg, slog.Default())

	r := gin.New()
	r.POST("/jobs", h.Upsert)
	r.GET("/jobs", h.List)
	r.GET("/jobs/:id", h.GetByID)
	r.PATCH("/jobs/:id/active", h.SetActive)
	r.DELETE("/jobs/:id", h.Remove)
	return r, reg
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const intervalJob = `{
	"id": "ping",
	"schedule": {
		"kind": "interval",
		"interval_seconds": 30,
		"request": {"method": "GET", "url": "https://erp.olmed.example/api/health"}
	}
}`

func TestUpsert_RegistersIntervalJob(t *testing.T) {
	r, reg := newJobRouter()

	w := doJSON(r, http.MethodPost, "/jobs", intervalJob)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["id"] != "ping" || resp["is_active"] != true {
		t.Fatalf("unexpected response %v", resp)
	}

	if _, err := reg.Get("ping"); err != nil {
		t.Fatalf("job must land in the registry: %v", err)
	}
}

func TestUpsert_WeeklyWithoutDayOfWeekRejected(t *testing.T) {
	r, reg := newJobRouter()

	w := doJSON(r, http.MethodPost, "/jobs", `{
		"id": "weekly-report",
		"schedule": {
			"kind": "weekly",
			"hour": 9,
			"minute": 30,
			"request": {"method": "POST", "url": "https://erp.olmed.example/api/reports"}
		}
	}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d: %s", w.Code, w.Body.String())
	}
	if _, err := reg.Get("weekly-report"); err == nil {
		t.Fatal("rejected job must not enter the registry")
	}
}

func TestUpsert_UnknownMethodRejectedByBinding(t *testing.T) {
	r, _ := newJobRouter()

	w := doJSON(r, http.MethodPost, "/jobs", `{
		"id": "bad-method",
		"schedule": {
			"kind": "interval",
			"interval_seconds": 30,
			"request": {"method": "TRACE", "url": "https://erp.olmed.example/api/health"}
		}
	}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", w.Code)
	}
}

func TestGetByID_MissingJob(t *testing.T) {
	r, _ := newJobRouter()

	w := doJSON(r, http.MethodGet, "/jobs/ghost", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", w.Code)
	}
}

func TestRemove_ExistingAndMissing(t *testing.T) {
	r, _ := newJobRouter()

	if w := doJSON(r, http.MethodPost, "/jobs", intervalJob); w.Code != http.StatusOK {
		t.Fatalf("setup failed: %d", w.Code)
	}

	if w := doJSON(r, http.MethodDelete, "/jobs/ping", ""); w.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d", w.Code)
	}
	if w := doJSON(r, http.MethodDelete, "/jobs/ping", ""); w.Code != http.StatusNotFound {
		t.Fatalf("want 404 on second delete, got %d", w.Code)
	}
}

func TestSetActive_PausesAndResumes(t *testing.T) {
	r, reg := newJobRouter()

	if w := doJSON(r, http.MethodPost, "/jobs", intervalJob); w.Code != http.StatusOK {
		t.Fatalf("setup failed: %d", w.Code)
	}

	w := doJSON(r, http.MethodPatch, "/jobs/ping/active", `{"active": false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["is_active"] != false {
		t.Fatalf("job should be paused, got %v", resp)
	}
	job, err := reg.Get("ping")
	if err != nil || job.IsActive {
		t.Fatalf("registry should hold a paused job, got %+v err %v", job, err)
	}

	if w := doJSON(r, http.MethodPatch, "/jobs/ping/active", `{"active": true}`); w.Code != http.StatusOK {
		t.Fatalf("resume: want 200, got %d", w.Code)
	}
	job, _ = reg.Get("ping")
	if !job.IsActive {
		t.Fatal("job should be active again")
	}
}

func TestSetActive_MissingJobAndMissingField(t *testing.T) {
	r, _ := newJobRouter()

	if w := doJSON(r, http.MethodPatch, "/jobs/ghost/active", `{"active": true}`); w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", w.Code)
	}

	if w := doJSON(r, http.MethodPost, "/jobs", intervalJob); w.Code != http.StatusOK {
		t.Fatalf("setup failed: %d", w.Code)
	}
	if w := doJSON(r, http.MethodPatch, "/jobs/ping/active", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 when active is omitted, got %d", w.Code)
	}
}

func TestList_ReturnsRegisteredJobs(t *testing.T) {
	r, _ := newJobRouter()

	if w := doJSON(r, http.MethodPost, "/jobs", intervalJob); w.Code != http.StatusOK {
		t.Fatalf("setup failed: %d", w.Code)
	}

	w := doJSON(r, http.MethodGet, "/jobs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}

	var resp struct {
		Jobs []map[string]any `json:"jobs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Jobs) != 1 || resp.Jobs[0]["id"] != "ping" {
		t.Fatalf("unexpected jobs %v", resp.Jobs)
	}
}
