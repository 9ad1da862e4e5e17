package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"backoffice/internal/cfdi"
	"backoffice/internal/queue"
	"backoffice/internal/quotes"
	"backoffice/internal/services/health"
	"backoffice/internal/shared/auth"
	"backoffice/internal/shared/config"
	"backoffice/internal/shared/ratelimit"
	"backoffice/internal/shared/storage/object/local"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "router-test")

	q := queue.NewMemory()
	issuer := &cfdi.Service{
		Jobs:      cfdi.NewMemoryJobRepo(),
		Docs:      cfdi.NewMemoryDocumentRepo(),
		Queue:     q,
		Generator: cfdi.BasicGenerator{},
		Storage:   cfdi.ObjectStorage{Objects: local.New(t.TempDir(), "")},
	}
	repo := quotes.NewMemoryRepo()
	limiter := ratelimit.NewSlidingWindow(nil)
	quoteSvc := &quotes.Service{Repo: repo, OnApprove: issuer}

	return NewRouter(RouterDeps{
		Config:  config.Config{Env: "test", CORSAllowOrigin: []string{"http://localhost:3000"}},
		Limiter: limiter,
		Health:  health.NewService("backoffice", "test", nil, q),
		Quotes:  quotes.NewHandler(quoteSvc, &quotes.TokenGuard{Repo: repo, Service: quoteSvc, Limiter: limiter}),
		CFDI:    cfdi.NewHandler(issuer),
	})
}

func bearer(t *testing.T, roles ...string) string {
	t.Helper()
	token, err := auth.SignJWT(auth.Claims{
		Email:            "ops@example.com",
		Roles:            roles,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "staff-1"},
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + token
}

func call(t *testing.T, r *gin.Engine, method, path, authz string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	var payload map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &payload)
	return resp, payload
}

func TestPublicEndpoints(t *testing.T) {
	r := newTestRouter(t)

	resp, payload := call(t, r, http.MethodGet, "/health", "", nil)
	if resp.Code != http.StatusOK || payload["ok"] != true || payload["service"] != "backoffice" {
		t.Fatalf("unexpected health %d %v", resp.Code, payload)
	}

	resp, payload = call(t, r, http.MethodGet, "/license/status", "", nil)
	if resp.Code != http.StatusOK || payload["status"] != "valid" {
		t.Fatalf("unexpected license status %d %v", resp.Code, payload)
	}
	if v, ok := payload["exp"]; !ok || v != nil {
		t.Fatalf("expected exp null, got %v", payload)
	}

	resp, _ = call(t, r, http.MethodGet, "/metrics", "", nil)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "go_goroutines") {
		t.Fatalf("unexpected metrics response %d", resp.Code)
	}
}

func TestMeReturnsClaims(t *testing.T) {
	r := newTestRouter(t)
	resp, payload := call(t, r, http.MethodGet, "/me", bearer(t, "admin"), nil)
	if resp.Code != http.StatusOK || payload["subject"] != "staff-1" || payload["email"] != "ops@example.com" {
		t.Fatalf("unexpected /me %d %v", resp.Code, payload)
	}
	resp, _ = call(t, r, http.MethodGet, "/me", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestApprovalIssuesDocumentThroughHTTP(t *testing.T) {
	r := newTestRouter(t)
	admin := bearer(t, "admin")

	resp, quote := call(t, r, http.MethodPost, "/quotes/", bearer(t, "staff"), gin.H{"customer": "ACME", "total": 50})
	if resp.Code != http.StatusOK {
		t.Fatalf("create quote: %d %s", resp.Code, resp.Body.String())
	}
	token, _ := quote["token"].(string)

	resp, check := call(t, r, http.MethodPost, "/quotes/approve-check", "", gin.H{"token": "  " + token + "  "})
	if resp.Code != http.StatusOK || check["ok"] != true || check["quote_id"] != quote["id"] {
		t.Fatalf("approve-check: %d %v", resp.Code, check)
	}

	resp, confirmed := call(t, r, http.MethodPost, "/quotes/approve-confirm", "", gin.H{"token": token})
	if resp.Code != http.StatusOK || confirmed["status"] != quotes.StatusApproved {
		t.Fatalf("approve-confirm: %d %v", resp.Code, confirmed)
	}

	resp, _ = call(t, r, http.MethodGet, "/cfdi/pending?status=pending", admin, nil)
	var jobs []cfdi.Job
	if err := json.Unmarshal(resp.Body.Bytes(), &jobs); err != nil || len(jobs) != 1 || jobs[0].QuoteID != quote["id"] {
		t.Fatalf("expected one pending job, got %s", resp.Body.String())
	}

	resp, out := call(t, r, http.MethodPost, "/cfdi/process-pending", admin, gin.H{"limit": 10})
	if resp.Code != http.StatusOK || out["processed"] != float64(1) {
		t.Fatalf("process-pending: %d %v", resp.Code, out)
	}

	resp, job := call(t, r, http.MethodGet, "/cfdi/pending/"+jobs[0].ID, admin, nil)
	if resp.Code != http.StatusOK || job["status"] != cfdi.JobSent {
		t.Fatalf("expected sent job, got %d %v", resp.Code, job)
	}
}

func TestPublicRoutesAreThrottledPerIP(t *testing.T) {
	r := newTestRouter(t)
	for i := 0; i < publicLimitPerMin; i++ {
		// Distinct tokens keep the per-token buckets out of the way.
		resp, _ := call(t, r, http.MethodPost, "/quotes/approve-check", "", gin.H{"token": "tok-" + string(rune('a'+i%26)) + string(rune('a'+i/26))})
		if resp.Code != http.StatusOK {
			t.Fatalf("call %d: expected 200, got %d", i+1, resp.Code)
		}
	}
	resp, payload := call(t, r, http.MethodPost, "/quotes/approve-check", "", gin.H{"token": "another"})
	if resp.Code != http.StatusTooManyRequests || payload["detail"] != "rate_limited" {
		t.Fatalf("expected 429 rate_limited, got %d %v", resp.Code, payload)
	}
	if resp.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
