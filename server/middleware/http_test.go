package middleware_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicenotes/auth"
	"github.com/kbukum/voicenotes/auth/jwt"
	"github.com/kbukum/voicenotes/errors"
	"github.com/kbukum/voicenotes/logger"
	"github.com/kbukum/voicenotes/server/middleware"
)

func init() { gin.SetMode(gin.TestMode) }

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func decodeError(t *testing.T, body io.Reader) errors.ErrorBody {
	t.Helper()
	var resp errors.ErrorResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

func TestRecovery_Panic(t *testing.T) {
	handler := middleware.Recovery(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/notes", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if body := decodeError(t, rr.Body); body.Code != errors.ErrCodeInternal {
		t.Errorf("code = %s", body.Code)
	}
	if strings.Contains(rr.Body.String(), "boom") {
		t.Error("panic value leaked to client")
	}
}

// ---------------------------------------------------------------------------
// RequestID
// ---------------------------------------------------------------------------

func TestRequestID(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))
	if seen == "" || rr.Header().Get(middleware.HeaderRequestID) != seen {
		t.Errorf("generated id %q, header %q", seen, rr.Header().Get(middleware.HeaderRequestID))
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set(middleware.HeaderRequestID, "custom-id-123")
	handler.ServeHTTP(rr, req)
	if got := rr.Header().Get(middleware.HeaderRequestID); got != "custom-id-123" || seen != "custom-id-123" {
		t.Errorf("expected custom-id-123, got header %q ctx %q", got, seen)
	}
}

// ---------------------------------------------------------------------------
// CORS
// ---------------------------------------------------------------------------

func TestCORS(t *testing.T) {
	cfg := middleware.CORSConfig{
		AllowedOrigins:   []string{"https://notes.example.com"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowCredentials: true,
	}
	tests := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantOrigin string
		wantStatus int
	}{
		{"allowed", "GET", "https://notes.example.com", false, "https://notes.example.com", http.StatusOK},
		{"disallowed", "GET", "https://evil.example.com", false, "", http.StatusOK},
		{"preflight", "OPTIONS", "https://notes.example.com", true, "https://notes.example.com", http.StatusNoContent},
		{"plain options", "OPTIONS", "", false, "", http.StatusOK},
	}
	handler := middleware.CORS(cfg)(http.HandlerFunc(okHandler))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/notes", http.NoBody)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", "POST")
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// BodySizeLimit
// ---------------------------------------------------------------------------

func TestBodySizeLimit(t *testing.T) {
	handler := middleware.BodySizeLimit("1KB")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("a", 512))))
	if rr.Code != http.StatusOK {
		t.Errorf("small body: %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("a", 2048))))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("large body: %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Chain and statusWriter
// ---------------------------------------------------------------------------

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+"-before")
				next.ServeHTTP(w, r)
				order = append(order, name+"-after")
			})
		}
	}
	handler := middleware.Chain(mark("m1"), mark("m2"))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", http.NoBody))

	want := "m1-before m2-before handler m2-after m1-after"
	if got := strings.Join(order, " "); got != want {
		t.Errorf("order = %s", got)
	}
}

type flushRecorder struct {
	http.ResponseWriter
	flushed bool
}

func (f *flushRecorder) Flush() { f.flushed = true }

func TestRequestLogger_PreservesFlusher(t *testing.T) {
	fr := &flushRecorder{ResponseWriter: httptest.NewRecorder()}
	handler := middleware.RequestLogger(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.(http.Flusher).Flush()
	}))
	handler.ServeHTTP(fr, httptest.NewRequest("GET", "/api/v1/dictation/note-1/events", http.NoBody))
	if !fr.flushed {
		t.Error("expected Flush to reach the underlying writer")
	}
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func newAuthRouter(t *testing.T) (*gin.Engine, *jwt.Service) {
	t.Helper()
	svc, err := jwt.NewService(jwt.Config{Secret: strings.Repeat("s", 32)})
	if err != nil {
		t.Fatal(err)
	}
	r := gin.New()
	r.Use(middleware.Auth(svc, "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/notes", func(c *gin.Context) {
		claims, _ := auth.ClaimsFrom(c.Request.Context())
		c.String(http.StatusOK, claims.Subject)
	})
	r.POST("/api/v1/notes", middleware.RequireScope("notes:write"), func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r, svc
}

func TestAuth(t *testing.T) {
	r, svc := newAuthRouter(t)
	reader, _ := svc.Issue("alice", []string{"notes:read"})
	writer, _ := svc.Issue("bob", []string{"notes:write"})

	tests := []struct {
		name       string
		method     string
		target     string
		header     string
		wantStatus int
		wantCode   errors.ErrorCode
	}{
		{"skip path", "GET", "/health", "", http.StatusOK, ""},
		{"missing token", "GET", "/api/v1/notes", "", http.StatusUnauthorized, errors.ErrCodeUnauthorized},
		{"bad scheme", "GET", "/api/v1/notes", "Basic abc", http.StatusUnauthorized, errors.ErrCodeUnauthorized},
		{"bad token", "GET", "/api/v1/notes", "Bearer nope", http.StatusUnauthorized, errors.ErrCodeInvalidToken},
		{"valid header", "GET", "/api/v1/notes", "Bearer " + reader, http.StatusOK, ""},
		{"query token", "GET", "/api/v1/notes?access_token=" + reader, "", http.StatusOK, ""},
		{"missing scope", "POST", "/api/v1/notes", "Bearer " + reader, http.StatusForbidden, errors.ErrCodeForbidden},
		{"has scope", "POST", "/api/v1/notes", "Bearer " + writer, http.StatusCreated, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantCode != "" {
				if body := decodeError(t, rr.Body); body.Code != tt.wantCode {
					t.Errorf("code = %s, want %s", body.Code, tt.wantCode)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// RateLimit
// ---------------------------------------------------------------------------

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.POST("/api/v1/ai/tags", middleware.RateLimit(2), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for range 3 {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/ai/tags", http.NoBody)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/ai/tags", http.NoBody)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("other caller limited: %d", rr.Code)
	}
}
