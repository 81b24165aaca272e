package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		preflight   bool
		wantCalled  bool
		wantStatus  int
		wantGranted string
	}{
		{
			name:        "listed origin",
			allowed:     []string{"https://forms.example"},
			method:      http.MethodPost,
			origin:      "https://forms.example",
			wantCalled:  true,
			wantStatus:  http.StatusOK,
			wantGranted: "https://forms.example",
		},
		{
			name:       "unknown origin",
			allowed:    []string{"https://forms.example"},
			method:     http.MethodPost,
			origin:     "https://unknown.example",
			wantCalled: true,
			wantStatus: http.StatusOK,
		},
		{
			name:        "wildcard echoes origin",
			allowed:     []string{"*"},
			method:      http.MethodPost,
			origin:      "https://random.example",
			wantCalled:  true,
			wantStatus:  http.StatusOK,
			wantGranted: "https://random.example",
		},
		{
			name:       "no origin header",
			allowed:    []string{"*"},
			method:     http.MethodPost,
			wantCalled: true,
			wantStatus: http.StatusOK,
		},
		{
			name:        "preflight short-circuits",
			allowed:     []string{" https://forms.example ", ""},
			method:      http.MethodOptions,
			origin:      "https://forms.example",
			preflight:   true,
			wantStatus:  http.StatusNoContent,
			wantGranted: "https://forms.example",
		},
		{
			name:       "preflight from unknown origin gets no grant",
			allowed:    nil,
			method:     http.MethodOptions,
			origin:     "https://forms.example",
			preflight:  true,
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "bare OPTIONS reaches handler",
			allowed:    []string{"https://forms.example"},
			method:     http.MethodOptions,
			origin:     "https://forms.example",
			wantCalled: true,
			wantStatus: http.StatusOK,
			// still granted, it is just not a preflight
			wantGranted: "https://forms.example",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "/leads/form", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()

			CORS(tt.allowed)(next).ServeHTTP(rec, req)

			if called != tt.wantCalled {
				t.Fatalf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantGranted {
				t.Fatalf("allow origin = %q, want %q", got, tt.wantGranted)
			}
		})
	}
}

func TestCORSAdvertisesLeadFormHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/leads/form", nil)
	req.Header.Set("Origin", "https://forms.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()

	CORS([]string{"https://forms.example"})(http.NotFoundHandler()).ServeHTTP(rec, req)

	want := map[string]string{
		"Access-Control-Allow-Methods":  "GET, POST, OPTIONS",
		"Access-Control-Allow-Headers":  "Content-Type, X-Request-ID",
		"Access-Control-Expose-Headers": RequestIDHeader,
		"Access-Control-Max-Age":        "600",
		"Vary":                          "Origin",
	}
	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
}
