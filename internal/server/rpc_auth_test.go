package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// dummyHandler is a simple handler that returns 200 OK for testing the auth middleware.
var dummyHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func TestRequireToken(t *testing.T) {
	const secret = "test-secret-12345"
	tests := []struct {
		name   string
		secret string
		header string
		target string
		want   int
	}{
		{"bearer header", secret, "Bearer " + secret, "/jsonrpc", http.StatusOK},
		{"query token", secret, "", "/jsonrpc/ws?token=" + secret, http.StatusOK},
		{"missing", secret, "", "/jsonrpc", http.StatusUnauthorized},
		{"wrong token", secret, "Bearer nope", "/jsonrpc", http.StatusUnauthorized},
		{"no bearer prefix", secret, secret, "/jsonrpc", http.StatusUnauthorized},
		{"header wins over query", secret, "Bearer nope", "/jsonrpc?token=" + secret, http.StatusUnauthorized},
		{"empty secret", "", "Bearer ", "/jsonrpc", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			requireToken(tt.secret, dummyHandler).ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestRequireToken_ErrorBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/jsonrpc", nil)
	rr := httptest.NewRecorder()
	requireToken("s3cret", dummyHandler).ServeHTTP(rr, req)

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["jsonrpc"] != "2.0" {
		t.Fatalf("expected jsonrpc 2.0, got %v", resp["jsonrpc"])
	}
	errObj, ok := resp["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object, got %v", resp["error"])
	}
	if errObj["code"].(float64) != -32600 {
		t.Fatalf("expected error code -32600, got %v", errObj["code"])
	}
	if errObj["message"] != "Unauthorized" {
		t.Fatalf("expected Unauthorized, got %v", errObj["message"])
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
}

func TestValidToken(t *testing.T) {
	if validToken("a", "") {
		t.Error("empty token must not validate")
	}
	if validToken("", "") {
		t.Error("empty secret must not validate")
	}
	if !validToken("abc", "abc") {
		t.Error("matching token should validate")
	}
	if validToken("abc", "abcd") {
		t.Error("longer token must not validate")
	}
}
