package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError_Envelope(t *testing.T) {
	rr := httptest.NewRecorder()
	BadRequest(rr, CodeValidation, "content too long", "rid-1", map[string]any{"max": 500})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != CodeValidation || resp.Error.RequestID != "rid-1" {
		t.Fatalf("unexpected error body: %+v", resp.Error)
	}
	if resp.Error.Details["max"] != float64(500) {
		t.Fatalf("expected details.max=500, got %v", resp.Error.Details["max"])
	}
}

func TestInternal_HidesCause(t *testing.T) {
	rr := httptest.NewRecorder()
	Internal(rr, "")

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var resp ErrorResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error.Message != "Internal server error" {
		t.Fatalf("unexpected message %q", resp.Error.Message)
	}
}
