package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spacesedan/sportsdigest/internal/models"
)

type fakeRunner struct {
	lastReq models.DigestRequest
	resp    models.DigestResponse
}

func (f *fakeRunner) Run(_ context.Context, req models.DigestRequest) models.DigestResponse {
	f.lastReq = req
	return f.resp
}

func TestHealthEndpoint(t *testing.T) {
	srv := New(&fakeRunner{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
}

func TestDigestEndpoint(t *testing.T) {
	runner := &fakeRunner{
		resp: models.DigestResponse{
			Summary:     "Your digest.",
			SourcesUsed: []string{"espn"},
			QualityTag:  models.QualityFresh,
		},
	}
	srv := New(runner)

	body := `{"userId":"user-1","maxArticles":5,"forceRefresh":true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/digest", strings.NewReader(body))
	rec := httptest.NewRecorder()

	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", rec.Code, rec.Body.String())
	}

	if runner.lastReq.UserID != "user-1" || runner.lastReq.MaxArticles != 5 || !runner.lastReq.ForceRefresh {
		t.Errorf("runner got %+v", runner.lastReq)
	}

	var resp models.DigestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshaling response: %v", err)
	}
	if resp.Summary != "Your digest." || resp.QualityTag != models.QualityFresh {
		t.Errorf("got response %+v", resp)
	}
}

func TestDigestEndpointValidation(t *testing.T) {
	srv := New(&fakeRunner{})

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", "{not json"},
		{"missing userId", `{"maxArticles":3}`},
		{"negative maxArticles", `{"userId":"user-1","maxArticles":-1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/digest", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			srv.Routes().ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("got status %d, want 400", rec.Code)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshaling error response: %v", err)
			}
			if resp.Error != "bad_request" || resp.Message == "" {
				t.Errorf("got error response %+v", resp)
			}
		})
	}
}
