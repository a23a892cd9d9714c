package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/scottschatz/software-capitalization-sub001/internal/api"
)

func TestClient_RequestHeaders(t *testing.T) {
	var gotAuth, gotVersion, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get(api.ClientVersionHeader)
		gotContentType = r.Header.Get("Content-Type")
		json.NewEncoder(w).Encode(api.SyncResponse{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", "1.2.3")
	if _, err := client.SubmitBatch(context.Background(), api.SyncRequest{Developer: "jane"}); err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotVersion != "1.2.3" {
		t.Errorf("client version header = %q", gotVersion)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
}

func TestClient_NoTokenOmitsAuthorization(t *testing.T) {
	var gotAuth string
	var present bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth, present = r.Header.Get("Authorization"), len(r.Header.Values("Authorization")) > 0
		json.NewEncoder(w).Encode([]api.ProjectRecord{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "1.0.0")
	if _, err := client.KnownProjects(context.Background(), "jane"); err != nil {
		t.Fatalf("KnownProjects: %v", err)
	}
	if present {
		t.Errorf("Authorization sent without configured token: %q", gotAuth)
	}
}

func TestClient_KnownProjects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/projects" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("developer"); got != "jane+dev@example.com" {
			t.Errorf("developer = %q", got)
		}
		json.NewEncoder(w).Encode([]api.ProjectRecord{{Name: "myapp", LocalPath: "/home/dev/myapp"}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "1.0.0")
	projects, err := client.KnownProjects(context.Background(), "jane+dev@example.com")
	if err != nil {
		t.Fatalf("KnownProjects: %v", err)
	}
	if len(projects) != 1 || projects[0].Name != "myapp" {
		t.Errorf("projects = %+v", projects)
	}
}

func TestClient_SubmitBatchRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.SyncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Developer != "jane" || req.SyncType != api.SyncBackfill {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(api.SyncResponse{SessionsCreated: 3, SyncLogID: 7})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "1.0.0")
	resp, err := client.SubmitBatch(context.Background(), api.SyncRequest{
		Developer: "jane",
		SyncType:  api.SyncBackfill,
	})
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if resp.SessionsCreated != 3 || resp.SyncLogID != 7 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestClient_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "invalid or missing bearer token"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "wrong", "1.0.0")
	_, err := client.SubmitBatch(context.Background(), api.SyncRequest{Developer: "jane"})
	if err == nil {
		t.Fatal("expected error")
	}
	want := "store returned 401: invalid or missing bearer token"
	if got := err.Error(); !strings.Contains(got, want) {
		t.Errorf("error = %q, want substring %q", got, want)
	}
}

func TestClient_ErrorWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "1.0.0")
	_, err := client.KnownProjects(context.Background(), "jane")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); !strings.Contains(got, "store returned 502") {
		t.Errorf("error = %q", got)
	}
}
