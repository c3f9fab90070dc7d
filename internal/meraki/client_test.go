package meraki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return New(Config{
		BaseURL: srv.URL,
		APIKey:  "test-key-123",
		Logger:  testLogger(),
	})
}

func TestClient_RequestHeaders(t *testing.T) {
	var gotAuth, gotAccept, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":"123","name":"Acme"}]`)
	}))
	defer srv.Close()

	client := testClient(t, srv)

	orgs, err := client.GetOrganizations(context.Background())
	if err != nil {
		t.Fatalf("GetOrganizations failed: %v", err)
	}

	if gotAuth != "Bearer test-key-123" {
		t.Errorf("Authorization = %q, want Bearer test-key-123", gotAuth)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
	if gotAgent != userAgent {
		t.Errorf("User-Agent = %q, want %q", gotAgent, userAgent)
	}
	if len(orgs) != 1 || orgs[0].ID != "123" || orgs[0].Name != "Acme" {
		t.Errorf("orgs = %+v, want one org 123/Acme", orgs)
	}
}

func TestClient_Pagination(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("startingAfter") == "" {
			w.Header().Set("Link", fmt.Sprintf(`<%s/organizations/1/networks?perPage=1000&startingAfter=N_2>; rel=next`, srv.URL))
			fmt.Fprint(w, `[{"id":"N_1","organizationId":"1","name":"Branch A"},{"id":"N_2","organizationId":"1","name":"Branch B"}]`)
			return
		}
		fmt.Fprint(w, `[{"id":"N_3","organizationId":"1","name":"Branch C"}]`)
	}))
	defer srv.Close()

	client := testClient(t, srv)

	networks, err := client.GetOrganizationNetworks(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetOrganizationNetworks failed: %v", err)
	}
	if len(networks) != 3 {
		t.Fatalf("got %d networks, want 3", len(networks))
	}
	if networks[2].ID != "N_3" {
		t.Errorf("last network ID = %q, want N_3", networks[2].ID)
	}
}

func TestClient_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"errors":["API rate limit exceeded"]}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":"123","name":"Acme"}]`)
	}))
	defer srv.Close()

	client := testClient(t, srv)

	start := time.Now()
	orgs, err := client.GetOrganizations(context.Background())
	if err != nil {
		t.Fatalf("GetOrganizations failed after retry: %v", err)
	}
	if len(orgs) != 1 {
		t.Fatalf("got %d orgs, want 1", len(orgs))
	}
	if calls.Load() != 2 {
		t.Errorf("server saw %d calls, want 2", calls.Load())
	}
	if elapsed := time.Since(start); elapsed < 1*time.Second {
		t.Errorf("retry happened after %v, want at least the Retry-After second", elapsed)
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errors":["perPage must be between 3 and 1000"]}`)
	}))
	defer srv.Close()

	client := testClient(t, srv)

	_, err := client.GetOrganizations(context.Background())
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if calls.Load() != 1 {
		t.Errorf("server saw %d calls, want 1 (no retries on 4xx)", calls.Load())
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v is not an *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", apiErr.StatusCode)
	}
	if len(apiErr.Errors) != 1 || apiErr.Errors[0] != "perPage must be between 3 and 1000" {
		t.Errorf("Errors = %v, want the body message", apiErr.Errors)
	}
}

func TestClient_ErrorSentinels(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"errors":["nope"]}`)
			}))
			defer srv.Close()

			client := testClient(t, srv)

			_, err := client.GetOrganization(context.Background(), "999")
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false, want true", err, tt.want)
			}
		})
	}
}

type fakeResponseCache struct {
	store map[string][]byte
	hits  int
	sets  int
}

func (f *fakeResponseCache) GetResponse(_ context.Context, requestURL string) ([]byte, bool) {
	body, ok := f.store[requestURL]
	if ok {
		f.hits++
	}
	return body, ok
}

func (f *fakeResponseCache) SetResponse(_ context.Context, requestURL string, body []byte) error {
	f.store[requestURL] = body
	f.sets++
	return nil
}

func TestClient_CachedResponsesSkipHTTP(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"id":"123","name":"Acme"}]`)
	}))
	defer srv.Close()

	cache := &fakeResponseCache{store: make(map[string][]byte)}
	client := New(Config{
		BaseURL: srv.URL,
		APIKey:  "test-key-123",
		Logger:  testLogger(),
		Cache:   cache,
	})

	ctx := context.Background()
	if _, err := client.GetOrganizations(ctx); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if _, err := client.GetOrganizations(ctx); err != nil {
		t.Fatalf("second call failed: %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("server saw %d calls, want 1 (second served from cache)", calls.Load())
	}
	if cache.hits != 1 {
		t.Errorf("cache hits = %d, want 1", cache.hits)
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}
}

func TestClient_UpdateDeviceTags(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"serial":"Q2AA-0001","tags":["branch","wifi"]}`)
	}))
	defer srv.Close()

	client := testClient(t, srv)

	device, err := client.UpdateDeviceTags(context.Background(), "Q2AA-0001", []string{"branch", "wifi"})
	if err != nil {
		t.Fatalf("UpdateDeviceTags failed: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("method = %q, want PUT", gotMethod)
	}
	if gotPath != "/devices/Q2AA-0001" {
		t.Errorf("path = %q, want /devices/Q2AA-0001", gotPath)
	}
	if gotBody != `{"tags":["branch","wifi"]}` {
		t.Errorf("body = %q, want tags payload", gotBody)
	}
	if len(device.Tags) != 2 {
		t.Errorf("device tags = %v, want 2 entries", device.Tags)
	}
}

func TestParseNextLink(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{
			name:   "quoted rel",
			header: `<https://api.meraki.com/api/v1/organizations/1/networks?startingAfter=N_2>; rel="next"`,
			want:   "https://api.meraki.com/api/v1/organizations/1/networks?startingAfter=N_2",
		},
		{
			name:   "bare rel",
			header: `<https://api.meraki.com/api/v1/organizations/1/networks?startingAfter=N_2>; rel=next`,
			want:   "https://api.meraki.com/api/v1/organizations/1/networks?startingAfter=N_2",
		},
		{
			name:   "multiple relations",
			header: `<https://x/first>; rel=first, <https://x/next>; rel=next, <https://x/last>; rel=last`,
			want:   "https://x/next",
		},
		{
			name:   "no next",
			header: `<https://x/first>; rel=first, <https://x/prev>; rel=prev`,
			want:   "",
		},
		{
			name:   "empty header",
			header: "",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseNextLink(tt.header); got != tt.want {
				t.Errorf("parseNextLink(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestParseErrorBody(t *testing.T) {
	got := parseErrorBody([]byte(`{"errors":["first","second"]}`))
	if len(got) != 2 || got[0] != "first" {
		t.Errorf("parseErrorBody = %v, want [first second]", got)
	}

	if got := parseErrorBody([]byte(`not json`)); got != nil {
		t.Errorf("parseErrorBody on garbage = %v, want nil", got)
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://api.meraki.com/api/v1/devices?serials[]=Q2AA-0001")
	if got != "https://api.meraki.com/api/v1/devices" {
		t.Errorf("redactURL = %q, want query stripped", got)
	}
	if got := redactURL("https://api.meraki.com/api/v1/organizations"); got != "https://api.meraki.com/api/v1/organizations" {
		t.Errorf("redactURL without query = %q, want unchanged", got)
	}
}
