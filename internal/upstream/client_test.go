package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sdfrontend/internal/config"
	"sdfrontend/internal/core"

	"github.com/bytedance/sonic"
)

func testSettings() config.HTTPClientSettings {
	settings := config.DefaultHTTPClientSettings()
	settings.SubmitTimeout = 2 * time.Second
	settings.DiscoveryTimeout = time.Second
	settings.HealthTimeout = 200 * time.Millisecond
	return settings
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{BaseURL: srv.URL, Settings: testSettings(), Logger: &core.NopLogger{}})
}

// unreachableURL returns the address of a server that has already been shut down.
func unreachableURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestClient_ListModels(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != core.SDAPIModelsPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `[{"title":"a","model_name":"v1-5-pruned"},{"title":"b","model_name":"sdxl_base"},{"title":"c"}]`)
	})

	models := client.ListModels(context.Background())
	if len(models) != 2 || models[0] != "v1-5-pruned" || models[1] != "sdxl_base" {
		t.Errorf("unexpected models %v", models)
	}
}

func TestClient_ListSamplers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != core.SDAPISamplersPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `[{"name":"Euler a","aliases":["k_euler_a"]},{"name":"DPM++ 2M"}]`)
	})

	samplers := client.ListSamplers(context.Background())
	if len(samplers) != 2 || samplers[0] != "Euler a" || samplers[1] != "DPM++ 2M" {
		t.Errorf("unexpected samplers %v", samplers)
	}
}

func TestClient_DiscoveryDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-JSON body", func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "<html>oops</html>") }},
		{"object instead of array", func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, `{"detail":"Not Found"}`) }},
		{"array of strings", func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, `["Euler"]`) }},
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"empty body", func(w http.ResponseWriter, r *http.Request) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			models := client.ListModels(context.Background())
			samplers := client.ListSamplers(context.Background())
			if models == nil || len(models) != 0 {
				t.Errorf("expected empty non-nil models, got %#v", models)
			}
			if samplers == nil || len(samplers) != 0 {
				t.Errorf("expected empty non-nil samplers, got %#v", samplers)
			}
		})
	}
}

func TestClient_DiscoveryUnreachable(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: unreachableURL(t), Settings: testSettings()})
	if models := client.ListModels(context.Background()); len(models) != 0 {
		t.Errorf("expected no models, got %v", models)
	}
	if samplers := client.ListSamplers(context.Background()); len(samplers) != 0 {
		t.Errorf("expected no samplers, got %v", samplers)
	}
}

func TestClient_SubmitSendsJSON(t *testing.T) {
	var received core.Txt2ImgPayload
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != core.SDAPITxt2ImgPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get(core.HeaderContentType); ct != core.ContentTypeJSON {
			t.Errorf("unexpected content type %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := sonic.Unmarshal(body, &received); err != nil {
			t.Errorf("payload is not JSON: %v", err)
		}
		_, _ = io.WriteString(w, `{"images":["aGVsbG8="]}`)
	})

	result, err := client.Submit(context.Background(), core.SDAPITxt2ImgPath, core.Txt2ImgPayload{Prompt: "cat astronaut", Steps: 1, Seed: -1})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !result.IsSuccess() {
		t.Errorf("expected success, got %d", result.StatusCode)
	}
	if string(result.Body) != `{"images":["aGVsbG8="]}` {
		t.Errorf("unexpected body %s", result.Body)
	}
	if received.Prompt != "cat astronaut" || received.Steps != 1 || received.Seed != -1 {
		t.Errorf("payload not forwarded intact: %+v", received)
	}
}

func TestClient_SubmitNon2xxIsResultNotError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":"invalid sampler"}`)
	})

	result, err := client.Submit(context.Background(), core.SDAPIImg2ImgPath, map[string]any{})
	if err != nil {
		t.Fatalf("non-2xx should not be an error: %v", err)
	}
	if result.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want 422", result.StatusCode)
	}
	if string(result.Body) != `{"detail":"invalid sampler"}` {
		t.Errorf("unexpected body %s", result.Body)
	}
}

func TestClient_SubmitUnreachable(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: unreachableURL(t), Settings: testSettings()})

	result, err := client.Submit(context.Background(), core.SDAPITxt2ImgPath, map[string]any{})
	if result != nil {
		t.Errorf("expected nil result, got %+v", result)
	}
	if !errors.Is(err, core.ErrUpstreamUnreachable) {
		t.Fatalf("expected ErrUpstreamUnreachable, got %v", err)
	}
}

func TestClient_SubmitTimeoutIsUnreachable(t *testing.T) {
	settings := testSettings()
	settings.SubmitTimeout = 50 * time.Millisecond

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, Settings: settings})
	_, err := client.Submit(context.Background(), core.SDAPITxt2ImgPath, map[string]any{})
	if !errors.Is(err, core.ErrUpstreamUnreachable) {
		t.Fatalf("timeout should be reported as unreachable, got %v", err)
	}
}

func TestClient_SubmitUnmarshalablePayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})

	_, err := client.Submit(context.Background(), core.SDAPITxt2ImgPath, map[string]any{"bad": make(chan int)})
	if err == nil {
		t.Fatal("expected marshal error")
	}
	if errors.Is(err, core.ErrUpstreamUnreachable) {
		t.Error("marshal failure is not a connectivity failure")
	}
}

func TestClient_HealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"ok", http.StatusOK, true},
		{"no content is not ok", http.StatusNoContent, false},
		{"server error", http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != core.SDAPISamplersPath {
					t.Errorf("health check should probe samplers, got %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			})
			if got := client.HealthCheck(context.Background()); got != tt.want {
				t.Errorf("HealthCheck() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_HealthCheckUnreachableAndSlow(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: unreachableURL(t), Settings: testSettings()})
	if client.HealthCheck(context.Background()) {
		t.Error("unreachable upstream must not be healthy")
	}

	slow := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	if slow.HealthCheck(context.Background()) {
		t.Error("upstream slower than the health timeout must not be healthy")
	}
}

type recordingMetrics struct {
	endpoints []string
}

func (m *recordingMetrics) RecordGeneration(mode, outcome string, duration time.Duration) {}
func (m *recordingMetrics) RecordUpstreamCall(endpoint string, duration time.Duration) {
	m.endpoints = append(m.endpoints, endpoint)
}

func TestClient_RecordsUpstreamCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	metrics := &recordingMetrics{}
	client := NewClient(ClientConfig{BaseURL: srv.URL, Settings: testSettings(), Metrics: metrics})
	client.ListSamplers(context.Background())
	_, _ = client.Submit(context.Background(), core.SDAPITxt2ImgPath, map[string]any{})

	if len(metrics.endpoints) != 2 || metrics.endpoints[0] != core.SDAPISamplersPath || metrics.endpoints[1] != core.SDAPITxt2ImgPath {
		t.Errorf("unexpected recorded endpoints %v", metrics.endpoints)
	}
}

func TestNewClient_ZeroSettingsUseDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case core.SDAPISamplersPath:
			_, _ = io.WriteString(w, `[{"name":"Euler a"}]`)
		default:
			_, _ = io.WriteString(w, `{"images":["aGVsbG8="]}`)
		}
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL})

	defaults := config.DefaultHTTPClientSettings()
	if client.settings.SubmitTimeout != defaults.SubmitTimeout ||
		client.settings.DiscoveryTimeout != defaults.DiscoveryTimeout ||
		client.settings.HealthTimeout != defaults.HealthTimeout {
		t.Errorf("zero timeouts should take the defaults, got %+v", client.settings)
	}
	if client.BaseURL() != srv.URL {
		t.Errorf("BaseURL() = %q, want %q", client.BaseURL(), srv.URL)
	}

	if samplers := client.ListSamplers(context.Background()); len(samplers) != 1 || samplers[0] != "Euler a" {
		t.Errorf("unexpected samplers %v", samplers)
	}
	if !client.HealthCheck(context.Background()) {
		t.Error("live upstream should be healthy")
	}
	result, err := client.Submit(context.Background(), core.SDAPITxt2ImgPath, map[string]any{})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !result.IsSuccess() {
		t.Errorf("expected success, got %d", result.StatusCode)
	}
}

func TestNewClient_KeepsExplicitTimeouts(t *testing.T) {
	settings := testSettings()
	settings.DiscoveryTimeout = 0

	client := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:7860", Settings: settings})
	if client.settings.SubmitTimeout != settings.SubmitTimeout || client.settings.HealthTimeout != settings.HealthTimeout {
		t.Errorf("explicit timeouts must be kept, got %+v", client.settings)
	}
	if client.settings.DiscoveryTimeout != config.DefaultHTTPClientSettings().DiscoveryTimeout {
		t.Errorf("only the zero timeout should be defaulted, got %s", client.settings.DiscoveryTimeout)
	}
}
