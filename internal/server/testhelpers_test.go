package server

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"sdfrontend/internal/config"
	"sdfrontend/internal/core"
	"sdfrontend/internal/storage"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
)

// fakePNGBase64 is a PNG signature followed by garbage: it cannot be decoded
// and must be passed through as is.
var fakePNGBase64 = base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nfake"))

// sdStub imitates the generation API.
type sdStub struct {
	mu       sync.Mutex
	models   string
	samplers string
	status   int
	body     string
	paths    []string
	payloads []map[string]any
}

func newSDStub() *sdStub {
	return &sdStub{
		models:   `[{"title":"sdxl_base.safetensors","model_name":"sdxl_base"},{"title":"v1-5","model_name":"v1-5-pruned"}]`,
		samplers: `[{"name":"DPM++ 2M"},{"name":"Euler a"}]`,
		status:   http.StatusOK,
		body:     `{"images":["` + fakePNGBase64 + `"]}`,
	}
}

func (s *sdStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, r.URL.Path)

	switch r.URL.Path {
	case core.SDAPIModelsPath:
		_, _ = io.WriteString(w, s.models)
	case core.SDAPISamplersPath:
		_, _ = io.WriteString(w, s.samplers)
	case core.SDAPITxt2ImgPath, core.SDAPIImg2ImgPath:
		var payload map[string]any
		body, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(body, &payload)
		s.payloads = append(s.payloads, payload)
		w.WriteHeader(s.status)
		_, _ = io.WriteString(w, s.body)
	default:
		http.NotFound(w, r)
	}
}

func (s *sdStub) respond(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.body = body
}

func (s *sdStub) lastPayload(t *testing.T) map[string]any {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.payloads) == 0 {
		t.Fatal("no generation payload reached the upstream")
	}
	return s.payloads[len(s.payloads)-1]
}

func (s *sdStub) payloadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

func startStub(t *testing.T, stub http.Handler) string {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return srv.URL
}

func closedUpstreamURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()
	return u
}

func testConfig(t *testing.T, upstreamURL string, st core.StorageInterface) config.ServerConfig {
	t.Helper()
	settings := config.DefaultHTTPClientSettings()
	settings.SubmitTimeout = 5 * time.Second
	settings.DiscoveryTimeout = 2 * time.Second
	settings.HealthTimeout = time.Second

	if st == nil {
		st = storage.NewFileStorage(filepath.Join(t.TempDir(), "stats.json"))
	}
	return config.ServerConfig{
		Port:               "0",
		GinMode:            gin.TestMode,
		UpstreamURL:        upstreamURL,
		RateLimit:          1000,
		CORSAllowOrigin:    "*",
		HTTPClientSettings: settings,
		Storage:            st,
		Logger:             &core.NopLogger{},
	}
}

func newTestServer(t *testing.T, upstreamURL string) *Server {
	t.Helper()
	server, err := NewServer(testConfig(t, upstreamURL, nil))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() { _ = server.Close() })
	return server
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(core.HeaderContentType, "application/x-www-form-urlencoded")
	return req
}

type filePart struct {
	field    string
	filename string
	data     []byte
}

func postMultipart(t *testing.T, path string, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(core.HeaderContentType, mw.FormDataContentType())
	return req
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{G: 255, A: 255})
	img.Set(0, 1, color.NRGBA{B: 255, A: 255})
	img.Set(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 128})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := sonic.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON (%d): %v: %s", w.Code, err, w.Body.String())
	}
	return out
}
