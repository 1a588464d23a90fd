package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"cratetag/internal/assemble"
	"cratetag/internal/export"
	"cratetag/internal/logging"
	"cratetag/internal/qr"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, auth AuthConfig) (*testServer, func()) {
	t.Helper()
	a := assemble.New(time.UTC, logging.Discard())
	a.Now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	handler, err := New(Config{
		Assembler:    a,
		Exporter:     export.Builder{Encoder: qr.PNGEncoder{}, Policy: export.PolicyFail},
		PreviewWidth: 50,
		BasePath:     "/v0",
		Auth:         auth,
		Logger:       logging.Discard(),
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func sampleBody() map[string]any {
	return map[string]any{
		"farm_name":         "Sunny Valley Orchards",
		"farm_location":     "California, USA",
		"variety":           "Valencia",
		"weight_kg":         20.0,
		"quantity_pieces":   100,
		"quality_grade":     "Premium",
		"harvest_date":      "2024-05-01",
		"organic_certified": true,
		"notes":             strings.Repeat("handle with care ", 5),
	}
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func TestHealth(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Fatalf("health %d: %s", res.StatusCode, body)
	}
}

func TestCreateCrate(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/crates", sampleBody(), nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("create crate %d: %s", res.StatusCode, body)
	}
	var got CrateResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.HasPrefix(got.ID, "ORC-20240501-") || len(got.ID) != len("ORC-20240501-ABCD1234") {
		t.Fatalf("id = %q", got.ID)
	}
	if got.GeneratedAt != "2024-05-01T10:00:00Z" {
		t.Fatalf("generated_at = %q", got.GeneratedAt)
	}
	if !strings.Contains(got.Payload, `"Organic": "Yes"`) || !strings.Contains(got.Label, "Weight: 20.0 kg") {
		t.Fatalf("unexpected artifacts:\n%s\n%s", got.Payload, got.Label)
	}
	if len(got.Digest) != 64 {
		t.Fatalf("digest = %q", got.Digest)
	}
	notes := got.Preview[len(got.Preview)-1].Value
	if !strings.HasSuffix(notes, "...") || len([]rune(notes)) != 53 {
		t.Fatalf("preview notes = %q", notes)
	}
	if !strings.Contains(got.Label, strings.TrimSpace(strings.Repeat("handle with care ", 5))) {
		t.Fatalf("label notes truncated:\n%s", got.Label)
	}
	if len(got.Files) != 0 {
		t.Fatalf("files returned without include_files")
	}
}

func TestCreateCrateWithFiles(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/crates?include_files=true", sampleBody(), nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("create crate %d: %s", res.StatusCode, body)
	}
	var got CrateResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Files) != 3 {
		t.Fatalf("files = %d", len(got.Files))
	}
	if got.Files[0].Name != got.ID+"_QR.png" {
		t.Fatalf("qr file name %q", got.Files[0].Name)
	}
	if _, err := png.Decode(bytes.NewReader(got.Files[0].Data)); err != nil {
		t.Fatalf("qr file is not a png: %v", err)
	}
	if string(got.Files[2].Data) != got.Payload {
		t.Fatalf("data file differs from payload")
	}
}

func TestCreateCrateValidationError(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	body := sampleBody()
	body["weight_kg"] = 1500
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/crates", body, nil)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", res.StatusCode, data)
	}
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Error.Code != "out_of_range" || env.Error.Details["field"] != "weightKg" {
		t.Fatalf("envelope = %+v", env.Error)
	}

	body = sampleBody()
	delete(body, "farm_name")
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/crates", body, nil)
	if res.StatusCode != http.StatusUnprocessableEntity || !strings.Contains(string(data), "missing_field") {
		t.Fatalf("expected missing_field, got %d %s", res.StatusCode, data)
	}
}

func TestRenderQR(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/qr", map[string]any{"payload": "ORC-20240501-ABCD1234"}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("qr %d: %s", res.StatusCode, data)
	}
	if ct := res.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type %q", ct)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("decode png: %v", err)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/qr", map[string]any{"payload": strings.Repeat("x", 5000)}, nil)
	if res.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d %s", res.StatusCode, data)
	}
	var env errorEnvelope
	_ = json.Unmarshal(data, &env)
	if env.Error.Code != "payload_too_large" {
		t.Fatalf("code = %q", env.Error.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	const secret = "packhouse-secret"
	srv, cleanup := newTestServer(t, AuthConfig{JWTSecret: secret})
	defer cleanup()
	client := srv.Client()

	res, _ := doJSON(t, client, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health must stay open, got %d", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodPost, srv.URL+"/v0/crates", sampleBody(), nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodPost, srv.URL+"/v0/crates", sampleBody(), map[string]string{"Authorization": "Bearer nope"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", res.StatusCode)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "line-3",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v0/crates", sampleBody(), map[string]string{"Authorization": "Bearer " + token})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d %s", res.StatusCode, body)
	}
}

func TestOpenAPI(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/openapi.json", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("openapi %d", res.StatusCode)
	}
	if !strings.Contains(string(data), "/v0/crates") {
		t.Fatalf("openapi document does not list /v0/crates")
	}
}
