package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/clipforge/clipforge/internal/types"
	"github.com/clipforge/clipforge/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePipeline struct {
	res   *usecase.Result
	err   error
	calls int
}

func (f *fakePipeline) Run(_ context.Context, _ usecase.Input) (*usecase.Result, error) {
	f.calls++
	return f.res, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
	}
	return out["error"]
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := New(&fakePipeline{}, "key", "", testLogger())
	w := doRequest(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestProcessVideo_MissingURL(t *testing.T) {
	t.Parallel()

	pipe := &fakePipeline{}
	s := New(pipe, "key", "", testLogger())

	for _, body := range []string{"", "{}", `{"url":""}`, "not json"} {
		w := doRequest(t, s, http.MethodPost, "/process-video", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, w.Code)
		}
		if msg := errorBody(t, w); msg != "No URL provided" {
			t.Fatalf("body %q: unexpected error %q", body, msg)
		}
	}
	if pipe.calls != 0 {
		t.Fatal("pipeline must not start without a url")
	}
}

func TestProcessVideo_MissingAPIKey(t *testing.T) {
	t.Parallel()

	pipe := &fakePipeline{}
	s := New(pipe, "", "", testLogger())

	w := doRequest(t, s, http.MethodPost, "/process-video", `{"url":"https://v.example/1"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if msg := errorBody(t, w); msg != "GEMINI_API_KEY not set" {
		t.Fatalf("unexpected error %q", msg)
	}
	if pipe.calls != 0 {
		t.Fatal("pipeline must not start without a credential")
	}
}

func TestProcessVideo_PipelineFailure(t *testing.T) {
	t.Parallel()

	pipe := &fakePipeline{err: &types.DownloadError{URL: "u", Err: errors.New("video unavailable")}}
	s := New(pipe, "key", "", testLogger())

	w := doRequest(t, s, http.MethodPost, "/process-video", `{"url":"u"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if msg := errorBody(t, w); !strings.Contains(msg, "video unavailable") {
		t.Fatalf("unexpected error %q", msg)
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: &types.ValidationError{Msg: "No URL provided"}, want: http.StatusBadRequest},
		{name: "wrapped validation", err: fmt.Errorf("request: %w", &types.ValidationError{Msg: "x"}), want: http.StatusBadRequest},
		{name: "download", err: &types.DownloadError{URL: "u", Err: errors.New("boom")}, want: http.StatusInternalServerError},
		{name: "render", err: &types.RenderError{Err: errors.New("boom")}, want: http.StatusInternalServerError},
		{name: "plain", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("%s: statusFor = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestProcessVideo_Success(t *testing.T) {
	t.Parallel()

	clip := filepath.Join(t.TempDir(), "final_short.mp4")
	if err := os.WriteFile(clip, []byte("mp4-bytes"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	pipe := &fakePipeline{res: &usecase.Result{
		ClipPath: clip,
		Recommendation: types.SegmentRecommendation{
			StartTime: 120.5, EndTime: 155.0,
			Title:       `Crazy "Stunt"!`,
			Description: "Watch this insane moment...",
		},
	}}
	s := New(pipe, "key", "", testLogger())

	w := doRequest(t, s, http.MethodPost, "/process-video", `{"url":"https://v.example/1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != "mp4-bytes" {
		t.Fatalf("expected clip bytes in body, got %q", got)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "short.mp4") {
		t.Fatalf("expected attachment named short.mp4, got %q", cd)
	}

	// Header metadata is JSON-encoded so quoting survives HTTP transport.
	var title string
	if err := json.Unmarshal([]byte(w.Header().Get("X-Video-Title")), &title); err != nil {
		t.Fatalf("title header is not a JSON string: %v", err)
	}
	if title != `Crazy "Stunt"!` {
		t.Fatalf("unexpected title %q", title)
	}
	var desc string
	if err := json.Unmarshal([]byte(w.Header().Get("X-Video-Description")), &desc); err != nil {
		t.Fatalf("description header is not a JSON string: %v", err)
	}
	if desc != "Watch this insane moment..." {
		t.Fatalf("unexpected description %q", desc)
	}
}
