// Package gemini talks to the Gemini REST API: it uploads a video through
// the Files endpoint, waits for remote processing, asks the model for the
// single most shareable 30-60s segment as strict JSON, and always deletes
// the uploaded file afterwards.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

const (
	defaultBaseURL      = "https://generativelanguage.googleapis.com"
	defaultModel        = "gemini-1.5-flash"
	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 5 * time.Minute

	statePending = "PROCESSING"
	stateReady   = "ACTIVE"
	stateFailed  = "FAILED"
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string

	// PollInterval and PollTimeout bound the wait for remote processing.
	PollInterval time.Duration
	PollTimeout  time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Adapter struct {
	key          string
	model        string
	baseURL      string
	pollInterval time.Duration
	pollTimeout  time.Duration
	client       *http.Client
	log          *slog.Logger
}

func New(cfg Config) *Adapter {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Minute}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Adapter{
		key:          cfg.APIKey,
		model:        cfg.Model,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
		client:       cfg.HTTPClient,
		log:          cfg.Logger,
	}
}

// remoteFile is the handle the Files endpoint returns for an upload.
type remoteFile struct {
	Name  string `json:"name"`
	URI   string `json:"uri"`
	State string `json:"state"`
}

func (a *Adapter) Analyze(ctx context.Context, videoMP4 string) (types.SegmentRecommendation, error) {
	rf, err := a.upload(ctx, videoMP4)
	if err != nil {
		return types.SegmentRecommendation{}, err
	}
	// The remote handle must be released on every exit path, including
	// poll timeouts and parse failures.
	defer func() {
		if derr := a.deleteFile(context.WithoutCancel(ctx), rf.Name); derr != nil {
			a.log.Warn("failed to delete remote file", "name", rf.Name, "err", derr)
		}
	}()

	rf, err = a.waitReady(ctx, rf)
	if err != nil {
		return types.SegmentRecommendation{}, err
	}

	raw, err := a.generate(ctx, rf)
	if err != nil {
		return types.SegmentRecommendation{}, err
	}

	return a.parse(raw)
}

func (a *Adapter) upload(ctx context.Context, videoMP4 string) (remoteFile, error) {
	f, err := os.Open(videoMP4)
	if err != nil {
		return remoteFile{}, fmt.Errorf("open video: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		meta, _ := json.Marshal(map[string]any{
			"file": map[string]any{"display_name": "source video"},
		})
		jh := textproto.MIMEHeader{}
		jh.Set("Content-Type", "application/json; charset=utf-8")
		part, err := mw.CreatePart(jh)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := part.Write(meta); err != nil {
			pw.CloseWithError(err)
			return
		}

		mh := textproto.MIMEHeader{}
		mh.Set("Content-Type", "video/mp4")
		part, err = mw.CreatePart(mh)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	url := a.baseURL + "/upload/v1beta/files?uploadType=multipart"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return remoteFile{}, err
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())
	req.Header.Set("x-goog-api-key", a.key)

	var out struct {
		File remoteFile `json:"file"`
	}
	if err := a.do(req, &out); err != nil {
		return remoteFile{}, fmt.Errorf("upload video: %w", err)
	}
	if out.File.Name == "" {
		return remoteFile{}, errors.New("upload video: response carries no file name")
	}
	a.log.Info("video uploaded", "name", out.File.Name, "state", out.File.State)
	return out.File, nil
}

// waitReady polls the file state every pollInterval until the service
// finishes processing, the configured ceiling passes, or ctx is done.
func (a *Adapter) waitReady(ctx context.Context, rf remoteFile) (remoteFile, error) {
	deadline := time.Now().Add(a.pollTimeout)
	for rf.State == statePending {
		if time.Now().After(deadline) {
			return remoteFile{}, &types.AnalysisTimeoutError{Handle: rf.Name, WaitSec: a.pollTimeout.Seconds()}
		}
		select {
		case <-ctx.Done():
			return remoteFile{}, ctx.Err()
		case <-time.After(a.pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1beta/"+rf.Name, nil)
		if err != nil {
			return remoteFile{}, err
		}
		req.Header.Set("x-goog-api-key", a.key)
		var cur remoteFile
		if err := a.do(req, &cur); err != nil {
			return remoteFile{}, fmt.Errorf("poll file state: %w", err)
		}
		if cur.URI == "" {
			cur.URI = rf.URI
		}
		rf = cur
	}
	if rf.State == stateFailed {
		return remoteFile{}, &types.RemoteProcessingError{Handle: rf.Name}
	}
	if rf.State != stateReady {
		return remoteFile{}, fmt.Errorf("unexpected file state %q for %s", rf.State, rf.Name)
	}
	return rf, nil
}

func (a *Adapter) generate(ctx context.Context, rf remoteFile) (string, error) {
	payload := map[string]any{
		"contents": []map[string]any{{
			"parts": []map[string]any{
				{"file_data": map[string]any{"file_uri": rf.URI, "mime_type": "video/mp4"}},
				{"text": prompt},
			},
		}},
		"generationConfig": map[string]any{
			"response_mime_type": "application/json",
			"response_schema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"start_time":  map[string]any{"type": "number"},
					"end_time":    map[string]any{"type": "number"},
					"title":       map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"reason":      map[string]any{"type": "string"},
				},
				"required": []string{"start_time", "end_time", "title", "description", "reason"},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := a.baseURL + "/v1beta/models/" + a.model + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", a.key)

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := a.do(req, &out); err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", &types.AnalysisParseError{Raw: "", Err: errors.New("response carries no candidates")}
	}
	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

func (a *Adapter) deleteFile(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, a.baseURL+"/v1beta/"+name, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", a.key)
	return a.do(req, nil)
}

func (a *Adapter) parse(raw string) (types.SegmentRecommendation, error) {
	var dec struct {
		StartTime   *float64 `json:"start_time"`
		EndTime     *float64 `json:"end_time"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Reason      string   `json:"reason"`
	}
	if err := json.Unmarshal([]byte(raw), &dec); err != nil {
		return types.SegmentRecommendation{}, &types.AnalysisParseError{Raw: raw, Err: err}
	}
	if dec.StartTime == nil || dec.EndTime == nil {
		return types.SegmentRecommendation{}, &types.AnalysisParseError{Raw: raw, Err: errors.New("missing start_time/end_time")}
	}
	if *dec.StartTime < 0 || *dec.EndTime <= *dec.StartTime {
		return types.SegmentRecommendation{}, &types.AnalysisParseError{
			Raw: raw,
			Err: fmt.Errorf("non-monotonic segment [%.3f, %.3f]", *dec.StartTime, *dec.EndTime),
		}
	}

	rec := types.SegmentRecommendation{
		StartTime:   *dec.StartTime,
		EndTime:     *dec.EndTime,
		Title:       strings.TrimSpace(dec.Title),
		Description: strings.TrimSpace(dec.Description),
		Reason:      strings.TrimSpace(dec.Reason),
	}
	// The request asks for 30-60s; the model is not trusted to comply and
	// the renderer tolerates out-of-range windows, so only log it.
	if d := rec.Duration(); d < 30 || d > 60 {
		a.log.Warn("recommended segment outside requested bounds", "duration_sec", d)
	}
	return rec, nil
}

func (a *Adapter) do(req *http.Request, out any) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("gemini status %d and read body failed: %v", resp.StatusCode, readErr)
		}
		return fmt.Errorf("gemini status %d: %s", resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

const prompt = `Analyze this video and identify the ONE most viral/interesting segment suitable for a YouTube Short (vertical video).
The segment should be between 30 and 60 seconds long.

Return a JSON object with the following fields:
- start_time: (float) Start time in seconds.
- end_time: (float) End time in seconds.
- title: (string) A catchy title for the short.
- description: (string) A short description.
- reason: (string) Why this part is interesting.

Example JSON:
{
    "start_time": 120.5,
    "end_time": 155.0,
    "title": "Crazy Stunt!",
    "description": "Watch this insane moment...",
    "reason": "High energy moment"
}`
