package usecase

import (
	"context"
	"log/slog"

	"github.com/clipforge/clipforge/internal/domain/crop"
	"github.com/clipforge/clipforge/internal/ports"
	"github.com/clipforge/clipforge/internal/types"
	"github.com/clipforge/clipforge/internal/workspace"
)

type Deps struct {
	Fetcher  ports.VideoFetcher
	Analyzer ports.SegmentAnalyzer
	Video    ports.VideoTool
	Log      *slog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return Usecase{d: d}
}

type Input struct {
	URL string

	// WorkRoot is the parent directory for the request workspace.
	WorkRoot string
}

// Result is the rendered clip plus its metadata. The clip lives inside the
// request workspace; the caller must call Close after it is done with the
// file.
type Result struct {
	ClipPath       string
	Recommendation types.SegmentRecommendation
	Window         crop.Rect

	ws *workspace.Workspace
}

// Close tears down the request workspace, removing the source and output
// assets.
func (r *Result) Close() error {
	if r.ws == nil {
		return nil
	}
	return r.ws.Close()
}

// Run executes one fetch → analyze → render cycle. Stages run strictly in
// order and the first failure aborts the rest; the workspace is removed on
// every failure path.
func (u Usecase) Run(ctx context.Context, in Input) (res *Result, err error) {
	ws, err := workspace.New(in.WorkRoot)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			ws.Close()
		}
	}()

	raw := ws.Path("raw_video.mp4")
	u.d.Log.Info("downloading", "url", in.URL)
	if err = u.d.Fetcher.Fetch(ctx, in.URL, raw); err != nil {
		return nil, err
	}

	info, err := u.d.Video.Probe(ctx, raw)
	if err != nil {
		return nil, err
	}

	u.d.Log.Info("analyzing", "url", in.URL, "duration_sec", info.DurationSec)
	rec, err := u.d.Analyzer.Analyze(ctx, raw)
	if err != nil {
		return nil, err
	}
	u.d.Log.Info("analysis result",
		"start", rec.StartTime, "end", rec.EndTime, "title", rec.Title)

	if err = validateRange(rec.StartTime, rec.EndTime, info.DurationSec); err != nil {
		return nil, err
	}

	win := crop.Window(info.Width, info.Height)
	out := ws.Path("final_short.mp4")
	u.d.Log.Info("rendering", "window", win, "out", out)
	if err = u.d.Video.RenderClip(ctx, raw, rec.StartTime, rec.EndTime, win, out); err != nil {
		return nil, err
	}

	return &Result{
		ClipPath:       out,
		Recommendation: rec,
		Window:         win,
		ws:             ws,
	}, nil
}

// validateRange rejects a segment window before any encoding starts; a
// zero or negative length clip must never reach the renderer.
func validateRange(start, end, durationSec float64) error {
	if start < 0 || end <= start || end > durationSec {
		return &types.InvalidRangeError{Start: start, End: end, DurationSec: durationSec}
	}
	return nil
}
