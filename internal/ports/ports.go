package ports

import (
	"context"

	"github.com/clipforge/clipforge/internal/domain/crop"
	"github.com/clipforge/clipforge/internal/types"
)

type VideoFetcher interface {
	Fetch(ctx context.Context, url, destMP4 string) error
}

type SegmentAnalyzer interface {
	Analyze(ctx context.Context, videoMP4 string) (types.SegmentRecommendation, error)
}

type VideoTool interface {
	Probe(ctx context.Context, inMP4 string) (types.MediaInfo, error)
	RenderClip(ctx context.Context, inMP4 string, startSec, endSec float64, win crop.Rect, outMP4 string) error
}
