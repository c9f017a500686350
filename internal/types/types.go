package types

// MediaInfo describes a local video file as reported by the prober.
type MediaInfo struct {
	Width       int
	Height      int
	DurationSec float64
}

// SegmentRecommendation is the analyzer's pick of the single most
// shareable segment of a source video.
type SegmentRecommendation struct {
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Reason      string  `json:"reason"`
}

// Duration returns the recommended segment length in seconds.
func (r SegmentRecommendation) Duration() float64 {
	return r.EndTime - r.StartTime
}
