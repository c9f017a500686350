package types

import "fmt"

// DownloadError reports a failed video fetch. The source tool's output is
// carried verbatim for diagnostics.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ConfigurationError reports a missing or invalid startup setting.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

// RemoteProcessingError means the inference service reported a failed
// state for the uploaded asset.
type RemoteProcessingError struct {
	Handle string
}

func (e *RemoteProcessingError) Error() string {
	return fmt.Sprintf("remote processing failed for %s", e.Handle)
}

// AnalysisTimeoutError means the uploaded asset did not leave the
// PROCESSING state within the configured wait ceiling.
type AnalysisTimeoutError struct {
	Handle  string
	WaitSec float64
}

func (e *AnalysisTimeoutError) Error() string {
	return fmt.Sprintf("analysis of %s still processing after %.0fs", e.Handle, e.WaitSec)
}

// AnalysisParseError means the model response was not the JSON object we
// asked for. Raw holds the response text for diagnostics.
type AnalysisParseError struct {
	Raw string
	Err error
}

func (e *AnalysisParseError) Error() string {
	return fmt.Sprintf("parse analysis response: %v", e.Err)
}

func (e *AnalysisParseError) Unwrap() error { return e.Err }

// InvalidRangeError rejects a segment window before any rendering starts.
type InvalidRangeError struct {
	Start       float64
	End         float64
	DurationSec float64
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid segment range [%.3f, %.3f] for source of %.3fs", e.Start, e.End, e.DurationSec)
}

// RenderError wraps an encode failure.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string { return fmt.Sprintf("render clip: %v", e.Err) }

func (e *RenderError) Unwrap() error { return e.Err }

// ValidationError reports a malformed client request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
