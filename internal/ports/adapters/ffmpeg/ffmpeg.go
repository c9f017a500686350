package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/clipforge/clipforge/internal/domain/crop"
	"github.com/clipforge/clipforge/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) Probe(ctx context.Context, inMP4 string) (types.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-show_entries", "format=duration",
		"-of", "json",
		inMP4,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.MediaInfo{}, fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}

	var out struct {
		Streams []struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return types.MediaInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return types.MediaInfo{}, fmt.Errorf("ffprobe: no video stream in %s", inMP4)
	}
	sec, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return types.MediaInfo{}, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
	}
	return types.MediaInfo{
		Width:       out.Streams[0].Width,
		Height:      out.Streams[0].Height,
		DurationSec: sec,
	}, nil
}

// RenderClip trims [startSec, endSec] out of inMP4, crops every frame to
// win, and writes an H.264/AAC MP4. Audio is encoded into a scratch file
// first and muxed back in; the scratch file is removed on every exit path.
// Sources without an audio track are rendered video-only; an encode
// failure on a source that does have audio aborts the render.
func (a *Adapter) RenderClip(ctx context.Context, inMP4 string, startSec, endSec float64, win crop.Rect, outMP4 string) error {
	hasAudio, err := a.hasAudioStream(ctx, inMP4)
	if err != nil {
		return &types.RenderError{Err: err}
	}

	scratch := outMP4 + ".audio.m4a"
	defer os.Remove(scratch)

	if hasAudio {
		if err := a.encodeAudio(ctx, inMP4, startSec, endSec, scratch); err != nil {
			return &types.RenderError{Err: err}
		}
	}

	args := []string{
		"-y",
		"-ss", fmtSeconds(startSec),
		"-to", fmtSeconds(endSec),
		"-i", inMP4,
	}
	if hasAudio {
		args = append(args, "-i", scratch, "-map", "0:v:0", "-map", "1:a:0")
	} else {
		args = append(args, "-an")
	}
	args = append(args,
		"-vf", fmt.Sprintf("crop=%d:%d:%d:%d", win.W, win.H, win.X, win.Y),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
	)
	if hasAudio {
		args = append(args, "-c:a", "copy", "-shortest")
	}
	args = append(args, "-movflags", "+faststart", outMP4)

	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return &types.RenderError{Err: fmt.Errorf("ffmpeg render: %w\n%s", err, string(b))}
	}
	return nil
}

func (a *Adapter) hasAudioStream(ctx context.Context, inMP4 string) (bool, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=index",
		"-of", "json",
		inMP4,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return false, fmt.Errorf("ffprobe audio streams: %w\n%s", err, string(b))
	}
	var out struct {
		Streams []struct {
			Index int `json:"index"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return false, fmt.Errorf("parse ffprobe output: %w", err)
	}
	return len(out.Streams) > 0, nil
}

func (a *Adapter) encodeAudio(ctx context.Context, inMP4 string, startSec, endSec float64, outM4A string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSeconds(startSec),
		"-to", fmtSeconds(endSec),
		"-i", inMP4,
		"-vn",
		"-c:a", "aac",
		"-b:a", "192k",
		outM4A,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
