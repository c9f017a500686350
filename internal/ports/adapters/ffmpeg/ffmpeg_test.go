package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clipforge/clipforge/internal/domain/crop"
	"github.com/clipforge/clipforge/internal/types"
)

func TestFmtSeconds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   float64
		want string
	}{
		{in: 0, want: "0.000"},
		{in: 120.5, want: "120.500"},
		{in: 155, want: "155.000"},
		{in: 0.0004, want: "0.000"},
	}
	for _, tc := range cases {
		if got := fmtSeconds(tc.in); got != tc.want {
			t.Fatalf("fmtSeconds(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNew_DefaultsToPathLookup(t *testing.T) {
	t.Parallel()

	a := New("", "")
	if a.ffmpeg != "ffmpeg" || a.ffprobe != "ffprobe" {
		t.Fatalf("unexpected defaults: %q %q", a.ffmpeg, a.ffprobe)
	}
}

// writeStubFFprobe fakes ffprobe with a script that always prints body.
func writeStubFFprobe(t *testing.T, dir, body string) string {
	t.Helper()
	stub := filepath.Join(dir, "ffprobe-stub")
	script := fmt.Sprintf("#!/bin/sh\nprintf '%%s' %q\n", body)
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write ffprobe stub: %v", err)
	}
	return stub
}

// writeStubFFmpeg fakes ffmpeg with a script that appends its arguments
// to logPath, touches its output file, and fails the audio pass (the one
// carrying -vn) when audioExit is non-zero.
func writeStubFFmpeg(t *testing.T, dir, logPath string, audioExit int) string {
	t.Helper()
	stub := filepath.Join(dir, "ffmpeg-stub")
	script := fmt.Sprintf(`#!/bin/sh
echo "$@" >> %q
case " $* " in
  *" -vn "*) exit %d;;
esac
for a; do out="$a"; done
: > "$out"
`, logPath, audioExit)
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	return stub
}

func readLogLines(t *testing.T, logPath string) []string {
	t.Helper()
	b, err := os.ReadFile(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read log: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

func TestRenderClip_NoAudioSourceRendersVideoOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log := filepath.Join(dir, "calls.log")
	a := New(
		writeStubFFmpeg(t, dir, log, 0),
		writeStubFFprobe(t, dir, `{"streams":[]}`),
	)

	out := filepath.Join(dir, "out.mp4")
	err := a.RenderClip(context.Background(),
		filepath.Join(dir, "in.mp4"), 2, 7,
		crop.Rect{X: 656, Y: 0, W: 608, H: 1080}, out)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	lines := readLogLines(t, log)
	if len(lines) != 1 {
		t.Fatalf("expected a single ffmpeg pass, got %d:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if !strings.Contains(lines[0], " -an ") {
		t.Fatalf("video-only pass must disable audio: %s", lines[0])
	}
	if strings.Contains(lines[0], "-vn") {
		t.Fatalf("no audio pass expected for a silent source: %s", lines[0])
	}
}

func TestRenderClip_AudioEncodeFailureAborts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log := filepath.Join(dir, "calls.log")
	a := New(
		writeStubFFmpeg(t, dir, log, 1),
		writeStubFFprobe(t, dir, `{"streams":[{"index":1}]}`),
	)

	err := a.RenderClip(context.Background(),
		filepath.Join(dir, "in.mp4"), 2, 7,
		crop.Rect{X: 656, Y: 0, W: 608, H: 1080},
		filepath.Join(dir, "out.mp4"))
	var re *types.RenderError
	if !errors.As(err, &re) {
		t.Fatalf("a broken audio stream must fail the render, got %T: %v", err, err)
	}

	lines := readLogLines(t, log)
	if len(lines) != 1 || !strings.Contains(lines[0], "-vn") {
		t.Fatalf("expected only the failed audio pass, got:\n%s", strings.Join(lines, "\n"))
	}
}

func TestRenderClip_MuxesAudioAndRemovesScratch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log := filepath.Join(dir, "calls.log")
	a := New(
		writeStubFFmpeg(t, dir, log, 0),
		writeStubFFprobe(t, dir, `{"streams":[{"index":1}]}`),
	)

	out := filepath.Join(dir, "out.mp4")
	err := a.RenderClip(context.Background(),
		filepath.Join(dir, "in.mp4"), 2, 7,
		crop.Rect{X: 656, Y: 0, W: 608, H: 1080}, out)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	lines := readLogLines(t, log)
	if len(lines) != 2 {
		t.Fatalf("expected audio + render passes, got %d:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if !strings.Contains(lines[1], "-map 0:v:0") || !strings.Contains(lines[1], "-map 1:a:0") {
		t.Fatalf("render pass must mux the scratch audio: %s", lines[1])
	}
	if !strings.Contains(lines[1], "crop=608:1080:656:0") {
		t.Fatalf("render pass must carry the crop filter: %s", lines[1])
	}
	if _, err := os.Stat(out + ".audio.m4a"); !os.IsNotExist(err) {
		t.Fatalf("scratch audio must be removed, stat err=%v", err)
	}
}

func TestRenderClip_FailureWrapsRenderError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := New(filepath.Join(dir, "missing-ffmpeg"), "")
	err := a.RenderClip(context.Background(),
		filepath.Join(dir, "in.mp4"), 0, 5,
		crop.Rect{X: 656, Y: 0, W: 608, H: 1080},
		filepath.Join(dir, "out.mp4"))
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	var re *types.RenderError
	if !errors.As(err, &re) {
		t.Fatalf("expected RenderError, got %T: %v", err, err)
	}
}
