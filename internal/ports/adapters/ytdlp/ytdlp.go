// Package ytdlp fetches source videos through the yt-dlp binary.
package ytdlp

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/clipforge/clipforge/internal/types"
)

// formatSelector prefers a combined ≤1080p MP4 stream, then any MP4, then
// whatever the site offers. The order matters: later tiers trade quality
// for compatibility with the H.264 re-encode downstream.
const formatSelector = "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

// userAgent is a plain desktop Chrome string; some hosts refuse obvious
// automated clients.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

type Adapter struct {
	bin string
}

func New(binPath string) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Adapter{bin: binPath}
}

// Fetch downloads url into destMP4. Any failure (unreachable, private,
// geo-blocked, no matching format) aborts as a DownloadError; no retries.
func (a *Adapter) Fetch(ctx context.Context, url, destMP4 string) error {
	cmd := exec.CommandContext(ctx, a.bin, buildArgs(url, destMP4)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return &types.DownloadError{URL: url, Err: fmt.Errorf("yt-dlp: %w\n%s", err, string(b))}
	}
	return nil
}

func buildArgs(url, destMP4 string) []string {
	return []string{
		"-f", formatSelector,
		"-o", destMP4,
		"--quiet",
		"--no-warnings",
		"--no-check-certificates",
		// Bind to IPv4; broken IPv6 routes stall some hosts.
		"--source-address", "0.0.0.0",
		"--user-agent", userAgent,
		url,
	}
}
