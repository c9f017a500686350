package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/ports"
	"github.com/clipforge/clipforge/internal/ports/adapters/ffmpeg"
	"github.com/clipforge/clipforge/internal/ports/adapters/gemini"
	"github.com/clipforge/clipforge/internal/ports/adapters/ytdlp"
	"github.com/clipforge/clipforge/internal/server"
	"github.com/clipforge/clipforge/internal/usecase"
)

func runServe(cmd *cobra.Command) error {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg := config.Load(log)
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Gemini.APIKey == "" {
		// The service still starts; /process-video reports the missing
		// credential per request.
		log.Warn("GEMINI_API_KEY not set, /process-video will fail until it is")
	}

	uc := usecase.New(usecase.Deps{
		Fetcher: ytdlp.New(cfg.Tools.YtDlp),
		Analyzer: gemini.New(gemini.Config{
			APIKey:       cfg.Gemini.APIKey,
			Model:        cfg.Gemini.Model,
			BaseURL:      cfg.Gemini.BaseURL,
			PollInterval: cfg.Gemini.PollInterval(),
			PollTimeout:  cfg.Gemini.PollTimeout(),
			Logger:       log,
		}),
		Video: ffmpeg.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe),
		Log:   log,
	})

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(uc, cfg.Gemini.APIKey, cfg.WorkRoot, log)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("listening", "addr", addr, "model", cfg.Gemini.Model)
	return srv.Router().Run(addr)
}

// ensure adapters implement ports
var _ ports.VideoFetcher = (*ytdlp.Adapter)(nil)
var _ ports.SegmentAnalyzer = (*gemini.Adapter)(nil)
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
