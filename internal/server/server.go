// Package server exposes the clipping pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clipforge/clipforge/internal/types"
	"github.com/clipforge/clipforge/internal/usecase"
)

// Pipeline runs one full fetch → analyze → render cycle.
type Pipeline interface {
	Run(ctx context.Context, in usecase.Input) (*usecase.Result, error)
}

type Server struct {
	pipe     Pipeline
	apiKey   string
	workRoot string
	log      *slog.Logger
}

func New(pipe Pipeline, apiKey, workRoot string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{pipe: pipe, apiKey: apiKey, workRoot: workRoot, log: log}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.POST("/process-video", s.processVideo)
	r.GET("/health", s.health)
	return r
}

type processRequest struct {
	URL string `json:"url"`
}

func (s *Server) processVideo(c *gin.Context) {
	var req processRequest
	// A malformed body and a missing url field answer the same way.
	_ = c.ShouldBindJSON(&req)
	if req.URL == "" {
		err := &types.ValidationError{Msg: "No URL provided"}
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if s.apiKey == "" {
		err := &types.ConfigurationError{Msg: "GEMINI_API_KEY not set"}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	res, err := s.pipe.Run(c.Request.Context(), usecase.Input{URL: req.URL, WorkRoot: s.workRoot})
	if err != nil {
		s.log.Error("pipeline failed", "url", req.URL, "err", err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	defer func() {
		if cerr := res.Close(); cerr != nil {
			s.log.Warn("workspace cleanup failed", "err", cerr)
		}
	}()

	// The transport carries a single binary body, so the recommendation
	// metadata travels in headers, JSON-encoded like the rest of the API.
	c.Header("X-Video-Title", jsonString(res.Recommendation.Title))
	c.Header("X-Video-Description", jsonString(res.Recommendation.Description))
	c.FileAttachment(res.ClipPath, "short.mp4")
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusFor maps pipeline failures to HTTP statuses. Only client-input
// validation earns a 4xx; everything else is a server-side failure.
func statusFor(err error) int {
	var ve *types.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func jsonString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("%q", s)
	}
	return string(b)
}
