package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/langid/internal/audio"
	"github.com/sells-group/langid/internal/metrics"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the language detection HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initDetect("serve", true)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildMux(env.Detector),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			timeout := time.Duration(cfg.Server.ShutdownTimeoutSecs) * time.Second
			shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

type detectRequest struct {
	AudioFilePath       string `json:"audio_file_path"`
	GroundTruthLanguage string `json:"ground_truth_language"`
}

// buildMux wires the HTTP routes. d may be nil, in which case detection
// requests fail with 503.
func buildMux(d *detector) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /health", metrics.InstrumentHandler("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})))

	mux.Handle("GET /metrics", metrics.Handler())

	mux.Handle("POST /detect/language", metrics.InstrumentHandler("/detect/language", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req detectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.AudioFilePath == "" {
			writeDetail(w, http.StatusBadRequest, "audio_file_path is required")
			return
		}
		if d == nil {
			writeDetail(w, http.StatusServiceUnavailable, "detector not configured")
			return
		}

		resp, err := d.detect(r.Context(), req.AudioFilePath, req.GroundTruthLanguage)
		var prepErr *audio.PreprocessError
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, resp)
		case eris.Is(err, audio.ErrFileNotFound):
			writeDetail(w, http.StatusBadRequest, "Audio file not found")
		case errors.As(err, &prepErr):
			writeDetail(w, http.StatusBadRequest, "Preprocessing failed: "+prepErr.Cause.Error())
		default:
			zap.L().Error("detection round failed",
				zap.String("audio", req.AudioFilePath),
				zap.Error(err),
			)
			writeDetail(w, http.StatusInternalServerError, "detection failed")
		}
	})))

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
