package bootstrap

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"

	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/config"
	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/diagnostics"
	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/domain"
	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/download"
	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/extract"
	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/gateway"
	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/recognize"
	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/server"
)

const (
	shutdownTimeout  = 5 * time.Second
	drainTimeout     = 10 * time.Second
	browserOpenDelay = 300 * time.Millisecond
)

// App wires configuration, pipeline, gateway, and the HTTP server.
type App struct {
	Config      config.Config
	Gateway     *gateway.Gateway
	Handler     http.Handler
	Diagnostics domain.DiagnosticReport

	recognizer *recognize.Recognizer
}

// New builds the application serving the frontend from the working
// directory, for development runs without an embedded bundle.
func New() (*App, error) {
	return NewWithAssets(os.DirFS("."))
}

// NewWithAssets builds the application around the embedded frontend,
// provisioning external tools and the whisper model on first run.
func NewWithAssets(assets fs.FS) (*App, error) {
	cfg := config.Load()

	installCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := download.Install(installCtx); err != nil {
		log.Printf("yt-dlp provisioning failed, relying on system binary: %v", err)
	}

	modelPath, err := recognize.EnsureModel(cfg.ModelDir, cfg.ModelID)
	if err != nil {
		return nil, err
	}

	report := diagnostics.NewChecker().Run(modelPath, os.TempDir(), uint64(cfg.MinFreeMB)*1024*1024)
	for _, item := range report.Items {
		log.Printf("diagnostics: %s: %s %s", item.ID, item.Status, item.Message)
	}
	if report.HasFailures {
		log.Print("diagnostics: startup checks reported failures, extractions may not work")
	}

	recognizer := recognize.New(modelPath)
	pipeline := extract.NewPipeline(download.NewService(), recognizer, uint64(cfg.MinFreeMB)*1024*1024)
	gw := gateway.New(pipeline, cfg.Language)

	return &App{
		Config:      cfg,
		Gateway:     gw,
		Handler:     server.New(assets, gw),
		Diagnostics: report,
		recognizer:  recognizer,
	}, nil
}

// Run serves HTTP until interrupted, then drains outstanding work.
func (a *App) Run() error {
	srv := &http.Server{
		Addr:    a.Config.Addr(),
		Handler: a.Handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on http://%s", a.Config.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if a.Config.IsLoopback() {
		go openBrowserAfter(browserOpenDelay, "http://"+a.Config.Addr())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	if !a.Gateway.Wait(drainTimeout) {
		log.Print("abandoning outstanding extraction tasks")
	}
	if err := a.recognizer.Close(); err != nil {
		log.Printf("release whisper model: %v", err)
	}
	return nil
}

// openBrowserAfter launches the default browser once the listener has
// had a moment to come up.
func openBrowserAfter(delay time.Duration, url string) {
	time.Sleep(delay)
	if err := browser.OpenURL(url); err != nil {
		log.Printf("open browser: %v", err)
	}
}
