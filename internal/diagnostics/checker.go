package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/domain"
	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/platform"
)

// Checker validates external tools and required filesystem paths.
type Checker struct {
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
	diskUsage  func(string) (uint64, uint64, error)
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
		diskUsage:  platform.DiskUsage,
	}
}

// Run executes all startup checks and returns a combined report.
// Failures are advisory: extraction still refuses work per request when
// a dependency is genuinely missing.
func (c *Checker) Run(modelPath, scratchDir string, minFreeBytes uint64) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool("ffmpeg"),
		c.checkTool("yt-dlp"),
		c.checkModelFile(modelPath),
		c.checkScratchDir(scratchDir, minFreeBytes),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies a required CLI executable is on PATH.
func (c *Checker) checkTool(name string) domain.DiagnosticItem {
	path, err := c.lookPath(name)
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "tool_" + name,
			Name:    name,
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Tool not found in PATH: %s", name),
			Hint:    "Install it and ensure the binary is available on PATH before extracting a transcript.",
		}
	}

	return domain.DiagnosticItem{
		ID:      "tool_" + name,
		Name:    name,
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkModelFile validates the configured whisper model file.
func (c *Checker) checkModelFile(modelPath string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "model_file",
		Name: "Whisper model",
	}

	if strings.TrimSpace(modelPath) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Model path is empty."
		item.Hint = "Set WHISPER_MODEL_DIR and WHISPER_MODEL or keep the defaults for auto-download."
		return item
	}

	info, err := c.stat(modelPath)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		if errors.Is(err, os.ErrNotExist) {
			item.Message = fmt.Sprintf("Model file does not exist: %s", modelPath)
		} else {
			item.Message = fmt.Sprintf("Cannot access model file: %s", modelPath)
		}
		item.Hint = "The model is fetched on first run; check network access and the model directory."
		return item
	}

	if info.IsDir() {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Model path is a directory, not a file: %s", modelPath)
		item.Hint = "Point WHISPER_MODEL at a catalog preset so the file resolves inside the model directory."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Model file found: %s", modelPath)
	return item
}

// checkScratchDir validates write access and free space where per-request
// temp directories are created.
func (c *Checker) checkScratchDir(scratchDir string, minFreeBytes uint64) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "scratch_dir",
		Name: "Scratch directory",
	}

	if err := c.mkdirAll(scratchDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create scratch directory: %s", scratchDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(scratchDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Scratch directory is not writable: %s", scratchDir)
		item.Hint = "Audio downloads need a writable temp location."
		return item
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	free, total, err := c.diskUsage(scratchDir)
	if err != nil {
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Writable directory: %s (free space unknown)", scratchDir)
		return item
	}
	if free < minFreeBytes {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Low disk space: %d MB free of %d MB total", free/(1024*1024), total/(1024*1024))
		item.Hint = "Free up disk space; extractions refuse to start below the configured minimum."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory with %d MB free: %s", free/(1024*1024), scratchDir)
	return item
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
	diskUsage func(string) (uint64, uint64, error),
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		stat:       stat,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
		diskUsage:  diskUsage,
	}
}
