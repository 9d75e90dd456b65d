package recognize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/domain"
)

// DefaultModelID is downloaded on first run when no model is present.
const DefaultModelID = "base"

const modelDownloadTimeout = 45 * time.Minute

// modelCatalog lists the whisper.cpp presets available for auto-fetch.
var modelCatalog = []domain.ModelOption{
	{
		ID:        "tiny",
		FileName:  "ggml-tiny.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin",
		SizeLabel: "~75 MB",
	},
	{
		ID:        "tiny.en",
		FileName:  "ggml-tiny.en.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.en.bin",
		SizeLabel: "~75 MB",
	},
	{
		ID:        "base",
		FileName:  "ggml-base.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
		SizeLabel: "~142 MB",
	},
	{
		ID:        "base.en",
		FileName:  "ggml-base.en.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.en.bin",
		SizeLabel: "~142 MB",
	},
	{
		ID:        "small",
		FileName:  "ggml-small.bin",
		URL:       "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin",
		SizeLabel: "~466 MB",
	},
}

// ModelByID returns the catalog entry for id.
func ModelByID(id string) (domain.ModelOption, bool) {
	for _, model := range modelCatalog {
		if model.ID == id {
			return model, true
		}
	}
	return domain.ModelOption{}, false
}

// EnsureModel returns the local path of the model identified by id
// inside dir, downloading it on first run.
func EnsureModel(dir, id string) (string, error) {
	model, ok := ModelByID(id)
	if !ok {
		return "", fmt.Errorf("unknown whisper model id: %s", id)
	}

	target := filepath.Join(dir, model.FileName)
	if _, err := os.Stat(target); err == nil {
		return target, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("check model file: %w", err)
	}

	log.Printf("downloading whisper model %s (%s) to %s", model.ID, model.SizeLabel, target)
	if err := downloadURLToFile(target, model.URL, modelDownloadTimeout); err != nil {
		return "", fmt.Errorf("download model %s: %w", model.ID, err)
	}
	return target, nil
}

// downloadURLToFile fetches sourceURL into destinationPath through a
// temp file so an interrupted download never leaves a partial model.
func downloadURLToFile(destinationPath, sourceURL string, timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(destinationPath), 0o755); err != nil {
		return fmt.Errorf("prepare destination directory: %w", err)
	}

	tmpPath := destinationPath + ".download"
	if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale temp file: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "whisper-youtube-transcriber")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	_, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write destination file: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close destination file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destinationPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move downloaded file into place: %w", err)
	}
	return nil
}
