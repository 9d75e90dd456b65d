package download

import (
	"testing"

	"github.com/lrstanley/go-ytdlp"

	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/domain"
)

// TestAdaptUpdateDownloading checks byte counts survive the mapping.
func TestAdaptUpdateDownloading(t *testing.T) {
	got := adaptUpdate(ytdlp.ProgressUpdate{
		Status:          ytdlp.ProgressStatusDownloading,
		DownloadedBytes: 1024,
		TotalBytes:      4096,
	})

	if got.Status != domain.DownloadStatusDownloading {
		t.Fatalf("status = %s, want downloading", got.Status)
	}
	if got.DownloadedBytes != 1024 || got.TotalBytes != 4096 {
		t.Fatalf("bytes = %d/%d, want 1024/4096", got.DownloadedBytes, got.TotalBytes)
	}
}

// TestAdaptUpdateFinished checks the terminal status mapping.
func TestAdaptUpdateFinished(t *testing.T) {
	got := adaptUpdate(ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusFinished})
	if got.Status != domain.DownloadStatusFinished {
		t.Fatalf("status = %s, want finished", got.Status)
	}
}

// TestAdaptUpdateNonTerminalStatusesMapToDownloading checks that
// pre/post-processing phases stay in the download phase.
func TestAdaptUpdateNonTerminalStatusesMapToDownloading(t *testing.T) {
	for _, status := range []ytdlp.ProgressStatus{
		ytdlp.ProgressStatusStarting,
		ytdlp.ProgressStatusPostProcessing,
	} {
		got := adaptUpdate(ytdlp.ProgressUpdate{Status: status})
		if got.Status != domain.DownloadStatusDownloading {
			t.Fatalf("status %s mapped to %s, want downloading", status, got.Status)
		}
	}
}
