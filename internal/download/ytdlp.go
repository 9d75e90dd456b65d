package download

import (
	"context"
	"path/filepath"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/domain"
)

// outputTemplate fixes the downloaded file name so the pipeline can
// locate it by prefix regardless of container extension.
const outputTemplate = "audio.%(ext)s"

// progressInterval throttles native progress callbacks.
const progressInterval = 500 * time.Millisecond

// Service downloads best-available audio through the yt-dlp wrapper.
type Service struct{}

// NewService creates the production downloader.
func NewService() *Service {
	return &Service{}
}

// Install provisions the yt-dlp binary when it is not already present.
func Install(ctx context.Context) error {
	_, err := ytdlp.Install(ctx, nil)
	return err
}

// Download fetches audio for url into dir, forwarding native progress
// updates through hook. Exactly one file named audio.<ext> is produced.
func (s *Service) Download(ctx context.Context, url, dir string, hook func(domain.DownloadUpdate)) error {
	dl := ytdlp.New().
		Format("bestaudio").
		NoWarnings().
		Output(filepath.Join(dir, outputTemplate))

	if hook != nil {
		dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
			hook(adaptUpdate(update))
		})
	}

	_, err := dl.Run(ctx, url)
	return err
}

// adaptUpdate maps the wrapper's progress shape onto the domain update.
func adaptUpdate(update ytdlp.ProgressUpdate) domain.DownloadUpdate {
	out := domain.DownloadUpdate{
		DownloadedBytes: int64(update.DownloadedBytes),
		TotalBytes:      int64(update.TotalBytes),
		PercentString:   update.PercentString(),
	}

	switch update.Status {
	case ytdlp.ProgressStatusFinished:
		out.Status = domain.DownloadStatusFinished
	default:
		out.Status = domain.DownloadStatusDownloading
	}
	return out
}
