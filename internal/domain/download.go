package domain

// DownloadStatus mirrors the status values reported by the media
// downloader's native progress hook.
type DownloadStatus string

const (
	DownloadStatusDownloading DownloadStatus = "downloading"
	DownloadStatusFinished    DownloadStatus = "finished"
)

// DownloadUpdate is one raw progress notification from the downloader.
// Either byte counts or a preformatted percent string may be populated.
type DownloadUpdate struct {
	Status          DownloadStatus
	DownloadedBytes int64
	TotalBytes      int64
	PercentString   string
}
