package progress

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/domain"
)

// Relay translates raw downloader notifications into normalized
// download-phase progress events. One instance serves one request.
type Relay struct {
	emit func(domain.ProgressEvent)
	last float64
}

// NewRelay creates a relay that forwards events through emit.
func NewRelay(emit func(domain.ProgressEvent)) *Relay {
	return &Relay{emit: emit}
}

// Handle processes one downloader update. Updates that carry neither
// usable byte counts nor a parseable percent string are dropped.
func (r *Relay) Handle(update domain.DownloadUpdate) {
	switch update.Status {
	case domain.DownloadStatusFinished:
		r.last = 100
		r.emit(domain.ProgressEvent{
			Message:    "Download complete!",
			Detail:     "Preparing for transcription...",
			Percentage: 100,
			Phase:      domain.PhaseDownload,
		})
	case domain.DownloadStatusDownloading:
		if update.TotalBytes > 0 {
			percent := float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100
			r.last = percent
			r.emit(domain.ProgressEvent{
				Message: "Downloading audio...",
				Detail: fmt.Sprintf("Downloaded %s of %s bytes",
					groupDigits(update.DownloadedBytes), groupDigits(update.TotalBytes)),
				Percentage: percent,
				Phase:      domain.PhaseDownload,
			})
			return
		}

		raw := strings.TrimSpace(update.PercentString)
		if !strings.Contains(raw, "%") {
			return
		}
		percent, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(raw, "%", "")), 64)
		if err != nil || math.IsNaN(percent) || percent < 0 || percent > 100 {
			return
		}
		r.last = percent
		r.emit(domain.ProgressEvent{
			Message:    "Downloading audio...",
			Detail:     "Progress: " + raw,
			Percentage: percent,
			Phase:      domain.PhaseDownload,
		})
	}
}

// LastPercentage returns the most recent forwarded percentage.
func (r *Relay) LastPercentage() float64 {
	return r.last
}

// groupDigits formats n with comma thousands separators.
func groupDigits(n int64) string {
	digits := strconv.FormatInt(n, 10)
	negative := strings.HasPrefix(digits, "-")
	if negative {
		digits = digits[1:]
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}

	if negative {
		return "-" + b.String()
	}
	return b.String()
}
