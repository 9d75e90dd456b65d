package extract

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/domain"
	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/platform"
	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/progress"
)

// DefaultMinFreeBytes is the free-space floor below which a download is
// refused outright.
const DefaultMinFreeBytes = 100 * 1024 * 1024

// audioFilePrefix is the fixed name prefix the downloader writes under.
const audioFilePrefix = "audio."

// Downloader fetches best-available audio for a URL into dir, invoking
// hook zero or more times with raw progress updates and a final
// finished status.
type Downloader interface {
	Download(ctx context.Context, url, dir string, hook func(domain.DownloadUpdate)) error
}

// Recognizer runs speech-to-text over one downloaded audio file.
type Recognizer interface {
	Recognize(ctx context.Context, audioPath, language string) (domain.RecognitionResult, error)
}

// Request contains the validated input and event callback for one run.
type Request struct {
	URL        string
	Language   string
	OnProgress func(domain.ProgressEvent)
}

// Result is the all-or-nothing outcome of one extraction run.
type Result struct {
	Transcript string
	Language   string
	Confidence float64
	AudioBytes int64
}

// PipelineError is a phase-aware error wrapping the underlying failure.
type PipelineError struct {
	Phase   domain.Phase
	Message string
	Err     error
}

// Error formats pipeline failures for terminal error events.
func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s failed: %s", e.Phase, e.Message)
	}
	return fmt.Sprintf("%s failed: %s: %v", e.Phase, e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Pipeline sequences audio download and speech recognition for one URL,
// emitting progress events at each transition.
type Pipeline struct {
	downloader   Downloader
	recognizer   Recognizer
	minFreeBytes uint64

	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
	readDir   func(name string) ([]os.DirEntry, error)
	stat      func(name string) (os.FileInfo, error)
	diskUsage func(path string) (free uint64, total uint64, err error)
}

// NewPipeline constructs the production pipeline with OS dependencies.
func NewPipeline(downloader Downloader, recognizer Recognizer, minFreeBytes uint64) *Pipeline {
	if minFreeBytes == 0 {
		minFreeBytes = DefaultMinFreeBytes
	}

	return &Pipeline{
		downloader:   downloader,
		recognizer:   recognizer,
		minFreeBytes: minFreeBytes,
		mkdirTemp:    os.MkdirTemp,
		removeAll:    os.RemoveAll,
		readDir:      os.ReadDir,
		stat:         os.Stat,
		diskUsage:    platform.DiskUsage,
	}
}

// Run performs download, recognition, and transcript assembly. The
// scratch directory is removed on every exit path.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	emit := req.OnProgress
	if emit == nil {
		emit = func(domain.ProgressEvent) {}
	}

	emit(domain.ProgressEvent{
		Message: "Initializing download...",
		Detail:  "Setting up yt-dlp",
		Phase:   domain.PhaseDownload,
	})

	if free, total, err := p.diskUsage(os.TempDir()); err == nil {
		freeMB := free / (1024 * 1024)
		if free < p.minFreeBytes {
			return Result{}, &PipelineError{
				Phase:   domain.PhaseDownload,
				Message: fmt.Sprintf("insufficient disk space: %dMB available", freeMB),
			}
		}
		log.Printf("disk space: %dMB free of %dMB total", freeMB, total/(1024*1024))
	}

	tempDir, err := p.mkdirTemp("", "transcript-extract-*")
	if err != nil {
		return Result{}, &PipelineError{
			Phase:   domain.PhaseDownload,
			Message: "failed to create temporary workspace",
			Err:     err,
		}
	}
	defer func() {
		_ = p.removeAll(tempDir)
	}()

	relay := progress.NewRelay(emit)
	if err := p.downloader.Download(ctx, req.URL, tempDir, relay.Handle); err != nil {
		return Result{}, &PipelineError{
			Phase:   domain.PhaseDownload,
			Message: "audio download failed",
			Err:     err,
		}
	}

	audioPath, audioBytes, err := p.locateAudioFile(tempDir)
	if err != nil {
		return Result{}, &PipelineError{
			Phase:   domain.PhaseDownload,
			Message: err.Error(),
		}
	}

	audioMB := float64(audioBytes) / (1024 * 1024)
	log.Printf("downloaded %s (%.1fMB)", filepath.Base(audioPath), audioMB)
	emit(domain.ProgressEvent{
		Message:    "Download complete!",
		Detail:     fmt.Sprintf("Audio file: %.1fMB - preparing for transcription", audioMB),
		Percentage: 100,
		Phase:      domain.PhaseDownload,
	})

	emit(domain.ProgressEvent{
		Message: "Starting transcription...",
		Detail:  "Loading Whisper model",
		Phase:   domain.PhaseTranscribe,
	})
	emit(domain.ProgressEvent{
		Message:    "Loading Whisper model...",
		Detail:     "Initializing base model",
		Percentage: 10,
		Phase:      domain.PhaseTranscribe,
	})
	emit(domain.ProgressEvent{
		Message:    "Transcribing audio...",
		Detail:     "Processing speech recognition",
		Percentage: 30,
		Phase:      domain.PhaseTranscribe,
	})

	recognition, err := p.recognizer.Recognize(ctx, audioPath, req.Language)
	if err != nil {
		return Result{}, &PipelineError{
			Phase:   domain.PhaseTranscribe,
			Message: "transcription failed",
			Err:     err,
		}
	}

	emit(domain.ProgressEvent{
		Message:    "Processing results...",
		Detail:     fmt.Sprintf("Detected language: %s (confidence: %.2f)", recognition.Language, recognition.Confidence),
		Percentage: 80,
		Phase:      domain.PhaseTranscribe,
	})

	parts := make([]string, 0, len(recognition.Segments))
	for i, segment := range recognition.Segments {
		parts = append(parts, strings.TrimSpace(segment.Text))
		if i%10 == 0 {
			// Divides by segments seen so far rather than an estimated
			// total; the explicit completion event overrides it.
			emit(domain.ProgressEvent{
				Message:    "Assembling transcript...",
				Detail:     fmt.Sprintf("Processing segment %d", i+1),
				Percentage: 80 + float64(i)*15/float64(len(parts)),
				Phase:      domain.PhaseTranscribe,
			})
		}
	}

	transcript := strings.TrimSpace(strings.Join(parts, " "))

	emit(domain.ProgressEvent{
		Message:    "Transcription complete!",
		Detail:     fmt.Sprintf("Generated %d characters", len(transcript)),
		Percentage: 100,
		Phase:      domain.PhaseTranscribe,
	})

	return Result{
		Transcript: transcript,
		Language:   recognition.Language,
		Confidence: recognition.Confidence,
		AudioBytes: audioBytes,
	}, nil
}

// locateAudioFile finds the single downloaded file by its name prefix.
func (p *Pipeline) locateAudioFile(dir string) (string, int64, error) {
	entries, err := p.readDir(dir)
	if err != nil {
		return "", 0, fmt.Errorf("read download directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), audioFilePrefix) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := p.stat(path)
		if err != nil {
			return "", 0, fmt.Errorf("stat downloaded file: %w", err)
		}
		return path, info.Size(), nil
	}

	return "", 0, errors.New("no audio file found after download")
}

// NewPipelineForTests constructs a pipeline with injectable dependencies.
func NewPipelineForTests(
	downloader Downloader,
	recognizer Recognizer,
	minFreeBytes uint64,
	mkdirTemp func(dir, pattern string) (string, error),
	removeAll func(path string) error,
	diskUsage func(path string) (uint64, uint64, error),
) *Pipeline {
	return &Pipeline{
		downloader:   downloader,
		recognizer:   recognizer,
		minFreeBytes: minFreeBytes,
		mkdirTemp:    mkdirTemp,
		removeAll:    removeAll,
		readDir:      os.ReadDir,
		stat:         os.Stat,
		diskUsage:    diskUsage,
	}
}
