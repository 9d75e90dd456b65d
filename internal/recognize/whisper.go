package recognize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/domain"
)

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// Recognizer runs whisper.cpp inference over downloaded audio files.
// The model is loaded lazily and shared across requests; the ggml
// backend is not thread safe, so one mutex serializes inference.
type Recognizer struct {
	modelPath  string
	ffmpegPath string
	runner     commandRunner
	readFile   func(name string) ([]byte, error)

	mu    sync.Mutex
	model whisper.Model
}

// New creates a recognizer backed by the model file at modelPath.
func New(modelPath string) *Recognizer {
	return &Recognizer{
		modelPath:  modelPath,
		ffmpegPath: "ffmpeg",
		runner:     &execRunner{},
		readFile:   os.ReadFile,
	}
}

// Recognize converts audioPath to 16 kHz mono PCM and transcribes it.
// An empty or "auto" language enables whisper's language detection.
func (r *Recognizer) Recognize(ctx context.Context, audioPath, language string) (domain.RecognitionResult, error) {
	wavPath := audioPath + ".16k.wav"
	args := buildFFmpegArgs(audioPath, wavPath)
	if result, err := r.runner.Run(ctx, r.ffmpegPath, args...); err != nil {
		return domain.RecognitionResult{}, fmt.Errorf("ffmpeg audio conversion failed (exit=%d): %w", result.ExitCode, err)
	}

	data, err := r.readFile(wavPath)
	if err != nil {
		return domain.RecognitionResult{}, fmt.Errorf("read converted audio: %w", err)
	}
	samples, err := decodeWAV(data)
	if err != nil {
		return domain.RecognitionResult{}, fmt.Errorf("decode converted audio: %w", err)
	}

	lang := language
	if lang == "" {
		lang = "auto"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.model == nil {
		model, err := whisper.New(r.modelPath)
		if err != nil {
			return domain.RecognitionResult{}, fmt.Errorf("load whisper model %s: %w", r.modelPath, err)
		}
		r.model = model
	}

	wctx, err := r.model.NewContext()
	if err != nil {
		return domain.RecognitionResult{}, fmt.Errorf("create whisper context: %w", err)
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return domain.RecognitionResult{}, fmt.Errorf("set language %q: %w", lang, err)
	}
	wctx.SetTranslate(false)

	var segments []domain.RecognitionSegment
	collect := func(segment whisper.Segment) {
		segments = append(segments, domain.RecognitionSegment{
			Start: segment.Start,
			End:   segment.End,
			Text:  segment.Text,
		})
	}
	if err := wctx.Process(samples, nil, collect, nil); err != nil {
		return domain.RecognitionResult{}, fmt.Errorf("whisper process: %w", err)
	}

	// The C API does not expose a language probability.
	result := domain.RecognitionResult{
		Language:   lang,
		Confidence: 1,
		Segments:   segments,
	}
	if lang == "auto" {
		if detected := wctx.DetectedLanguage(); detected != "" {
			result.Language = detected
		}
	}
	return result, nil
}

// Close releases the shared whisper model.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.model == nil {
		return nil
	}
	err := r.model.Close()
	r.model = nil
	return err
}

// buildFFmpegArgs builds CLI args for mono 16k PCM WAV output, the
// input format whisper.cpp expects.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}
}
