package domain

import "time"

// RecognitionSegment is one timed chunk of recognized speech text.
type RecognitionSegment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// RecognitionResult is the outcome of one speech-recognition run.
type RecognitionResult struct {
	Language   string
	Confidence float64
	Segments   []RecognitionSegment
}

// ModelOption describes one downloadable whisper.cpp model preset.
type ModelOption struct {
	ID        string
	FileName  string
	URL       string
	SizeLabel string
}
