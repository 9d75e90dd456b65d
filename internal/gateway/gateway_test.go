package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/domain"
	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/extract"
)

const validURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

// fakeExtractor counts invocations and delegates to injected behavior.
type fakeExtractor struct {
	calls int64
	run   func(ctx context.Context, req extract.Request) (extract.Result, error)
}

// Run implements the pipeline contract for tests.
func (f *fakeExtractor) Run(ctx context.Context, req extract.Request) (extract.Result, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.run == nil {
		return extract.Result{}, nil
	}
	return f.run(ctx, req)
}

// dialGateway serves gw over httptest and dials one client connection.
func dialGateway(t *testing.T, gw *Gateway) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(gw.HandleWS))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// sendStart writes a start_extraction envelope with the given url.
func sendStart(t *testing.T, conn *websocket.Conn, url string) {
	t.Helper()

	data, err := json.Marshal(domain.ExtractionRequest{URL: url})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteJSON(Envelope{Event: domain.EventStartExtraction, Data: data}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readEnvelope reads one enveloped event with a read deadline.
func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var envelope Envelope
	if err := conn.ReadJSON(&envelope); err != nil {
		t.Fatalf("read: %v", err)
	}
	return envelope
}

// readErrorPayload expects a transcription_error event next.
func readErrorPayload(t *testing.T, conn *websocket.Conn) domain.ErrorPayload {
	t.Helper()

	envelope := readEnvelope(t, conn)
	if envelope.Event != domain.EventTranscriptionError {
		t.Fatalf("event = %q, want %q", envelope.Event, domain.EventTranscriptionError)
	}
	var payload domain.ErrorPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return payload
}

// TestGatewayRejectsMissingURL checks the synchronous validation path.
func TestGatewayRejectsMissingURL(t *testing.T) {
	pipeline := &fakeExtractor{}
	conn := dialGateway(t, New(pipeline, "en"))

	sendStart(t, conn, "")

	if got := readErrorPayload(t, conn); got.Error != "No URL provided" {
		t.Fatalf("error = %q, want No URL provided", got.Error)
	}
	if atomic.LoadInt64(&pipeline.calls) != 0 {
		t.Fatal("pipeline must not run for missing URL")
	}
}

// TestGatewayRejectsInvalidURL checks no background work is spawned.
func TestGatewayRejectsInvalidURL(t *testing.T) {
	pipeline := &fakeExtractor{}
	conn := dialGateway(t, New(pipeline, "en"))

	sendStart(t, conn, "https://example.com/not-a-video")

	if got := readErrorPayload(t, conn); got.Error != "Invalid YouTube URL" {
		t.Fatalf("error = %q, want Invalid YouTube URL", got.Error)
	}
	if atomic.LoadInt64(&pipeline.calls) != 0 {
		t.Fatal("pipeline must not run for invalid URL")
	}
}

// TestGatewayStreamsProgressThenCompletion checks event ordering for a
// successful extraction.
func TestGatewayStreamsProgressThenCompletion(t *testing.T) {
	pipeline := &fakeExtractor{
		run: func(ctx context.Context, req extract.Request) (extract.Result, error) {
			if req.Language != "en" {
				t.Errorf("language = %q, want en", req.Language)
			}
			req.OnProgress(domain.ProgressEvent{Message: "Initializing download...", Phase: domain.PhaseDownload})
			req.OnProgress(domain.ProgressEvent{Message: "Transcription complete!", Percentage: 100, Phase: domain.PhaseTranscribe})
			return extract.Result{Transcript: "Hello world"}, nil
		},
	}
	conn := dialGateway(t, New(pipeline, "en"))

	sendStart(t, conn, validURL)

	first := readEnvelope(t, conn)
	if first.Event != domain.EventProgress {
		t.Fatalf("event 1 = %q, want progress", first.Event)
	}
	second := readEnvelope(t, conn)
	if second.Event != domain.EventProgress {
		t.Fatalf("event 2 = %q, want progress", second.Event)
	}

	terminal := readEnvelope(t, conn)
	if terminal.Event != domain.EventTranscriptionComplete {
		t.Fatalf("terminal event = %q, want transcription_complete", terminal.Event)
	}
	var payload domain.CompletePayload
	if err := json.Unmarshal(terminal.Data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Transcript != "Hello world" {
		t.Fatalf("transcript = %q, want Hello world", payload.Transcript)
	}
}

// TestGatewayEmptyTranscriptReportsDistinctError checks the
// no-transcript outcome.
func TestGatewayEmptyTranscriptReportsDistinctError(t *testing.T) {
	pipeline := &fakeExtractor{
		run: func(ctx context.Context, req extract.Request) (extract.Result, error) {
			return extract.Result{Transcript: ""}, nil
		},
	}
	conn := dialGateway(t, New(pipeline, "en"))

	sendStart(t, conn, validURL)

	if got := readErrorPayload(t, conn); got.Error != "No transcript generated" {
		t.Fatalf("error = %q, want No transcript generated", got.Error)
	}
}

// TestGatewayPipelineErrorForwarded checks failure text reaches the
// client as a terminal error event.
func TestGatewayPipelineErrorForwarded(t *testing.T) {
	pipeline := &fakeExtractor{
		run: func(ctx context.Context, req extract.Request) (extract.Result, error) {
			return extract.Result{}, errors.New("download failed: audio download failed: HTTP 403")
		},
	}
	conn := dialGateway(t, New(pipeline, "en"))

	sendStart(t, conn, validURL)

	got := readErrorPayload(t, conn)
	if !strings.Contains(got.Error, "HTTP 403") {
		t.Fatalf("error = %q, want underlying failure text", got.Error)
	}
}

// TestGatewayConcurrentRequestsDoNotCrossTalk checks two clients each
// receive only their own event stream.
func TestGatewayConcurrentRequestsDoNotCrossTalk(t *testing.T) {
	pipeline := &fakeExtractor{
		run: func(ctx context.Context, req extract.Request) (extract.Result, error) {
			for i := 0; i < 5; i++ {
				req.OnProgress(domain.ProgressEvent{
					Message: "Downloading audio...",
					Detail:  req.URL,
					Phase:   domain.PhaseDownload,
				})
				time.Sleep(5 * time.Millisecond)
			}
			return extract.Result{Transcript: "transcript for " + req.URL}, nil
		},
	}
	gw := New(pipeline, "en")

	urlA := "https://www.youtube.com/watch?v=AAAAAAAAAAA"
	urlB := "https://www.youtube.com/watch?v=BBBBBBBBBBB"
	connA := dialGateway(t, gw)
	connB := dialGateway(t, gw)

	sendStart(t, connA, urlA)
	sendStart(t, connB, urlB)

	check := func(conn *websocket.Conn, url string) {
		for {
			envelope := readEnvelope(t, conn)
			switch envelope.Event {
			case domain.EventProgress:
				var event domain.ProgressEvent
				if err := json.Unmarshal(envelope.Data, &event); err != nil {
					t.Fatalf("unmarshal: %v", err)
				}
				if event.Detail != url {
					t.Fatalf("cross-talk: got detail %q on stream for %q", event.Detail, url)
				}
			case domain.EventTranscriptionComplete:
				var payload domain.CompletePayload
				if err := json.Unmarshal(envelope.Data, &payload); err != nil {
					t.Fatalf("unmarshal: %v", err)
				}
				if payload.Transcript != "transcript for "+url {
					t.Fatalf("cross-talk: transcript %q on stream for %q", payload.Transcript, url)
				}
				return
			default:
				t.Fatalf("unexpected event %q", envelope.Event)
			}
		}
	}

	check(connA, urlA)
	check(connB, urlB)

	if !gw.Wait(time.Second) {
		t.Fatal("extractions did not drain")
	}
	if got := atomic.LoadInt64(&pipeline.calls); got != 2 {
		t.Fatalf("pipeline calls = %d, want 2", got)
	}
}

// TestGatewayWaitTimesOutWhileRunning checks Wait reports undrained work.
func TestGatewayWaitTimesOutWhileRunning(t *testing.T) {
	release := make(chan struct{})
	pipeline := &fakeExtractor{
		run: func(ctx context.Context, req extract.Request) (extract.Result, error) {
			<-release
			return extract.Result{Transcript: "late"}, nil
		},
	}
	gw := New(pipeline, "en")
	conn := dialGateway(t, gw)

	sendStart(t, conn, validURL)

	// Give the read loop a moment to spawn the task.
	time.Sleep(20 * time.Millisecond)
	if gw.Wait(10 * time.Millisecond) {
		t.Fatal("Wait should time out while the task is blocked")
	}

	close(release)
	if !gw.Wait(time.Second) {
		t.Fatal("Wait should succeed after release")
	}
}
