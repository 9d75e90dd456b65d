package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/domain"
	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/extract"
	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/youtube"
)

// extractor runs one download/transcribe invocation.
type extractor interface {
	Run(ctx context.Context, req extract.Request) (extract.Result, error)
}

// Envelope frames every message on the channel, in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Gateway upgrades browser connections and dispatches channel events.
// Each valid start_extraction message runs in its own goroutine; the
// read loop never blocks on extraction work.
type Gateway struct {
	upgrader websocket.Upgrader
	pipeline extractor
	language string
	wg       sync.WaitGroup
}

// New creates a gateway running extractions through pipeline with a
// fixed target spoken language.
func New(pipeline extractor, language string) *Gateway {
	return &Gateway{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pipeline: pipeline,
		language: language,
	}
}

// session wraps one connection with serialized writes. gorilla/websocket
// allows at most one concurrent writer per connection.
type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// send marshals data and writes one enveloped event.
func (s *session) send(event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("gateway: marshal %s event: %v", event, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(Envelope{Event: event, Data: payload}); err != nil {
		log.Printf("gateway: write %s event: %v", event, err)
	}
}

// HandleWS upgrades the request and serves channel events until the
// client disconnects.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("gateway: upgrade: %v", err)
		return
	}
	defer conn.Close()

	sess := &session{conn: conn}
	for {
		var envelope Envelope
		if err := conn.ReadJSON(&envelope); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("gateway: read: %v", err)
			}
			return
		}
		g.dispatch(sess, envelope)
	}
}

// dispatch routes one inbound envelope by event name.
func (g *Gateway) dispatch(sess *session, envelope Envelope) {
	switch envelope.Event {
	case domain.EventStartExtraction:
		g.handleStartExtraction(sess, envelope.Data)
	default:
		log.Printf("gateway: ignoring unknown event %q", envelope.Event)
	}
}

// handleStartExtraction validates the URL synchronously and, when it
// passes, spawns the background extraction task.
func (g *Gateway) handleStartExtraction(sess *session, data json.RawMessage) {
	var req domain.ExtractionRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			sess.send(domain.EventTranscriptionError, domain.ErrorPayload{Error: "Invalid request payload"})
			return
		}
	}

	if strings.TrimSpace(req.URL) == "" {
		sess.send(domain.EventTranscriptionError, domain.ErrorPayload{Error: "No URL provided"})
		return
	}
	videoID, ok := youtube.ExtractVideoID(req.URL)
	if !ok {
		sess.send(domain.EventTranscriptionError, domain.ErrorPayload{Error: "Invalid YouTube URL"})
		return
	}

	requestID := uuid.NewString()
	log.Printf("gateway: request %s: extracting video %s", requestID, videoID)

	g.wg.Add(1)
	go g.runExtraction(sess, requestID, req.URL)
}

// runExtraction executes the pipeline and emits the terminal event.
func (g *Gateway) runExtraction(sess *session, requestID, url string) {
	defer g.wg.Done()

	result, err := g.pipeline.Run(context.Background(), extract.Request{
		URL:      url,
		Language: g.language,
		OnProgress: func(event domain.ProgressEvent) {
			sess.send(domain.EventProgress, event)
		},
	})
	if err != nil {
		log.Printf("gateway: request %s failed: %v", requestID, err)
		sess.send(domain.EventTranscriptionError, domain.ErrorPayload{Error: err.Error()})
		return
	}
	if result.Transcript == "" {
		sess.send(domain.EventTranscriptionError, domain.ErrorPayload{Error: "No transcript generated"})
		return
	}

	log.Printf("gateway: request %s complete: %d characters", requestID, len(result.Transcript))
	sess.send(domain.EventTranscriptionComplete, domain.CompletePayload{Transcript: result.Transcript})
}

// Wait blocks until outstanding extraction tasks finish or timeout
// elapses, reporting whether everything drained.
func (g *Gateway) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
