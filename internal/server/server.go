package server

import (
	"io/fs"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/gulfcoastdev/whisper-youtube-transcriber/internal/gateway"
)

// New builds the HTTP handler: the single-page frontend at the root and
// the realtime channel at /ws.
func New(assets fs.FS, gw *gateway.Gateway) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", serveIndex(assets)).Methods("GET")
	r.HandleFunc("/ws", gw.HandleWS)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	})
	return c.Handler(r)
}

// serveIndex returns the embedded page for every visit to the root.
func serveIndex(assets fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := fs.ReadFile(assets, "frontend/index.html")
		if err != nil {
			log.Printf("server: read index page: %v", err)
			http.Error(w, "page unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(page); err != nil {
			log.Printf("server: write index page: %v", err)
		}
	}
}
