package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Prince10z/vibb/internal/relay"
	"github.com/Prince10z/vibb/internal/signaling"
)

// Configure the websocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// In production this should check r.Header.Get("Origin") against the
	// frontend's domain.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler builds the HTTP mux for the signaling server.
func Handler(hub *relay.Hub) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthCheck)
	mux.HandleFunc("/ws", serveWs(hub))
	mux.HandleFunc("/watch", serveWatch(hub))
	return mux
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling server is healthy."))
}

// serveWs returns the handler for participant connections.
func serveWs(hub *relay.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("failed to upgrade connection", "err", err)
			return
		}

		client := relay.NewClient(hub, conn)
		go client.WritePump()
		go client.ReadPump()
	}
}

// serveWatch upgrades a rebroadcast listener. The room is taken from the
// query string so plain media players can attach without speaking the
// envelope protocol.
func serveWatch(hub *relay.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("roomId")
		if roomID == "" {
			http.Error(w, "roomId is required", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("failed to upgrade connection", "err", err)
			return
		}

		client := relay.NewClient(hub, conn)
		go client.WritePump()
		go client.ReadPump()

		hub.HandleEnvelope(client, &signaling.Envelope{
			Event:  signaling.EventWatchRoom,
			RoomID: roomID,
		})
	}
}
