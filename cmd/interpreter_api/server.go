package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/NotCoffee418/tp4000zc_logger/pkg/interpreter"
	"github.com/NotCoffee418/tp4000zc_logger/pkg/monitor"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// A reading older than this marks the API unhealthy.
const staleAfter = 30 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

type latestReadingSource interface {
	GetLatestReading() *interpreter.Reading
}

func newServeMux(source latestReadingSource, hub *clientHub) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		writeJson(w, http.StatusOK, map[string]any{
			"message":           "TP4000ZC Multimeter API",
			"status":            "running",
			"websocket_clients": hub.Count(),
		})
	})

	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		reading := source.GetLatestReading()
		if reading == nil {
			writeJson(w, http.StatusNotFound, map[string]string{
				"error": "No readings available yet",
			})
			return
		}
		writeJson(w, http.StatusOK, reading)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		reading := source.GetLatestReading()
		if reading == nil {
			writeJson(w, http.StatusServiceUnavailable, map[string]string{"status": "waiting for first reading"})
			return
		}
		age := time.Since(reading.Timestamp)
		if age > staleAfter {
			writeJson(w, http.StatusServiceUnavailable, map[string]any{
				"status":      "stale",
				"age_seconds": int(age.Seconds()),
			})
			return
		}
		writeJson(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"age_seconds": int(age.Seconds()),
		})
	})

	mux.Handle("/metrics", monitor.Handler())

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade error: %v", err)
			return
		}

		client := hub.Add(conn)

		// Send current reading immediately if available
		if reading := source.GetLatestReading(); reading != nil {
			if !client.enqueue(reading.ToJsonBytes()) {
				hub.Remove(conn)
				return
			}
		}

		// Keep connection alive
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				hub.Remove(conn)
				break
			}
		}
	})

	return mux
}

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
