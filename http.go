package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const heartbeatInterval = 15 * time.Second

func newMux(m *Machines, r *Resolvers, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events", eventsHandler(m, logger))
	mux.HandleFunc("GET /resolvers", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(r); err != nil {
			logger.Warn("Could not write resolvers.", zap.Error(err))
		}
	})
	return mux
}

func writeEvent(w http.ResponseWriter, v any, logger *zap.Logger) error {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Warn("JSON marshalling error.", zap.Error(err))
		return nil
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// eventsHandler streams lease events over SSE. With ?mac= only that
// machine's events are sent.
func eventsHandler(m *Machines, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		macStr := r.URL.Query().Get("mac")

		mac, err := net.ParseMAC(macStr)
		if macStr != "" && err != nil {
			http.Error(w, fmt.Sprintf("MAC error: %v", err), http.StatusBadRequest)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("X-Accel-Buffering", "no")

		// Tell client to retry in 3s if disconnected
		if _, err = fmt.Fprint(w, "retry: 3000\n\n"); err != nil {
			return
		}

		// Subscribe before the snapshot so nothing falls between the two.
		ch, unsubscribe := m.broker.Subscribe()
		defer unsubscribe()

		var snapshot any = m
		if macStr != "" {
			snapshot = m.GetOrInitMachine(mac)
		}
		if err := writeEvent(w, snapshot, logger); err != nil {
			return
		}
		flusher.Flush()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				if _, err = fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case msg, ok := <-ch:
				if !ok {
					return
				}

				if macStr != "" && msg.Mac.String() != mac.String() {
					continue
				}
				if err := writeEvent(w, msg, logger); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func webserver(addr string, mux *http.ServeMux, logger *zap.Logger) error {
	logger.Info("SSE server listening.", zap.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}
