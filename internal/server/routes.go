package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fetchdeck/fetchd/internal/engine"
	"github.com/fetchdeck/fetchd/internal/ipc"
	"github.com/fetchdeck/fetchd/internal/ipc/schema"
	"go.uber.org/zap"
)

type rpcRequest struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

type rpcResponse struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// NewRpcHandler serves POST /rpc: one gatekept engine call per
// request.
func NewRpcHandler(i *ipc.IPC, log *zap.Logger) http.Handler {
	log = log.Named("rpc")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeRpcError(w, http.StatusBadRequest, fmt.Errorf("malformed request: %w", err))
			return
		}

		result, err := i.Invoke(r.Context(), req.Method, req.Params)
		if err != nil {
			log.Debug("invoke failed",
				zap.String("method", req.Method),
				zap.Error(err),
			)
			writeRpcError(w, statusFor(err), err)
			return
		}

		writeJSON(w, http.StatusOK, rpcResponse{OK: true, Result: result})
	})
}

// statusFor maps broker failures onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ipc.ErrUnauthorizedMethod):
		return http.StatusForbidden
	case errors.Is(err, schema.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNotRunning),
		errors.Is(err, engine.ErrShuttingDown),
		errors.Is(err, engine.ErrProcessExited):
		return http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrCallTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// NewStatusHandler serves GET /status with the supervisor's current
// connectivity.
func NewStatusHandler(i *ipc.IPC) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		writeJSON(w, http.StatusOK, i.Status())
	})
}

type sseMessage struct {
	event string
	data  []byte
}

// NewEventsHandler serves GET /events as a server-sent event stream:
// every engine event plus connectivity changes, in arrival order.
func NewEventsHandler(i *ipc.IPC, log *zap.Logger) http.Handler {
	log = log.Named("events")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		// fan-out handlers run on broker goroutines; hand messages
		// to this request's writer through a buffered channel and
		// drop on overflow rather than stall the broker
		messages := make(chan sseMessage, 64)

		push := func(msg sseMessage) {
			select {
			case messages <- msg:
			default:
				log.Warn("dropping event for slow consumer",
					zap.String("event", msg.event),
				)
			}
		}

		unsubEvents := i.OnEvent(func(name string, data json.RawMessage) {
			push(sseMessage{event: name, data: data})
		})
		defer unsubEvents()

		unsubStatus := i.OnStatus(func(status engine.Status) {
			data, _ := json.Marshal(status)
			push(sseMessage{event: "status", data: data})
		})
		defer unsubStatus()

		for {
			select {
			case <-r.Context().Done():
				return
			case msg := <-messages:
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.event, msg.data)
				flusher.Flush()
			}
		}
	})
}

func writeRpcError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, rpcResponse{OK: false, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
