package transport

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// EventHandler is the core's inbound surface: one entry point per kind of
// chat event.
type EventHandler interface {
	OnCommand(sessionID, command string) error
	OnText(sessionID, text string) error
	OnButton(sessionID, token string) error
	OnDocumentUpload(sessionID, fileHandle, mimeType string) error
}

type handler struct {
	bot EventHandler
}

func Router(bot EventHandler) http.Handler {
	h := &handler{bot: bot}

	r := mux.NewRouter()
	s := r.PathPrefix("/api/v1").Subrouter()
	s.HandleFunc("/events/command", h.command).Methods(http.MethodPost)
	s.HandleFunc("/events/text", h.text).Methods(http.MethodPost)
	s.HandleFunc("/events/button", h.button).Methods(http.MethodPost)
	s.HandleFunc("/events/document", h.document).Methods(http.MethodPost)
	r.HandleFunc("/health", health).Methods(http.MethodGet)

	return logMiddleware(r)
}

type commandEvent struct {
	SessionID string `json:"session_id"`
	Command   string `json:"command"`
}

type textEvent struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type buttonEvent struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

type documentEvent struct {
	SessionID  string `json:"session_id"`
	FileHandle string `json:"file_handle"`
	MimeType   string `json:"mime_type"`
}

func (h *handler) command(w http.ResponseWriter, r *http.Request) {
	var event commandEvent
	if !decode(w, r, &event) || !requireSession(w, event.SessionID) {
		return
	}
	respond(w, h.bot.OnCommand(event.SessionID, event.Command))
}

func (h *handler) text(w http.ResponseWriter, r *http.Request) {
	var event textEvent
	if !decode(w, r, &event) || !requireSession(w, event.SessionID) {
		return
	}
	respond(w, h.bot.OnText(event.SessionID, event.Text))
}

func (h *handler) button(w http.ResponseWriter, r *http.Request) {
	var event buttonEvent
	if !decode(w, r, &event) || !requireSession(w, event.SessionID) {
		return
	}
	respond(w, h.bot.OnButton(event.SessionID, event.Token))
}

func (h *handler) document(w http.ResponseWriter, r *http.Request) {
	var event documentEvent
	if !decode(w, r, &event) || !requireSession(w, event.SessionID) {
		return
	}
	respond(w, h.bot.OnDocumentUpload(event.SessionID, event.FileHandle, event.MimeType))
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func requireSession(w http.ResponseWriter, sessionID string) bool {
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return false
	}
	return true
}

func respond(w http.ResponseWriter, err error) {
	if err != nil {
		log.WithError(err).Error("event handling failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		}).Info("got a new request")
		h.ServeHTTP(w, r)
	})
}
