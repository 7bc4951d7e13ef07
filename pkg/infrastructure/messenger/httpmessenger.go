package messenger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"storefront/pkg/storefront/domain/model"
)

type buttonDTO struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

type notifyRequest struct {
	SessionID string        `json:"session_id"`
	Handle    uuid.UUID     `json:"handle"`
	Text      string        `json:"text"`
	Keyboard  [][]buttonDTO `json:"keyboard,omitempty"`
}

type deleteRequest struct {
	SessionID string    `json:"session_id"`
	Handle    uuid.UUID `json:"handle"`
}

type documentRequest struct {
	SessionID  string `json:"session_id"`
	FileHandle string `json:"file_handle"`
}

// HTTPMessenger forwards outbound messages to the chat transport bridge
// over HTTP. Message handles are minted here so the core can refer to
// messages without waiting for the transport.
type HTTPMessenger struct {
	baseURL string
	client  *http.Client
}

func NewHTTPMessenger(baseURL string) *HTTPMessenger {
	return &HTTPMessenger{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *HTTPMessenger) Notify(sessionID, text string, keyboard model.Keyboard) (uuid.UUID, error) {
	handle := uuid.New()
	req := notifyRequest{SessionID: sessionID, Handle: handle, Text: text}
	for _, row := range keyboard {
		var dtoRow []buttonDTO
		for _, button := range row {
			dtoRow = append(dtoRow, buttonDTO(button))
		}
		req.Keyboard = append(req.Keyboard, dtoRow)
	}

	if err := m.post("/messages", req); err != nil {
		return uuid.Nil, err
	}
	return handle, nil
}

func (m *HTTPMessenger) DeleteMessage(sessionID string, handle uuid.UUID) error {
	return m.post("/messages/delete", deleteRequest{SessionID: sessionID, Handle: handle})
}

func (m *HTTPMessenger) SendDocument(sessionID, fileHandle string) error {
	return m.post("/documents", documentRequest{SessionID: sessionID, FileHandle: fileHandle})
}

func (m *HTTPMessenger) post(path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encode outbound payload")
	}

	resp, err := m.client.Post(m.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "post %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("transport bridge returned %d for %s", resp.StatusCode, path)
	}
	return nil
}
