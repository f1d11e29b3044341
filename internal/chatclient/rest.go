package chatclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"workmesh/backend/internal/faults"
	"workmesh/backend/internal/models"
)

// RestClient talks to the fallback endpoints. It implements FallbackAPI.
type RestClient struct {
	// BaseURL is the HTTP root, e.g. http://host:8080.
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewRestClient constructor.
func NewRestClient(baseURL, token string) *RestClient {
	return &RestClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *RestClient) do(method, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequest(method, r.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return &faults.TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("fallback endpoint returned %d (%s): %s", resp.StatusCode, apiErr.Code, apiErr.Error)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// SendMessage mirrors a send_message envelope synchronously.
func (r *RestClient) SendMessage(roomID, content, correlationID string, replyTo *uint) (*models.WireMessage, error) {
	req := map[string]interface{}{
		"content":        content,
		"correlation_id": correlationID,
	}
	if replyTo != nil {
		req["reply_to"] = *replyTo
	}

	var resp struct {
		Message *models.WireMessage `json:"message"`
	}
	if err := r.do(http.MethodPost, "/api/rooms/"+roomID+"/messages", req, &resp); err != nil {
		return nil, err
	}
	if resp.Message == nil {
		return nil, fmt.Errorf("fallback send returned no message")
	}
	return resp.Message, nil
}

// ListRooms mirrors a get_room_list envelope synchronously.
func (r *RestClient) ListRooms() ([]models.RoomSummary, error) {
	var resp struct {
		Rooms []models.RoomSummary `json:"rooms"`
	}
	if err := r.do(http.MethodGet, "/api/rooms", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}
