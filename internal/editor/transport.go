package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// RunRequest is the body of POST /run.
type RunRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Input    string `json:"input"`
}

// Relay submits one run. A returned error means the relay could not be
// reached or its answer could not be read; a relay-side failure still comes
// back as a Response.
type Relay interface {
	Run(ctx context.Context, req RunRequest) (Response, error)
}

// HTTPRelay posts runs to <BaseURL>/run.
type HTTPRelay struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPRelay creates a relay transport for baseURL, e.g.
// "http://localhost:5000".
func NewHTTPRelay(baseURL string) *HTTPRelay {
	return &HTTPRelay{BaseURL: strings.TrimRight(baseURL, "/"), Client: http.DefaultClient}
}

func (r *HTTPRelay) Run(ctx context.Context, req RunRequest) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/run", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("posting run: %w", err)
	}
	defer resp.Body.Close()

	// The relay's failure payload arrives with a 500 and is still shown.
	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("decoding relay response (status %d): %w", resp.StatusCode, err)
	}
	return out, nil
}

// Frames exchanged over the relay's /ws endpoint.
type wsOutgoing struct {
	Type     string `json:"type"`
	Language string `json:"language"`
	Code     string `json:"code"`
	Input    string `json:"input"`
}

type wsIncoming struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Output  string `json:"output,omitempty"`
	Content string `json:"content,omitempty"`
	Failed  bool   `json:"failed,omitempty"`
}

// ErrRelayBusy is returned by WSRelay when the relay refused a run because
// another one was in flight on the same connection.
var ErrRelayBusy = errors.New("relay busy")

// WSRelay submits runs over a single WebSocket connection.
type WSRelay struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// DialWS connects to the /ws endpoint of the relay at baseURL.
func DialWS(ctx context.Context, baseURL string) (*WSRelay, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/ws")
	if err != nil {
		return nil, fmt.Errorf("parsing backend url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", u, err)
	}
	return &WSRelay{conn: conn}, nil
}

func (r *WSRelay) Run(ctx context.Context, req RunRequest) (Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.conn.WriteJSON(wsOutgoing{
		Type:     "run",
		Language: req.Language,
		Code:     req.Code,
		Input:    req.Input,
	}); err != nil {
		return Response{}, fmt.Errorf("sending run: %w", err)
	}

	for {
		var msg wsIncoming
		if err := r.conn.ReadJSON(&msg); err != nil {
			return Response{}, fmt.Errorf("reading relay frame: %w", err)
		}
		switch msg.Type {
		case "result":
			return Response{Output: msg.Output}, nil
		case "busy":
			return Response{}, ErrRelayBusy
		case "error":
			return Response{}, fmt.Errorf("relay rejected run: %s", msg.Content)
		}
	}
}

// Close sends a close frame and closes the connection.
func (r *WSRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return r.conn.Close()
}
