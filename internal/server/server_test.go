package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelbrown/runpad/internal/editor"
	"github.com/michaelbrown/runpad/internal/lang"
	"github.com/michaelbrown/runpad/internal/logging"
	"github.com/michaelbrown/runpad/internal/relay"
)

type runnerFunc func(ctx context.Context, req relay.RunRequest) (relay.RunResponse, error)

func (f runnerFunc) Run(ctx context.Context, req relay.RunRequest) (relay.RunResponse, error) {
	return f(ctx, req)
}

func testServer(t *testing.T, runner Runner) *httptest.Server {
	t.Helper()
	s := New(runner, lang.Builtin(), logging.Discard())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.conns.CloseAll()
		srv.Close()
	})
	return srv
}

func postRun(t *testing.T, url, body string) (*http.Response, map[string]string) {
	t.Helper()
	resp, err := http.Post(url+"/run", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestRunEndToEnd(t *testing.T) {
	var downstream relay.ExecuteRequest
	piston := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&downstream)
		w.Write([]byte(`{"language":"python","version":"3.10.0","run":{"stdout":"1\n","stderr":"","output":"1\n","code":0}}`))
	}))
	defer piston.Close()

	svc := relay.New(relay.NewPistonClient(piston.URL, nil), "*", logging.Discard())
	srv := testServer(t, svc)

	resp, out := postRun(t, srv.URL, `{"language":"python","code":"print(1)","input":""}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, map[string]string{"output": "1\n"}, out)

	require.Len(t, downstream.Files, 1)
	assert.Equal(t, "main.py", downstream.Files[0].Name)
	assert.Equal(t, "*", downstream.Version)
}

func TestRunDownstreamErrorIsGeneric(t *testing.T) {
	piston := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"secret-ish detail: runtime is unknown"}`))
	}))
	defer piston.Close()

	svc := relay.New(relay.NewPistonClient(piston.URL, nil), "*", logging.Discard())
	srv := testServer(t, svc)

	resp, out := postRun(t, srv.URL, `{"language":"klingon","code":"","input":""}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, map[string]string{"output": "Error executing code."}, out)
}

func TestRunRunnerErrorDoesNotLeak(t *testing.T) {
	srv := testServer(t, runnerFunc(func(context.Context, relay.RunRequest) (relay.RunResponse, error) {
		return relay.RunResponse{Output: "leaked"}, errors.New("dial tcp: connection refused")
	}))

	resp, out := postRun(t, srv.URL, `{"language":"python","code":"x","input":""}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, relay.FailureMessage, out["output"])
}

func TestRunInvalidJSON(t *testing.T) {
	srv := testServer(t, runnerFunc(func(context.Context, relay.RunRequest) (relay.RunResponse, error) {
		t.Error("runner should not be called")
		return relay.RunResponse{}, nil
	}))

	resp, out := postRun(t, srv.URL, `{"language":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out["error"], "invalid JSON")
}

func TestRunNotCancelledByCaller(t *testing.T) {
	var ctxErr error
	srv := testServer(t, runnerFunc(func(ctx context.Context, req relay.RunRequest) (relay.RunResponse, error) {
		ctxErr = ctx.Err()
		return relay.RunResponse{Output: req.Code}, nil
	}))

	_, out := postRun(t, srv.URL, `{"language":"python","code":"echo","input":""}`)
	assert.Equal(t, "echo", out["output"])
	assert.NoError(t, ctxErr)
}

func TestLanguages(t *testing.T) {
	srv := testServer(t, nil)

	resp, err := http.Get(srv.URL + "/languages")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got []lang.Language
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, []lang.Language(lang.Builtin()), got)
}

func TestHealth(t *testing.T) {
	srv := testServer(t, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	srv := testServer(t, nil)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/run", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightAllowsRequestedHeaders(t *testing.T) {
	srv := testServer(t, nil)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/run", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "X-Requested-With")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	allowed := strings.ToLower(resp.Header.Get("Access-Control-Allow-Headers"))
	assert.Contains(t, allowed, "x-requested-with")
}

func TestSPAFallback(t *testing.T) {
	srv := testServer(t, nil)

	for _, path := range []string{"/", "/some/deep/link"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, string(body), "Online Code Runner", path)
	}

	resp, err := http.Get(srv.URL + "/app.js")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "Error connecting to server.")
	// Without a catalog, reset keeps the code and download falls back to the
	// relay's default extension.
	assert.Contains(t, string(body), fmt.Sprintf("const DEFAULT_EXT = %q;", lang.DefaultExt))
	assert.Contains(t, string(body), "l ? l.defaultCode : s.code")
	assert.Contains(t, string(body), "l ? l.ext : DEFAULT_EXT")
}

func TestWebSocketRunThroughEditor(t *testing.T) {
	srv := testServer(t, runnerFunc(func(_ context.Context, req relay.RunRequest) (relay.RunResponse, error) {
		if req.Language == "broken" {
			return relay.RunResponse{}, errors.New("downstream 500")
		}
		return relay.RunResponse{Output: "ran " + req.Language}, nil
	}))

	ws, err := editor.DialWS(context.Background(), srv.URL)
	require.NoError(t, err)
	defer ws.Close()

	sess := editor.NewSession(lang.Builtin(), ws)
	st, err := sess.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ran python", st.Output)
	assert.NotNil(t, st.Runtime)

	res, err := ws.Run(context.Background(), editor.RunRequest{Language: "broken"})
	require.NoError(t, err)
	assert.Equal(t, relay.FailureMessage, res.Output)
}

func TestWebSocketBusy(t *testing.T) {
	release := make(chan struct{})
	srv := testServer(t, runnerFunc(func(context.Context, relay.RunRequest) (relay.RunResponse, error) {
		<-release
		return relay.RunResponse{Output: "done"}, nil
	}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	run := wsIncoming{Type: "run", Language: "python", Code: "x"}
	require.NoError(t, conn.WriteJSON(run))
	require.NoError(t, conn.WriteJSON(run))

	var msg wsOutgoing
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "busy", msg.Type)

	close(release)
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "result", msg.Type)
	assert.Equal(t, "done", msg.Output)
	assert.NotEmpty(t, msg.ID)
}

func TestWebSocketInvalidMessage(t *testing.T) {
	srv := testServer(t, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "hello"}))

	var msg wsOutgoing
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "invalid message", msg.Content)
}

func TestWebSocketMalformedFrame(t *testing.T) {
	srv := testServer(t, runnerFunc(func(ctx context.Context, req relay.RunRequest) (relay.RunResponse, error) {
		return relay.RunResponse{Output: "ok\n"}, nil
	}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	var msg wsOutgoing
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "invalid message", msg.Content)

	// The connection stays usable after a bad frame.
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "run", "language": "python", "code": "print('ok')"}))
	var res wsOutgoing
	require.NoError(t, conn.ReadJSON(&res))
	assert.Equal(t, "result", res.Type)
	assert.Equal(t, "ok\n", res.Output)
}

func TestShutdownClosesWebSockets(t *testing.T) {
	s := New(nil, lang.Builtin(), logging.Discard())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.conns.Len() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, 0, s.conns.Len())

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "err = %v", err)
}
