package v1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bothive/internal/sandbox"
	"bothive/pkg/models"
)

// brokenStreamDriver delivers one line and then reports a dead stream.
type brokenStreamDriver struct{ stubDriver }

func (brokenStreamDriver) FollowLogs(ctx context.Context, handle string) (<-chan string, <-chan error, error) {
	lines := make(chan string, 1)
	lines <- "partial line\n"
	close(lines)
	errc := make(chan error, 1)
	errc <- models.WrapError(models.KindSandboxOp, errors.New("connection reset"), "Log stream interrupted")
	return lines, errc, nil
}

func newLogsServer(t *testing.T, driver sandbox.Driver) (*testAPI, *httptest.Server) {
	t.Helper()
	api := newTestAPIWithDriver(t, driver)
	server := httptest.NewServer(api.router)
	t.Cleanup(server.Close)
	return api, server
}

func logsURL(server *httptest.Server, botID int64, token string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + fmt.Sprintf("/bots/%d/logs?token=%s", botID, token)
}

func dialLogs(t *testing.T, server *httptest.Server, botID int64, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(logsURL(server, botID, token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// runningBot registers a user, creates a bot, uploads code, and starts it,
// returning the token and bot ID.
func runningBot(t *testing.T, api *testAPI) (string, int64) {
	t.Helper()

	token := api.registerUser(t, "alice@example.com")
	w := api.do(t, http.MethodPost, "/bots", token, gin.H{"name": "mybot", "runtime": "python"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.BotView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	rec := api.uploadFile(t, token, created.ID, "main.py", "print('hi')")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	w = api.do(t, http.MethodPost, fmt.Sprintf("/bots/%d/start", created.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	return token, created.ID
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(msg)
}

func requireClose(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, code), "expected close %d, got %v", code, err)
}

func TestLogStreamRejectsBadToken(t *testing.T) {
	_, server := newLogsServer(t, stubDriver{})

	conn := dialLogs(t, server, 1, "bogus-token")
	assert.Equal(t, "Authentication failed", readText(t, conn))
	requireClose(t, conn, websocket.ClosePolicyViolation)
}

func TestLogStreamRejectsForeignBot(t *testing.T) {
	api, server := newLogsServer(t, stubDriver{})
	_, botID := runningBot(t, api)
	mallory := api.registerUser(t, "mallory@example.com")

	conn := dialLogs(t, server, botID, mallory)
	msg := readText(t, conn)
	assert.Contains(t, msg, "Authorization failed")
	assert.Contains(t, msg, "don't have access")
	requireClose(t, conn, websocket.ClosePolicyViolation)
}

func TestLogStreamWithoutContainer(t *testing.T) {
	api, server := newLogsServer(t, stubDriver{})

	token := api.registerUser(t, "alice@example.com")
	w := api.do(t, http.MethodPost, "/bots", token, gin.H{"name": "mybot", "runtime": "python"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.BotView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	conn := dialLogs(t, server, created.ID, token)
	assert.Equal(t, "Bot has no container. Please start the bot first.", readText(t, conn))

	// No container is a normal closure, not a policy violation.
	requireClose(t, conn, websocket.CloseNormalClosure)
}

func TestLogStreamPreambleAndLiveLines(t *testing.T) {
	api, server := newLogsServer(t, stubDriver{})
	token, botID := runningBot(t, api)

	conn := dialLogs(t, server, botID, token)

	preamble := readText(t, conn)
	assert.True(t, strings.HasPrefix(preamble, "=== Recent Logs ===\n"))
	assert.Contains(t, preamble, "recent output")
	assert.True(t, strings.HasSuffix(preamble, "=== Live Stream ===\n"))

	assert.Equal(t, "hello from bot\n", readText(t, conn))

	// The stub's stream ends cleanly.
	requireClose(t, conn, websocket.CloseNormalClosure)
}

func TestLogStreamErrorReachesSubscriber(t *testing.T) {
	api, server := newLogsServer(t, brokenStreamDriver{})
	token, botID := runningBot(t, api)

	conn := dialLogs(t, server, botID, token)

	readText(t, conn) // preamble
	assert.Equal(t, "partial line\n", readText(t, conn))

	// The dead stream is reported, then the socket closes as an internal
	// error rather than a normal end-of-stream.
	assert.Equal(t, "Error: Log stream interrupted", readText(t, conn))
	requireClose(t, conn, websocket.CloseInternalServerErr)
}
