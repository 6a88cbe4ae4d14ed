package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"bothive/internal/logging"
	"bothive/pkg/models"
)

var logUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	logTailLines = 50

	// Small delay between frames keeps slow browsers from dropping bursts.
	logFramePace = 10 * time.Millisecond
)

// botLogs streams container output over a websocket. The client passes its
// bearer token as a ?token= query parameter because browsers cannot set
// headers on websocket connections.
func (h *APIHandlers) botLogs(c *gin.Context) {
	botID, ok := botIDParam(c)
	if !ok {
		return
	}

	conn, err := logUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn("Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	user, err := h.authmw.ResolveToken(c.Query("token"))
	if err != nil {
		closeWithMessage(conn, websocket.ClosePolicyViolation, "Authentication failed")
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	handle, err := h.bots.Handle(ctx, user.ID, botID)
	if err != nil {
		closeWithMessage(conn, websocket.ClosePolicyViolation, "Authorization failed: "+models.PublicMessage(err))
		return
	}
	if handle == "" {
		closeWithMessage(conn, websocket.CloseNormalClosure, "Bot has no container. Please start the bot first.")
		return
	}

	// Drain client frames so we notice a disconnect while streaming.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	recent, err := h.driver.TailLogs(ctx, handle, logTailLines)
	if err != nil {
		closeWithMessage(conn, websocket.CloseInternalServerErr, "Error: "+models.PublicMessage(err))
		return
	}

	preamble := "=== Recent Logs ===\n" + recent + "\n=== Live Stream ===\n"
	if err := conn.WriteMessage(websocket.TextMessage, []byte(preamble)); err != nil {
		return
	}

	lines, errc, err := h.driver.FollowLogs(ctx, handle)
	if err != nil {
		closeWithMessage(conn, websocket.CloseInternalServerErr, "Error: "+models.PublicMessage(err))
		return
	}

	for {
		select {
		case line, open := <-lines:
			if !open {
				// The stream is over; a pending error means it died rather
				// than finished.
				var streamErr error
				select {
				case streamErr = <-errc:
				default:
				}
				if streamErr != nil {
					closeWithMessage(conn, websocket.CloseInternalServerErr, "Error: "+models.PublicMessage(streamErr))
					return
				}
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream ended"),
					time.Now().Add(time.Second))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
			time.Sleep(logFramePace)
		case <-ctx.Done():
			return
		}
	}
}

func closeWithMessage(conn *websocket.Conn, code int, message string) {
	conn.WriteMessage(websocket.TextMessage, []byte(message))
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, message), time.Now().Add(time.Second))
}
