package api

import (
	"log/slog"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"github.com/eduverse/typehub/internal/errors"
)

// notifications upgrades to a websocket and relays the caller's notification
// channel until either side goes away. Browsers cannot set headers on websocket
// requests, so the token may also come from the query string.
func (a *API) notifications(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = bearerToken(c)
	}
	if token == "" {
		a.fail(c, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("missing token")))
		return
	}

	claims, err := a.tokens.Validate(token)
	if err != nil {
		a.fail(c, err)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: a.origins,
	})
	if err != nil {
		// Accept has already written the response.
		slog.WarnContext(c.Request.Context(), "api: websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// Client messages are ignored; CloseRead cancels ctx once the client disconnects.
	ctx := conn.CloseRead(c.Request.Context())

	sub := a.redis.Subscribe(ctx, a.userChannel(claims.Subject))
	defer sub.Close()

	slog.DebugContext(ctx, "api: notifications connected", "user", claims.Subject)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg, open := <-msgs:
			if !open {
				conn.Close(websocket.StatusGoingAway, "notifications closed")
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, []byte(msg.Payload)); err != nil {
				slog.DebugContext(ctx, "api: notifications write failed", "user", claims.Subject, "error", err)
				return
			}
		}
	}
}
