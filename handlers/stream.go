// handlers/stream.go
package handlers

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"sweeps-settlement-system/middleware"
	"sweeps-settlement-system/notify"
)

const streamKeepAlive = 15 * time.Second

// StreamEvents relays the caller's hub messages as server-sent events, for
// clients that cannot hold a websocket. A connected stream counts as online.
func StreamEvents(hub *notify.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		playerID := middleware.UserID(c)

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no") // nginx

		msgs, cancel := hub.Subscribe(playerID)
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer cancel()
			ticker := time.NewTicker(streamKeepAlive)
			defer ticker.Stop()

			w.WriteString(":\n\n")
			if err := w.Flush(); err != nil {
				return
			}
			for {
				select {
				case data := <-msgs:
					fmt.Fprintf(w, "data: %s\n\n", data)
				case <-ticker.C:
					w.WriteString(":\n\n")
				}
				// a failed flush means the client went away
				if err := w.Flush(); err != nil {
					log.WithField("player_id", playerID).Debug("sse stream closed")
					return
				}
			}
		})
		return nil
	}
}
