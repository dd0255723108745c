package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acadex-api/internal/realtime"
)

const defaultKeepAlive = 30 * time.Second

// streamSnapshots turns a watch subscription into a server-sent event stream.
// The subscription is opened once the response body starts streaming and is
// cancelled when the client goes away.
func streamSnapshots[T any](c *fiber.Ctx, logger zerolog.Logger, keepAlive time.Duration, event string, open func(ctx context.Context) *realtime.Subscription[T]) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithCancel(requestContext(c))

	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		subscription := open(ctx)
		defer func() {
			subscription.Cancel()
			cancel()
		}()

		ticker := time.NewTicker(keepAlive / 2)
		defer ticker.Stop()

		for {
			select {
			case snapshot, ok := <-subscription.Updates():
				if !ok {
					return
				}
				if err := writeSnapshotEvent(w, event, snapshot); err != nil {
					logger.Debug().Err(err).Str("event", event).Msg("failed to write snapshot event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					logger.Debug().Err(err).Str("event", event).Msg("failed to write keepalive")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func writeSnapshotEvent(w *bufio.Writer, event string, snapshot interface{}) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
