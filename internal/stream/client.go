package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/MichalZG/gaia-targets/internal/metrics"
)

const writeTimeout = 30 * time.Second

// client manages a single SSE connection's write operations.
type client struct {
	w         http.ResponseWriter
	flusher   http.Flusher
	rc        *http.ResponseController
	bandwidth *rate.Limiter // bytes per second, nil for unlimited
	logger    *slog.Logger

	messagesSent int64
	bytesSent    int64
}

// sendEvent marshals v as JSON and writes it as a named SSE event:
//
//	event: <name>
//	data: {json}
func (c *client) sendEvent(ctx context.Context, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	msg := fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)

	if err := c.throttle(ctx, len(msg)); err != nil {
		return err
	}
	if err := c.write(msg); err != nil {
		return err
	}

	c.messagesSent++
	metrics.RecordStreamMessage(event)
	return nil
}

// sendKeepalive sends an SSE comment line to keep the connection alive.
func (c *client) sendKeepalive() error {
	return c.write(":\n\n")
}

// throttle waits until the bandwidth budget allows n more bytes. Messages
// larger than the burst only wait for a full burst.
func (c *client) throttle(ctx context.Context, n int) error {
	if c.bandwidth == nil {
		return nil
	}
	if err := c.bandwidth.WaitN(ctx, min(n, c.bandwidth.Burst())); err != nil {
		return fmt.Errorf("bandwidth wait: %w", err)
	}
	return nil
}

func (c *client) write(msg string) error {
	// Extend the deadline before each write so long-lived streams survive
	// the server's WriteTimeout.
	if err := c.rc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		c.logger.Debug("could not set write deadline", "error", err)
	}

	n, err := fmt.Fprint(c.w, msg)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	c.flusher.Flush()
	c.bytesSent += int64(n)
	return nil
}
