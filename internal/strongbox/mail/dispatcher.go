package mail

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/strongbox/pkg/slogx"
)

const DefaultTimeout = 10 * time.Second

// Dispatcher sends mail in the background so a slow relay never holds up
// the request that triggered it.
type Dispatcher struct {
	Mailer  Mailer
	Timeout time.Duration

	wg sync.WaitGroup
}

// Dispatch queues msg and returns immediately. The send outlives the
// request context but is bounded by Timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	logger := slogx.FromContext(ctx)
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()

		if err := d.Mailer.Send(sendCtx, msg); err != nil {
			logger.Warn("mail_send_failed",
				slog.String("subject", msg.Subject),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Wait blocks until every dispatched send has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
