package sending

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/campaign-mailer/internal/domain"
	"github.com/ignite/campaign-mailer/internal/pkg/logger"
)

// Outcome is the result of one recipient's attempt.
type Outcome struct {
	Contact   domain.Contact
	MessageID string
	LogID     string
	Err       *TransportError
	// LogErr is non-nil when the delivery log entry could not be written.
	LogErr error
}

// Succeeded reports whether the transport accepted the message.
func (o Outcome) Succeeded() bool { return o.Err == nil }

// SendFunc performs one recipient's attempt. It must not retain c.
type SendFunc func(ctx context.Context, c domain.Contact) Outcome

// Partition returns the batch sizes for n recipients in batches of size:
// Partition(25, 10) == [10 10 5]. A non-positive size puts everything in one batch.
func Partition(n, size int) []int {
	if n <= 0 {
		return nil
	}
	if size <= 0 || size > n {
		size = n
	}
	plan := make([]int, 0, (n+size-1)/size)
	for n > 0 {
		b := size
		if n < b {
			b = n
		}
		plan = append(plan, b)
		n -= b
	}
	return plan
}

// BatchProgress reports how far a Run has got.
type BatchProgress struct {
	Batch     int
	Batches   int
	Processed int
	Total     int
}

// BatchDispatcher runs sends in consecutive fixed-size batches. Sends within
// a batch are concurrent; the next batch starts only after every send of the
// previous one has finished and Pause has elapsed.
type BatchDispatcher struct {
	BatchSize int
	Pause     time.Duration
	// OnBatch, if set, is called after each batch completes.
	OnBatch func(p BatchProgress)

	// wait is swapped in tests to observe pauses without sleeping.
	wait func(ctx context.Context, d time.Duration)
}

// Run sends to every recipient and returns exactly one Outcome per recipient,
// in input order. A failing or panicking send never affects its siblings.
func (d *BatchDispatcher) Run(ctx context.Context, recipients []domain.Contact, send SendFunc) []Outcome {
	outcomes := make([]Outcome, len(recipients))
	plan := Partition(len(recipients), d.BatchSize)

	start := 0
	for i, size := range plan {
		batch := recipients[start : start+size]
		offset := start

		var g errgroup.Group
		g.SetLimit(size)
		for j, c := range batch {
			c := c
			idx := offset + j
			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("send panicked", "to", c.Email, "panic", r)
						outcomes[idx] = Outcome{
							Contact: c,
							Err:     &TransportError{Type: ErrorUnknown, Message: fmt.Sprintf("send panicked: %v", r)},
							LogErr:  fmt.Errorf("send panicked before logging: %v", r),
						}
					}
				}()
				outcomes[idx] = send(ctx, c)
				return nil
			})
		}
		_ = g.Wait()
		start += size

		if d.OnBatch != nil {
			d.OnBatch(BatchProgress{Batch: i + 1, Batches: len(plan), Processed: start, Total: len(recipients)})
		}

		if i < len(plan)-1 && d.Pause > 0 {
			d.pause(ctx)
		}
	}
	return outcomes
}

func (d *BatchDispatcher) pause(ctx context.Context) {
	if d.wait != nil {
		d.wait(ctx, d.Pause)
		return
	}
	t := time.NewTimer(d.Pause)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
