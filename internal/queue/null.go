// Package queue provides the durable job queue behind workflow phase
// triggers. The real implementation rides on Temporal; when no broker is
// configured or the broker degrades, triggers fall through to inline
// execution instead of failing.
package queue

import (
	"context"
	"sync"

	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	"github.com/clawbackhq/clawback-backend/internal/workflow"
)

// NullClient is the no-broker implementation. Every Enqueue reports
// queued=false so the trigger path executes the phase inline. It logs
// once, at debug, the first time it is exercised.
type NullClient struct {
	log  *logger.Logger
	once sync.Once
}

func NewNullClient(baseLog *logger.Logger) *NullClient {
	return &NullClient{log: baseLog.With("component", "NullQueueClient")}
}

func (c *NullClient) Enqueue(ctx context.Context, trig *workflow.Trigger) (bool, error) {
	c.once.Do(func() {
		c.log.Debug("Queue broker not configured; phases execute inline")
	})
	return false, nil
}

func (c *NullClient) InFlight(ctx context.Context, key string) (bool, error) {
	return false, nil
}
