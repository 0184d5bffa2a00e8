package streamstore

import (
	"context"

	"github.com/bigsoczeq/ai-chatbot2/internal/domain/stream"
)

// Disabled is the stream manager used when no Redis URL is configured.
// Submissions still stream to their own caller through the hub, but nothing
// is resumable across requests or processes.
type Disabled struct {
	hub *stream.Hub
}

// NewDisabled builds the no-resume manager.
func NewDisabled() *Disabled {
	return &Disabled{hub: stream.NewHub()}
}

// Register implements stream.Manager.
func (d *Disabled) Register(ctx context.Context, streamID, conversationID string) error {
	return d.hub.Register(ctx, streamID, conversationID)
}

// Publish implements stream.Manager.
func (d *Disabled) Publish(ctx context.Context, streamID string, ev stream.Event) error {
	return d.hub.Publish(ctx, streamID, ev)
}

// Complete implements stream.Manager.
func (d *Disabled) Complete(ctx context.Context, streamID string) error {
	return d.hub.Complete(ctx, streamID)
}

// Attach implements stream.Manager. The submitting request attaches through
// the hub like any other caller; resume attempts are rejected at the
// orchestrator before reaching here.
func (d *Disabled) Attach(ctx context.Context, streamID string) (*stream.Subscription, error) {
	return d.hub.Attach(ctx, streamID)
}

// Enabled implements stream.Manager.
func (d *Disabled) Enabled() bool {
	return false
}

var _ stream.Manager = (*Disabled)(nil)
