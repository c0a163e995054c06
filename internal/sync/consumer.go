package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/driftlabs/driftbox/internal/logging"
	"github.com/driftlabs/driftbox/internal/messaging"
	"github.com/driftlabs/driftbox/internal/models"
)

// Notifier is the fanout entry point the consumers push into.
type Notifier interface {
	Broadcast(ctx context.Context, userID, event string, payload any) int
}

// Consumers binds the domain-event queues to realtime pushes. The hop
// from upload completion to device notification is fully asynchronous:
// this runs in its own process and may lag the committed state.
type Consumers struct {
	reg Notifier
	log logging.Logger
}

func NewConsumers(reg Notifier, log logging.Logger) *Consumers {
	return &Consumers{reg: reg, log: log}
}

// Subscriber registers message handlers on durable queues.
type Subscriber interface {
	Consume(queue string, handler messaging.Handler) error
}

// Start registers one consumer per domain-event queue.
func (c *Consumers) Start(sub Subscriber) error {
	if err := sub.Consume(messaging.QueueFileUploaded, c.handleFileUploaded); err != nil {
		return err
	}
	if err := sub.Consume(messaging.QueueFileSynced, c.handleFileSynced); err != nil {
		return err
	}
	return sub.Consume(messaging.QueueFileShared, c.handleFileShared)
}

func (c *Consumers) handleFileUploaded(ctx context.Context, body []byte) error {
	var event models.FileUploadedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("unmarshal file.uploaded: %w", err)
	}

	n := c.reg.Broadcast(ctx, event.UserID, "file:uploaded", map[string]any{
		"fileId":     event.FileID,
		"fileName":   event.FileName,
		"fileSize":   event.FileSize,
		"uploadedAt": event.UploadedAt,
		"message":    fmt.Sprintf("%s is now available", event.FileName),
	})
	c.log.Info(ctx, "file.uploaded fanned out", "userId", event.UserID, "devices", n)
	return nil
}

func (c *Consumers) handleFileSynced(ctx context.Context, body []byte) error {
	var event models.FileSyncedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("unmarshal file.synced: %w", err)
	}

	n := c.reg.Broadcast(ctx, event.UserID, "file:synced", map[string]any{
		"fileId":   event.FileID,
		"fileName": event.FileName,
		"syncedAt": event.SyncedAt,
		"message":  fmt.Sprintf("%s synced from another device", event.FileName),
	})
	c.log.Info(ctx, "file.synced fanned out", "userId", event.UserID, "devices", n)
	return nil
}

func (c *Consumers) handleFileShared(ctx context.Context, body []byte) error {
	var event models.FileSharedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("unmarshal file.shared: %w", err)
	}
	if event.SharedWithUserID == "" {
		// Link-only shares have no recipient to notify.
		return nil
	}

	n := c.reg.Broadcast(ctx, event.SharedWithUserID, "file:shared", map[string]any{
		"fileId":     event.FileID,
		"fileName":   event.FileName,
		"sharedBy":   event.SharedByEmail,
		"permission": event.Permission,
		"message":    fmt.Sprintf("%s shared %q with you", event.SharedByEmail, event.FileName),
	})
	c.log.Info(ctx, "file.shared fanned out", "userId", event.SharedWithUserID, "devices", n)
	return nil
}
