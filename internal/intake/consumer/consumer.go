// Package consumer settles intake uploads from GCS OBJECT_FINALIZE
// notifications delivered over Pub/Sub.
package consumer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"

	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
	"github.com/brightstock/imagery-backend/pkg/logger"
	"github.com/brightstock/imagery-backend/pkg/metrics"
)

const (
	objectFinalizeEvent  = "OBJECT_FINALIZE"
	payloadFormatJSONAPI = "JSON_API_V1"
)

type settler interface {
	SettleUpload(ctx context.Context, gcsKey string, succeeded bool, reason string) error
}

// Consumer watches a subscription for finalized intake objects and
// settles the matching intake rows.
type Consumer struct {
	intake       settler
	subscription *pubsub.Subscriber
	metrics      *metrics.BatchMetrics
	logg         *logger.Logger
}

// NewConsumer constructs a consumer over the provided subscription.
func NewConsumer(intake settler, subscription *pubsub.Subscriber, batchMetrics *metrics.BatchMetrics, logg *logger.Logger) (*Consumer, error) {
	if intake == nil {
		return nil, errors.New("intake service is required")
	}
	if subscription == nil {
		return nil, errors.New("intake subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		intake:       intake,
		subscription: subscription,
		metrics:      batchMetrics,
		logg:         logg,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	attrs := parseAttributes(msg.Attributes)
	fields := c.buildLogFields(msg.ID, attrs, nil)
	logCtx := c.logg.WithFields(ctx, fields)
	if attrs.EventType != objectFinalizeEvent {
		c.logg.Info(logCtx, "skipping non-finalize event")
		return processResult{ack: true}
	}
	if attrs.PayloadFormat != payloadFormatJSONAPI {
		c.logg.Warn(logCtx, "unsupported payload format")
		return processResult{ack: true}
	}

	payload, err := decodePayload(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return processResult{ack: true}
	}

	var gcs gcsPayload
	if err := json.Unmarshal(payload, &gcs); err != nil {
		fields["payload_preview"] = previewBytes(payload, 800)
		fields["payload_len"] = len(payload)
		logCtx = c.logg.WithFields(ctx, fields)
		c.logg.Error(logCtx, "failed to unmarshal payload", err)
		return processResult{ack: true}
	}

	if strings.TrimSpace(gcs.Name) == "" {
		fields = c.buildLogFields(msg.ID, attrs, &gcs)
		logCtx = c.logg.WithFields(ctx, fields)
		c.logg.Error(logCtx, "payload missing gcs object name", fmt.Errorf("empty name"))
		return processResult{ack: true}
	}
	if attrs.ObjectID != "" && attrs.ObjectID != gcs.Name {
		fields = c.buildLogFields(msg.ID, attrs, &gcs)
		logCtx = c.logg.WithFields(ctx, fields)
		c.logg.Warn(logCtx, "attribute object_id differs from payload name")
	}

	fields = c.buildLogFields(msg.ID, attrs, &gcs)
	logCtx = c.logg.WithFields(ctx, fields)

	if err := c.intake.SettleUpload(logCtx, gcs.Name, true, ""); err != nil {
		if pkgerrors.As(err).Code() == pkgerrors.CodeNotFound {
			// Sessions expire; a finalize for a forgotten key is stale, not broken.
			c.logg.Warn(logCtx, "intake row not found for finalized object")
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "intake settlement error", err)
		if isTransientError(err) {
			return processResult{nack: true}
		}
		return processResult{ack: true}
	}

	c.metrics.IncUploadSettled("uploaded")
	c.logg.Info(logCtx, "intake upload settled")
	return processResult{ack: true}
}

func (c *Consumer) buildLogFields(messageID string, attrs gcsAttributes, payload *gcsPayload) map[string]any {
	fields := map[string]any{
		"message_id": messageID,
		"event_type": attrs.EventType,
		"bucket":     firstNonEmpty(attrs.BucketID, gcsBucket(payload)),
	}
	if payload != nil {
		fields["gcs_key"] = payload.Name
	}
	return fields
}

func gcsBucket(p *gcsPayload) string {
	if p == nil {
		return ""
	}
	return p.Bucket
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseAttributes(attrs map[string]string) gcsAttributes {
	return gcsAttributes{
		EventType:     attrs["eventType"],
		BucketID:      attrs["bucketId"],
		ObjectID:      attrs["objectId"],
		PayloadFormat: attrs["payloadFormat"],
	}
}

type gcsAttributes struct {
	EventType     string
	BucketID      string
	ObjectID      string
	PayloadFormat string
}

type gcsPayload struct {
	Name        string `json:"name"`
	Bucket      string `json:"bucket"`
	Generation  string `json:"generation"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

func decodePayload(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("payload empty")
	}
	if decoded, err := base64.StdEncoding.DecodeString(string(data)); err == nil {
		return decoded, nil
	}
	return data, nil
}

func isTransientError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func previewBytes(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "...(truncated)"
}
