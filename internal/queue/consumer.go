package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/ytmerge/internal/models"
)

type ConversionHandler func(ctx context.Context, ev models.ConversionEvent)

type Consumer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewConsumer(natsURL string) (*Consumer, error) {
	nc, js, err := connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &Consumer{nc: nc, js: js}, nil
}

// ConsumeConversions delivers new conversion events to handler until ctx
// ends. Every replica uses its own ordered consumer so each one sees the
// whole stream and can fan it out to its own WebSocket clients.
func (c *Consumer) ConsumeConversions(ctx context.Context, handler ConversionHandler) error {
	stream, err := c.js.Stream(ctx, ConversionsStreamName)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", ConversionsStreamName, err)
	}

	cons, err := stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{ConversionsSubjectBase + ".>"},
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("create ordered consumer: %w", err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		ev, err := decodeConversion(msg.Data())
		if err != nil {
			slog.Error("decode conversion event", "subject", msg.Subject(), "error", err)
			return
		}
		handler(ctx, ev)
	}, jetstream.ConsumeErrHandler(func(_ jetstream.ConsumeContext, err error) {
		slog.Warn("conversion consumer", "error", err)
	}))
	if err != nil {
		return fmt.Errorf("consume conversions: %w", err)
	}

	go func() {
		<-ctx.Done()
		cc.Stop()
	}()

	slog.Info("conversion consumer started", "stream", ConversionsStreamName)
	return nil
}

func decodeConversion(data []byte) (models.ConversionEvent, error) {
	var ev models.ConversionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return models.ConversionEvent{}, err
	}
	if ev.ContentID == "" {
		return models.ConversionEvent{}, fmt.Errorf("conversion event %s has no content id", ev.ID)
	}
	return ev, nil
}

func (c *Consumer) Close() {
	c.nc.Close()
}
