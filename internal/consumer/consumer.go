package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/openmarket-labs/market-indexer/internal/adapter"
	"github.com/openmarket-labs/market-indexer/internal/domain"
	"github.com/openmarket-labs/market-indexer/internal/logger"
	"github.com/openmarket-labs/market-indexer/internal/store"
)

// Handler applies one feed event. A nil return acknowledges the
// message; ErrUnknownEventKind terminates it; any other error triggers
// redelivery.
//
//go:generate mockgen -source=consumer.go -destination=../mocks/handler.go -package=mocks -mock_names=Handler=MockHandler
type Handler interface {
	Handle(ctx context.Context, event *domain.Event) error
}

// Config holds the configuration for the feed consumer
type Config struct {
	URL             string
	StreamName      string
	ConsumerName    string
	FilterSubject   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ConnectionName  string
	AckWaitTimeout  time.Duration
	MaxDeliver      int
	Chain           string
	CursorSaveFreq  uint64
	CursorSaveDelay time.Duration
}

// Consumer reads the ordered event feed from JetStream and applies each
// event through the handler
type Consumer interface {
	// Run starts consuming until the context is cancelled
	Run(ctx context.Context) error
	// Close closes the connection and cleans up resources
	Close()
}

type consumer struct {
	nc      adapter.NatsConn
	js      adapter.JetStream
	store   store.Store
	handler Handler
	json    adapter.JSON
	clock   adapter.Clock
	config  Config

	lastBlock      uint64
	sinceSave      uint64
	lastSaveTime   time.Time
	cursorAdvanced bool
}

// NewConsumer connects to NATS and creates a feed consumer
func NewConsumer(
	cfg Config,
	natsJS adapter.NatsJetStream,
	st store.Store,
	handler Handler,
	jsonAdapter adapter.JSON,
	clock adapter.Clock,
) (Consumer, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	c := &consumer{
		nc:      nc,
		js:      js,
		store:   st,
		handler: handler,
		json:    jsonAdapter,
		clock:   clock,
		config:  cfg,
	}

	return c, nil
}

// Run starts the feed consumer
func (c *consumer) Run(ctx context.Context) error {
	logger.Info("Starting feed consumer",
		zap.String("stream", c.config.StreamName),
		zap.String("consumer", c.config.ConsumerName),
		zap.String("subject", c.config.FilterSubject))

	consumerConfig := jetstream.ConsumerConfig{
		Durable:       c.config.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.config.AckWaitTimeout,
		MaxDeliver:    c.config.MaxDeliver,
		FilterSubject: c.config.FilterSubject,
	}

	jsConsumer, err := c.js.CreateOrUpdateConsumer(ctx, c.config.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create/update consumer: %w", err)
	}

	consumerInfo, err := jsConsumer.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}
	logger.Info("Consumer created/retrieved", zap.String("consumer", consumerInfo.Name))

	msgChan := make(chan adapter.Message, 100)
	sub, err := jsConsumer.Consume(func(msg adapter.Message) {
		msgChan <- msg
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	defer sub.Stop()

	c.lastSaveTime = c.clock.Now()
	logger.Info("Started consuming messages")

	// Events are applied inline, one at a time, in delivery order.
	// Derived state depends on that ordering; concurrency here would
	// corrupt it.
	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down feed consumer")
			c.saveCursor()
			return ctx.Err()
		case msg := <-msgChan:
			c.handleMessage(ctx, msg)
		}
	}
}

// handleMessage processes a single feed message
func (c *consumer) handleMessage(ctx context.Context, msg adapter.Message) {
	metadata, _ := msg.Metadata()

	var event domain.Event
	if err := c.json.Unmarshal(msg.Data(), &event); err != nil {
		logger.Error(err, zap.String("message", "Failed to unmarshal event"))
		// Terminate message for unparseable data
		if err := msg.Term(); err != nil {
			logger.Error(err, zap.String("message", "Failed to terminate message"))
		}
		return
	}

	fields := []zap.Field{
		zap.String("family", string(event.Family)),
		zap.String("kind", string(event.Kind)),
		zap.String("txHash", event.TxHash),
		zap.Uint64("blockNumber", event.BlockNumber),
	}
	if metadata != nil {
		fields = append(fields, zap.Uint64("deliveryCount", metadata.NumDelivered))
	}
	logger.DebugCtx(ctx, "Received event", fields...)

	if err := c.handler.Handle(ctx, &event); err != nil {
		logger.Error(err, zap.String("message", "Failed to apply event"))

		// Malformed or permanently unprocessable events will never
		// succeed; terminate instead of redelivering them forever
		if isPermanent(err) {
			if err := msg.Term(); err != nil {
				logger.Error(err, zap.String("message", "Failed to terminate message"))
			}
			return
		}

		if err := msg.Nak(); err != nil {
			logger.Error(err, zap.String("message", "Failed to NAK message"))
		}
		return
	}

	if err := msg.Ack(); err != nil {
		logger.Error(err, zap.String("message", "Failed to ACK message"))
		return
	}

	c.advanceCursor(event.BlockNumber)
}

func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrUnknownEventKind) || errors.Is(err, domain.ErrInvalidEvent)
}

// advanceCursor tracks the highest applied block and persists it
// periodically. Losing the cursor is harmless: replayed events are
// absorbed by the processed-event ledger.
func (c *consumer) advanceCursor(blockNumber uint64) {
	if blockNumber > c.lastBlock {
		c.lastBlock = blockNumber
	}
	c.sinceSave++
	c.cursorAdvanced = true

	if c.sinceSave >= c.config.CursorSaveFreq || c.clock.Since(c.lastSaveTime) >= c.config.CursorSaveDelay {
		c.saveCursor()
	}
}

func (c *consumer) saveCursor() {
	if !c.cursorAdvanced {
		return
	}

	// Use a fresh context; the run context may already be cancelled
	// during shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.store.SetBlockCursor(ctx, c.config.Chain, c.lastBlock); err != nil {
		logger.Error(err, zap.String("message", "Failed to save block cursor"))
		return
	}

	c.sinceSave = 0
	c.lastSaveTime = c.clock.Now()
	c.cursorAdvanced = false
}

// Close closes the consumer and cleans up resources
func (c *consumer) Close() {
	if c.nc == nil {
		return
	}

	c.nc.Close()
}
