package consumer_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmarket-labs/market-indexer/internal/adapter"
	"github.com/openmarket-labs/market-indexer/internal/consumer"
	"github.com/openmarket-labs/market-indexer/internal/domain"
	"github.com/openmarket-labs/market-indexer/internal/logger"
	mockspkg "github.com/openmarket-labs/market-indexer/internal/mocks"
	"github.com/openmarket-labs/market-indexer/internal/store"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

// testConsumerMocks contains all the mocks needed for testing the consumer
type testConsumerMocks struct {
	ctrl     *gomock.Controller
	natsJS   *mockspkg.MockNatsJetStream
	natsConn *mockspkg.MockNatsConn
	js       *mockspkg.MockJetStream
	handler  *mockspkg.MockHandler
	clock    *mockspkg.MockClock
	store    store.Store
}

func setupTestConsumer(t *testing.T) *testConsumerMocks {
	ctrl := gomock.NewController(t)

	tm := &testConsumerMocks{
		ctrl:     ctrl,
		natsJS:   mockspkg.NewMockNatsJetStream(ctrl),
		natsConn: mockspkg.NewMockNatsConn(ctrl),
		js:       mockspkg.NewMockJetStream(ctrl),
		handler:  mockspkg.NewMockHandler(ctrl),
		clock:    mockspkg.NewMockClock(ctrl),
		store:    store.NewMemoryStore(),
	}

	tm.clock.EXPECT().Now().Return(time.Unix(1700000000, 0)).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(time.Duration(0)).AnyTimes()

	return tm
}

func tearDownTestConsumer(mocks *testConsumerMocks) {
	mocks.ctrl.Finish()
}

func testConfig() consumer.Config {
	return consumer.Config{
		URL:             "nats://localhost:4222",
		StreamName:      "market-events",
		ConsumerName:    "reconciler",
		FilterSubject:   "market.events.>",
		MaxReconnects:   10,
		ReconnectWait:   1 * time.Second,
		ConnectionName:  "test-reconciler",
		AckWaitTimeout:  30 * time.Second,
		MaxDeliver:      5,
		Chain:           "ethereum",
		CursorSaveFreq:  1,
		CursorSaveDelay: time.Minute,
	}
}

func newConsumer(t *testing.T, mocks *testConsumerMocks, cfg consumer.Config) consumer.Consumer {
	t.Helper()

	mocks.natsJS.
		EXPECT().
		Connect(cfg.URL, gomock.Any()).
		Return(mocks.natsConn, mocks.js, nil)

	c, err := consumer.NewConsumer(cfg, mocks.natsJS, mocks.store, mocks.handler, adapter.NewJSON(), mocks.clock)
	require.NoError(t, err)
	require.NotNil(t, c)
	return c
}

func eventJSON(t *testing.T, event *domain.Event) []byte {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}

func testEvent(blockNumber uint64) *domain.Event {
	return &domain.Event{
		Chain:       "ethereum",
		Family:      domain.FamilyAuctionHouse,
		Kind:        domain.KindBidCreated,
		Contract:    "0x00000000000000000000000000000000000000a1",
		TxHash:      "0xabc123",
		LogIndex:    3,
		BlockNumber: blockNumber,
		BlockTime:   time.Unix(1700000000, 0).UTC(),
		Params:      json.RawMessage(`{"auction_id": 1, "bidder": "0x11", "amount": "1000"}`),
	}
}

// runWithCapturedHandler starts the consumer and returns the message
// handler registered with the JetStream subscription
func runWithCapturedHandler(t *testing.T, mocks *testConsumerMocks, c consumer.Consumer, ctx context.Context) adapter.MessageHandler {
	t.Helper()

	handlerChan := make(chan adapter.MessageHandler, 1)
	jsConsumer := mockspkg.NewMockNatsConsumer(mocks.ctrl)
	consumeContext := mockspkg.NewMockConsumeContext(mocks.ctrl)
	consumeContext.EXPECT().Stop().AnyTimes()

	jsConsumer.EXPECT().
		Info(gomock.Any()).
		Return(&jetstream.ConsumerInfo{Name: "reconciler"}, nil)
	jsConsumer.EXPECT().
		Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(handler adapter.MessageHandler, opts ...jetstream.PullConsumeOpt) (adapter.ConsumeContext, error) {
			handlerChan <- handler
			return consumeContext, nil
		})

	mocks.js.EXPECT().
		CreateOrUpdateConsumer(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(jsConsumer, nil)

	go func() { _ = c.Run(ctx) }()

	select {
	case handler := <-handlerChan:
		return handler
	case <-time.After(5 * time.Second):
		t.Fatal("consumer never subscribed")
		return nil
	}
}

func TestConsumer_NewConsumer_ConnectError(t *testing.T) {
	mocks := setupTestConsumer(t)
	defer tearDownTestConsumer(mocks)

	mocks.natsJS.
		EXPECT().
		Connect(gomock.Any(), gomock.Any()).
		Return(nil, nil, assert.AnError)

	c, err := consumer.NewConsumer(testConfig(), mocks.natsJS, mocks.store, mocks.handler, adapter.NewJSON(), mocks.clock)

	assert.Error(t, err)
	assert.Nil(t, c)
	assert.Contains(t, err.Error(), "failed to connect to NATS")
}

func TestConsumer_Run_CreateConsumerError(t *testing.T) {
	mocks := setupTestConsumer(t)
	defer tearDownTestConsumer(mocks)

	cfg := testConfig()
	c := newConsumer(t, mocks, cfg)

	mocks.js.
		EXPECT().
		CreateOrUpdateConsumer(gomock.Any(),
			cfg.StreamName,
			jetstream.ConsumerConfig{
				Durable:       cfg.ConsumerName,
				AckPolicy:     jetstream.AckExplicitPolicy,
				AckWait:       cfg.AckWaitTimeout,
				MaxDeliver:    cfg.MaxDeliver,
				FilterSubject: cfg.FilterSubject,
			}).
		Return(nil, assert.AnError)

	err := c.Run(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create/update consumer")
}

func TestConsumer_Run_ContextCancellation(t *testing.T) {
	mocks := setupTestConsumer(t)
	defer tearDownTestConsumer(mocks)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newConsumer(t, mocks, testConfig())

	jsConsumer := mockspkg.NewMockNatsConsumer(mocks.ctrl)
	consumeContext := mockspkg.NewMockConsumeContext(mocks.ctrl)
	consumeContext.EXPECT().Stop().AnyTimes()

	jsConsumer.EXPECT().
		Info(gomock.Any()).
		Return(&jetstream.ConsumerInfo{Name: "reconciler"}, nil)
	jsConsumer.EXPECT().
		Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(handler adapter.MessageHandler, opts ...jetstream.PullConsumeOpt) (adapter.ConsumeContext, error) {
			go cancel()
			return consumeContext, nil
		})

	mocks.js.EXPECT().
		CreateOrUpdateConsumer(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(jsConsumer, nil)

	errChan := make(chan error, 1)
	go func() {
		errChan <- c.Run(ctx)
	}()

	select {
	case err := <-errChan:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Test timed out")
	}
}

func TestConsumer_ProcessMessage_Success(t *testing.T) {
	mocks := setupTestConsumer(t)
	defer tearDownTestConsumer(mocks)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newConsumer(t, mocks, testConfig())
	handler := runWithCapturedHandler(t, mocks, c, ctx)

	event := testEvent(1234567)
	body := eventJSON(t, event)

	msg := mockspkg.NewMockJetStreamMessage(mocks.ctrl)
	msg.EXPECT().Data().Return(body).MinTimes(1)
	msg.EXPECT().Metadata().Return(&jetstream.MsgMetadata{NumDelivered: 1}, nil).MinTimes(1)

	acked := make(chan struct{})
	mocks.handler.EXPECT().
		Handle(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, got *domain.Event) error {
			assert.Equal(t, event.TxHash, got.TxHash)
			assert.Equal(t, event.Kind, got.Kind)
			return nil
		})
	msg.EXPECT().Ack().DoAndReturn(func() error {
		close(acked)
		return nil
	})

	handler(msg)

	select {
	case <-acked:
	case <-time.After(5 * time.Second):
		t.Fatal("message was never acknowledged")
	}

	// CursorSaveFreq is 1, so the cursor lands after every ack
	assert.Eventually(t, func() bool {
		cursor, err := mocks.store.GetBlockCursor(context.Background(), "ethereum")
		return err == nil && cursor == 1234567
	}, 5*time.Second, 10*time.Millisecond)
}

func TestConsumer_ProcessMessage_InvalidJSON(t *testing.T) {
	mocks := setupTestConsumer(t)
	defer tearDownTestConsumer(mocks)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newConsumer(t, mocks, testConfig())
	handler := runWithCapturedHandler(t, mocks, c, ctx)

	msg := mockspkg.NewMockJetStreamMessage(mocks.ctrl)
	msg.EXPECT().Data().Return([]byte(`{invalid json}`)).MinTimes(1)
	msg.EXPECT().Metadata().Return(&jetstream.MsgMetadata{NumDelivered: 1}, nil).AnyTimes()

	termed := make(chan struct{})
	msg.EXPECT().Term().DoAndReturn(func() error {
		close(termed)
		return nil
	})

	handler(msg)

	select {
	case <-termed:
	case <-time.After(5 * time.Second):
		t.Fatal("message was never terminated")
	}
}

func TestConsumer_ProcessMessage_UnknownKindIsTerminated(t *testing.T) {
	mocks := setupTestConsumer(t)
	defer tearDownTestConsumer(mocks)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newConsumer(t, mocks, testConfig())
	handler := runWithCapturedHandler(t, mocks, c, ctx)

	msg := mockspkg.NewMockJetStreamMessage(mocks.ctrl)
	msg.EXPECT().Data().Return(eventJSON(t, testEvent(100))).MinTimes(1)
	msg.EXPECT().Metadata().Return(&jetstream.MsgMetadata{NumDelivered: 1}, nil).MinTimes(1)

	mocks.handler.EXPECT().
		Handle(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("%w: escrow/escrow_upgraded", domain.ErrUnknownEventKind))

	termed := make(chan struct{})
	msg.EXPECT().Term().DoAndReturn(func() error {
		close(termed)
		return nil
	})

	handler(msg)

	select {
	case <-termed:
	case <-time.After(5 * time.Second):
		t.Fatal("message was never terminated")
	}
}

func TestConsumer_ProcessMessage_TransientErrorIsNaked(t *testing.T) {
	mocks := setupTestConsumer(t)
	defer tearDownTestConsumer(mocks)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newConsumer(t, mocks, testConfig())
	handler := runWithCapturedHandler(t, mocks, c, ctx)

	msg := mockspkg.NewMockJetStreamMessage(mocks.ctrl)
	msg.EXPECT().Data().Return(eventJSON(t, testEvent(100))).MinTimes(1)
	msg.EXPECT().Metadata().Return(&jetstream.MsgMetadata{NumDelivered: 1}, nil).MinTimes(1)

	mocks.handler.EXPECT().
		Handle(gomock.Any(), gomock.Any()).
		Return(assert.AnError)

	naked := make(chan struct{})
	msg.EXPECT().Nak().DoAndReturn(func() error {
		close(naked)
		return nil
	})

	handler(msg)

	select {
	case <-naked:
	case <-time.After(5 * time.Second):
		t.Fatal("message was never redelivered")
	}
}

func TestConsumer_Close(t *testing.T) {
	mocks := setupTestConsumer(t)
	defer tearDownTestConsumer(mocks)

	c := newConsumer(t, mocks, testConfig())

	mocks.natsConn.EXPECT().Close()

	c.Close()
}
