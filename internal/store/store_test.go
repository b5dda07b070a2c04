package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmarket-labs/market-indexer/internal/store/schema"
)

// RunStoreTests runs the shared store test suite against any Store
// implementation. initDB is called before each test and must return a
// clean store; cleanupDB runs after each test.
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := map[string]func(t *testing.T, s Store){
		"AuctionRoundTrip":     testAuctionRoundTrip,
		"AuctionTokenIndex":    testAuctionTokenIndex,
		"EscrowCreationTx":     testEscrowCreationTx,
		"EscrowTrailRoundTrip": testEscrowTrailRoundTrip,
		"PendingArbiterChange": testPendingArbiterChange,
		"AttestationsByOrder":  testAttestationsByOrder,
		"ProcessedEventLedger": testProcessedEventLedger,
		"BlockCursor":          testBlockCursor,
		"ListingRoundTrip":     testListingRoundTrip,
		"MissingRecordsAreNil": testMissingRecordsAreNil,
	}

	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			s := initDB(t)
			defer cleanupDB(t)
			fn(t, s)
		})
	}
}

func buildTestAuction(house string, sequence uint64) *schema.Auction {
	return &schema.Auction{
		HouseAddress:  house,
		Sequence:      sequence,
		TokenContract: "0x1111111111111111111111111111111111111111",
		TokenNumber:   "42",
		Owner:         "0x2222222222222222222222222222222222222222",
		Status:        schema.AuctionStatusCreated,
		Duration:      86400,
		ReservePrice:  "1000000000000000000",
		CreatedBlock:  100,
		CreatedTxHash: "0xcreate",
	}
}

func testAuctionRoundTrip(t *testing.T, s Store) {
	ctx := context.Background()
	auction := buildTestAuction("0xhouse", 1)
	require.NoError(t, s.SaveAuction(ctx, auction))

	got, err := s.GetAuction(ctx, schema.AuctionKey{House: "0xhouse", Sequence: 1})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, schema.AuctionStatusCreated, got.Status)
	assert.Equal(t, "42", got.TokenNumber)

	got.Status = schema.AuctionStatusActive
	got.TotalBidCount = 1
	require.NoError(t, s.SaveAuction(ctx, got))

	updated, err := s.GetAuction(ctx, auction.Key())
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, schema.AuctionStatusActive, updated.Status)
	assert.Equal(t, uint64(1), updated.TotalBidCount)
}

func testAuctionTokenIndex(t *testing.T, s Store) {
	ctx := context.Background()

	// Several auctions on the same house, one holding the token we look
	// for, plus a newer re-auction of the same token.
	for seq := uint64(1); seq <= 9; seq++ {
		auction := buildTestAuction("0xhouse", seq)
		auction.TokenNumber = "42"
		if seq == 7 {
			auction.TokenNumber = "7007"
		}
		auction.CreatedBlock = 100 + seq
		require.NoError(t, s.SaveAuction(ctx, auction))
	}

	got, err := s.GetAuctionByToken(ctx, "0x1111111111111111111111111111111111111111", "7007")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(7), got.Sequence)

	// Most recent auction wins when a token was re-auctioned
	latest, err := s.GetAuctionByToken(ctx, "0x1111111111111111111111111111111111111111", "42")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, uint64(9), latest.Sequence)
}

func testEscrowCreationTx(t *testing.T, s Store) {
	ctx := context.Background()
	escrow := &schema.OrderEscrow{
		Address:        "0xescrow",
		Payee:          "0xpayee",
		SourceType:     schema.EscrowSourceStorefront,
		LinkKind:       schema.EscrowLinkNone,
		CreationTxHash: "0xdeploy",
		CreatedBlock:   50,
	}
	require.NoError(t, s.SaveEscrow(ctx, escrow))

	got, err := s.GetEscrowByCreationTx(ctx, "0xdeploy")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "0xescrow", got.Address)

	missing, err := s.GetEscrowByCreationTx(ctx, "0xother")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testEscrowTrailRoundTrip(t *testing.T, s Store) {
	ctx := context.Background()

	payment := &schema.OrderPayment{
		TxHash:         "0xpay",
		EscrowAddress:  "0xescrow",
		OrderTxHash:    "0xpay",
		Payer:          "0xpayer",
		SettleDeadline: 86400,
		BlockNumber:    60,
	}
	require.NoError(t, s.SaveOrderPayment(ctx, payment))

	gotPayment, err := s.GetOrderPayment(ctx, "0xpay")
	require.NoError(t, err)
	require.NotNil(t, gotPayment)
	assert.Equal(t, "0xpayer", gotPayment.Payer)
	assert.Equal(t, "0xpay", gotPayment.OrderTxHash)

	missingPayment, err := s.GetOrderPayment(ctx, "0xother")
	require.NoError(t, err)
	assert.Nil(t, missingPayment)

	activity := &schema.EscrowActivity{
		TxHash:        "0xsettle",
		LogIndex:      2,
		EscrowAddress: "0xescrow",
		Kind:          schema.ActivitySettled,
		To:            "0xpayee",
		Amount:        "1000",
		BlockNumber:   70,
		BlockTime:     time.Now().UTC(),
	}
	require.NoError(t, s.SaveEscrowActivity(ctx, activity))

	gotActivity, err := s.GetEscrowActivity(ctx, schema.EventKey{TxHash: "0xsettle", LogIndex: 2})
	require.NoError(t, err)
	require.NotNil(t, gotActivity)
	assert.Equal(t, schema.ActivitySettled, gotActivity.Kind)

	missingActivity, err := s.GetEscrowActivity(ctx, schema.EventKey{TxHash: "0xsettle", LogIndex: 3})
	require.NoError(t, err)
	assert.Nil(t, missingActivity)
}

func testPendingArbiterChange(t *testing.T, s Store) {
	ctx := context.Background()

	first := &schema.ArbiterChange{
		TxHash:          "0xtx1",
		LogIndex:        0,
		EscrowAddress:   "0xescrow",
		OldArbiter:      "0xold",
		ProposedArbiter: "0xnew",
		BlockNumber:     10,
	}
	require.NoError(t, s.SaveArbiterChange(ctx, first))

	second := &schema.ArbiterChange{
		TxHash:          "0xtx2",
		LogIndex:        0,
		EscrowAddress:   "0xescrow",
		OldArbiter:      "0xold",
		ProposedArbiter: "0xnew",
		BlockNumber:     20,
	}
	require.NoError(t, s.SaveArbiterChange(ctx, second))

	pending, err := s.GetPendingArbiterChange(ctx, "0xescrow", "0xnew")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, "0xtx2", pending.TxHash)

	pending.Approved = true
	pending.NewArbiter = "0xnew"
	require.NoError(t, s.SaveArbiterChange(ctx, pending))

	remaining, err := s.GetPendingArbiterChange(ctx, "0xescrow", "0xnew")
	require.NoError(t, err)
	require.NotNil(t, remaining)
	assert.Equal(t, "0xtx1", remaining.TxHash)
}

func testAttestationsByOrder(t *testing.T, s Store) {
	ctx := context.Background()

	for i, uid := range []string{"0xuid1", "0xuid2"} {
		attestation := &schema.SaleAttestation{
			UID:         uid,
			OrderTxHash: "0xorder",
			Buyer:       "0xbuyer",
			IsLatest:    true,
			BlockNumber: uint64(10 + i),
			BlockTime:   time.Now().UTC(),
		}
		require.NoError(t, s.SaveAttestation(ctx, attestation))
	}

	attestations, err := s.ListAttestationsByOrder(ctx, "0xorder")
	require.NoError(t, err)
	require.Len(t, attestations, 2)
	assert.Equal(t, "0xuid1", attestations[0].UID)
	assert.Equal(t, "0xuid2", attestations[1].UID)
}

func testProcessedEventLedger(t *testing.T, s Store) {
	ctx := context.Background()
	key := schema.EventKey{TxHash: "0xtx", LogIndex: 3}

	processed, err := s.IsEventProcessed(ctx, key)
	require.NoError(t, err)
	assert.False(t, processed)

	entry := &schema.ProcessedEvent{
		TxHash:      key.TxHash,
		LogIndex:    key.LogIndex,
		Kind:        "bid_created",
		BlockNumber: 100,
	}
	require.NoError(t, s.MarkEventProcessed(ctx, entry))

	// Marking twice must not fail, redeliveries hit the same key
	require.NoError(t, s.MarkEventProcessed(ctx, entry))

	processed, err = s.IsEventProcessed(ctx, key)
	require.NoError(t, err)
	assert.True(t, processed)

	other, err := s.IsEventProcessed(ctx, schema.EventKey{TxHash: "0xtx", LogIndex: 4})
	require.NoError(t, err)
	assert.False(t, other)
}

func testBlockCursor(t *testing.T, s Store) {
	ctx := context.Background()

	cursor, err := s.GetBlockCursor(ctx, "ethereum")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), cursor)

	require.NoError(t, s.SetBlockCursor(ctx, "ethereum", 12345))

	cursor, err = s.GetBlockCursor(ctx, "ethereum")
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), cursor)
}

func testListingRoundTrip(t *testing.T, s Store) {
	ctx := context.Background()
	listing := &schema.TokenListing{
		Storefront:   "0xstorefront",
		TokenNumber:  "5",
		Price:        "5000000",
		PaymentToken: "0xusdc",
		Active:       true,
		CreatedBlock: 200,
	}
	require.NoError(t, s.SaveListing(ctx, listing))

	got, err := s.GetListing(ctx, "0xstorefront", "5")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Active)

	got.Active = false
	require.NoError(t, s.SaveListing(ctx, got))

	delisted, err := s.GetListing(ctx, "0xstorefront", "5")
	require.NoError(t, err)
	require.NotNil(t, delisted)
	assert.False(t, delisted.Active)
}

func testMissingRecordsAreNil(t *testing.T, s Store) {
	ctx := context.Background()

	auction, err := s.GetAuction(ctx, schema.AuctionKey{House: "0xnone", Sequence: 1})
	require.NoError(t, err)
	assert.Nil(t, auction)

	escrow, err := s.GetEscrow(ctx, "0xnone")
	require.NoError(t, err)
	assert.Nil(t, escrow)

	order, err := s.GetOrder(ctx, "0xnone")
	require.NoError(t, err)
	assert.Nil(t, order)

	attestation, err := s.GetAttestation(ctx, "0xnone")
	require.NoError(t, err)
	assert.Nil(t, attestation)
}
