package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventValid(t *testing.T) {
	event := Event{
		Family:   FamilyAuctionHouse,
		Kind:     KindBidCreated,
		Contract: "0x8ba1f109551bd432803012645ac136ddd64dba72",
		TxHash:   "0xabc",
	}
	assert.NoError(t, event.Valid())

	missingKind := event
	missingKind.Kind = ""
	assert.ErrorIs(t, missingKind.Valid(), ErrInvalidEvent)

	missingTx := event
	missingTx.TxHash = ""
	assert.ErrorIs(t, missingTx.Valid(), ErrInvalidEvent)
}

func TestEventDecodeParams(t *testing.T) {
	event := Event{
		Kind:   KindBidCreated,
		Params: json.RawMessage(`{"auction_id": 7, "bidder": "0xabc", "amount": "1000"}`),
	}

	var params BidCreatedParams
	require.NoError(t, event.DecodeParams(&params))
	assert.Equal(t, uint64(7), params.AuctionID)
	assert.Equal(t, "1000", params.Amount)

	empty := Event{Kind: KindBidCreated}
	assert.ErrorIs(t, empty.DecodeParams(&params), ErrInvalidEvent)
}
