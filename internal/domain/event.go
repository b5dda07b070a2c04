package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ContractFamily identifies the kind of contract that emitted an event.
// The feed tags every event with the family so the reconciler can route
// it without keeping an address registry of its own.
type ContractFamily string

const (
	FamilyAuctionHouse        ContractFamily = "auction_house"
	FamilyAuctionHouseFactory ContractFamily = "auction_house_factory"
	FamilyAuctionItem         ContractFamily = "auction_item"
	FamilyEscrow              ContractFamily = "escrow"
	FamilyEscrowFactory       ContractFamily = "escrow_factory"
	FamilyStorefront          ContractFamily = "storefront"
	FamilyStorefrontFactory   ContractFamily = "storefront_factory"
	FamilyAttestation         ContractFamily = "attestation"
)

// EventKind is the decoded log name within a contract family
type EventKind string

const (
	// auction house
	KindAuctionCreated            EventKind = "auction_created"
	KindBidCreated                EventKind = "bid_created"
	KindAuctionEncryptedMessage   EventKind = "auction_encrypted_message"
	KindPremiumPaid               EventKind = "premium_paid"
	KindAuctionExtended           EventKind = "auction_extended"
	KindAuctionEnded              EventKind = "auction_ended"
	KindAuctionCancelled          EventKind = "auction_cancelled"
	KindAuctionHouseMetadata      EventKind = "auction_house_metadata_updated"
	KindSettlementDeadlineUpdated EventKind = "settlement_deadline_updated"

	// escrow
	KindPayerSet              EventKind = "payer_set"
	KindSettled               EventKind = "settled"
	KindRefunded              EventKind = "refunded"
	KindDisputed              EventKind = "disputed"
	KindDisputeRemoved        EventKind = "dispute_removed"
	KindDisputeResolved       EventKind = "dispute_resolved"
	KindEscapeAddressSet      EventKind = "escape_address_set"
	KindEscaped               EventKind = "escaped"
	KindArbiterChangeProposed EventKind = "arbiter_change_proposed"
	KindArbiterChangeApproved EventKind = "arbiter_change_approved"

	// storefront
	KindOrderFulfilled        EventKind = "order_fulfilled"
	KindListingAdded          EventKind = "listing_added"
	KindListingUpdated        EventKind = "listing_updated"
	KindListingRemoved        EventKind = "listing_removed"
	KindReadyStateChanged     EventKind = "ready_state_changed"
	KindSettleDeadlineUpdated EventKind = "settle_deadline_updated"
	KindTokenAddressChanged   EventKind = "token_address_changed"

	// factories
	KindStorefrontCreated   EventKind = "storefront_created"
	KindEscrowCreated       EventKind = "escrow_created"
	KindAuctionHouseCreated EventKind = "auction_house_created"
	KindAuctionItemCreated  EventKind = "auction_item_created"

	// attestations
	KindSaleAttested    EventKind = "sale_attested"
	KindReviewSubmitted EventKind = "review_submitted"

	// auction item tokens
	KindTokenTransfer        EventKind = "token_transfer"
	KindTokenMetadataUpdated EventKind = "token_metadata_updated"
	KindContractURIUpdated   EventKind = "contract_uri_updated"
	KindOwnershipTransferred EventKind = "ownership_transferred"
)

// Event is a single decoded contract log as delivered by the feed.
// Events arrive strictly ordered by (BlockNumber, LogIndex) and are
// append-only; Params carries the event-specific payload and is decoded
// by the handler that owns the kind.
type Event struct {
	Chain       string          `json:"chain"`
	Family      ContractFamily  `json:"family"`
	Kind        EventKind       `json:"kind"`
	Contract    string          `json:"contract"`
	TxHash      string          `json:"tx_hash"`
	LogIndex    uint            `json:"log_index"`
	BlockNumber uint64          `json:"block_number"`
	BlockTime   time.Time       `json:"block_time"`
	Params      json.RawMessage `json:"params"`
}

// Valid checks that the event carries enough identity to be processed
func (e *Event) Valid() error {
	if e.Family == "" {
		return fmt.Errorf("%w: missing contract family", ErrInvalidEvent)
	}
	if e.Kind == "" {
		return fmt.Errorf("%w: missing event kind", ErrInvalidEvent)
	}
	if e.Contract == "" {
		return fmt.Errorf("%w: missing contract address", ErrInvalidEvent)
	}
	if e.TxHash == "" {
		return fmt.Errorf("%w: missing transaction hash", ErrInvalidEvent)
	}
	return nil
}

// DecodeParams unmarshals the event payload into a typed params struct
func (e *Event) DecodeParams(v any) error {
	if len(e.Params) == 0 {
		return fmt.Errorf("%w: empty params for %s/%s", ErrInvalidEvent, e.Family, e.Kind)
	}
	if err := json.Unmarshal(e.Params, v); err != nil {
		return fmt.Errorf("failed to decode %s params: %w", e.Kind, err)
	}
	return nil
}
