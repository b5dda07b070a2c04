package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/openmarket-labs/market-indexer/internal/contracts"
	"github.com/openmarket-labs/market-indexer/internal/domain"
	"github.com/openmarket-labs/market-indexer/internal/logger"
	"github.com/openmarket-labs/market-indexer/internal/store"
	"github.com/openmarket-labs/market-indexer/internal/store/schema"
)

// Router applies feed events to the derived entity set. Events are
// processed strictly one at a time in feed order; the processed-event
// ledger makes redelivered messages no-ops so additive updates like bid
// counters stay exact.
type Router struct {
	store        store.Store
	auctions     *auctionTracker
	escrows      *escrowTracker
	storefronts  *storefrontTracker
	attestations *attestationTracker
	tokens       *tokenTracker
}

// NewRouter creates a router wired to the given store and contract reader
func NewRouter(st store.Store, reader contracts.Reader) *Router {
	resolver := newResolver(st)
	return &Router{
		store:        st,
		auctions:     &auctionTracker{store: st, reader: reader},
		escrows:      &escrowTracker{store: st, resolver: resolver},
		storefronts:  &storefrontTracker{store: st, reader: reader, resolver: resolver},
		attestations: &attestationTracker{store: st, resolver: resolver},
		tokens:       &tokenTracker{store: st},
	}
}

// Handle applies a single event. A nil return means the event is done
// (applied, skipped as duplicate, or deliberately ignored); an error
// means the caller should redeliver it.
func (r *Router) Handle(ctx context.Context, event *domain.Event) error {
	if err := event.Valid(); err != nil {
		return err
	}

	processed, err := r.store.IsEventProcessed(ctx, eventKey(event))
	if err != nil {
		return fmt.Errorf("failed to check event ledger: %w", err)
	}
	if processed {
		logger.DebugCtx(ctx, "Skipping already processed event",
			zap.String("txHash", event.TxHash),
			zap.Uint("logIndex", event.LogIndex),
			zap.String("kind", string(event.Kind)))
		return nil
	}

	if err := r.dispatch(ctx, event); err != nil {
		return err
	}

	return r.store.MarkEventProcessed(ctx, &schema.ProcessedEvent{
		TxHash:      event.TxHash,
		LogIndex:    event.LogIndex,
		Kind:        string(event.Kind),
		BlockNumber: event.BlockNumber,
	})
}

func (r *Router) dispatch(ctx context.Context, event *domain.Event) error {
	switch event.Family {
	case domain.FamilyAuctionHouse:
		return r.dispatchAuctionHouse(ctx, event)
	case domain.FamilyAuctionHouseFactory:
		if event.Kind == domain.KindAuctionHouseCreated {
			return r.auctions.handleAuctionHouseCreated(ctx, event)
		}
	case domain.FamilyEscrow:
		return r.dispatchEscrow(ctx, event)
	case domain.FamilyEscrowFactory:
		if event.Kind == domain.KindEscrowCreated {
			return r.escrows.handleEscrowCreated(ctx, event)
		}
	case domain.FamilyStorefront:
		return r.dispatchStorefront(ctx, event)
	case domain.FamilyStorefrontFactory:
		if event.Kind == domain.KindStorefrontCreated {
			return r.storefronts.handleStorefrontCreated(ctx, event)
		}
	case domain.FamilyAttestation:
		switch event.Kind {
		case domain.KindSaleAttested:
			return r.attestations.handleSaleAttested(ctx, event)
		case domain.KindReviewSubmitted:
			return r.attestations.handleReviewSubmitted(ctx, event)
		}
	case domain.FamilyAuctionItem:
		return r.dispatchAuctionItem(ctx, event)
	}

	// Unknown kinds are acknowledged, not redelivered: newer contract
	// versions may emit events this build does not understand yet.
	logger.WarnCtx(ctx, "Ignoring unhandled event",
		zap.String("family", string(event.Family)),
		zap.String("kind", string(event.Kind)),
		zap.String("txHash", event.TxHash))
	return nil
}

func (r *Router) dispatchAuctionHouse(ctx context.Context, event *domain.Event) error {
	switch event.Kind {
	case domain.KindAuctionCreated:
		return r.auctions.handleAuctionCreated(ctx, event)
	case domain.KindBidCreated:
		return r.auctions.handleBidCreated(ctx, event)
	case domain.KindAuctionEncryptedMessage:
		return r.auctions.handleEncryptedMessage(ctx, event)
	case domain.KindPremiumPaid:
		return r.auctions.handlePremiumPaid(ctx, event)
	case domain.KindAuctionExtended:
		return r.auctions.handleAuctionExtended(ctx, event)
	case domain.KindAuctionEnded:
		return r.auctions.handleAuctionEnded(ctx, event)
	case domain.KindAuctionCancelled:
		return r.auctions.handleAuctionCancelled(ctx, event)
	case domain.KindAuctionHouseMetadata:
		return r.auctions.handleHouseMetadataUpdated(ctx, event)
	case domain.KindSettlementDeadlineUpdated:
		return r.auctions.handleSettlementDeadlineUpdated(ctx, event)
	default:
		return fmt.Errorf("%w: %s/%s", domain.ErrUnknownEventKind, event.Family, event.Kind)
	}
}

func (r *Router) dispatchEscrow(ctx context.Context, event *domain.Event) error {
	switch event.Kind {
	case domain.KindPayerSet:
		return r.escrows.handlePayerSet(ctx, event)
	case domain.KindSettled:
		return r.escrows.handleSettled(ctx, event)
	case domain.KindRefunded:
		return r.escrows.handleRefunded(ctx, event)
	case domain.KindDisputed:
		return r.escrows.handleDisputed(ctx, event)
	case domain.KindDisputeRemoved:
		return r.escrows.handleDisputeRemoved(ctx, event)
	case domain.KindDisputeResolved:
		return r.escrows.handleDisputeResolved(ctx, event)
	case domain.KindEscapeAddressSet:
		return r.escrows.handleEscapeAddressSet(ctx, event)
	case domain.KindEscaped:
		return r.escrows.handleEscaped(ctx, event)
	case domain.KindArbiterChangeProposed:
		return r.escrows.handleArbiterChangeProposed(ctx, event)
	case domain.KindArbiterChangeApproved:
		return r.escrows.handleArbiterChangeApproved(ctx, event)
	default:
		return fmt.Errorf("%w: %s/%s", domain.ErrUnknownEventKind, event.Family, event.Kind)
	}
}

func (r *Router) dispatchStorefront(ctx context.Context, event *domain.Event) error {
	switch event.Kind {
	case domain.KindOrderFulfilled:
		return r.storefronts.handleOrderFulfilled(ctx, event)
	case domain.KindListingAdded:
		return r.storefronts.handleListingAdded(ctx, event)
	case domain.KindListingUpdated:
		return r.storefronts.handleListingUpdated(ctx, event)
	case domain.KindListingRemoved:
		return r.storefronts.handleListingRemoved(ctx, event)
	case domain.KindReadyStateChanged:
		return r.storefronts.handleReadyStateChanged(ctx, event)
	case domain.KindSettleDeadlineUpdated:
		return r.storefronts.handleSettleDeadlineUpdated(ctx, event)
	case domain.KindTokenAddressChanged:
		return r.storefronts.handleTokenAddressChanged(ctx, event)
	default:
		return fmt.Errorf("%w: %s/%s", domain.ErrUnknownEventKind, event.Family, event.Kind)
	}
}

func (r *Router) dispatchAuctionItem(ctx context.Context, event *domain.Event) error {
	switch event.Kind {
	case domain.KindAuctionItemCreated:
		return r.tokens.handleContractCreated(ctx, event)
	case domain.KindTokenTransfer:
		return r.tokens.handleTransfer(ctx, event)
	case domain.KindTokenMetadataUpdated:
		return r.tokens.handleMetadataUpdated(ctx, event)
	case domain.KindContractURIUpdated:
		return r.tokens.handleContractURIUpdated(ctx, event)
	case domain.KindOwnershipTransferred:
		return r.tokens.handleOwnershipTransferred(ctx, event)
	default:
		return fmt.Errorf("%w: %s/%s", domain.ErrUnknownEventKind, event.Family, event.Kind)
	}
}

func eventKey(event *domain.Event) schema.EventKey {
	return schema.EventKey{TxHash: event.TxHash, LogIndex: event.LogIndex}
}
