package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/openmarket-labs/market-indexer/internal/logger"
	"github.com/openmarket-labs/market-indexer/internal/store"
	"github.com/openmarket-labs/market-indexer/internal/store/schema"
)

// resolver reconstructs the relationships the events themselves do not
// carry: which marketplace an escrow belongs to, which order or auction
// an escrow settles, and which order an attestation refers to.
type resolver struct {
	store store.Store
}

func newResolver(st store.Store) *resolver {
	return &resolver{store: st}
}

// classifySource decides whether an escrow's source contract is a
// storefront or an auction house by looking the address up among known
// marketplaces. An address known to neither defaults to STOREFRONT:
// factories register marketplaces before their escrows can emit, so an
// unknown source is almost always a storefront version predating the
// indexed factory.
func (r *resolver) classifySource(ctx context.Context, source string) (schema.EscrowSource, error) {
	if storefront, err := r.store.GetStorefront(ctx, source); err != nil {
		return "", fmt.Errorf("failed to classify escrow source: %w", err)
	} else if storefront != nil {
		return schema.EscrowSourceStorefront, nil
	}

	if house, err := r.store.GetAuctionHouse(ctx, source); err != nil {
		return "", fmt.Errorf("failed to classify escrow source: %w", err)
	} else if house != nil {
		return schema.EscrowSourceAuctionHouse, nil
	}

	logger.WarnCtx(ctx, "Escrow source matches no known marketplace, defaulting to storefront",
		zap.String("source", source))
	return schema.EscrowSourceStorefront, nil
}

// linkEscrowAndOrder binds an escrow and an order created in the same
// transaction to each other. Both sides are saved; either argument may
// arrive first in the feed.
func (r *resolver) linkEscrowAndOrder(ctx context.Context, escrow *schema.OrderEscrow, order *schema.Order) error {
	escrow.LinkToOrder(order.TxHash)
	order.EscrowContract = escrow.Address

	if err := r.store.SaveEscrow(ctx, escrow); err != nil {
		return err
	}
	if err := r.store.SaveOrder(ctx, order); err != nil {
		return err
	}

	logger.DebugCtx(ctx, "Linked escrow and order",
		zap.String("escrow", escrow.Address),
		zap.String("orderTx", order.TxHash))
	return nil
}

// linkedAuction returns the auction an escrow settles, or nil when the
// escrow is not auction-linked or the auction is unknown
func (r *resolver) linkedAuction(ctx context.Context, escrow *schema.OrderEscrow) (*schema.Auction, error) {
	if escrow.LinkKind != schema.EscrowLinkAuction {
		return nil, nil
	}
	auction, err := r.store.GetAuction(ctx, escrow.AuctionKey())
	if err != nil {
		return nil, err
	}
	if auction == nil {
		logger.WarnCtx(ctx, "Escrow links to unknown auction",
			zap.String("escrow", escrow.Address),
			zap.String("house", escrow.AuctionHouse),
			zap.Uint64("sequence", escrow.AuctionSequence))
	}
	return auction, nil
}

// transitionAuction moves an auction along its lifecycle. Backward
// transitions are refused and logged rather than applied.
func transitionAuction(ctx context.Context, auction *schema.Auction, target schema.AuctionStatus) bool {
	if auction.Status == target {
		return false
	}
	if !auction.Status.CanTransitionTo(target) {
		logger.WarnCtx(ctx, "Refusing backward auction status transition",
			zap.String("house", auction.HouseAddress),
			zap.Uint64("sequence", auction.Sequence),
			zap.String("from", string(auction.Status)),
			zap.String("to", string(target)))
		return false
	}
	auction.Status = target
	return true
}
