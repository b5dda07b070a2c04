package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/openmarket-labs/market-indexer/internal/domain"
	"github.com/openmarket-labs/market-indexer/internal/logger"
	"github.com/openmarket-labs/market-indexer/internal/store"
	"github.com/openmarket-labs/market-indexer/internal/store/schema"
)

// escrowTracker maintains escrows and their lifecycle trail. Escrow
// events name only the escrow contract itself; the link back to the
// order or auction the escrow settles is reconstructed by the resolver.
type escrowTracker struct {
	store    store.Store
	resolver *resolver
}

func (t *escrowTracker) getEscrow(ctx context.Context, event *domain.Event) (*schema.OrderEscrow, error) {
	address := domain.NormalizeAddress(event.Contract)
	escrow, err := t.store.GetEscrow(ctx, address)
	if err != nil {
		return nil, err
	}
	if escrow == nil {
		logger.WarnCtx(ctx, "Event references unknown escrow",
			zap.String("escrow", address),
			zap.String("kind", string(event.Kind)),
			zap.String("txHash", event.TxHash))
	}
	return escrow, nil
}

func (t *escrowTracker) handleEscrowCreated(ctx context.Context, event *domain.Event) error {
	var params domain.EscrowCreatedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	address := domain.NormalizeAddress(params.EscrowAddress)
	escrow, err := t.store.GetEscrow(ctx, address)
	if err != nil {
		return err
	}
	if escrow == nil {
		escrow = &schema.OrderEscrow{
			Address:      address,
			CreatedBlock: event.BlockNumber,
		}
	}

	escrow.Payee = domain.NormalizeAddress(params.Payee)
	escrow.SourceAddress = domain.NormalizeAddress(params.Source)
	escrow.Arbiter = domain.NormalizeAddress(params.Arbiter)
	escrow.IsAffiliate = params.IsAffiliate
	escrow.CreationTxHash = event.TxHash

	sourceType, err := t.resolver.classifySource(ctx, escrow.SourceAddress)
	if err != nil {
		return err
	}
	escrow.SourceType = sourceType

	// A fulfillment in the same transaction is this escrow's order
	if escrow.LinkKind == schema.EscrowLinkNone {
		order, err := t.store.GetOrder(ctx, event.TxHash)
		if err != nil {
			return err
		}
		if order != nil {
			return t.resolver.linkEscrowAndOrder(ctx, escrow, order)
		}
	}

	return t.store.SaveEscrow(ctx, escrow)
}

func (t *escrowTracker) handlePayerSet(ctx context.Context, event *domain.Event) error {
	var params domain.PayerSetParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	escrow, err := t.getEscrow(ctx, event)
	if err != nil || escrow == nil {
		return err
	}

	payment := &schema.OrderPayment{
		TxHash:         event.TxHash,
		EscrowAddress:  escrow.Address,
		Payer:          domain.NormalizeAddress(params.Payer),
		SettleDeadline: params.SettleDeadline,
		BlockNumber:    event.BlockNumber,
	}

	// A fulfillment in the same transaction is the order being paid for
	order, err := t.store.GetOrder(ctx, event.TxHash)
	if err != nil {
		return err
	}
	if order != nil {
		payment.OrderTxHash = order.TxHash
	}

	if err := t.store.SaveOrderPayment(ctx, payment); err != nil {
		return err
	}

	// The payer of an auction escrow should be the winning bidder
	if escrow.LinkKind == schema.EscrowLinkAuction {
		auction, err := t.resolver.linkedAuction(ctx, escrow)
		if err != nil {
			return err
		}
		if auction != nil && !domain.IsZeroAddress(auction.CurrentBidder) && payment.Payer != auction.CurrentBidder {
			logger.WarnCtx(ctx, "Escrow payer differs from winning bidder",
				zap.String("escrow", escrow.Address),
				zap.String("payer", payment.Payer),
				zap.String("currentBidder", auction.CurrentBidder))
		}
	}

	return nil
}

func (t *escrowTracker) recordActivity(ctx context.Context, event *domain.Event, activity *schema.EscrowActivity) error {
	activity.TxHash = event.TxHash
	activity.LogIndex = event.LogIndex
	activity.EscrowAddress = domain.NormalizeAddress(event.Contract)
	activity.BlockNumber = event.BlockNumber
	activity.BlockTime = event.BlockTime
	return t.store.SaveEscrowActivity(ctx, activity)
}

func (t *escrowTracker) handleSettled(ctx context.Context, event *domain.Event) error {
	var params domain.SettledParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	escrow, err := t.getEscrow(ctx, event)
	if err != nil || escrow == nil {
		return err
	}

	if err := t.recordActivity(ctx, event, &schema.EscrowActivity{
		Kind:            schema.ActivitySettled,
		To:              domain.NormalizeAddress(params.To),
		Token:           domain.NormalizeAddress(params.Token),
		Amount:          params.Amount,
		Affiliate:       domain.NormalizeAddress(params.Affiliate),
		AffiliateAmount: params.AffiliateAmount,
	}); err != nil {
		return err
	}

	// The settlement payload is authoritative over any affiliate recorded
	// earlier
	escrow.Affiliate = domain.NormalizeAddress(params.Affiliate)
	escrow.AffiliateShare = params.AffiliateAmount
	if err := t.store.SaveEscrow(ctx, escrow); err != nil {
		return err
	}

	// Settlement only refreshes the linked auction. The auction outcome is
	// decided by refunds, escapes and dispute rulings, never by Settled.
	auction, err := t.resolver.linkedAuction(ctx, escrow)
	if err != nil || auction == nil {
		return err
	}
	return t.store.SaveAuction(ctx, auction)
}

func (t *escrowTracker) handleRefunded(ctx context.Context, event *domain.Event) error {
	var params domain.RefundedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	escrow, err := t.getEscrow(ctx, event)
	if err != nil || escrow == nil {
		return err
	}

	if err := t.recordActivity(ctx, event, &schema.EscrowActivity{
		Kind:   schema.ActivityRefunded,
		To:     domain.NormalizeAddress(params.To),
		Token:  domain.NormalizeAddress(params.Token),
		Amount: params.Amount,
	}); err != nil {
		return err
	}

	escrow.IsRefunded = true
	if err := t.store.SaveEscrow(ctx, escrow); err != nil {
		return err
	}

	return t.rule(ctx, escrow, schema.AuctionStatusCancelled)
}

func (t *escrowTracker) handleDisputed(ctx context.Context, event *domain.Event) error {
	var params domain.DisputedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}
	return t.setDisputed(ctx, event, true, &schema.EscrowActivity{
		Kind:  schema.ActivityDisputed,
		Actor: domain.NormalizeAddress(params.Initiator),
	})
}

func (t *escrowTracker) handleDisputeRemoved(ctx context.Context, event *domain.Event) error {
	var params domain.DisputeRemovedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}
	return t.setDisputed(ctx, event, false, &schema.EscrowActivity{
		Kind:  schema.ActivityDisputeRemoved,
		Actor: domain.NormalizeAddress(params.Remover),
	})
}

func (t *escrowTracker) setDisputed(ctx context.Context, event *domain.Event, disputed bool, activity *schema.EscrowActivity) error {
	escrow, err := t.getEscrow(ctx, event)
	if err != nil || escrow == nil {
		return err
	}

	if err := t.recordActivity(ctx, event, activity); err != nil {
		return err
	}

	escrow.IsDisputed = disputed
	return t.store.SaveEscrow(ctx, escrow)
}

func (t *escrowTracker) handleDisputeResolved(ctx context.Context, event *domain.Event) error {
	var params domain.DisputeResolvedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	escrow, err := t.getEscrow(ctx, event)
	if err != nil || escrow == nil {
		return err
	}

	if err := t.recordActivity(ctx, event, &schema.EscrowActivity{
		Kind:    schema.ActivityDisputeResolved,
		Actor:   domain.NormalizeAddress(params.Resolver),
		Settled: params.Settled,
	}); err != nil {
		return err
	}

	escrow.IsDisputed = false
	if !params.Settled {
		escrow.IsRefunded = true
	}
	if err := t.store.SaveEscrow(ctx, escrow); err != nil {
		return err
	}

	// The arbiter's ruling decides the auction outcome, overriding any
	// terminal status already recorded
	target := schema.AuctionStatusCancelled
	if params.Settled {
		target = schema.AuctionStatusCompleted
	}
	return t.rule(ctx, escrow, target)
}

func (t *escrowTracker) handleEscapeAddressSet(ctx context.Context, event *domain.Event) error {
	var params domain.EscapeAddressSetParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	escrow, err := t.getEscrow(ctx, event)
	if err != nil || escrow == nil {
		return err
	}

	escape := domain.NormalizeAddress(params.EscapeAddress)
	if err := t.recordActivity(ctx, event, &schema.EscrowActivity{
		Kind:          schema.ActivityEscapeAddressSet,
		EscapeAddress: escape,
	}); err != nil {
		return err
	}

	escrow.EscapeAddress = escape
	return t.store.SaveEscrow(ctx, escrow)
}

func (t *escrowTracker) handleEscaped(ctx context.Context, event *domain.Event) error {
	var params domain.EscapedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	// Unlike the other lifecycle events, an escape is recorded even for an
	// unknown escrow so the emergency-withdrawal trail stays complete
	if err := t.recordActivity(ctx, event, &schema.EscrowActivity{
		Kind:   schema.ActivityEscaped,
		To:     domain.NormalizeAddress(params.To),
		Token:  domain.NormalizeAddress(params.Token),
		Amount: params.Amount,
	}); err != nil {
		return err
	}

	return t.completeLinkedAuction(ctx, event, schema.AuctionStatusCancelled)
}

func (t *escrowTracker) handleArbiterChangeProposed(ctx context.Context, event *domain.Event) error {
	var params domain.ArbiterChangeProposedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	change := &schema.ArbiterChange{
		TxHash:          event.TxHash,
		LogIndex:        event.LogIndex,
		EscrowAddress:   domain.NormalizeAddress(event.Contract),
		OldArbiter:      domain.NormalizeAddress(params.OldArbiter),
		ProposedArbiter: domain.NormalizeAddress(params.ProposedArbiter),
		BlockNumber:     event.BlockNumber,
	}
	return t.store.SaveArbiterChange(ctx, change)
}

func (t *escrowTracker) handleArbiterChangeApproved(ctx context.Context, event *domain.Event) error {
	var params domain.ArbiterChangeApprovedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	address := domain.NormalizeAddress(event.Contract)
	newArbiter := domain.NormalizeAddress(params.NewArbiter)

	change, err := t.store.GetPendingArbiterChange(ctx, address, newArbiter)
	if err != nil {
		return err
	}
	if change == nil {
		// Approval without a recorded proposal. Keep the trail complete
		// with a standalone approved row.
		logger.WarnCtx(ctx, "Arbiter change approved without matching proposal",
			zap.String("escrow", address),
			zap.String("newArbiter", newArbiter))
		change = &schema.ArbiterChange{
			TxHash:          event.TxHash,
			LogIndex:        event.LogIndex,
			EscrowAddress:   address,
			OldArbiter:      domain.NormalizeAddress(params.OldArbiter),
			ProposedArbiter: newArbiter,
			BlockNumber:     event.BlockNumber,
		}
	}
	change.NewArbiter = newArbiter
	change.Approved = true
	change.Approver = domain.NormalizeAddress(params.Approver)
	if err := t.store.SaveArbiterChange(ctx, change); err != nil {
		return err
	}

	escrow, err := t.store.GetEscrow(ctx, address)
	if err != nil {
		return err
	}
	if escrow == nil {
		return nil
	}
	escrow.Arbiter = newArbiter
	if err := t.store.SaveEscrow(ctx, escrow); err != nil {
		return err
	}

	// Keep the linked auction's arbiter in step with its escrow
	auction, err := t.resolver.linkedAuction(ctx, escrow)
	if err != nil || auction == nil {
		return err
	}
	auction.Arbiter = newArbiter
	return t.store.SaveAuction(ctx, auction)
}

// completeLinkedAuction moves the auction settled by this escrow to a
// terminal status
func (t *escrowTracker) completeLinkedAuction(ctx context.Context, event *domain.Event, target schema.AuctionStatus) error {
	escrow, err := t.getEscrow(ctx, event)
	if err != nil || escrow == nil {
		return err
	}
	return t.rule(ctx, escrow, target)
}

func (t *escrowTracker) rule(ctx context.Context, escrow *schema.OrderEscrow, target schema.AuctionStatus) error {
	auction, err := t.resolver.linkedAuction(ctx, escrow)
	if err != nil || auction == nil {
		return err
	}
	if !transitionAuction(ctx, auction, target) {
		return nil
	}
	return t.store.SaveAuction(ctx, auction)
}
