package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/openmarket-labs/market-indexer/internal/domain"
	"github.com/openmarket-labs/market-indexer/internal/logger"
	"github.com/openmarket-labs/market-indexer/internal/store"
	"github.com/openmarket-labs/market-indexer/internal/store/schema"
)

// attestationTracker maintains sale attestations and reviews. An
// attestation names a sale transaction hash that may belong to an
// indexed order, an escrow's auction, or nothing this indexer has seen.
type attestationTracker struct {
	store    store.Store
	resolver *resolver
}

func (t *attestationTracker) handleSaleAttested(ctx context.Context, event *domain.Event) error {
	var params domain.SaleAttestedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	attestation := &schema.SaleAttestation{
		UID:            params.UID,
		SaleTxHash:     params.SaleTxHash,
		AttestationTx:  event.TxHash,
		Buyer:          domain.NormalizeAddress(params.Buyer),
		Seller:         domain.NormalizeAddress(params.Seller),
		Storefront:     domain.NormalizeAddress(params.Storefront),
		EscrowContract: domain.NormalizeAddress(params.EscrowContract),
		IsLatest:       true,
		BlockNumber:    event.BlockNumber,
		BlockTime:      event.BlockTime,
	}

	order, err := t.store.GetOrder(ctx, params.SaleTxHash)
	if err != nil {
		return err
	}
	if order != nil {
		return t.attestOrder(ctx, attestation, order)
	}

	// No order with that transaction hash. The escrow may tell us the
	// sale was an auction settlement instead.
	if !domain.IsZeroAddress(attestation.EscrowContract) {
		escrow, err := t.store.GetEscrow(ctx, attestation.EscrowContract)
		if err != nil {
			return err
		}
		if escrow != nil && escrow.LinkKind == schema.EscrowLinkAuction {
			attestation.AuctionHouse = escrow.AuctionHouse
			attestation.AuctionSequence = escrow.AuctionSequence
			return t.store.SaveAttestation(ctx, attestation)
		}
	}

	logger.WarnCtx(ctx, "Attestation references unknown sale, storing unlinked",
		zap.String("uid", attestation.UID),
		zap.String("saleTxHash", attestation.SaleTxHash))
	return t.store.SaveAttestation(ctx, attestation)
}

// attestOrder links an attestation to its order, demotes earlier
// attestations of the same order, and corrects the order's buyer when
// the resolver knows better than the fulfillment log did.
func (t *attestationTracker) attestOrder(ctx context.Context, attestation *schema.SaleAttestation, order *schema.Order) error {
	attestation.OrderTxHash = order.TxHash

	previous, err := t.store.ListAttestationsByOrder(ctx, order.TxHash)
	if err != nil {
		return err
	}
	for i := range previous {
		if previous[i].UID == attestation.UID || !previous[i].IsLatest {
			continue
		}
		previous[i].IsLatest = false
		if err := t.store.SaveAttestation(ctx, &previous[i]); err != nil {
			return err
		}
	}

	if err := t.store.SaveAttestation(ctx, attestation); err != nil {
		return err
	}

	// The attestation may name an escrow that never found its order, for
	// example when the escrow was deployed in a different transaction than
	// the fulfillment. Fill the missing link both ways.
	if !domain.IsZeroAddress(attestation.EscrowContract) {
		escrow, err := t.store.GetEscrow(ctx, attestation.EscrowContract)
		if err != nil {
			return err
		}
		if escrow != nil && escrow.LinkKind == schema.EscrowLinkNone {
			if err := t.resolver.linkEscrowAndOrder(ctx, escrow, order); err != nil {
				return err
			}
		}
	}

	if attestation.Buyer != "" && attestation.Buyer != order.Buyer {
		logger.WarnCtx(ctx, "Attestation corrects order buyer",
			zap.String("orderTx", order.TxHash),
			zap.String("recordedBuyer", order.Buyer),
			zap.String("attestedBuyer", attestation.Buyer))
		order.Buyer = attestation.Buyer
		return t.store.SaveOrder(ctx, order)
	}

	return nil
}

func (t *attestationTracker) handleReviewSubmitted(ctx context.Context, event *domain.Event) error {
	var params domain.ReviewSubmittedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	attestation, err := t.store.GetAttestation(ctx, params.SaleUID)
	if err != nil {
		return err
	}
	if attestation == nil {
		logger.WarnCtx(ctx, "Review references unknown sale attestation, dropping",
			zap.String("reviewUID", params.ReviewUID),
			zap.String("saleUID", params.SaleUID))
		return nil
	}

	review := &schema.Review{
		UID:                 params.ReviewUID,
		SaleUID:             params.SaleUID,
		Reviewer:            domain.NormalizeAddress(params.Reviewer),
		Recipient:           domain.NormalizeAddress(params.Recipient),
		Storefront:          attestation.Storefront,
		OverallRating:       params.OverallRating,
		QualityRating:       params.QualityRating,
		CommunicationRating: params.CommunicationRating,
		DeliveryRating:      params.DeliveryRating,
		PackagingRating:     params.PackagingRating,
		AsDescribed:         params.AsDescribed,
		ReviewText:          params.ReviewText,
		BlockNumber:         event.BlockNumber,
	}

	if review.Reviewer == attestation.Buyer {
		review.ReviewType = schema.ReviewTypeBuyer
	} else {
		review.ReviewType = schema.ReviewTypeSeller
	}

	if err := t.store.SaveReview(ctx, review); err != nil {
		return err
	}

	// Only buyer reviews feed the storefront's rating aggregate
	if review.ReviewType != schema.ReviewTypeBuyer || domain.IsZeroAddress(attestation.Storefront) {
		return nil
	}

	storefront, err := t.store.GetStorefront(ctx, attestation.Storefront)
	if err != nil {
		return err
	}
	if storefront == nil {
		logger.WarnCtx(ctx, "Buyer review for unknown storefront",
			zap.String("storefront", attestation.Storefront),
			zap.String("reviewUID", review.UID))
		return nil
	}

	storefront.TotalRating += uint64(review.OverallRating)
	storefront.ReviewCount++
	return t.store.SaveStorefront(ctx, storefront)
}
