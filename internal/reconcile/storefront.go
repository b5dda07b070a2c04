package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/openmarket-labs/market-indexer/internal/contracts"
	"github.com/openmarket-labs/market-indexer/internal/domain"
	"github.com/openmarket-labs/market-indexer/internal/logger"
	"github.com/openmarket-labs/market-indexer/internal/metadata"
	"github.com/openmarket-labs/market-indexer/internal/store"
	"github.com/openmarket-labs/market-indexer/internal/store/schema"
)

// storefrontTracker maintains storefronts, listings and orders. Orders
// are keyed by fulfillment transaction hash, which is also how escrows
// created in the same transaction find their order.
type storefrontTracker struct {
	store    store.Store
	reader   contracts.Reader
	resolver *resolver
}

func (t *storefrontTracker) getStorefront(ctx context.Context, event *domain.Event) (*schema.Storefront, error) {
	address := domain.NormalizeAddress(event.Contract)
	storefront, err := t.store.GetStorefront(ctx, address)
	if err != nil {
		return nil, err
	}
	if storefront == nil {
		logger.WarnCtx(ctx, "Event references unknown storefront",
			zap.String("storefront", address),
			zap.String("kind", string(event.Kind)),
			zap.String("txHash", event.TxHash))
	}
	return storefront, nil
}

func (t *storefrontTracker) handleStorefrontCreated(ctx context.Context, event *domain.Event) error {
	var params domain.StorefrontCreatedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	address := domain.NormalizeAddress(params.Storefront)
	storefront := &schema.Storefront{
		Address:            address,
		Owner:              domain.NormalizeAddress(params.Owner),
		TokenContract:      domain.NormalizeAddress(params.TokenContract),
		EscrowFactory:      domain.NormalizeAddress(params.EscrowFactory),
		AffiliateVerifier:  domain.NormalizeAddress(params.AffiliateVerifier),
		IsAffiliateEnabled: params.IsAffiliateEnabled,
		CreatedBlock:       event.BlockNumber,
	}

	// Settlement configuration is not part of the creation log; read it
	// from the contract and fall back to zero values when the read fails.
	state, err := t.reader.StorefrontState(ctx, address)
	if err != nil {
		logger.WarnCtx(ctx, "Storefront state read failed, using defaults",
			zap.String("storefront", address),
			zap.Error(err))
	} else {
		storefront.Arbiter = state.Arbiter
		storefront.MinSettleTime = state.MinSettleTime
		storefront.SettleDeadline = state.SettleDeadline
		storefront.Ready = state.Ready
		storefront.Seaport = state.Seaport
		storefront.ContractURI = state.ContractURI
	}

	return t.store.SaveStorefront(ctx, storefront)
}

func (t *storefrontTracker) handleOrderFulfilled(ctx context.Context, event *domain.Event) error {
	var params domain.OrderFulfilledParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	storefrontAddr := domain.NormalizeAddress(event.Contract)
	order := &schema.Order{
		TxHash:         event.TxHash,
		Storefront:     storefrontAddr,
		Buyer:          domain.NormalizeAddress(params.Buyer),
		TokenNumber:    params.TokenNumber,
		Amount:         params.Amount,
		Price:          params.Price,
		PaymentToken:   domain.NormalizeAddress(params.PaymentToken),
		Affiliate:      domain.NormalizeAddress(params.Affiliate),
		AffiliateShare: params.AffiliateShare,
		BlockNumber:    event.BlockNumber,
		BlockTime:      event.BlockTime,
	}

	storefront, err := t.store.GetStorefront(ctx, storefrontAddr)
	if err != nil {
		return err
	}
	if storefront != nil {
		order.Seller = storefront.Owner
	}

	escrow, err := t.findOrderEscrow(ctx, event, &params)
	if err != nil {
		return err
	}
	if escrow != nil {
		return t.resolver.linkEscrowAndOrder(ctx, escrow, order)
	}

	return t.store.SaveOrder(ctx, order)
}

// findOrderEscrow locates the escrow settling an order, preferring the
// escrow deployed in the fulfillment transaction and falling back to the
// address named in the payload
func (t *storefrontTracker) findOrderEscrow(ctx context.Context, event *domain.Event, params *domain.OrderFulfilledParams) (*schema.OrderEscrow, error) {
	escrow, err := t.store.GetEscrowByCreationTx(ctx, event.TxHash)
	if err != nil {
		return nil, err
	}
	if escrow != nil {
		return escrow, nil
	}

	if domain.IsZeroAddress(params.EscrowContract) {
		return nil, nil
	}
	return t.store.GetEscrow(ctx, domain.NormalizeAddress(params.EscrowContract))
}

func (t *storefrontTracker) handleListingAdded(ctx context.Context, event *domain.Event) error {
	var params domain.ListingAddedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	storefront, err := t.getStorefront(ctx, event)
	if err != nil || storefront == nil {
		return err
	}

	listing := &schema.TokenListing{
		Storefront:   storefront.Address,
		TokenNumber:  params.TokenNumber,
		Price:        params.Price,
		PaymentToken: domain.NormalizeAddress(params.PaymentToken),
		AffiliateFee: params.AffiliateFee,
		Active:       true,
		CreatedBlock: event.BlockNumber,
	}

	// Listed tokens live on the storefront's backing contract; fetch and
	// parse their metadata eagerly so listings render without a chain
	// round trip
	if !domain.IsZeroAddress(storefront.TokenContract) {
		uri, err := t.reader.TokenURI(ctx, storefront.TokenContract, params.TokenNumber)
		if err != nil {
			logger.WarnCtx(ctx, "Token URI read failed for listing",
				zap.String("storefront", storefront.Address),
				zap.String("tokenNumber", params.TokenNumber),
				zap.Error(err))
		} else if uri != "" {
			listing.TokenURI = uri
			if err := t.saveListingMetadata(ctx, listing, uri); err != nil {
				return err
			}
		}
	}

	return t.store.SaveListing(ctx, listing)
}

func (t *storefrontTracker) saveListingMetadata(ctx context.Context, listing *schema.TokenListing, uri string) error {
	parsed, err := metadata.Parse(uri)
	if err != nil {
		logger.WarnCtx(ctx, "Listing metadata unparseable",
			zap.String("storefront", listing.Storefront),
			zap.String("tokenNumber", listing.TokenNumber),
			zap.Error(err))
		return nil
	}
	if err := t.store.SaveTokenMetadata(ctx, metadataRecord(parsed)); err != nil {
		return err
	}
	listing.MetadataID = parsed.ID
	return nil
}

func (t *storefrontTracker) handleListingUpdated(ctx context.Context, event *domain.Event) error {
	var params domain.ListingUpdatedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	listing, err := t.requireListing(ctx, event, params.TokenNumber)
	if err != nil || listing == nil {
		return err
	}

	listing.Price = params.NewPrice
	listing.PaymentToken = domain.NormalizeAddress(params.NewPaymentToken)
	listing.AffiliateFee = params.NewAffiliateFee
	listing.Active = true
	return t.store.SaveListing(ctx, listing)
}

func (t *storefrontTracker) handleListingRemoved(ctx context.Context, event *domain.Event) error {
	var params domain.ListingRemovedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	listing, err := t.requireListing(ctx, event, params.TokenNumber)
	if err != nil || listing == nil {
		return err
	}

	listing.Active = false
	return t.store.SaveListing(ctx, listing)
}

func (t *storefrontTracker) requireListing(ctx context.Context, event *domain.Event, tokenNumber string) (*schema.TokenListing, error) {
	storefront := domain.NormalizeAddress(event.Contract)
	listing, err := t.store.GetListing(ctx, storefront, tokenNumber)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		logger.WarnCtx(ctx, "Event references unknown listing",
			zap.String("storefront", storefront),
			zap.String("tokenNumber", tokenNumber),
			zap.String("kind", string(event.Kind)))
	}
	return listing, nil
}

func (t *storefrontTracker) handleReadyStateChanged(ctx context.Context, event *domain.Event) error {
	var params domain.ReadyStateChangedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	storefront, err := t.getStorefront(ctx, event)
	if err != nil || storefront == nil {
		return err
	}

	storefront.Ready = params.Ready
	return t.store.SaveStorefront(ctx, storefront)
}

func (t *storefrontTracker) handleSettleDeadlineUpdated(ctx context.Context, event *domain.Event) error {
	var params domain.SettleDeadlineUpdatedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	storefront, err := t.getStorefront(ctx, event)
	if err != nil || storefront == nil {
		return err
	}

	storefront.SettleDeadline = params.NewSettleDeadline
	return t.store.SaveStorefront(ctx, storefront)
}

func (t *storefrontTracker) handleTokenAddressChanged(ctx context.Context, event *domain.Event) error {
	var params domain.TokenAddressChangedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	storefront, err := t.getStorefront(ctx, event)
	if err != nil || storefront == nil {
		return err
	}

	storefront.TokenContract = domain.NormalizeAddress(params.NewAddress)
	// Swapping the backing contract takes the storefront offline until
	// the owner re-enables it
	storefront.Ready = false

	uri, err := t.reader.ContractURI(ctx, storefront.TokenContract)
	if err != nil {
		logger.WarnCtx(ctx, "Contract URI read failed after token swap",
			zap.String("storefront", storefront.Address),
			zap.String("tokenContract", storefront.TokenContract),
			zap.Error(err))
	} else if uri != "" {
		storefront.ContractURI = uri
	}

	return t.store.SaveStorefront(ctx, storefront)
}
