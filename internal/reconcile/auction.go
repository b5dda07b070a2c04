package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/openmarket-labs/market-indexer/internal/contracts"
	"github.com/openmarket-labs/market-indexer/internal/domain"
	"github.com/openmarket-labs/market-indexer/internal/logger"
	"github.com/openmarket-labs/market-indexer/internal/metadata"
	"github.com/openmarket-labs/market-indexer/internal/store"
	"github.com/openmarket-labs/market-indexer/internal/store/schema"
)

// auctionTracker maintains auctions, bids, encrypted messages and
// premium payments. The emitting contract of an auction house event is
// the house itself, so every handler keys off event.Contract plus the
// auction sequence number in the payload.
type auctionTracker struct {
	store  store.Store
	reader contracts.Reader
}

func (t *auctionTracker) getAuction(ctx context.Context, event *domain.Event, sequence uint64) (*schema.Auction, error) {
	key := schema.AuctionKey{House: domain.NormalizeAddress(event.Contract), Sequence: sequence}
	auction, err := t.store.GetAuction(ctx, key)
	if err != nil {
		return nil, err
	}
	if auction == nil {
		logger.WarnCtx(ctx, "Event references unknown auction",
			zap.String("house", key.House),
			zap.Uint64("sequence", key.Sequence),
			zap.String("kind", string(event.Kind)),
			zap.String("txHash", event.TxHash))
	}
	return auction, nil
}

func (t *auctionTracker) handleAuctionHouseCreated(ctx context.Context, event *domain.Event) error {
	var params domain.AuctionHouseCreatedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	house := &schema.AuctionHouse{
		Address:            domain.NormalizeAddress(params.AuctionHouse),
		Owner:              domain.NormalizeAddress(params.Owner),
		Name:               params.Name,
		Image:              params.Image,
		Description:        params.Description,
		ContractURI:        params.ContractURI,
		Symbol:             params.Symbol,
		SettlementDeadline: params.SettlementDeadline,
		CreatedBlock:       event.BlockNumber,
	}
	return t.store.SaveAuctionHouse(ctx, house)
}

func (t *auctionTracker) handleAuctionCreated(ctx context.Context, event *domain.Event) error {
	var params domain.AuctionCreatedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	house := domain.NormalizeAddress(event.Contract)
	key := schema.AuctionKey{House: house, Sequence: params.AuctionID}

	existing, err := t.store.GetAuction(ctx, key)
	if err != nil {
		return err
	}
	if existing != nil {
		logger.WarnCtx(ctx, "Auction already exists, skipping creation",
			zap.String("house", house),
			zap.Uint64("sequence", params.AuctionID))
		return nil
	}

	auction := &schema.Auction{
		HouseAddress:     house,
		Sequence:         params.AuctionID,
		TokenContract:    domain.NormalizeAddress(params.TokenContract),
		TokenNumber:      params.TokenNumber,
		Owner:            domain.NormalizeAddress(params.Owner),
		Arbiter:          domain.NormalizeAddress(params.Arbiter),
		EscrowAddress:    domain.NormalizeAddress(params.EscrowAddress),
		Status:           schema.AuctionStatusCreated,
		IsPremium:        params.IsPremium,
		Duration:         params.Duration,
		ReservePrice:     params.ReservePrice,
		AffiliateFeeBps:  params.AffiliateFeeBps,
		HighestBidAmount: "0",
		TotalPremiumPaid: "0",
		CreatedBlock:     event.BlockNumber,
		CreatedTxHash:    event.TxHash,
	}

	// The creation log omits house-level financials; read them from the
	// contract and fall back to zero values when the read fails.
	state, err := t.reader.AuctionState(ctx, house, params.AuctionID)
	if err != nil {
		logger.WarnCtx(ctx, "Auction state read failed, using defaults",
			zap.String("house", house),
			zap.Uint64("sequence", params.AuctionID),
			zap.Error(err))
	} else {
		auction.HighestBidAmount = state.HighestBid
		auction.StartTime = state.StartTime
		auction.AuctionCurrency = state.AuctionCurrency
		auction.PaymentAmount = state.PaymentAmount
		auction.MinBidIncrementBps = state.MinBidIncrementBps
		auction.PremiumBps = state.PremiumBps
		auction.TimeExtension = state.TimeExtension
	}

	// Adopt the token's parsed metadata when the token is already known,
	// otherwise try the token contract directly
	token, err := t.store.GetAuctionItemToken(ctx, auction.TokenContract, auction.TokenNumber)
	if err != nil {
		return err
	}
	if token != nil && token.MetadataID != "" {
		auction.MetadataID = token.MetadataID
	} else if err := t.readAuctionMetadata(ctx, auction); err != nil {
		return err
	}

	if err := t.store.SaveAuction(ctx, auction); err != nil {
		return err
	}

	if domain.IsZeroAddress(auction.EscrowAddress) {
		return nil
	}

	// The house deploys the escrow in the same transaction. Create or
	// update it and link both sides.
	escrow, err := t.store.GetEscrow(ctx, auction.EscrowAddress)
	if err != nil {
		return err
	}
	if escrow == nil {
		escrow = &schema.OrderEscrow{
			Address:        auction.EscrowAddress,
			Payee:          auction.Owner,
			Arbiter:        auction.Arbiter,
			CreationTxHash: event.TxHash,
			CreatedBlock:   event.BlockNumber,
		}
	}
	escrow.SourceAddress = house
	escrow.SourceType = schema.EscrowSourceAuctionHouse
	escrow.LinkToAuction(key)
	return t.store.SaveEscrow(ctx, escrow)
}

// readAuctionMetadata fetches and parses the auctioned token's metadata
// straight from its contract. Failures leave the auction without a
// metadata reference.
func (t *auctionTracker) readAuctionMetadata(ctx context.Context, auction *schema.Auction) error {
	if domain.IsZeroAddress(auction.TokenContract) {
		return nil
	}

	uri, err := t.reader.TokenURI(ctx, auction.TokenContract, auction.TokenNumber)
	if err != nil {
		logger.WarnCtx(ctx, "Token URI read failed for auction",
			zap.String("house", auction.HouseAddress),
			zap.Uint64("sequence", auction.Sequence),
			zap.Error(err))
		return nil
	}
	if uri == "" {
		return nil
	}

	parsed, err := metadata.Parse(uri)
	if err != nil {
		logger.WarnCtx(ctx, "Auction token metadata unparseable",
			zap.String("house", auction.HouseAddress),
			zap.Uint64("sequence", auction.Sequence),
			zap.Error(err))
		return nil
	}
	if err := t.store.SaveTokenMetadata(ctx, metadataRecord(parsed)); err != nil {
		return err
	}
	auction.MetadataID = parsed.ID
	return nil
}

func (t *auctionTracker) handleBidCreated(ctx context.Context, event *domain.Event) error {
	var params domain.BidCreatedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	auction, err := t.getAuction(ctx, event, params.AuctionID)
	if err != nil || auction == nil {
		return err
	}

	bid := &schema.Bid{
		TxHash:       event.TxHash,
		LogIndex:     event.LogIndex,
		HouseAddress: auction.HouseAddress,
		Sequence:     auction.Sequence,
		Bidder:       domain.NormalizeAddress(params.Bidder),
		Amount:       params.Amount,
		Affiliate:    domain.NormalizeAddress(params.Affiliate),
		IsFinal:      params.IsFinal,
		BlockNumber:  event.BlockNumber,
		BlockTime:    event.BlockTime,
	}

	// Strictly greater wins: an equal re-bid never displaces the
	// incumbent
	if domain.AmountGreaterThan(bid.Amount, auction.HighestBidAmount) {
		if auction.WinningBidTxHash != "" {
			previous, err := t.store.GetBid(ctx, schema.EventKey{
				TxHash:   auction.WinningBidTxHash,
				LogIndex: auction.WinningBidLogIndex,
			})
			if err != nil {
				return err
			}
			if previous != nil {
				previous.IsWinningBid = false
				if err := t.store.SaveBid(ctx, previous); err != nil {
					return err
				}
			}
		}

		bid.IsWinningBid = true
		auction.HighestBidAmount = bid.Amount
		auction.CurrentBidder = bid.Bidder
		auction.CurrentAffiliate = bid.Affiliate
		auction.WinningBidTxHash = bid.TxHash
		auction.WinningBidLogIndex = bid.LogIndex
	}

	if err := t.store.SaveBid(ctx, bid); err != nil {
		return err
	}

	if params.EncryptedData != "" {
		msg := &schema.EncryptedMessage{
			TxHash:             event.TxHash,
			LogIndex:           event.LogIndex,
			HouseAddress:       auction.HouseAddress,
			Sequence:           auction.Sequence,
			Bidder:             bid.Bidder,
			EncryptedData:      params.EncryptedData,
			EphemeralPublicKey: params.EphemeralPublicKey,
			IV:                 params.IV,
			VerificationHash:   params.VerificationHash,
			IsFinal:            params.IsFinal,
			BlockNumber:        event.BlockNumber,
		}
		if err := t.store.SaveEncryptedMessage(ctx, msg); err != nil {
			return err
		}
	}

	auction.TotalBidCount++
	if auction.TotalBidCount == 1 {
		transitionAuction(ctx, auction, schema.AuctionStatusActive)
		if auction.StartTime == 0 {
			auction.StartTime = uint64(event.BlockTime.Unix())
		}
		if auction.EndTime == 0 && auction.Duration > 0 {
			auction.EndTime = auction.StartTime + auction.Duration
		}
	}

	return t.store.SaveAuction(ctx, auction)
}

func (t *auctionTracker) handleEncryptedMessage(ctx context.Context, event *domain.Event) error {
	var params domain.EncryptedMessageParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	auction, err := t.getAuction(ctx, event, params.AuctionID)
	if err != nil || auction == nil {
		return err
	}

	msg := &schema.EncryptedMessage{
		TxHash:             event.TxHash,
		LogIndex:           event.LogIndex,
		HouseAddress:       auction.HouseAddress,
		Sequence:           auction.Sequence,
		Bidder:             domain.NormalizeAddress(params.Bidder),
		EncryptedData:      params.EncryptedData,
		EphemeralPublicKey: params.EphemeralPublicKey,
		IV:                 params.IV,
		VerificationHash:   params.VerificationHash,
		IsFinal:            params.IsFinal,
		BlockNumber:        event.BlockNumber,
	}
	return t.store.SaveEncryptedMessage(ctx, msg)
}

func (t *auctionTracker) handlePremiumPaid(ctx context.Context, event *domain.Event) error {
	var params domain.PremiumPaidParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	auction, err := t.getAuction(ctx, event, params.AuctionID)
	if err != nil || auction == nil {
		return err
	}

	payment := &schema.PremiumPayment{
		TxHash:        event.TxHash,
		LogIndex:      event.LogIndex,
		HouseAddress:  auction.HouseAddress,
		Sequence:      auction.Sequence,
		OutbidUser:    domain.NormalizeAddress(params.OutbidUser),
		NewBidder:     domain.NormalizeAddress(params.NewBidder),
		OriginalBid:   params.OriginalBid,
		PremiumAmount: params.PremiumAmount,
		BlockNumber:   event.BlockNumber,
	}
	if err := t.store.SavePremiumPayment(ctx, payment); err != nil {
		return err
	}

	auction.TotalPremiumPaid = domain.AddAmounts(auction.TotalPremiumPaid, params.PremiumAmount)
	return t.store.SaveAuction(ctx, auction)
}

func (t *auctionTracker) handleAuctionExtended(ctx context.Context, event *domain.Event) error {
	var params domain.AuctionExtendedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	auction, err := t.getAuction(ctx, event, params.AuctionID)
	if err != nil || auction == nil {
		return err
	}

	auction.EndTime = params.NewEndTime
	auction.WasExtended = true
	auction.ExtensionCount++
	return t.store.SaveAuction(ctx, auction)
}

func (t *auctionTracker) handleAuctionEnded(ctx context.Context, event *domain.Event) error {
	var params domain.AuctionEndedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	auction, err := t.getAuction(ctx, event, params.AuctionID)
	if err != nil || auction == nil {
		return err
	}

	transitionAuction(ctx, auction, schema.AuctionStatusCompleted)
	auction.CurrentBidder = domain.NormalizeAddress(params.Winner)
	auction.CurrentAffiliate = domain.NormalizeAddress(params.Affiliate)
	auction.PaymentAmount = params.FinalAmount
	if err := t.store.SaveAuction(ctx, auction); err != nil {
		return err
	}

	if !domain.IsZeroAddress(auction.EscrowAddress) {
		escrow, err := t.store.GetEscrow(ctx, auction.EscrowAddress)
		if err != nil {
			return err
		}
		if escrow == nil {
			escrow = &schema.OrderEscrow{
				Address:        auction.EscrowAddress,
				Payee:          auction.Owner,
				Arbiter:        auction.Arbiter,
				CreationTxHash: event.TxHash,
				CreatedBlock:   event.BlockNumber,
			}
		}
		escrow.SourceAddress = auction.HouseAddress
		escrow.SourceType = schema.EscrowSourceAuctionHouse
		escrow.LinkToAuction(auction.Key())
		// Seed the affiliate from the winning bid; the Settled payload
		// overwrites it with the exact paid share
		if escrow.Affiliate == "" {
			escrow.Affiliate = auction.CurrentAffiliate
		}
		if err := t.store.SaveEscrow(ctx, escrow); err != nil {
			return err
		}
	}

	// The item moves to the winner when the auction completes
	if !domain.IsZeroAddress(auction.CurrentBidder) {
		token, err := t.store.GetAuctionItemToken(ctx, auction.TokenContract, auction.TokenNumber)
		if err != nil {
			return err
		}
		if token != nil {
			token.Owner = auction.CurrentBidder
			token.LastTransferTx = event.TxHash
			if err := t.store.SaveAuctionItemToken(ctx, token); err != nil {
				return err
			}
		}
	}

	return nil
}

func (t *auctionTracker) handleAuctionCancelled(ctx context.Context, event *domain.Event) error {
	var params domain.AuctionCancelledParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	auction, err := t.getAuction(ctx, event, params.AuctionID)
	if err != nil || auction == nil {
		return err
	}

	transitionAuction(ctx, auction, schema.AuctionStatusCancelled)
	return t.store.SaveAuction(ctx, auction)
}

func (t *auctionTracker) handleHouseMetadataUpdated(ctx context.Context, event *domain.Event) error {
	var params domain.AuctionHouseMetadataParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	house, err := t.requireHouse(ctx, event)
	if err != nil || house == nil {
		return err
	}

	house.Name = params.Name
	house.Image = params.Image
	house.Description = params.Description
	return t.store.SaveAuctionHouse(ctx, house)
}

func (t *auctionTracker) handleSettlementDeadlineUpdated(ctx context.Context, event *domain.Event) error {
	var params domain.SettlementDeadlineParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	house, err := t.requireHouse(ctx, event)
	if err != nil || house == nil {
		return err
	}

	house.SettlementDeadline = params.NewDeadline
	return t.store.SaveAuctionHouse(ctx, house)
}

func (t *auctionTracker) requireHouse(ctx context.Context, event *domain.Event) (*schema.AuctionHouse, error) {
	address := domain.NormalizeAddress(event.Contract)
	house, err := t.store.GetAuctionHouse(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get auction house: %w", err)
	}
	if house == nil {
		logger.WarnCtx(ctx, "Event references unknown auction house",
			zap.String("house", address),
			zap.String("kind", string(event.Kind)))
	}
	return house, nil
}
