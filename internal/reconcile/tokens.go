package reconcile

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/openmarket-labs/market-indexer/internal/domain"
	"github.com/openmarket-labs/market-indexer/internal/logger"
	"github.com/openmarket-labs/market-indexer/internal/metadata"
	"github.com/openmarket-labs/market-indexer/internal/store"
	"github.com/openmarket-labs/market-indexer/internal/store/schema"
)

// tokenTracker maintains auction item collections and their tokens.
// Transfers cross-check the token index so a token leaving an active
// auction gets flagged.
type tokenTracker struct {
	store store.Store
}

func (t *tokenTracker) handleContractCreated(ctx context.Context, event *domain.Event) error {
	var params domain.AuctionItemCreatedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	contract := &schema.AuctionItemContract{
		Address:      domain.NormalizeAddress(params.ContractAddress),
		Owner:        domain.NormalizeAddress(params.Owner),
		Name:         params.Name,
		Symbol:       params.Symbol,
		ContractURI:  params.ContractURI,
		CreatedBlock: event.BlockNumber,
	}
	return t.store.SaveAuctionItemContract(ctx, contract)
}

func (t *tokenTracker) handleTransfer(ctx context.Context, event *domain.Event) error {
	var params domain.TokenTransferParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	contractAddr := domain.NormalizeAddress(event.Contract)
	to := domain.NormalizeAddress(params.To)

	token, err := t.store.GetAuctionItemToken(ctx, contractAddr, params.TokenNumber)
	if err != nil {
		return err
	}
	if token == nil {
		token = &schema.AuctionItemToken{
			ContractAddress: contractAddr,
			TokenNumber:     params.TokenNumber,
			MintedBlock:     event.BlockNumber,
		}
	}
	token.Owner = to
	token.LastTransferTx = event.TxHash
	if err := t.store.SaveAuctionItemToken(ctx, token); err != nil {
		return err
	}

	// A transfer while the token's auction is still running means the
	// item left custody mid-auction. Flag it; nothing to repair here.
	auction, err := t.store.GetAuctionByToken(ctx, contractAddr, params.TokenNumber)
	if err != nil {
		return err
	}
	if auction != nil && auction.Status == schema.AuctionStatusActive && to != auction.HouseAddress && to != auction.CurrentBidder {
		logger.WarnCtx(ctx, "Token transferred while its auction is active",
			zap.String("contract", contractAddr),
			zap.String("tokenNumber", params.TokenNumber),
			zap.String("house", auction.HouseAddress),
			zap.Uint64("sequence", auction.Sequence),
			zap.String("to", to))
	}

	return nil
}

func (t *tokenTracker) handleMetadataUpdated(ctx context.Context, event *domain.Event) error {
	var params domain.TokenMetadataUpdatedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	contractAddr := domain.NormalizeAddress(event.Contract)

	parsed, err := metadata.Parse(params.TokenURI)
	if err != nil {
		logger.WarnCtx(ctx, "Token metadata unparseable, dropping update",
			zap.String("contract", contractAddr),
			zap.String("tokenNumber", params.TokenNumber),
			zap.Error(err))
		return nil
	}
	if err := t.store.SaveTokenMetadata(ctx, metadataRecord(parsed)); err != nil {
		return err
	}

	token, err := t.store.GetAuctionItemToken(ctx, contractAddr, params.TokenNumber)
	if err != nil {
		return err
	}
	if token == nil {
		token = &schema.AuctionItemToken{
			ContractAddress: contractAddr,
			TokenNumber:     params.TokenNumber,
			MintedBlock:     event.BlockNumber,
		}
	}
	token.MetadataID = parsed.ID
	if err := t.store.SaveAuctionItemToken(ctx, token); err != nil {
		return err
	}

	// The auction selling this token inherits the fresh metadata
	auction, err := t.store.GetAuctionByToken(ctx, contractAddr, params.TokenNumber)
	if err != nil {
		return err
	}
	if auction != nil {
		auction.MetadataID = parsed.ID
		return t.store.SaveAuction(ctx, auction)
	}

	return nil
}

func (t *tokenTracker) handleContractURIUpdated(ctx context.Context, event *domain.Event) error {
	var params domain.ContractURIUpdatedParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	contract, err := t.requireContract(ctx, event)
	if err != nil || contract == nil {
		return err
	}

	contract.ContractURI = params.NewURI
	return t.store.SaveAuctionItemContract(ctx, contract)
}

func (t *tokenTracker) handleOwnershipTransferred(ctx context.Context, event *domain.Event) error {
	var params domain.OwnershipTransferredParams
	if err := event.DecodeParams(&params); err != nil {
		return err
	}

	contract, err := t.requireContract(ctx, event)
	if err != nil || contract == nil {
		return err
	}

	contract.Owner = domain.NormalizeAddress(params.NewOwner)
	return t.store.SaveAuctionItemContract(ctx, contract)
}

func (t *tokenTracker) requireContract(ctx context.Context, event *domain.Event) (*schema.AuctionItemContract, error) {
	address := domain.NormalizeAddress(event.Contract)
	contract, err := t.store.GetAuctionItemContract(ctx, address)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		logger.WarnCtx(ctx, "Event references unknown auction item contract",
			zap.String("contract", address),
			zap.String("kind", string(event.Kind)))
	}
	return contract, nil
}

// metadataRecord converts parsed metadata into its storage row
func metadataRecord(parsed *metadata.Parsed) *schema.TokenMetadata {
	record := &schema.TokenMetadata{
		ID:             parsed.ID,
		URI:            parsed.URI,
		RawJSON:        datatypes.JSON(parsed.Raw),
		Name:           parsed.Name,
		Description:    parsed.Description,
		Image:          parsed.Image,
		AnimationURL:   parsed.AnimationURL,
		TermsOfService: parsed.TermsOfService,
	}
	if len(parsed.SupplementalImages) > 0 {
		if body, err := json.Marshal(parsed.SupplementalImages); err == nil {
			record.SupplementalImages = datatypes.JSON(body)
		}
	}
	return record
}
