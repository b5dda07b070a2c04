package store

import (
	"context"

	"github.com/openmarket-labs/market-indexer/internal/store/schema"
)

// Store defines the interface for database operations
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// GetAuctionHouse retrieves an auction house by contract address
	GetAuctionHouse(ctx context.Context, address string) (*schema.AuctionHouse, error)
	// SaveAuctionHouse creates or updates an auction house
	SaveAuctionHouse(ctx context.Context, house *schema.AuctionHouse) error

	// GetStorefront retrieves a storefront by contract address
	GetStorefront(ctx context.Context, address string) (*schema.Storefront, error)
	// SaveStorefront creates or updates a storefront
	SaveStorefront(ctx context.Context, storefront *schema.Storefront) error

	// GetAuction retrieves an auction by its typed key
	GetAuction(ctx context.Context, key schema.AuctionKey) (*schema.Auction, error)
	// GetAuctionByToken retrieves the most recently created auction
	// holding the given token
	GetAuctionByToken(ctx context.Context, tokenContract, tokenNumber string) (*schema.Auction, error)
	// SaveAuction creates or updates an auction
	SaveAuction(ctx context.Context, auction *schema.Auction) error

	// GetBid retrieves a bid by its event key
	GetBid(ctx context.Context, key schema.EventKey) (*schema.Bid, error)
	// SaveBid creates or updates a bid
	SaveBid(ctx context.Context, bid *schema.Bid) error
	// SaveEncryptedMessage stores an encrypted bidder message
	SaveEncryptedMessage(ctx context.Context, msg *schema.EncryptedMessage) error
	// SavePremiumPayment stores a premium payment record
	SavePremiumPayment(ctx context.Context, payment *schema.PremiumPayment) error

	// GetEscrow retrieves an escrow by contract address
	GetEscrow(ctx context.Context, address string) (*schema.OrderEscrow, error)
	// GetEscrowByCreationTx retrieves the escrow deployed in the given
	// transaction
	GetEscrowByCreationTx(ctx context.Context, txHash string) (*schema.OrderEscrow, error)
	// SaveEscrow creates or updates an escrow
	SaveEscrow(ctx context.Context, escrow *schema.OrderEscrow) error
	// SaveOrderPayment stores a payer binding for an escrow
	SaveOrderPayment(ctx context.Context, payment *schema.OrderPayment) error
	// GetOrderPayment retrieves the payer binding recorded in a
	// transaction, or nil when the transaction carried none
	GetOrderPayment(ctx context.Context, txHash string) (*schema.OrderPayment, error)
	// SaveEscrowActivity stores an escrow lifecycle event
	SaveEscrowActivity(ctx context.Context, activity *schema.EscrowActivity) error
	// GetEscrowActivity retrieves one escrow lifecycle event by identity,
	// or nil when none was recorded
	GetEscrowActivity(ctx context.Context, key schema.EventKey) (*schema.EscrowActivity, error)
	// GetPendingArbiterChange retrieves the most recent unapproved
	// arbiter change proposal for the escrow and proposed arbiter
	GetPendingArbiterChange(ctx context.Context, escrowAddress, proposedArbiter string) (*schema.ArbiterChange, error)
	// SaveArbiterChange creates or updates an arbiter change record
	SaveArbiterChange(ctx context.Context, change *schema.ArbiterChange) error

	// GetOrder retrieves an order by its fulfillment transaction hash
	GetOrder(ctx context.Context, txHash string) (*schema.Order, error)
	// SaveOrder creates or updates an order
	SaveOrder(ctx context.Context, order *schema.Order) error
	// GetListing retrieves a token listing
	GetListing(ctx context.Context, storefront, tokenNumber string) (*schema.TokenListing, error)
	// SaveListing creates or updates a token listing
	SaveListing(ctx context.Context, listing *schema.TokenListing) error

	// GetAttestation retrieves a sale attestation by UID
	GetAttestation(ctx context.Context, uid string) (*schema.SaleAttestation, error)
	// ListAttestationsByOrder retrieves all attestations referencing the
	// given order transaction
	ListAttestationsByOrder(ctx context.Context, orderTxHash string) ([]schema.SaleAttestation, error)
	// SaveAttestation creates or updates a sale attestation
	SaveAttestation(ctx context.Context, attestation *schema.SaleAttestation) error
	// SaveReview stores a review
	SaveReview(ctx context.Context, review *schema.Review) error

	// GetAuctionItemContract retrieves an auction item collection contract
	GetAuctionItemContract(ctx context.Context, address string) (*schema.AuctionItemContract, error)
	// SaveAuctionItemContract creates or updates an auction item contract
	SaveAuctionItemContract(ctx context.Context, contract *schema.AuctionItemContract) error
	// GetAuctionItemToken retrieves a token within a collection
	GetAuctionItemToken(ctx context.Context, contractAddress, tokenNumber string) (*schema.AuctionItemToken, error)
	// SaveAuctionItemToken creates or updates a token
	SaveAuctionItemToken(ctx context.Context, token *schema.AuctionItemToken) error
	// GetTokenMetadata retrieves parsed token metadata by its ID
	GetTokenMetadata(ctx context.Context, id string) (*schema.TokenMetadata, error)
	// SaveTokenMetadata creates or updates parsed token metadata
	SaveTokenMetadata(ctx context.Context, metadata *schema.TokenMetadata) error

	// IsEventProcessed reports whether the event was already applied
	IsEventProcessed(ctx context.Context, key schema.EventKey) (bool, error)
	// MarkEventProcessed records the event in the idempotency ledger
	MarkEventProcessed(ctx context.Context, event *schema.ProcessedEvent) error

	// GetBlockCursor retrieves the last processed block number for a chain
	GetBlockCursor(ctx context.Context, chain string) (uint64, error)
	// SetBlockCursor stores the last processed block number for a chain
	SetBlockCursor(ctx context.Context, chain string, blockNumber uint64) error
}
