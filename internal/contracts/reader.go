package contracts

import "context"

// AuctionState is the on-chain financial state of an auction at creation
// time. Fields the contract refuses to report come back as zero values.
type AuctionState struct {
	HighestBid         string
	StartTime          uint64
	AuctionCurrency    string
	PaymentAmount      string
	MinBidIncrementBps uint64
	PremiumBps         uint64
	TimeExtension      uint64
}

// StorefrontState is the on-chain configuration of a storefront at
// creation time
type StorefrontState struct {
	Arbiter        string
	MinSettleTime  uint64
	SettleDeadline uint64
	Ready          bool
	Seaport        string
	ContractURI    string
}

// Reader reads marketplace contract state to backfill fields the event
// payloads omit. Implementations are best-effort: callers fall back to
// zero defaults when a read fails.
//
//go:generate mockgen -source=reader.go -destination=../mocks/reader.go -package=mocks -mock_names=Reader=MockReader
type Reader interface {
	// AuctionState reads the auction's financial configuration
	AuctionState(ctx context.Context, house string, sequence uint64) (*AuctionState, error)

	// StorefrontState reads a storefront's configuration
	StorefrontState(ctx context.Context, storefront string) (*StorefrontState, error)

	// TokenURI reads the metadata URI of an ERC721 token
	TokenURI(ctx context.Context, contract string, tokenNumber string) (string, error)

	// ContractURI reads the collection-level metadata URI
	ContractURI(ctx context.Context, contract string) (string, error)

	// Close closes the underlying client connection
	Close()
}
