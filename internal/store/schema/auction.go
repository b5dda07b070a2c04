package schema

import "time"

// AuctionStatus is the auction lifecycle state
type AuctionStatus string

const (
	// AuctionStatusCreated means the auction exists but has no bids yet
	AuctionStatusCreated AuctionStatus = "CREATED"
	// AuctionStatusActive means at least one bid has been placed
	AuctionStatusActive AuctionStatus = "ACTIVE"
	// AuctionStatusCompleted means the auction ended with a sale
	AuctionStatusCompleted AuctionStatus = "COMPLETED"
	// AuctionStatusCancelled means the auction ended without a sale
	AuctionStatusCancelled AuctionStatus = "CANCELLED"
)

// rank orders statuses along the lifecycle. Both terminal states share a
// rank: a dispute ruling may flip COMPLETED to CANCELLED and vice versa,
// but nothing moves a terminal auction back to CREATED or ACTIVE.
func (s AuctionStatus) rank() int {
	switch s {
	case AuctionStatusCreated:
		return 0
	case AuctionStatusActive:
		return 1
	case AuctionStatusCompleted, AuctionStatusCancelled:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo reports whether moving to the target status keeps the
// lifecycle monotonic
func (s AuctionStatus) CanTransitionTo(target AuctionStatus) bool {
	if s == target {
		return false
	}
	return target.rank() >= s.rank()
}

// Auction represents a single auction within a house. The composite
// primary key is the house address plus the house-local sequence number.
// The (token_contract, token_number) index lets token-contract events
// find the auction that holds the token without probing sequence numbers.
type Auction struct {
	HouseAddress       string        `gorm:"column:house_address;primaryKey;type:text"`
	Sequence           uint64        `gorm:"column:sequence;primaryKey"`
	TokenContract      string        `gorm:"column:token_contract;not null;type:text;index:idx_auctions_token"`
	TokenNumber        string        `gorm:"column:token_number;not null;type:text;index:idx_auctions_token"`
	Owner              string        `gorm:"column:owner;not null;type:text"`
	Arbiter            string        `gorm:"column:arbiter;type:text"`
	EscrowAddress      string        `gorm:"column:escrow_address;type:text;index:idx_auctions_escrow"`
	Status             AuctionStatus `gorm:"column:status;not null;type:text"`
	IsPremium          bool          `gorm:"column:is_premium;not null;default:false"`
	Duration           uint64        `gorm:"column:duration;not null;default:0"`
	ReservePrice       string        `gorm:"column:reserve_price;type:text"`
	AffiliateFeeBps    uint64        `gorm:"column:affiliate_fee_bps;not null;default:0"`
	MinBidIncrementBps uint64        `gorm:"column:min_bid_increment_bps;not null;default:0"`
	PremiumBps         uint64        `gorm:"column:premium_bps;not null;default:0"`
	TimeExtension      uint64        `gorm:"column:time_extension;not null;default:0"`
	AuctionCurrency    string        `gorm:"column:auction_currency;type:text"`
	PaymentAmount      string        `gorm:"column:payment_amount;type:text"`
	HighestBidAmount   string        `gorm:"column:highest_bid_amount;type:text"`
	CurrentBidder      string        `gorm:"column:current_bidder;type:text"`
	CurrentAffiliate   string        `gorm:"column:current_affiliate;type:text"`
	WinningBidTxHash   string        `gorm:"column:winning_bid_tx_hash;type:text"`
	WinningBidLogIndex uint          `gorm:"column:winning_bid_log_index;not null;default:0"`
	TotalBidCount      uint64        `gorm:"column:total_bid_count;not null;default:0"`
	TotalPremiumPaid   string        `gorm:"column:total_premium_paid;type:text"`
	WasExtended        bool          `gorm:"column:was_extended;not null;default:false"`
	ExtensionCount     uint64        `gorm:"column:extension_count;not null;default:0"`
	StartTime          uint64        `gorm:"column:start_time;not null;default:0"`
	EndTime            uint64        `gorm:"column:end_time;not null;default:0"`
	MetadataID         string        `gorm:"column:metadata_id;type:text"`
	CreatedBlock       uint64        `gorm:"column:created_block;not null"`
	CreatedTxHash      string        `gorm:"column:created_tx_hash;type:text"`
	CreatedAt          time.Time     `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt          time.Time     `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

func (Auction) TableName() string {
	return "auctions"
}

// Key returns the typed identity of the auction
func (a *Auction) Key() AuctionKey {
	return AuctionKey{House: a.HouseAddress, Sequence: a.Sequence}
}

// Bid is an immutable record of a single bid. Only IsWinningBid changes
// after creation, when a later bid displaces it.
type Bid struct {
	TxHash       string    `gorm:"column:tx_hash;primaryKey;type:text"`
	LogIndex     uint      `gorm:"column:log_index;primaryKey"`
	HouseAddress string    `gorm:"column:house_address;not null;type:text;index:idx_bids_auction"`
	Sequence     uint64    `gorm:"column:sequence;not null;index:idx_bids_auction"`
	Bidder       string    `gorm:"column:bidder;not null;type:text"`
	Amount       string    `gorm:"column:amount;not null;type:text"`
	Affiliate    string    `gorm:"column:affiliate;type:text"`
	IsWinningBid bool      `gorm:"column:is_winning_bid;not null;default:false"`
	IsFinal      bool      `gorm:"column:is_final;not null;default:false"`
	BlockNumber  uint64    `gorm:"column:block_number;not null"`
	BlockTime    time.Time `gorm:"column:block_time;not null;type:timestamptz"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

func (Bid) TableName() string {
	return "bids"
}

// EncryptedMessage is an encrypted shipping message from a bidder. One
// arrives embedded in every bid and bidders may re-send standalone ones.
type EncryptedMessage struct {
	TxHash             string    `gorm:"column:tx_hash;primaryKey;type:text"`
	LogIndex           uint      `gorm:"column:log_index;primaryKey"`
	HouseAddress       string    `gorm:"column:house_address;not null;type:text;index:idx_messages_auction"`
	Sequence           uint64    `gorm:"column:sequence;not null;index:idx_messages_auction"`
	Bidder             string    `gorm:"column:bidder;not null;type:text"`
	EncryptedData      string    `gorm:"column:encrypted_data;type:text"`
	EphemeralPublicKey string    `gorm:"column:ephemeral_public_key;type:text"`
	IV                 string    `gorm:"column:iv;type:text"`
	VerificationHash   string    `gorm:"column:verification_hash;type:text"`
	IsFinal            bool      `gorm:"column:is_final;not null;default:false"`
	BlockNumber        uint64    `gorm:"column:block_number;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

func (EncryptedMessage) TableName() string {
	return "encrypted_messages"
}

// PremiumPayment records compensation paid to an outbid bidder on
// premium auctions
type PremiumPayment struct {
	TxHash        string    `gorm:"column:tx_hash;primaryKey;type:text"`
	LogIndex      uint      `gorm:"column:log_index;primaryKey"`
	HouseAddress  string    `gorm:"column:house_address;not null;type:text;index:idx_premiums_auction"`
	Sequence      uint64    `gorm:"column:sequence;not null;index:idx_premiums_auction"`
	OutbidUser    string    `gorm:"column:outbid_user;not null;type:text"`
	NewBidder     string    `gorm:"column:new_bidder;not null;type:text"`
	OriginalBid   string    `gorm:"column:original_bid;type:text"`
	PremiumAmount string    `gorm:"column:premium_amount;type:text"`
	BlockNumber   uint64    `gorm:"column:block_number;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

func (PremiumPayment) TableName() string {
	return "premium_payments"
}
