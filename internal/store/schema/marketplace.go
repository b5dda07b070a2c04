package schema

import "time"

// AuctionHouse represents an auction house contract deployed through the
// factory
type AuctionHouse struct {
	Address            string    `gorm:"column:address;primaryKey;type:text"`
	Owner              string    `gorm:"column:owner;not null;type:text"`
	Name               string    `gorm:"column:name;type:text"`
	Image              string    `gorm:"column:image;type:text"`
	Description        string    `gorm:"column:description;type:text"`
	ContractURI        string    `gorm:"column:contract_uri;type:text"`
	Symbol             string    `gorm:"column:symbol;type:text"`
	SettlementDeadline uint64    `gorm:"column:settlement_deadline;not null;default:0"`
	CreatedBlock       uint64    `gorm:"column:created_block;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt          time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

func (AuctionHouse) TableName() string {
	return "auction_houses"
}

// Storefront represents a fixed-price storefront contract. Rating
// aggregates are maintained from buyer reviews only.
type Storefront struct {
	Address            string    `gorm:"column:address;primaryKey;type:text"`
	Owner              string    `gorm:"column:owner;not null;type:text"`
	TokenContract      string    `gorm:"column:token_contract;type:text"`
	EscrowFactory      string    `gorm:"column:escrow_factory;type:text"`
	AffiliateVerifier  string    `gorm:"column:affiliate_verifier;type:text"`
	IsAffiliateEnabled bool      `gorm:"column:is_affiliate_enabled;not null;default:false"`
	Arbiter            string    `gorm:"column:arbiter;type:text"`
	MinSettleTime      uint64    `gorm:"column:min_settle_time;not null;default:0"`
	SettleDeadline     uint64    `gorm:"column:settle_deadline;not null;default:0"`
	Ready              bool      `gorm:"column:ready;not null;default:false"`
	Seaport            string    `gorm:"column:seaport;type:text"`
	ContractURI        string    `gorm:"column:contract_uri;type:text"`
	TotalRating        uint64    `gorm:"column:total_rating;not null;default:0"`
	ReviewCount        uint64    `gorm:"column:review_count;not null;default:0"`
	CreatedBlock       uint64    `gorm:"column:created_block;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt          time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

func (Storefront) TableName() string {
	return "storefronts"
}
