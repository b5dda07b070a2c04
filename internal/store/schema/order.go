package schema

import "time"

// Order is a storefront fulfillment. The fulfillment transaction hash is
// the natural key: one order per transaction. Buyer may be corrected
// later by a sale attestation.
type Order struct {
	TxHash         string    `gorm:"column:tx_hash;primaryKey;type:text"`
	Storefront     string    `gorm:"column:storefront;not null;type:text;index:idx_orders_storefront"`
	Buyer          string    `gorm:"column:buyer;not null;type:text"`
	Seller         string    `gorm:"column:seller;type:text"`
	TokenNumber    string    `gorm:"column:token_number;type:text"`
	Amount         string    `gorm:"column:amount;type:text"`
	Price          string    `gorm:"column:price;type:text"`
	PaymentToken   string    `gorm:"column:payment_token;type:text"`
	EscrowContract string    `gorm:"column:escrow_contract;type:text"`
	Affiliate      string    `gorm:"column:affiliate;type:text"`
	AffiliateShare uint64    `gorm:"column:affiliate_share;not null;default:0"`
	BlockNumber    uint64    `gorm:"column:block_number;not null"`
	BlockTime      time.Time `gorm:"column:block_time;not null;type:timestamptz"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

func (Order) TableName() string {
	return "orders"
}

// TokenListing is a priced token on a storefront. Removal deactivates
// the row instead of deleting it so order history keeps its context.
type TokenListing struct {
	Storefront   string    `gorm:"column:storefront;primaryKey;type:text"`
	TokenNumber  string    `gorm:"column:token_number;primaryKey;type:text"`
	Price        string    `gorm:"column:price;type:text"`
	PaymentToken string    `gorm:"column:payment_token;type:text"`
	AffiliateFee uint64    `gorm:"column:affiliate_fee;not null;default:0"`
	Active       bool      `gorm:"column:active;not null;default:true"`
	TokenURI     string    `gorm:"column:token_uri;type:text"`
	MetadataID   string    `gorm:"column:metadata_id;type:text"`
	CreatedBlock uint64    `gorm:"column:created_block;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

func (TokenListing) TableName() string {
	return "token_listings"
}
