package schema

import "time"

// SaleAttestation is an off-chain resolver's attestation of a completed
// sale. Multiple attestations may reference the same sale; IsLatest marks
// the most recent one per order.
type SaleAttestation struct {
	UID             string    `gorm:"column:uid;primaryKey;type:text"`
	SaleTxHash      string    `gorm:"column:sale_tx_hash;type:text;index:idx_attestations_sale_tx"`
	AttestationTx   string    `gorm:"column:attestation_tx;type:text"`
	OrderTxHash     string    `gorm:"column:order_tx_hash;type:text;index:idx_attestations_order"`
	AuctionHouse    string    `gorm:"column:auction_house;type:text"`
	AuctionSequence uint64    `gorm:"column:auction_sequence;not null;default:0"`
	Buyer           string    `gorm:"column:buyer;not null;type:text"`
	Seller          string    `gorm:"column:seller;type:text"`
	Storefront      string    `gorm:"column:storefront;type:text"`
	EscrowContract  string    `gorm:"column:escrow_contract;type:text"`
	IsLatest        bool      `gorm:"column:is_latest;not null;default:true"`
	BlockNumber     uint64    `gorm:"column:block_number;not null"`
	BlockTime       time.Time `gorm:"column:block_time;not null;type:timestamptz"`
	CreatedAt       time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt       time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

func (SaleAttestation) TableName() string {
	return "sale_attestations"
}

// ReviewType classifies a review by who wrote it
type ReviewType string

const (
	ReviewTypeBuyer  ReviewType = "buyer"
	ReviewTypeSeller ReviewType = "seller"
)

// Review is a rating submitted against a sale attestation
type Review struct {
	UID                 string     `gorm:"column:uid;primaryKey;type:text"`
	SaleUID             string     `gorm:"column:sale_uid;not null;type:text;index:idx_reviews_sale"`
	Reviewer            string     `gorm:"column:reviewer;not null;type:text"`
	Recipient           string     `gorm:"column:recipient;type:text"`
	ReviewType          ReviewType `gorm:"column:review_type;not null;type:text"`
	Storefront          string     `gorm:"column:storefront;type:text;index:idx_reviews_storefront"`
	OverallRating       uint8      `gorm:"column:overall_rating;not null;default:0"`
	QualityRating       uint8      `gorm:"column:quality_rating;not null;default:0"`
	CommunicationRating uint8      `gorm:"column:communication_rating;not null;default:0"`
	DeliveryRating      uint8      `gorm:"column:delivery_rating;not null;default:0"`
	PackagingRating     uint8      `gorm:"column:packaging_rating;not null;default:0"`
	AsDescribed         bool       `gorm:"column:as_described;not null;default:false"`
	ReviewText          string     `gorm:"column:review_text;type:text"`
	BlockNumber         uint64     `gorm:"column:block_number;not null"`
	CreatedAt           time.Time  `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

func (Review) TableName() string {
	return "reviews"
}
