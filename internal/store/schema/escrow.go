package schema

import "time"

// EscrowSource identifies which marketplace an escrow settles for
type EscrowSource string

const (
	EscrowSourceStorefront   EscrowSource = "STOREFRONT"
	EscrowSourceAuctionHouse EscrowSource = "AUCTION_HOUSE"
)

// EscrowLinkKind says what an escrow is linked to. An escrow starts
// unlinked and gains exactly one link, either a storefront order or an
// auction, once the counterpart is known.
type EscrowLinkKind string

const (
	EscrowLinkNone    EscrowLinkKind = "NONE"
	EscrowLinkOrder   EscrowLinkKind = "ORDER"
	EscrowLinkAuction EscrowLinkKind = "AUCTION"
)

// OrderEscrow represents an escrow contract holding funds for a single
// sale. CreationTxHash carries the deployment transaction so fulfillments
// in the same transaction can find it.
type OrderEscrow struct {
	Address         string         `gorm:"column:address;primaryKey;type:text"`
	Payee           string         `gorm:"column:payee;not null;type:text"`
	SourceAddress   string         `gorm:"column:source_address;type:text"`
	SourceType      EscrowSource   `gorm:"column:source_type;not null;type:text"`
	Arbiter         string         `gorm:"column:arbiter;type:text"`
	IsAffiliate     bool           `gorm:"column:is_affiliate;not null;default:false"`
	Affiliate       string         `gorm:"column:affiliate;type:text"`
	AffiliateShare  string         `gorm:"column:affiliate_share;type:text"`
	IsDisputed      bool           `gorm:"column:is_disputed;not null;default:false"`
	IsRefunded      bool           `gorm:"column:is_refunded;not null;default:false"`
	EscapeAddress   string         `gorm:"column:escape_address;type:text"`
	LinkKind        EscrowLinkKind `gorm:"column:link_kind;not null;default:'NONE';type:text"`
	OrderTxHash     string         `gorm:"column:order_tx_hash;type:text;index:idx_escrows_order"`
	AuctionHouse    string         `gorm:"column:auction_house;type:text"`
	AuctionSequence uint64         `gorm:"column:auction_sequence;not null;default:0"`
	CreationTxHash  string         `gorm:"column:creation_tx_hash;type:text;index:idx_escrows_creation_tx"`
	CreatedBlock    uint64         `gorm:"column:created_block;not null"`
	CreatedAt       time.Time      `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

func (OrderEscrow) TableName() string {
	return "order_escrows"
}

// LinkToOrder binds the escrow to a storefront order
func (e *OrderEscrow) LinkToOrder(orderTxHash string) {
	e.LinkKind = EscrowLinkOrder
	e.OrderTxHash = orderTxHash
}

// LinkToAuction binds the escrow to an auction
func (e *OrderEscrow) LinkToAuction(key AuctionKey) {
	e.LinkKind = EscrowLinkAuction
	e.AuctionHouse = key.House
	e.AuctionSequence = key.Sequence
}

// AuctionKey returns the linked auction identity. Only meaningful when
// LinkKind is EscrowLinkAuction.
func (e *OrderEscrow) AuctionKey() AuctionKey {
	return AuctionKey{House: e.AuctionHouse, Sequence: e.AuctionSequence}
}

// OrderPayment records the payer binding for an escrow. OrderTxHash is
// filled when a fulfillment in the same transaction names the order
// being paid for.
type OrderPayment struct {
	TxHash         string    `gorm:"column:tx_hash;primaryKey;type:text"`
	EscrowAddress  string    `gorm:"column:escrow_address;not null;type:text;index:idx_order_payments_escrow"`
	OrderTxHash    string    `gorm:"column:order_tx_hash;type:text"`
	Payer          string    `gorm:"column:payer;not null;type:text"`
	SettleDeadline uint64    `gorm:"column:settle_deadline;not null;default:0"`
	BlockNumber    uint64    `gorm:"column:block_number;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

func (OrderPayment) TableName() string {
	return "order_payments"
}

// EscrowActivityKind enumerates escrow lifecycle events
type EscrowActivityKind string

const (
	ActivitySettled          EscrowActivityKind = "settled"
	ActivityRefunded         EscrowActivityKind = "refunded"
	ActivityDisputed         EscrowActivityKind = "disputed"
	ActivityDisputeRemoved   EscrowActivityKind = "dispute_removed"
	ActivityDisputeResolved  EscrowActivityKind = "dispute_resolved"
	ActivityEscapeAddressSet EscrowActivityKind = "escape_address_set"
	ActivityEscaped          EscrowActivityKind = "escaped"
)

// EscrowActivity is one escrow lifecycle event. All kinds share the
// table; fields that do not apply to a kind stay empty.
type EscrowActivity struct {
	TxHash          string             `gorm:"column:tx_hash;primaryKey;type:text"`
	LogIndex        uint               `gorm:"column:log_index;primaryKey"`
	EscrowAddress   string             `gorm:"column:escrow_address;not null;type:text;index:idx_escrow_activity_escrow"`
	Kind            EscrowActivityKind `gorm:"column:kind;not null;type:text"`
	To              string             `gorm:"column:to_address;type:text"`
	Token           string             `gorm:"column:token;type:text"`
	Amount          string             `gorm:"column:amount;type:text"`
	Actor           string             `gorm:"column:actor;type:text"`
	Affiliate       string             `gorm:"column:affiliate;type:text"`
	AffiliateAmount string             `gorm:"column:affiliate_amount;type:text"`
	Settled         bool               `gorm:"column:settled;not null;default:false"`
	EscapeAddress   string             `gorm:"column:escape_address;type:text"`
	BlockNumber     uint64             `gorm:"column:block_number;not null"`
	BlockTime       time.Time          `gorm:"column:block_time;not null;type:timestamptz"`
	CreatedAt       time.Time          `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

func (EscrowActivity) TableName() string {
	return "escrow_activity"
}

// ArbiterChange tracks a two-step arbiter rotation on an escrow. The
// proposal row is updated in place when the approval arrives.
type ArbiterChange struct {
	TxHash          string    `gorm:"column:tx_hash;primaryKey;type:text"`
	LogIndex        uint      `gorm:"column:log_index;primaryKey"`
	EscrowAddress   string    `gorm:"column:escrow_address;not null;type:text;index:idx_arbiter_changes_escrow"`
	OldArbiter      string    `gorm:"column:old_arbiter;type:text"`
	ProposedArbiter string    `gorm:"column:proposed_arbiter;not null;type:text"`
	NewArbiter      string    `gorm:"column:new_arbiter;type:text"`
	Approved        bool      `gorm:"column:approved;not null;default:false"`
	Approver        string    `gorm:"column:approver;type:text"`
	BlockNumber     uint64    `gorm:"column:block_number;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt       time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

func (ArbiterChange) TableName() string {
	return "arbiter_changes"
}
