package schema

import (
	"time"

	"gorm.io/datatypes"
)

// AuctionItemContract is an ERC721 collection contract whose tokens are
// sold through auction houses
type AuctionItemContract struct {
	Address      string    `gorm:"column:address;primaryKey;type:text"`
	Owner        string    `gorm:"column:owner;type:text"`
	Name         string    `gorm:"column:name;type:text"`
	Symbol       string    `gorm:"column:symbol;type:text"`
	ContractURI  string    `gorm:"column:contract_uri;type:text"`
	CreatedBlock uint64    `gorm:"column:created_block;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

func (AuctionItemContract) TableName() string {
	return "auction_item_contracts"
}

// AuctionItemToken is a single ERC721 token within an auction item
// collection
type AuctionItemToken struct {
	ContractAddress string    `gorm:"column:contract_address;primaryKey;type:text"`
	TokenNumber     string    `gorm:"column:token_number;primaryKey;type:text"`
	Owner           string    `gorm:"column:owner;type:text"`
	MetadataID      string    `gorm:"column:metadata_id;type:text"`
	MintedBlock     uint64    `gorm:"column:minted_block;not null;default:0"`
	LastTransferTx  string    `gorm:"column:last_transfer_tx;type:text"`
	CreatedAt       time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt       time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

func (AuctionItemToken) TableName() string {
	return "auction_item_tokens"
}

// TokenMetadata stores parsed token metadata keyed by the keccak256 hash
// of the URI it was parsed from. Remote URIs are recorded with an empty
// body; only inline data URIs are parsed at indexing time.
type TokenMetadata struct {
	ID                 string         `gorm:"column:id;primaryKey;type:text"`
	URI                string         `gorm:"column:uri;not null;type:text"`
	RawJSON            datatypes.JSON `gorm:"column:raw_json;type:jsonb"`
	Name               string         `gorm:"column:name;type:text"`
	Description        string         `gorm:"column:description;type:text"`
	Image              string         `gorm:"column:image;type:text"`
	AnimationURL       string         `gorm:"column:animation_url;type:text"`
	TermsOfService     string         `gorm:"column:terms_of_service;type:text"`
	SupplementalImages datatypes.JSON `gorm:"column:supplemental_images;type:jsonb"`
	CreatedAt          time.Time      `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

func (TokenMetadata) TableName() string {
	return "token_metadata"
}
