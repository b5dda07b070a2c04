package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"github.com/openmarket-labs/market-indexer/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

func hasDBResolver(db *gorm.DB) bool {
	return db != nil && db.Callback().Query().Get("gorm:db_resolver") != nil
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates the database schema
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.AuctionHouse{},
		&schema.Storefront{},
		&schema.Auction{},
		&schema.Bid{},
		&schema.EncryptedMessage{},
		&schema.PremiumPayment{},
		&schema.OrderEscrow{},
		&schema.OrderPayment{},
		&schema.EscrowActivity{},
		&schema.ArbiterChange{},
		&schema.Order{},
		&schema.TokenListing{},
		&schema.SaleAttestation{},
		&schema.Review{},
		&schema.AuctionItemContract{},
		&schema.AuctionItemToken{},
		&schema.TokenMetadata{},
		&schema.ProcessedEvent{},
		&schema.KeyValueStore{},
	)
}

// ConfigureConnectionPool configures the connection pool settings for a
// GORM database connection. Zero values fall back to defaults.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool
// settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// GetAuctionHouse retrieves an auction house by contract address
func (s *pgStore) GetAuctionHouse(ctx context.Context, address string) (*schema.AuctionHouse, error) {
	var house schema.AuctionHouse
	err := s.db.WithContext(ctx).Where("address = ?", address).First(&house).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get auction house: %w", err)
	}
	return &house, nil
}

// SaveAuctionHouse creates or updates an auction house
func (s *pgStore) SaveAuctionHouse(ctx context.Context, house *schema.AuctionHouse) error {
	if err := s.db.WithContext(ctx).Save(house).Error; err != nil {
		return fmt.Errorf("failed to save auction house: %w", err)
	}
	return nil
}

// GetStorefront retrieves a storefront by contract address
func (s *pgStore) GetStorefront(ctx context.Context, address string) (*schema.Storefront, error) {
	var storefront schema.Storefront
	err := s.db.WithContext(ctx).Where("address = ?", address).First(&storefront).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get storefront: %w", err)
	}
	return &storefront, nil
}

// SaveStorefront creates or updates a storefront
func (s *pgStore) SaveStorefront(ctx context.Context, storefront *schema.Storefront) error {
	if err := s.db.WithContext(ctx).Save(storefront).Error; err != nil {
		return fmt.Errorf("failed to save storefront: %w", err)
	}
	return nil
}

// GetAuction retrieves an auction by its typed key
func (s *pgStore) GetAuction(ctx context.Context, key schema.AuctionKey) (*schema.Auction, error) {
	var auction schema.Auction
	err := s.db.WithContext(ctx).
		Where("house_address = ? AND sequence = ?", key.House, key.Sequence).
		First(&auction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return &auction, nil
}

// GetAuctionByToken retrieves the most recently created auction holding
// the given token
func (s *pgStore) GetAuctionByToken(ctx context.Context, tokenContract, tokenNumber string) (*schema.Auction, error) {
	var auction schema.Auction
	err := s.db.WithContext(ctx).
		Where("token_contract = ? AND token_number = ?", tokenContract, tokenNumber).
		Order("created_block DESC").
		First(&auction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get auction by token: %w", err)
	}
	return &auction, nil
}

// SaveAuction creates or updates an auction
func (s *pgStore) SaveAuction(ctx context.Context, auction *schema.Auction) error {
	if err := s.db.WithContext(ctx).Save(auction).Error; err != nil {
		return fmt.Errorf("failed to save auction: %w", err)
	}
	return nil
}

// GetBid retrieves a bid by its event key
func (s *pgStore) GetBid(ctx context.Context, key schema.EventKey) (*schema.Bid, error) {
	var bid schema.Bid
	err := s.db.WithContext(ctx).
		Where("tx_hash = ? AND log_index = ?", key.TxHash, key.LogIndex).
		First(&bid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	return &bid, nil
}

// SaveBid creates or updates a bid
func (s *pgStore) SaveBid(ctx context.Context, bid *schema.Bid) error {
	if err := s.db.WithContext(ctx).Save(bid).Error; err != nil {
		return fmt.Errorf("failed to save bid: %w", err)
	}
	return nil
}

// SaveEncryptedMessage stores an encrypted bidder message
func (s *pgStore) SaveEncryptedMessage(ctx context.Context, msg *schema.EncryptedMessage) error {
	if err := s.db.WithContext(ctx).Save(msg).Error; err != nil {
		return fmt.Errorf("failed to save encrypted message: %w", err)
	}
	return nil
}

// SavePremiumPayment stores a premium payment record
func (s *pgStore) SavePremiumPayment(ctx context.Context, payment *schema.PremiumPayment) error {
	if err := s.db.WithContext(ctx).Save(payment).Error; err != nil {
		return fmt.Errorf("failed to save premium payment: %w", err)
	}
	return nil
}

// GetEscrow retrieves an escrow by contract address
func (s *pgStore) GetEscrow(ctx context.Context, address string) (*schema.OrderEscrow, error) {
	var escrow schema.OrderEscrow
	err := s.db.WithContext(ctx).Where("address = ?", address).First(&escrow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get escrow: %w", err)
	}
	return &escrow, nil
}

// GetEscrowByCreationTx retrieves the escrow deployed in the given
// transaction
func (s *pgStore) GetEscrowByCreationTx(ctx context.Context, txHash string) (*schema.OrderEscrow, error) {
	var escrow schema.OrderEscrow
	err := s.db.WithContext(ctx).Where("creation_tx_hash = ?", txHash).First(&escrow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get escrow by creation tx: %w", err)
	}
	return &escrow, nil
}

// SaveEscrow creates or updates an escrow
func (s *pgStore) SaveEscrow(ctx context.Context, escrow *schema.OrderEscrow) error {
	if err := s.db.WithContext(ctx).Save(escrow).Error; err != nil {
		return fmt.Errorf("failed to save escrow: %w", err)
	}
	return nil
}

// SaveOrderPayment stores a payer binding for an escrow
func (s *pgStore) SaveOrderPayment(ctx context.Context, payment *schema.OrderPayment) error {
	if err := s.db.WithContext(ctx).Save(payment).Error; err != nil {
		return fmt.Errorf("failed to save order payment: %w", err)
	}
	return nil
}

// GetOrderPayment retrieves the payer binding recorded in a transaction
func (s *pgStore) GetOrderPayment(ctx context.Context, txHash string) (*schema.OrderPayment, error) {
	var payment schema.OrderPayment
	err := s.db.WithContext(ctx).Where("tx_hash = ?", txHash).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order payment: %w", err)
	}
	return &payment, nil
}

// SaveEscrowActivity stores an escrow lifecycle event
func (s *pgStore) SaveEscrowActivity(ctx context.Context, activity *schema.EscrowActivity) error {
	if err := s.db.WithContext(ctx).Save(activity).Error; err != nil {
		return fmt.Errorf("failed to save escrow activity: %w", err)
	}
	return nil
}

// GetEscrowActivity retrieves one escrow lifecycle event by identity
func (s *pgStore) GetEscrowActivity(ctx context.Context, key schema.EventKey) (*schema.EscrowActivity, error) {
	var activity schema.EscrowActivity
	err := s.db.WithContext(ctx).Where("tx_hash = ? AND log_index = ?", key.TxHash, key.LogIndex).First(&activity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get escrow activity: %w", err)
	}
	return &activity, nil
}

// GetPendingArbiterChange retrieves the most recent unapproved arbiter
// change proposal for the escrow and proposed arbiter
func (s *pgStore) GetPendingArbiterChange(ctx context.Context, escrowAddress, proposedArbiter string) (*schema.ArbiterChange, error) {
	var change schema.ArbiterChange
	err := s.db.WithContext(ctx).
		Where("escrow_address = ? AND proposed_arbiter = ? AND approved = false", escrowAddress, proposedArbiter).
		Order("block_number DESC").
		First(&change).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pending arbiter change: %w", err)
	}
	return &change, nil
}

// SaveArbiterChange creates or updates an arbiter change record
func (s *pgStore) SaveArbiterChange(ctx context.Context, change *schema.ArbiterChange) error {
	if err := s.db.WithContext(ctx).Save(change).Error; err != nil {
		return fmt.Errorf("failed to save arbiter change: %w", err)
	}
	return nil
}

// GetOrder retrieves an order by its fulfillment transaction hash
func (s *pgStore) GetOrder(ctx context.Context, txHash string) (*schema.Order, error) {
	var order schema.Order
	err := s.db.WithContext(ctx).Where("tx_hash = ?", txHash).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// SaveOrder creates or updates an order
func (s *pgStore) SaveOrder(ctx context.Context, order *schema.Order) error {
	if err := s.db.WithContext(ctx).Save(order).Error; err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// GetListing retrieves a token listing
func (s *pgStore) GetListing(ctx context.Context, storefront, tokenNumber string) (*schema.TokenListing, error) {
	var listing schema.TokenListing
	err := s.db.WithContext(ctx).
		Where("storefront = ? AND token_number = ?", storefront, tokenNumber).
		First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

// SaveListing creates or updates a token listing
func (s *pgStore) SaveListing(ctx context.Context, listing *schema.TokenListing) error {
	if err := s.db.WithContext(ctx).Save(listing).Error; err != nil {
		return fmt.Errorf("failed to save listing: %w", err)
	}
	return nil
}

// GetAttestation retrieves a sale attestation by UID
func (s *pgStore) GetAttestation(ctx context.Context, uid string) (*schema.SaleAttestation, error) {
	var attestation schema.SaleAttestation
	err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&attestation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attestation: %w", err)
	}
	return &attestation, nil
}

// ListAttestationsByOrder retrieves all attestations referencing the
// given order transaction
func (s *pgStore) ListAttestationsByOrder(ctx context.Context, orderTxHash string) ([]schema.SaleAttestation, error) {
	var attestations []schema.SaleAttestation
	err := s.db.WithContext(ctx).
		Where("order_tx_hash = ?", orderTxHash).
		Order("block_number ASC").
		Find(&attestations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attestations by order: %w", err)
	}
	return attestations, nil
}

// SaveAttestation creates or updates a sale attestation
func (s *pgStore) SaveAttestation(ctx context.Context, attestation *schema.SaleAttestation) error {
	if err := s.db.WithContext(ctx).Save(attestation).Error; err != nil {
		return fmt.Errorf("failed to save attestation: %w", err)
	}
	return nil
}

// SaveReview stores a review
func (s *pgStore) SaveReview(ctx context.Context, review *schema.Review) error {
	if err := s.db.WithContext(ctx).Save(review).Error; err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}
	return nil
}

// GetAuctionItemContract retrieves an auction item collection contract
func (s *pgStore) GetAuctionItemContract(ctx context.Context, address string) (*schema.AuctionItemContract, error) {
	var contract schema.AuctionItemContract
	err := s.db.WithContext(ctx).Where("address = ?", address).First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get auction item contract: %w", err)
	}
	return &contract, nil
}

// SaveAuctionItemContract creates or updates an auction item contract
func (s *pgStore) SaveAuctionItemContract(ctx context.Context, contract *schema.AuctionItemContract) error {
	if err := s.db.WithContext(ctx).Save(contract).Error; err != nil {
		return fmt.Errorf("failed to save auction item contract: %w", err)
	}
	return nil
}

// GetAuctionItemToken retrieves a token within a collection
func (s *pgStore) GetAuctionItemToken(ctx context.Context, contractAddress, tokenNumber string) (*schema.AuctionItemToken, error) {
	var token schema.AuctionItemToken
	err := s.db.WithContext(ctx).
		Where("contract_address = ? AND token_number = ?", contractAddress, tokenNumber).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get auction item token: %w", err)
	}
	return &token, nil
}

// SaveAuctionItemToken creates or updates a token
func (s *pgStore) SaveAuctionItemToken(ctx context.Context, token *schema.AuctionItemToken) error {
	if err := s.db.WithContext(ctx).Save(token).Error; err != nil {
		return fmt.Errorf("failed to save auction item token: %w", err)
	}
	return nil
}

// GetTokenMetadata retrieves parsed token metadata by its ID
func (s *pgStore) GetTokenMetadata(ctx context.Context, id string) (*schema.TokenMetadata, error) {
	var metadata schema.TokenMetadata
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&metadata).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token metadata: %w", err)
	}
	return &metadata, nil
}

// SaveTokenMetadata creates or updates parsed token metadata
func (s *pgStore) SaveTokenMetadata(ctx context.Context, metadata *schema.TokenMetadata) error {
	if err := s.db.WithContext(ctx).Save(metadata).Error; err != nil {
		return fmt.Errorf("failed to save token metadata: %w", err)
	}
	return nil
}

// IsEventProcessed reports whether the event was already applied. The
// check always hits the primary so a replica lagging behind the writer
// cannot make a redelivered event look unprocessed.
func (s *pgStore) IsEventProcessed(ctx context.Context, key schema.EventKey) (bool, error) {
	db := s.db.WithContext(ctx)
	if hasDBResolver(s.db) {
		db = db.Clauses(dbresolver.Write)
	}

	var count int64
	err := db.Model(&schema.ProcessedEvent{}).
		Where("tx_hash = ? AND log_index = ?", key.TxHash, key.LogIndex).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check processed event: %w", err)
	}
	return count > 0, nil
}

// MarkEventProcessed records the event in the idempotency ledger
func (s *pgStore) MarkEventProcessed(ctx context.Context, event *schema.ProcessedEvent) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event).Error
	if err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}
