package store

import (
	"context"
	"sort"
	"sync"

	"github.com/openmarket-labs/market-indexer/internal/store/schema"
)

// memoryStore is an in-memory Store used by engine tests. It mirrors the
// PostgreSQL store's read-your-writes behavior; all lookups return copies
// so callers cannot mutate stored state in place.
type memoryStore struct {
	mu sync.RWMutex

	houses       map[string]schema.AuctionHouse
	storefronts  map[string]schema.Storefront
	auctions     map[schema.AuctionKey]schema.Auction
	bids         map[schema.EventKey]schema.Bid
	messages     map[schema.EventKey]schema.EncryptedMessage
	premiums     map[schema.EventKey]schema.PremiumPayment
	escrows      map[string]schema.OrderEscrow
	payments     map[string]schema.OrderPayment
	activity     map[schema.EventKey]schema.EscrowActivity
	arbChanges   map[schema.EventKey]schema.ArbiterChange
	orders       map[string]schema.Order
	listings     map[[2]string]schema.TokenListing
	attestations map[string]schema.SaleAttestation
	reviews      map[string]schema.Review
	contracts    map[string]schema.AuctionItemContract
	tokens       map[[2]string]schema.AuctionItemToken
	metadata     map[string]schema.TokenMetadata
	processed    map[schema.EventKey]schema.ProcessedEvent
	cursors      map[string]uint64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() Store {
	return &memoryStore{
		houses:       make(map[string]schema.AuctionHouse),
		storefronts:  make(map[string]schema.Storefront),
		auctions:     make(map[schema.AuctionKey]schema.Auction),
		bids:         make(map[schema.EventKey]schema.Bid),
		messages:     make(map[schema.EventKey]schema.EncryptedMessage),
		premiums:     make(map[schema.EventKey]schema.PremiumPayment),
		escrows:      make(map[string]schema.OrderEscrow),
		payments:     make(map[string]schema.OrderPayment),
		activity:     make(map[schema.EventKey]schema.EscrowActivity),
		arbChanges:   make(map[schema.EventKey]schema.ArbiterChange),
		orders:       make(map[string]schema.Order),
		listings:     make(map[[2]string]schema.TokenListing),
		attestations: make(map[string]schema.SaleAttestation),
		reviews:      make(map[string]schema.Review),
		contracts:    make(map[string]schema.AuctionItemContract),
		tokens:       make(map[[2]string]schema.AuctionItemToken),
		metadata:     make(map[string]schema.TokenMetadata),
		processed:    make(map[schema.EventKey]schema.ProcessedEvent),
		cursors:      make(map[string]uint64),
	}
}

func (s *memoryStore) GetAuctionHouse(_ context.Context, address string) (*schema.AuctionHouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if house, ok := s.houses[address]; ok {
		return &house, nil
	}
	return nil, nil
}

func (s *memoryStore) SaveAuctionHouse(_ context.Context, house *schema.AuctionHouse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.houses[house.Address] = *house
	return nil
}

func (s *memoryStore) GetStorefront(_ context.Context, address string) (*schema.Storefront, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if storefront, ok := s.storefronts[address]; ok {
		return &storefront, nil
	}
	return nil, nil
}

func (s *memoryStore) SaveStorefront(_ context.Context, storefront *schema.Storefront) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storefronts[storefront.Address] = *storefront
	return nil
}

func (s *memoryStore) GetAuction(_ context.Context, key schema.AuctionKey) (*schema.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if auction, ok := s.auctions[key]; ok {
		return &auction, nil
	}
	return nil, nil
}

func (s *memoryStore) GetAuctionByToken(_ context.Context, tokenContract, tokenNumber string) (*schema.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []schema.Auction
	for _, auction := range s.auctions {
		if auction.TokenContract == tokenContract && auction.TokenNumber == tokenNumber {
			matches = append(matches, auction)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedBlock > matches[j].CreatedBlock
	})
	return &matches[0], nil
}

func (s *memoryStore) SaveAuction(_ context.Context, auction *schema.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[auction.Key()] = *auction
	return nil
}

func (s *memoryStore) GetBid(_ context.Context, key schema.EventKey) (*schema.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if bid, ok := s.bids[key]; ok {
		return &bid, nil
	}
	return nil, nil
}

func (s *memoryStore) SaveBid(_ context.Context, bid *schema.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bids[schema.EventKey{TxHash: bid.TxHash, LogIndex: bid.LogIndex}] = *bid
	return nil
}

func (s *memoryStore) SaveEncryptedMessage(_ context.Context, msg *schema.EncryptedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[schema.EventKey{TxHash: msg.TxHash, LogIndex: msg.LogIndex}] = *msg
	return nil
}

func (s *memoryStore) SavePremiumPayment(_ context.Context, payment *schema.PremiumPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.premiums[schema.EventKey{TxHash: payment.TxHash, LogIndex: payment.LogIndex}] = *payment
	return nil
}

func (s *memoryStore) GetEscrow(_ context.Context, address string) (*schema.OrderEscrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if escrow, ok := s.escrows[address]; ok {
		return &escrow, nil
	}
	return nil, nil
}

func (s *memoryStore) GetEscrowByCreationTx(_ context.Context, txHash string) (*schema.OrderEscrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, escrow := range s.escrows {
		if escrow.CreationTxHash == txHash {
			found := escrow
			return &found, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) SaveEscrow(_ context.Context, escrow *schema.OrderEscrow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.escrows[escrow.Address] = *escrow
	return nil
}

func (s *memoryStore) SaveOrderPayment(_ context.Context, payment *schema.OrderPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[payment.TxHash] = *payment
	return nil
}

func (s *memoryStore) GetOrderPayment(_ context.Context, txHash string) (*schema.OrderPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if payment, ok := s.payments[txHash]; ok {
		return &payment, nil
	}
	return nil, nil
}

func (s *memoryStore) SaveEscrowActivity(_ context.Context, activity *schema.EscrowActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity[schema.EventKey{TxHash: activity.TxHash, LogIndex: activity.LogIndex}] = *activity
	return nil
}

func (s *memoryStore) GetEscrowActivity(_ context.Context, key schema.EventKey) (*schema.EscrowActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if activity, ok := s.activity[key]; ok {
		return &activity, nil
	}
	return nil, nil
}

func (s *memoryStore) GetPendingArbiterChange(_ context.Context, escrowAddress, proposedArbiter string) (*schema.ArbiterChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *schema.ArbiterChange
	for _, change := range s.arbChanges {
		if change.EscrowAddress != escrowAddress || change.ProposedArbiter != proposedArbiter || change.Approved {
			continue
		}
		candidate := change
		if best == nil || candidate.BlockNumber > best.BlockNumber {
			best = &candidate
		}
	}
	return best, nil
}

func (s *memoryStore) SaveArbiterChange(_ context.Context, change *schema.ArbiterChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.arbChanges[schema.EventKey{TxHash: change.TxHash, LogIndex: change.LogIndex}] = *change
	return nil
}

func (s *memoryStore) GetOrder(_ context.Context, txHash string) (*schema.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if order, ok := s.orders[txHash]; ok {
		return &order, nil
	}
	return nil, nil
}

func (s *memoryStore) SaveOrder(_ context.Context, order *schema.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.TxHash] = *order
	return nil
}

func (s *memoryStore) GetListing(_ context.Context, storefront, tokenNumber string) (*schema.TokenListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if listing, ok := s.listings[[2]string{storefront, tokenNumber}]; ok {
		return &listing, nil
	}
	return nil, nil
}

func (s *memoryStore) SaveListing(_ context.Context, listing *schema.TokenListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[[2]string{listing.Storefront, listing.TokenNumber}] = *listing
	return nil
}

func (s *memoryStore) GetAttestation(_ context.Context, uid string) (*schema.SaleAttestation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if attestation, ok := s.attestations[uid]; ok {
		return &attestation, nil
	}
	return nil, nil
}

func (s *memoryStore) ListAttestationsByOrder(_ context.Context, orderTxHash string) ([]schema.SaleAttestation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []schema.SaleAttestation
	for _, attestation := range s.attestations {
		if attestation.OrderTxHash == orderTxHash {
			result = append(result, attestation)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].BlockNumber < result[j].BlockNumber
	})
	return result, nil
}

func (s *memoryStore) SaveAttestation(_ context.Context, attestation *schema.SaleAttestation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attestations[attestation.UID] = *attestation
	return nil
}

func (s *memoryStore) SaveReview(_ context.Context, review *schema.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[review.UID] = *review
	return nil
}

func (s *memoryStore) GetAuctionItemContract(_ context.Context, address string) (*schema.AuctionItemContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if contract, ok := s.contracts[address]; ok {
		return &contract, nil
	}
	return nil, nil
}

func (s *memoryStore) SaveAuctionItemContract(_ context.Context, contract *schema.AuctionItemContract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts[contract.Address] = *contract
	return nil
}

func (s *memoryStore) GetAuctionItemToken(_ context.Context, contractAddress, tokenNumber string) (*schema.AuctionItemToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if token, ok := s.tokens[[2]string{contractAddress, tokenNumber}]; ok {
		return &token, nil
	}
	return nil, nil
}

func (s *memoryStore) SaveAuctionItemToken(_ context.Context, token *schema.AuctionItemToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[[2]string{token.ContractAddress, token.TokenNumber}] = *token
	return nil
}

func (s *memoryStore) GetTokenMetadata(_ context.Context, id string) (*schema.TokenMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if metadata, ok := s.metadata[id]; ok {
		return &metadata, nil
	}
	return nil, nil
}

func (s *memoryStore) SaveTokenMetadata(_ context.Context, metadata *schema.TokenMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[metadata.ID] = *metadata
	return nil
}

func (s *memoryStore) IsEventProcessed(_ context.Context, key schema.EventKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.processed[key]
	return ok, nil
}

func (s *memoryStore) MarkEventProcessed(_ context.Context, event *schema.ProcessedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := schema.EventKey{TxHash: event.TxHash, LogIndex: event.LogIndex}
	if _, ok := s.processed[key]; !ok {
		s.processed[key] = *event
	}
	return nil
}

func (s *memoryStore) GetBlockCursor(_ context.Context, chain string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursors[chain], nil
}

func (s *memoryStore) SetBlockCursor(_ context.Context, chain string, blockNumber uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[chain] = blockNumber
	return nil
}
