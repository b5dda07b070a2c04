package domain

// Param structs mirror the decoded log payloads carried in Event.Params.
// Monetary values are decimal strings in the payment token's base unit,
// token IDs are decimal strings, timestamps are unix seconds.

// AuctionCreatedParams is emitted when an auction house opens an auction
type AuctionCreatedParams struct {
	AuctionID       uint64 `json:"auction_id"`
	TokenContract   string `json:"token_contract"`
	TokenNumber     string `json:"token_number"`
	Duration        uint64 `json:"duration"`
	ReservePrice    string `json:"reserve_price"`
	AffiliateFeeBps uint64 `json:"affiliate_fee_bps"`
	Owner           string `json:"owner"`
	Arbiter         string `json:"arbiter"`
	EscrowAddress   string `json:"escrow_address"`
	IsPremium       bool   `json:"is_premium"`
}

// BidCreatedParams carries a bid along with its embedded encrypted
// shipping message
type BidCreatedParams struct {
	AuctionID          uint64 `json:"auction_id"`
	Bidder             string `json:"bidder"`
	Amount             string `json:"amount"`
	Affiliate          string `json:"affiliate"`
	EncryptedData      string `json:"encrypted_data"`
	EphemeralPublicKey string `json:"ephemeral_public_key"`
	IV                 string `json:"iv"`
	VerificationHash   string `json:"verification_hash"`
	IsFinal            bool   `json:"is_final"`
}

// EncryptedMessageParams is a standalone re-send of a bidder's message
type EncryptedMessageParams struct {
	AuctionID          uint64 `json:"auction_id"`
	Bidder             string `json:"bidder"`
	EncryptedData      string `json:"encrypted_data"`
	EphemeralPublicKey string `json:"ephemeral_public_key"`
	IV                 string `json:"iv"`
	VerificationHash   string `json:"verification_hash"`
	IsFinal            bool   `json:"is_final"`
}

// PremiumPaidParams is emitted when an outbid bidder is compensated
type PremiumPaidParams struct {
	AuctionID     uint64 `json:"auction_id"`
	OutbidUser    string `json:"outbid_user"`
	NewBidder     string `json:"new_bidder"`
	OriginalBid   string `json:"original_bid"`
	PremiumAmount string `json:"premium_amount"`
}

// AuctionExtendedParams is emitted on an anti-snipe extension
type AuctionExtendedParams struct {
	AuctionID  uint64 `json:"auction_id"`
	NewEndTime uint64 `json:"new_end_time"`
}

// AuctionEndedParams closes an auction with its winner
type AuctionEndedParams struct {
	AuctionID   uint64 `json:"auction_id"`
	Winner      string `json:"winner"`
	FinalAmount string `json:"final_amount"`
	Affiliate   string `json:"affiliate"`
}

// AuctionCancelledParams is emitted when the owner cancels an auction
type AuctionCancelledParams struct {
	AuctionID uint64 `json:"auction_id"`
	Owner     string `json:"owner"`
}

// AuctionHouseMetadataParams updates the house's display metadata
type AuctionHouseMetadataParams struct {
	Name        string `json:"name"`
	Image       string `json:"image"`
	Description string `json:"description"`
}

// SettlementDeadlineParams updates the house-wide settlement deadline
type SettlementDeadlineParams struct {
	NewDeadline uint64 `json:"new_deadline"`
}

// PayerSetParams binds a payer and settle deadline to an escrow
type PayerSetParams struct {
	Payer          string `json:"payer"`
	SettleDeadline uint64 `json:"settle_deadline"`
}

// SettledParams releases escrowed funds to the payee
type SettledParams struct {
	To              string `json:"to"`
	Token           string `json:"token"`
	Amount          string `json:"amount"`
	Affiliate       string `json:"affiliate"`
	AffiliateAmount string `json:"affiliate_amount"`
}

// RefundedParams returns escrowed funds to the payer
type RefundedParams struct {
	To     string `json:"to"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

// DisputedParams opens a dispute on an escrow
type DisputedParams struct {
	Initiator string `json:"initiator"`
}

// DisputeRemovedParams withdraws a dispute
type DisputeRemovedParams struct {
	Remover string `json:"remover"`
}

// DisputeResolvedParams records the arbiter's ruling. Settled true means
// funds went to the payee, false means they were returned to the payer.
type DisputeResolvedParams struct {
	Resolver string `json:"resolver"`
	Settled  bool   `json:"settled"`
}

// EscapeAddressSetParams sets the emergency withdrawal address
type EscapeAddressSetParams struct {
	EscapeAddress string `json:"escape_address"`
}

// EscapedParams records an emergency withdrawal
type EscapedParams struct {
	To     string `json:"to"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

// ArbiterChangeProposedParams starts a two-step arbiter rotation
type ArbiterChangeProposedParams struct {
	OldArbiter      string `json:"old_arbiter"`
	ProposedArbiter string `json:"proposed_arbiter"`
}

// ArbiterChangeApprovedParams completes an arbiter rotation
type ArbiterChangeApprovedParams struct {
	OldArbiter string `json:"old_arbiter"`
	NewArbiter string `json:"new_arbiter"`
	Approver   string `json:"approver"`
}

// OrderFulfilledParams is emitted when a storefront purchase completes
type OrderFulfilledParams struct {
	Buyer          string `json:"buyer"`
	TokenNumber    string `json:"token_number"`
	Amount         string `json:"amount"`
	Price          string `json:"price"`
	PaymentToken   string `json:"payment_token"`
	EscrowContract string `json:"escrow_contract"`
	Affiliate      string `json:"affiliate"`
	AffiliateShare uint64 `json:"affiliate_share"`
}

// ListingAddedParams adds a token listing to a storefront
type ListingAddedParams struct {
	TokenNumber  string `json:"token_number"`
	Price        string `json:"price"`
	PaymentToken string `json:"payment_token"`
	AffiliateFee uint64 `json:"affiliate_fee"`
}

// ListingUpdatedParams reprices an existing listing
type ListingUpdatedParams struct {
	TokenNumber     string `json:"token_number"`
	NewPrice        string `json:"new_price"`
	NewPaymentToken string `json:"new_payment_token"`
	NewAffiliateFee uint64 `json:"new_affiliate_fee"`
}

// ListingRemovedParams delists a token
type ListingRemovedParams struct {
	TokenNumber string `json:"token_number"`
}

// ReadyStateChangedParams toggles whether a storefront accepts orders
type ReadyStateChangedParams struct {
	Ready bool `json:"ready"`
}

// SettleDeadlineUpdatedParams updates a storefront's settle deadline
type SettleDeadlineUpdatedParams struct {
	NewSettleDeadline uint64 `json:"new_settle_deadline"`
}

// TokenAddressChangedParams swaps the storefront's backing token contract
type TokenAddressChangedParams struct {
	NewAddress string `json:"new_address"`
}

// StorefrontCreatedParams is emitted by a storefront factory
type StorefrontCreatedParams struct {
	Storefront         string `json:"storefront"`
	Owner              string `json:"owner"`
	TokenContract      string `json:"token_contract"`
	EscrowFactory      string `json:"escrow_factory"`
	AffiliateVerifier  string `json:"affiliate_verifier"`
	IsAffiliateEnabled bool   `json:"is_affiliate_enabled"`
}

// EscrowCreatedParams is emitted by an escrow factory. Source is the
// marketplace contract the escrow was created for.
type EscrowCreatedParams struct {
	EscrowAddress string `json:"escrow_address"`
	Payee         string `json:"payee"`
	Source        string `json:"source"`
	Arbiter       string `json:"arbiter"`
	IsAffiliate   bool   `json:"is_affiliate"`
}

// AuctionHouseCreatedParams is emitted by the auction house factory
type AuctionHouseCreatedParams struct {
	AuctionHouse       string `json:"auction_house"`
	Owner              string `json:"owner"`
	Name               string `json:"name"`
	Image              string `json:"image"`
	Description        string `json:"description"`
	ContractURI        string `json:"contract_uri"`
	Symbol             string `json:"symbol"`
	SettlementDeadline uint64 `json:"settlement_deadline"`
}

// AuctionItemCreatedParams is emitted when an auction item collection
// contract is deployed
type AuctionItemCreatedParams struct {
	ContractAddress string `json:"contract_address"`
	Owner           string `json:"owner"`
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	ContractURI     string `json:"contract_uri"`
}

// SaleAttestedParams is an off-chain resolver's attestation of a sale.
// SaleTxHash is the transaction hash of the fulfillment the attestation
// refers to, which may or may not be known to the indexer.
type SaleAttestedParams struct {
	UID            string `json:"uid"`
	Seller         string `json:"seller"`
	Buyer          string `json:"buyer"`
	SaleTxHash     string `json:"sale_tx_hash"`
	EscrowContract string `json:"escrow_contract"`
	Storefront     string `json:"storefront"`
}

// ReviewSubmittedParams carries a review referencing a sale attestation
type ReviewSubmittedParams struct {
	ReviewUID           string `json:"review_uid"`
	SaleUID             string `json:"sale_uid"`
	Reviewer            string `json:"reviewer"`
	Recipient           string `json:"recipient"`
	OverallRating       uint8  `json:"overall_rating"`
	QualityRating       uint8  `json:"quality_rating"`
	CommunicationRating uint8  `json:"communication_rating"`
	DeliveryRating      uint8  `json:"delivery_rating"`
	PackagingRating     uint8  `json:"packaging_rating"`
	AsDescribed         bool   `json:"as_described"`
	ReviewText          string `json:"review_text"`
}

// TokenTransferParams is an ERC721 transfer on an auction item contract
type TokenTransferParams struct {
	From        string `json:"from"`
	To          string `json:"to"`
	TokenNumber string `json:"token_number"`
}

// TokenMetadataUpdatedParams announces a new token URI
type TokenMetadataUpdatedParams struct {
	TokenNumber string `json:"token_number"`
	TokenURI    string `json:"token_uri"`
}

// ContractURIUpdatedParams announces new collection-level metadata
type ContractURIUpdatedParams struct {
	NewURI string `json:"new_uri"`
}

// OwnershipTransferredParams rotates a contract's owner
type OwnershipTransferredParams struct {
	PreviousOwner string `json:"previous_owner"`
	NewOwner      string `json:"new_owner"`
}
