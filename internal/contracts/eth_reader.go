package contracts

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/openmarket-labs/market-indexer/internal/adapter"
	"github.com/openmarket-labs/market-indexer/internal/domain"
)

const (
	readTimeout    = 10 * time.Second
	maxRetryPeriod = 15 * time.Second
)

// Minimal view ABIs for the marketplace contracts. Only the getters the
// reconciler backfills from are included.
const (
	auctionHouseABIJSON = `[
		{"constant":true,"inputs":[{"name":"auctionId","type":"uint256"}],"name":"auctions","outputs":[{"name":"highestBid","type":"uint256"},{"name":"startTime","type":"uint256"},{"name":"currency","type":"address"},{"name":"paymentAmount","type":"uint256"}],"stateMutability":"view","type":"function"},
		{"constant":true,"inputs":[],"name":"minBidIncrementBps","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
		{"constant":true,"inputs":[],"name":"premiumRateBps","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
		{"constant":true,"inputs":[],"name":"timeExtension","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
	]`

	storefrontABIJSON = `[
		{"constant":true,"inputs":[],"name":"arbiter","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
		{"constant":true,"inputs":[],"name":"minSettleTime","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
		{"constant":true,"inputs":[],"name":"settleDeadline","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
		{"constant":true,"inputs":[],"name":"ready","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
		{"constant":true,"inputs":[],"name":"SEAPORT","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
		{"constant":true,"inputs":[],"name":"contractURI","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
	]`

	tokenABIJSON = `[
		{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"tokenURI","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
		{"constant":true,"inputs":[],"name":"contractURI","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
	]`
)

type ethReader struct {
	client       adapter.EthClient
	auctionHouse abi.ABI
	storefront   abi.ABI
	token        abi.ABI
}

// NewEthReader creates a Reader backed by an Ethereum JSON-RPC client
func NewEthReader(client adapter.EthClient) (Reader, error) {
	auctionHouseABI, err := abi.JSON(strings.NewReader(auctionHouseABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse auction house ABI: %w", err)
	}
	storefrontABI, err := abi.JSON(strings.NewReader(storefrontABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse storefront ABI: %w", err)
	}
	tokenABI, err := abi.JSON(strings.NewReader(tokenABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}

	return &ethReader{
		client:       client,
		auctionHouse: auctionHouseABI,
		storefront:   storefrontABI,
		token:        tokenABI,
	}, nil
}

// call packs a view method, executes it with bounded retry and unpacks
// the raw return data
func (r *ethReader) call(ctx context.Context, parsed abi.ABI, contract string, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	contractAddr := common.HexToAddress(contract)
	msg := ethereum.CallMsg{
		To:   &contractAddr,
		Data: data,
	}

	callCtx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxRetryPeriod

	var result []byte
	err = backoff.Retry(func() error {
		var callErr error
		result, callErr = r.client.CallContract(callCtx, msg, nil)
		return callErr
	}, backoff.WithContext(policy, callCtx))
	if err != nil {
		return nil, fmt.Errorf("%w: %s on %s: %v", domain.ErrContractRead, method, contract, err)
	}

	values, err := parsed.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return values, nil
}

func (r *ethReader) callUint(ctx context.Context, parsed abi.ABI, contract, method string) (uint64, error) {
	values, err := r.call(ctx, parsed, contract, method)
	if err != nil {
		return 0, err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected %s return type", method)
	}
	return v.Uint64(), nil
}

// AuctionState reads the auction's financial configuration
func (r *ethReader) AuctionState(ctx context.Context, house string, sequence uint64) (*AuctionState, error) {
	values, err := r.call(ctx, r.auctionHouse, house, "auctions", new(big.Int).SetUint64(sequence))
	if err != nil {
		return nil, err
	}
	if len(values) < 4 {
		return nil, fmt.Errorf("unexpected auctions return arity: %d", len(values))
	}

	highestBid, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected highestBid type")
	}
	startTime, ok := values[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected startTime type")
	}
	currency, ok := values[2].(common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected currency type")
	}
	paymentAmount, ok := values[3].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected paymentAmount type")
	}

	state := &AuctionState{
		HighestBid:      highestBid.String(),
		StartTime:       startTime.Uint64(),
		AuctionCurrency: domain.NormalizeAddress(currency.Hex()),
		PaymentAmount:   paymentAmount.String(),
	}

	// House-wide settings live on separate getters. A failure on any of
	// them fails the whole read; callers treat that as "use defaults".
	if state.MinBidIncrementBps, err = r.callUint(ctx, r.auctionHouse, house, "minBidIncrementBps"); err != nil {
		return nil, err
	}
	if state.PremiumBps, err = r.callUint(ctx, r.auctionHouse, house, "premiumRateBps"); err != nil {
		return nil, err
	}
	if state.TimeExtension, err = r.callUint(ctx, r.auctionHouse, house, "timeExtension"); err != nil {
		return nil, err
	}

	return state, nil
}

// StorefrontState reads a storefront's configuration
func (r *ethReader) StorefrontState(ctx context.Context, storefront string) (*StorefrontState, error) {
	state := &StorefrontState{}

	values, err := r.call(ctx, r.storefront, storefront, "arbiter")
	if err != nil {
		return nil, err
	}
	arbiter, ok := values[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected arbiter return type")
	}
	state.Arbiter = domain.NormalizeAddress(arbiter.Hex())

	if state.MinSettleTime, err = r.callUint(ctx, r.storefront, storefront, "minSettleTime"); err != nil {
		return nil, err
	}
	if state.SettleDeadline, err = r.callUint(ctx, r.storefront, storefront, "settleDeadline"); err != nil {
		return nil, err
	}

	values, err = r.call(ctx, r.storefront, storefront, "ready")
	if err != nil {
		return nil, err
	}
	ready, ok := values[0].(bool)
	if !ok {
		return nil, fmt.Errorf("unexpected ready return type")
	}
	state.Ready = ready

	values, err = r.call(ctx, r.storefront, storefront, "SEAPORT")
	if err != nil {
		return nil, err
	}
	seaport, ok := values[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected SEAPORT return type")
	}
	state.Seaport = domain.NormalizeAddress(seaport.Hex())

	values, err = r.call(ctx, r.storefront, storefront, "contractURI")
	if err != nil {
		return nil, err
	}
	uri, ok := values[0].(string)
	if !ok {
		return nil, fmt.Errorf("unexpected contractURI return type")
	}
	state.ContractURI = uri

	return state, nil
}

// TokenURI reads the metadata URI of an ERC721 token
func (r *ethReader) TokenURI(ctx context.Context, contract string, tokenNumber string) (string, error) {
	tokenID, ok := new(big.Int).SetString(tokenNumber, 10)
	if !ok {
		return "", fmt.Errorf("invalid token number: %s", tokenNumber)
	}

	values, err := r.call(ctx, r.token, contract, "tokenURI", tokenID)
	if err != nil {
		return "", err
	}
	uri, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected tokenURI return type")
	}
	return uri, nil
}

// ContractURI reads the collection-level metadata URI
func (r *ethReader) ContractURI(ctx context.Context, contract string) (string, error) {
	values, err := r.call(ctx, r.token, contract, "contractURI")
	if err != nil {
		return "", err
	}
	uri, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected contractURI return type")
	}
	return uri, nil
}

// Close closes the underlying client connection
func (r *ethReader) Close() {
	r.client.Close()
}
