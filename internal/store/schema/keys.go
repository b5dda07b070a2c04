package schema

// AuctionKey identifies an auction by its house contract and the
// house-local sequence number. Auction sequence numbers restart at 1 for
// every house, so neither part identifies an auction alone.
type AuctionKey struct {
	House    string
	Sequence uint64
}

// EventKey identifies a single log within a transaction. It is the
// natural key for per-event records (bids, premium payments, escrow
// activity) and for the processed-event ledger.
type EventKey struct {
	TxHash   string
	LogIndex uint
}
