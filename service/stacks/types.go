package stacks

// WalletRecord is the canonical aggregated view of an address at request time.
// Construction never fails outright: each field degrades independently to its
// default when the backing lookup fails, so a total upstream outage still
// yields a valid (maximally degraded) record.
type WalletRecord struct {
	Address          string              `json:"address"`
	Name             string              `json:"name,omitempty"`
	NativeBalance    string              `json:"nativeBalance"`
	FungibleHoldings []FungibleHolding   `json:"fungibleHoldings"`
	NonFungibleCount int                 `json:"nonFungibleCount"`
	TopCollections   []CollectionHolding `json:"topCollections"`
}

// FungibleHolding is one fungible token position.
type FungibleHolding struct {
	Symbol      string `json:"symbol"`
	DisplayName string `json:"displayName"`
	Balance     string `json:"balance"`
}

// CollectionHolding is one NFT collection with a representative item.
type CollectionHolding struct {
	CollectionName string `json:"collectionName"`
	ItemName       string `json:"itemName"`
}

// NonFungibleHoldings is the parsed view of an address's NFT positions.
// Count covers every held item, not just the collections listed.
type NonFungibleHoldings struct {
	Count       int
	Collections []CollectionHolding
}

// Transaction is the subset of the chain API transaction payload the service
// inspects for payment verification. Optional sections are pointers; absent
// fields decode to their zero value rather than being read speculatively.
type Transaction struct {
	TxID          string        `json:"tx_id"`
	Status        string        `json:"tx_status"`
	Type          string        `json:"tx_type"`
	SenderAddress string        `json:"sender_address"`
	ContractCall  *ContractCall `json:"contract_call,omitempty"`
	Events        []TxEvent     `json:"events,omitempty"`
}

// ContractCall describes the contract invocation section of a transaction.
type ContractCall struct {
	ContractID   string `json:"contract_id"`
	FunctionName string `json:"function_name"`
}

// TxEvent is a transaction event; only STX transfer events are inspected.
type TxEvent struct {
	EventType string        `json:"event_type"`
	Asset     *TxAssetEvent `json:"asset,omitempty"`
}

// TxAssetEvent carries the asset movement details of a transaction event.
type TxAssetEvent struct {
	AssetEventType string `json:"asset_event_type"`
	Recipient      string `json:"recipient"`
	Amount         string `json:"amount"`
}

// Upstream response payloads. Each field access downstream goes through these
// explicit schemas with documented fallbacks.

type stxBalanceResponse struct {
	Balance string `json:"balance"`
}

type ftBalancesResponse struct {
	Results []ftBalanceEntry `json:"results"`
}

// ftBalanceEntry identifies a token as "<contract_id>::<asset_name>", e.g.
// "SP3K8BC0PPEVCV7NZ6QSRWPQ2JE9E5B6N3PA0KBR9.token-alex::alex".
type ftBalanceEntry struct {
	Token   string `json:"token"`
	Balance string `json:"balance"`
}

type nftHoldingsResponse struct {
	Total   int               `json:"total"`
	Results []nftHoldingEntry `json:"results"`
}

type nftHoldingEntry struct {
	AssetIdentifier string `json:"asset_identifier"`
	Value           struct {
		Repr string `json:"repr"`
	} `json:"value"`
}

type namesResponse struct {
	Names []string `json:"names"`
}
