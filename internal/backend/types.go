package backend

import (
	"encoding/json"
	"time"
)

// Currency is one entry of the backend `/currencies` catalog. Fiat entries
// carry country metadata; crypto entries carry the on-chain asset address and
// decimals. The native gas coin's address field is a placeholder, not its
// real on-chain resource type (see internal/balance).
type Currency struct {
	CurrencyType    string `json:"currency_type"`
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	ID              string `json:"id"`
	Country         string `json:"country"`
	Description     string `json:"description"`
	Chain           string `json:"chain"`
	Address         string `json:"address"`
	IsFungibleAsset bool   `json:"is_fungible_asset"`
	Decimals        int32  `json:"decimals"`
}

// IsCrypto reports whether the catalog entry is an on-chain asset.
func (c Currency) IsCrypto() bool { return c.CurrencyType == "Crypto" }

// DecimalsOrDefault returns the declared decimals, defaulting to 8 when the
// catalog omits them (the backend leaves the field null for some assets).
func (c Currency) DecimalsOrDefault() int32 {
	if c.Decimals > 0 {
		return c.Decimals
	}
	return 8
}

// Provider is one entry of `/providers`: a mobile-money network and the fiat
// currency it settles in.
type Provider struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	ProviderType      string   `json:"provider_type"`
	SupportedCurrency Currency `json:"supported_currency"`
}

// PaymentMethod is a registered mobile-money identity. Some backend responses
// key it by `id`, others by `address`; MethodID resolves whichever is set.
type PaymentMethod struct {
	ID                string    `json:"id"`
	Address           string    `json:"address"`
	Owner             string    `json:"owner"`
	PaymentMethodType string    `json:"payment_method_type"`
	Identity          string    `json:"identity"`
	ProviderID        string    `json:"provider_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// MethodID returns the identifier used as existing_payment_method_id in
// subsequent flows.
func (m PaymentMethod) MethodID() string {
	if m.ID != "" {
		return m.ID
	}
	return m.Address
}

// NewPaymentMethod is the registration request body.
type NewPaymentMethod struct {
	Owner             string `json:"owner"`
	PaymentMethodType string `json:"payment_method_type"`
	Identity          string `json:"identity"`
	ProviderID        string `json:"provider_id"`
}

// NewSession is the `create-payment-session` request body.
type NewSession struct {
	Payer           string `json:"payer"`
	Provider        string `json:"provider"`
	ReceiverID      string `json:"receiver_id"`
	Token           string `json:"token"`
	AccountIdentity string `json:"account_identity,omitempty"`
	IsBuyGoods      bool   `json:"is_buy_goods,omitempty"`
}

// Session is a backend-tracked payment session. Immutable after creation; its
// code is both the on-chain session argument and the settlement lookup key.
// The backend is inconsistent about the field name, hence the two ids.
type Session struct {
	SessionID       string `json:"session_id"`
	ID              string `json:"id"`
	Payer           string `json:"payer"`
	Provider        string `json:"provider"`
	ReceiverID      string `json:"receiver_id"`
	AccountIdentity string `json:"account_identity"`
	Token           string `json:"token"`
	IsBuyGoods      bool   `json:"is_buy_goods"`
}

// Code returns the session identifier regardless of which field carried it.
func (s Session) Code() string {
	if s.SessionID != "" {
		return s.SessionID
	}
	return s.ID
}

// OnrampRequest initiates a fiat-to-crypto purchase. Amount travels as a JSON
// number; json.Number keeps it off the float path.
type OnrampRequest struct {
	PaymentMethodID string      `json:"payment_method_id"`
	Amount          json.Number `json:"amount"`
	TargetToken     string      `json:"target_token"`
}

// OnrampResponse carries the settlement tracking code.
type OnrampResponse struct {
	Code string `json:"code"`
}

// SettlementStatus is a raw status document from the settlement endpoints.
// Status casing is inconsistent upstream; internal/settle normalizes it.
type SettlementStatus struct {
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	Message       string          `json:"message"`
	TransactionID string          `json:"transaction_id"`
	Data          *SettlementData `json:"data"`
}

// SettlementData is the optional terminal payload.
type SettlementData struct {
	Receipt string `json:"receipt"`
	Name    string `json:"name"`
}

// Receipt returns the settlement receipt, if present.
func (s SettlementStatus) Receipt() string {
	if s.Data == nil {
		return ""
	}
	return s.Data.Receipt
}

// OnrampTransaction is a settlement history record for the onramp flow.
type OnrampTransaction struct {
	ID                      string          `json:"id"`
	Status                  string          `json:"status"`
	Requester               string          `json:"requester"`
	PaymentMethodID         string          `json:"payment_method_id"`
	TransactionRef          string          `json:"transaction_ref"`
	Amount                  string          `json:"amount"`
	TargetToken             string          `json:"target_token"`
	FinalTokenQuote         string          `json:"final_token_quote"`
	OnChainTransactionHash  string          `json:"on_chain_transaction_hash"`
	RequestedAt             time.Time       `json:"requested_at"`
	FinalizedAt             *time.Time      `json:"finalized_at"`
	Data                    *SettlementData `json:"data"`
}

// PaymentTransaction is a settlement history record for the pay/offramp flow.
type PaymentTransaction struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	PaymentProviderID string          `json:"payment_provider_id"`
	PaymentIdentity   string          `json:"payment_identity"`
	AccountIdentity   string          `json:"account_identity"`
	Payer             string          `json:"payer"`
	TransactionHash   string          `json:"transaction_hash"`
	TransferredAmount string          `json:"transferred_amount"`
	TransferredToken  string          `json:"transferred_token"`
	FinalFiatValue    string          `json:"final_fiat_value"`
	TransactionCode   string          `json:"transaction_code"`
	RequestedAt       time.Time       `json:"requested_at"`
	FinalizedAt       *time.Time      `json:"finalized_at"`
	Data              *SettlementData `json:"data"`
}

// ConversionRequest asks for a fiat-to-asset conversion quote.
type ConversionRequest struct {
	From   string      `json:"from"`
	To     string      `json:"to"`
	Amount json.Number `json:"amount"`
}

// ConversionResponse is the raw quote. Amounts decode via json.Number so the
// caller can lift them into decimals without a float round trip.
type ConversionResponse struct {
	Converted    json.Number `json:"converted"`
	FromUSDQuote json.Number `json:"from_usd_quote"`
	ToUSDQuote   json.Number `json:"to_usd_quote"`
}

// TransactionType selects a history listing.
type TransactionType string

const (
	TransactionOnramp  TransactionType = "onramp"
	TransactionOfframp TransactionType = "offramp"
	TransactionPayment TransactionType = "payment"
)
