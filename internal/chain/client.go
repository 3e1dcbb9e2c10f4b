package chain

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/aptos-labs/aptos-go-sdk"
	"github.com/aptos-labs/aptos-go-sdk/bcs"
	"github.com/aptos-labs/aptos-go-sdk/crypto"
	"github.com/rs/zerolog"
)

const (
	moduleName            = "tuma"
	depositFunction       = "deposit_fungible"
	makePaymentFunction   = "make_payment_fungible"
	nativeCoinTypePattern = "::aptos_coin::AptosCoin"
)

// NativePlaceholderAddress is the catalog address the backend uses for the
// native gas coin, which has no fungible-asset metadata object of its own.
const NativePlaceholderAddress = "0xa"

// Options configures the chain client.
type Options struct {
	Network         string
	NodeURL         string
	IndexerURL      string
	ContractAddress string
	RequestTimeout  time.Duration
}

// RawBalance is one asset holding in base units.
type RawBalance struct {
	AssetType string
	Amount    uint64
}

// Client wraps the Aptos node API for the payment contract.
type Client struct {
	aptos    *aptos.Client
	contract aptos.AccountAddress
	logger   zerolog.Logger
}

// NewClient connects to the configured network. NodeURL and IndexerURL
// override the named network's defaults when set.
func NewClient(opts Options, logger zerolog.Logger) (*Client, error) {
	cfg, err := networkConfig(opts)
	if err != nil {
		return nil, err
	}
	client, err := aptos.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("chain: connect to %s: %w", opts.Network, err)
	}
	var contract aptos.AccountAddress
	if err := contract.ParseStringRelaxed(opts.ContractAddress); err != nil {
		return nil, fmt.Errorf("chain: bad contract address %q: %w", opts.ContractAddress, err)
	}
	return &Client{
		aptos:    client,
		contract: contract,
		logger:   logger.With().Str("component", "chain").Logger(),
	}, nil
}

func networkConfig(opts Options) (aptos.NetworkConfig, error) {
	var cfg aptos.NetworkConfig
	switch strings.ToLower(opts.Network) {
	case "mainnet":
		cfg = aptos.MainnetConfig
	case "testnet", "":
		cfg = aptos.TestnetConfig
	case "devnet":
		cfg = aptos.DevnetConfig
	default:
		return cfg, fmt.Errorf("chain: unknown network %q", opts.Network)
	}
	if opts.NodeURL != "" {
		cfg.NodeUrl = opts.NodeURL
	}
	if opts.IndexerURL != "" {
		cfg.IndexerUrl = opts.IndexerURL
	}
	return cfg, nil
}

// LoadAccount derives an Aptos account from an ed25519 private key hex string.
func LoadAccount(privateKeyHex string) (*aptos.Account, error) {
	if privateKeyHex == "" {
		return nil, fmt.Errorf("chain: private key is required")
	}
	key := &crypto.Ed25519PrivateKey{}
	if err := key.FromHex(privateKeyHex); err != nil {
		return nil, fmt.Errorf("chain: parse private key: %w", err)
	}
	account, err := aptos.NewAccountFromSigner(key)
	if err != nil {
		return nil, fmt.Errorf("chain: derive account: %w", err)
	}
	return account, nil
}

// NativeBalance returns the owner's gas coin balance in base units.
func (c *Client) NativeBalance(ctx context.Context, owner aptos.AccountAddress) (uint64, error) {
	bal, err := c.aptos.AccountAPTBalance(owner)
	if err != nil {
		return 0, fmt.Errorf("chain: native balance of %s: %w", owner.String(), err)
	}
	return bal, nil
}

// FungibleBalance returns the owner's balance of one fungible asset in base
// units. An owner with no store for the asset holds zero.
func (c *Client) FungibleBalance(ctx context.Context, owner aptos.AccountAddress, metadataAddress string) (uint64, error) {
	var metadata aptos.AccountAddress
	if err := metadata.ParseStringRelaxed(metadataAddress); err != nil {
		return 0, fmt.Errorf("chain: bad metadata address %q: %w", metadataAddress, err)
	}
	fa, err := aptos.NewFungibleAssetClient(c.aptos, &metadata)
	if err != nil {
		return 0, fmt.Errorf("chain: fungible asset client for %s: %w", metadataAddress, err)
	}
	bal, err := fa.PrimaryBalance(&owner)
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("chain: balance of %s for %s: %w", metadataAddress, owner.String(), err)
	}
	return bal, nil
}

// FungibleBalances resolves the owner's holdings across the given asset
// addresses. The native coin is reported under its coin type rather than the
// catalog placeholder address.
func (c *Client) FungibleBalances(ctx context.Context, owner string, assets []string) ([]RawBalance, error) {
	var addr aptos.AccountAddress
	if err := addr.ParseStringRelaxed(owner); err != nil {
		return nil, fmt.Errorf("chain: bad owner address %q: %w", owner, err)
	}
	out := make([]RawBalance, 0, len(assets)+1)
	native, err := c.NativeBalance(ctx, addr)
	if err != nil {
		return nil, err
	}
	out = append(out, RawBalance{AssetType: "0x1::aptos_coin::AptosCoin", Amount: native})
	for _, asset := range assets {
		if asset == "" || asset == NativePlaceholderAddress {
			continue
		}
		bal, err := c.FungibleBalance(ctx, addr, asset)
		if err != nil {
			return nil, err
		}
		out = append(out, RawBalance{AssetType: asset, Amount: bal})
	}
	return out, nil
}

func isNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "404") || strings.Contains(strings.ToLower(msg), "not found")
}

// PaymentIntent describes one on-chain payment call.
type PaymentIntent struct {
	// MetadataAddress is the fungible asset metadata object address.
	MetadataAddress string
	// AmountBaseUnits is the transfer amount in the asset's base units.
	AmountBaseUnits uint64
	// SessionID ties the deposit to a backend payment session; empty for a
	// plain deposit.
	SessionID string
}

func (c *Client) entryFunction(intent PaymentIntent) (*aptos.EntryFunction, error) {
	var metadata aptos.AccountAddress
	if err := metadata.ParseStringRelaxed(intent.MetadataAddress); err != nil {
		return nil, fmt.Errorf("chain: bad metadata address %q: %w", intent.MetadataAddress, err)
	}
	metadataArg, err := bcs.Serialize(&metadata)
	if err != nil {
		return nil, fmt.Errorf("chain: serialize metadata address: %w", err)
	}
	amountArg, err := bcs.SerializeU64(intent.AmountBaseUnits)
	if err != nil {
		return nil, fmt.Errorf("chain: serialize amount: %w", err)
	}
	function := depositFunction
	args := [][]byte{metadataArg, amountArg}
	if intent.SessionID != "" {
		function = makePaymentFunction
		sessionArg, err := bcs.SerializeBytes([]byte(intent.SessionID))
		if err != nil {
			return nil, fmt.Errorf("chain: serialize session id: %w", err)
		}
		args = append(args, sessionArg)
	}
	return &aptos.EntryFunction{
		Module: aptos.ModuleId{
			Address: c.contract,
			Name:    moduleName,
		},
		Function: function,
		ArgTypes: []aptos.TypeTag{
			{Value: &aptos.StructTag{
				Address:    aptos.AccountOne,
				Module:     "fungible_asset",
				Name:       "Metadata",
				TypeParams: []aptos.TypeTag{},
			}},
		},
		Args: args,
	}, nil
}

// SubmitPayment builds, signs and submits the payment with the sender paying
// its own gas, then waits for finality. A transaction that executes with
// success=false returns ErrTransactionRejected.
func (c *Client) SubmitPayment(ctx context.Context, sender *aptos.Account, intent PaymentIntent) (string, error) {
	entry, err := c.entryFunction(intent)
	if err != nil {
		return "", err
	}
	pending, err := c.aptos.BuildSignAndSubmitTransaction(sender, aptos.TransactionPayload{Payload: entry})
	if err != nil {
		return "", fmt.Errorf("chain: submit payment: %w", err)
	}
	c.logger.Debug().Str("hash", pending.Hash).Str("function", entry.Function).Msg("transaction submitted")
	txn, err := c.aptos.WaitForTransaction(pending.Hash)
	if err != nil {
		return "", fmt.Errorf("chain: wait for %s: %w", pending.Hash, err)
	}
	if !txn.Success {
		return "", fmt.Errorf("%w: %s", ErrTransactionRejected, txn.VmStatus)
	}
	return pending.Hash, nil
}

// SponsoredEnvelope is a fee-payer transaction pre-signed by the sponsor,
// both parts BCS encoded then base64 wrapped for transport.
type SponsoredEnvelope struct {
	Transaction   string `json:"transaction"`
	Authenticator string `json:"authenticator"`
}

// BuildSponsoredPayment builds the multi-agent fee-payer transaction for the
// given sender, signs it as the fee payer and returns the portable envelope.
// The sender signs and submits on its own side.
func (c *Client) BuildSponsoredPayment(ctx context.Context, sender string, feePayer *aptos.Account, intent PaymentIntent) (*SponsoredEnvelope, error) {
	var senderAddr aptos.AccountAddress
	if err := senderAddr.ParseStringRelaxed(sender); err != nil {
		return nil, fmt.Errorf("chain: bad sender address %q: %w", sender, err)
	}
	entry, err := c.entryFunction(intent)
	if err != nil {
		return nil, err
	}
	rawTxn, err := c.aptos.BuildTransactionMultiAgent(
		senderAddr,
		aptos.TransactionPayload{Payload: entry},
		aptos.FeePayer(&feePayer.Address),
	)
	if err != nil {
		return nil, fmt.Errorf("chain: build sponsored transaction: %w", err)
	}
	feePayerAuth, err := rawTxn.Sign(feePayer)
	if err != nil {
		return nil, fmt.Errorf("chain: fee payer sign: %w", err)
	}
	txnBytes, err := bcs.Serialize(rawTxn)
	if err != nil {
		return nil, fmt.Errorf("chain: serialize transaction: %w", err)
	}
	authBytes, err := bcs.Serialize(feePayerAuth)
	if err != nil {
		return nil, fmt.Errorf("chain: serialize authenticator: %w", err)
	}
	return &SponsoredEnvelope{
		Transaction:   base64.StdEncoding.EncodeToString(txnBytes),
		Authenticator: base64.StdEncoding.EncodeToString(authBytes),
	}, nil
}

// SubmitSponsoredPayment deserializes a sponsor envelope, signs it as the
// sender and submits with both authenticators, then waits for finality.
func (c *Client) SubmitSponsoredPayment(ctx context.Context, sender *aptos.Account, envelope *SponsoredEnvelope) (string, error) {
	txnBytes, err := base64.StdEncoding.DecodeString(envelope.Transaction)
	if err != nil {
		return "", fmt.Errorf("chain: decode sponsored transaction: %w", err)
	}
	authBytes, err := base64.StdEncoding.DecodeString(envelope.Authenticator)
	if err != nil {
		return "", fmt.Errorf("chain: decode sponsor authenticator: %w", err)
	}
	rawTxn := &aptos.RawTransactionWithData{}
	if err := bcs.Deserialize(rawTxn, txnBytes); err != nil {
		return "", fmt.Errorf("chain: deserialize sponsored transaction: %w", err)
	}
	feePayerAuth := &crypto.AccountAuthenticator{}
	if err := bcs.Deserialize(feePayerAuth, authBytes); err != nil {
		return "", fmt.Errorf("chain: deserialize sponsor authenticator: %w", err)
	}
	senderAuth, err := rawTxn.Sign(sender)
	if err != nil {
		return "", fmt.Errorf("chain: sender sign: %w", err)
	}
	signedTxn, ok := rawTxn.ToFeePayerSignedTransaction(senderAuth, feePayerAuth, []crypto.AccountAuthenticator{})
	if !ok {
		return "", fmt.Errorf("chain: assemble fee payer transaction")
	}
	pending, err := c.aptos.SubmitTransaction(signedTxn)
	if err != nil {
		return "", fmt.Errorf("chain: submit sponsored payment: %w", err)
	}
	c.logger.Debug().Str("hash", pending.Hash).Msg("sponsored transaction submitted")
	txn, err := c.aptos.WaitForTransaction(pending.Hash)
	if err != nil {
		return "", fmt.Errorf("chain: wait for %s: %w", pending.Hash, err)
	}
	if !txn.Success {
		return "", fmt.Errorf("%w: %s", ErrTransactionRejected, txn.VmStatus)
	}
	return pending.Hash, nil
}

// IsNativeCoinType reports whether an asset type string denotes the native
// gas coin, matching either the catalog placeholder or the coin type itself.
func IsNativeCoinType(asset string) bool {
	return asset == NativePlaceholderAddress || strings.Contains(asset, nativeCoinTypePattern)
}
