package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/aptos-labs/aptos-go-sdk"
	"github.com/rs/zerolog"
)

// ErrTransactionRejected marks a transaction that reached finality with
// success=false. Submission and network errors are not wrapped in it.
var ErrTransactionRejected = errors.New("chain: transaction rejected on chain")

// GasMode selects who pays the transaction fee.
type GasMode string

const (
	// GasSelf has the sender pay its own gas.
	GasSelf GasMode = "self"
	// GasSponsored routes the transaction through a sponsor server that
	// signs as fee payer.
	GasSponsored GasMode = "sponsored"
)

// Sponsor obtains a fee-payer-signed envelope for a payment intent.
type Sponsor interface {
	SponsorPayment(ctx context.Context, sender string, intent PaymentIntent) (*SponsoredEnvelope, error)
}

// Composer submits payment intents under the configured gas mode.
type Composer struct {
	client  *Client
	signer  *aptos.Account
	mode    GasMode
	sponsor Sponsor
	logger  zerolog.Logger
}

// NewComposer builds a composer. A sponsor is required in sponsored mode.
func NewComposer(client *Client, signer *aptos.Account, mode GasMode, sponsor Sponsor, logger zerolog.Logger) (*Composer, error) {
	switch mode {
	case GasSelf:
	case GasSponsored:
		if sponsor == nil {
			return nil, fmt.Errorf("chain: sponsored mode needs a sponsor")
		}
	default:
		return nil, fmt.Errorf("chain: unknown gas mode %q", mode)
	}
	if signer == nil {
		return nil, fmt.Errorf("chain: signer account is required")
	}
	return &Composer{
		client:  client,
		signer:  signer,
		mode:    mode,
		sponsor: sponsor,
		logger:  logger.With().Str("component", "composer").Str("gas_mode", string(mode)).Logger(),
	}, nil
}

// SignerAddress returns the sending account's address.
func (c *Composer) SignerAddress() string {
	return c.signer.Address.String()
}

// Submit executes the payment intent and returns the transaction hash once
// the chain confirms success.
func (c *Composer) Submit(ctx context.Context, intent PaymentIntent) (string, error) {
	if intent.AmountBaseUnits == 0 {
		return "", fmt.Errorf("chain: zero-amount payment")
	}
	c.logger.Info().
		Str("metadata", intent.MetadataAddress).
		Uint64("base_units", intent.AmountBaseUnits).
		Str("session", intent.SessionID).
		Msg("submitting payment")
	switch c.mode {
	case GasSponsored:
		envelope, err := c.sponsor.SponsorPayment(ctx, c.SignerAddress(), intent)
		if err != nil {
			return "", fmt.Errorf("chain: sponsor payment: %w", err)
		}
		return c.client.SubmitSponsoredPayment(ctx, c.signer, envelope)
	default:
		return c.client.SubmitPayment(ctx, c.signer, intent)
	}
}
