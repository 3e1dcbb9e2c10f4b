package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// SponsorRequest is the wire form of a sponsorship request.
type SponsorRequest struct {
	Address          string `json:"address"`
	MetadataAddress  string `json:"metadata_address"`
	Amount           string `json:"amount"`
	PaymentSessionID string `json:"payment_session_id,omitempty"`
}

// SponsorClient asks a sponsor server to co-sign payments as fee payer.
type SponsorClient struct {
	baseURL string
	logger  zerolog.Logger
	http    *http.Client
}

var _ Sponsor = (*SponsorClient)(nil)

// NewSponsorClient builds a client for a sponsor server.
func NewSponsorClient(baseURL string, timeout time.Duration, logger zerolog.Logger) (*SponsorClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("chain: sponsor url is required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SponsorClient{
		baseURL: baseURL,
		logger:  logger.With().Str("component", "sponsor-client").Logger(),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// SponsorPayment submits the intent and returns the fee-payer-signed
// envelope ready for sender signing.
func (s *SponsorClient) SponsorPayment(ctx context.Context, sender string, intent PaymentIntent) (*SponsoredEnvelope, error) {
	req := SponsorRequest{
		Address:          sender,
		MetadataAddress:  intent.MetadataAddress,
		Amount:           strconv.FormatUint(intent.AmountBaseUnits, 10),
		PaymentSessionID: intent.SessionID,
	}
	buf, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("chain: encode sponsor request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/payment-transaction", bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("chain: build sponsor request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := s.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chain: sponsor request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("chain: sponsor returned %s: %s", resp.Status, bytes.TrimSpace(raw))
	}
	var envelope SponsoredEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("chain: decode sponsor response: %w", err)
	}
	if envelope.Transaction == "" || envelope.Authenticator == "" {
		return nil, fmt.Errorf("chain: sponsor response missing transaction or authenticator")
	}
	return &envelope, nil
}
