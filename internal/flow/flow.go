package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tooma/internal/backend"
	"tooma/internal/chain"
	"tooma/internal/rates"
	"tooma/internal/settle"
)

// Status is an observable flow state. The two flows share the vocabulary;
// each walks its own subset.
type Status string

const (
	StatusIdle Status = "idle"

	// Onramp flow.
	StatusAddingPaymentMethod Status = "adding_payment_method"
	StatusInitiatingOnramp    Status = "initiating_onramp"
	StatusMonitoringPayment   Status = "monitoring_payment"

	// Pay flow.
	StatusCreatingSession       Status = "creating_payment_session"
	StatusCreatingPaymentMethod Status = "creating_payment_method"
	StatusDepositing            Status = "depositing_to_contract"
	StatusCheckingStatus        Status = "checking_status"

	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Outcome classifies how a flow ended.
type Outcome string

const (
	// OutcomeSettled means the settlement confirmed.
	OutcomeSettled Outcome = "settled"
	// OutcomeUnverified means funds moved but the settlement watch ran out
	// before confirmation. Not a failure.
	OutcomeUnverified Outcome = "unverified"
	// OutcomeFailed means the settlement reported failure.
	OutcomeFailed Outcome = "failed"
)

// ErrFlowInProgress rejects a flow started while another one is running on
// the same engine.
var ErrFlowInProgress = errors.New("flow: another flow is in progress")

// PaybillMethodType marks till/paybill targets, which are never registered
// as reusable payment methods.
const PaybillMethodType = "PAYBILL"

// mobileMoneyMethodType is the only payment_method_type the backend accepts
// on registration. The flow-level MethodType (SEND/PAYBILL/BUY_GOODS) steers
// behavior, never the wire.
const mobileMoneyMethodType = "mobile-money"

// SessionAPI is the backend surface the flows need.
type SessionAPI interface {
	AddPaymentMethod(ctx context.Context, method backend.NewPaymentMethod) (*backend.PaymentMethod, error)
	CreateSession(ctx context.Context, req backend.NewSession) (*backend.Session, error)
	InitiateOnramp(ctx context.Context, req backend.OnrampRequest) (*backend.OnrampResponse, error)
}

// Submitter executes the on-chain leg of a pay flow.
type Submitter interface {
	Submit(ctx context.Context, intent chain.PaymentIntent) (string, error)
}

// GateFunc answers a sufficiency check before funds are committed: does the
// owner hold at least the required amount of the currency. The second return
// is the held amount, rendered for error messages.
type GateFunc func(ctx context.Context, owner, currencyID string, required decimal.Decimal) (bool, string, error)

// Recorder persists flow attempts for out-of-band reconciliation. Optional.
type Recorder interface {
	RecordAttempt(ctx context.Context, flowType, code, txnHash string) error
	ResolveAttempt(ctx context.Context, code string, status settle.Status, receipt string) error
}

// Options configures a flow engine.
type Options struct {
	// MinFiatAmount is the smallest accepted fiat amount for either flow.
	MinFiatAmount decimal.Decimal
	// Payer is the wallet address the flows act for.
	Payer string
	// ResetDelay is how long a terminal state stays observable before the
	// engine reports idle again. Zero disables the reset notification.
	ResetDelay time.Duration
	// OnState, when set, observes every state transition.
	OnState func(Status)
}

// Engine drives the onramp and pay flows. One flow at a time; a second
// start while one is running returns ErrFlowInProgress.
type Engine struct {
	api      SessionAPI
	submit   Submitter
	gate     GateFunc
	watcher  settle.Watcher
	onramps  settle.Watcher
	recorder Recorder
	opts     Options
	logger   zerolog.Logger
	inFlight atomic.Bool

	resetMu    sync.Mutex
	resetTimer *time.Timer
}

// NewEngine builds a flow engine. payWatcher and onrampWatcher resolve the
// two settlement endpoints; recorder may be nil.
func NewEngine(api SessionAPI, submit Submitter, gate GateFunc, payWatcher, onrampWatcher settle.Watcher, recorder Recorder, opts Options, logger zerolog.Logger) *Engine {
	return &Engine{
		api:      api,
		submit:   submit,
		gate:     gate,
		watcher:  payWatcher,
		onramps:  onrampWatcher,
		recorder: recorder,
		opts:     opts,
		logger:   logger.With().Str("component", "flow").Logger(),
	}
}

// PayRequest describes one crypto-to-mobile-money payment.
type PayRequest struct {
	// FiatCurrency is the receiving fiat code, e.g. KES.
	FiatCurrency string
	// FiatAmount is the amount the recipient receives.
	FiatAmount decimal.Decimal
	// Network is the display name of the mobile-money network.
	Network string
	// Identity is the recipient's phone, paybill or till number.
	Identity string
	// MethodType is SEND, PAYBILL or BUY_GOODS.
	MethodType string
	// AccountNumber is required for paybill targets.
	AccountNumber string
	// ExistingMethodID skips method registration when set.
	ExistingMethodID string
	// Token is the catalog currency paying the transfer.
	Token backend.Currency
	// Quote is the conversion covering FiatAmount in Token units.
	Quote *rates.Quote
}

// PayResult is a finished pay flow.
type PayResult struct {
	Outcome    Outcome
	Session    *backend.Session
	TxnHash    string
	Settlement *settle.Result
}

// Pay runs the full pay flow: open a session, ensure a payment method, move
// funds on chain, then watch settlement. The session always comes first and
// the method always lands before the on-chain leg; a failure at either stops
// the flow with nothing submitted. Validation happens before any state
// transition so a rejected request leaves no trace.
func (e *Engine) Pay(ctx context.Context, req PayRequest) (*PayResult, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, ErrFlowInProgress
	}
	defer e.release()
	e.cancelReset()

	if err := e.validatePay(ctx, req); err != nil {
		return nil, err
	}

	e.setState(StatusCreatingSession)
	session, err := e.api.CreateSession(ctx, backend.NewSession{
		Payer:           e.opts.Payer,
		Provider:        backend.ProviderID(req.FiatCurrency, req.Network),
		ReceiverID:      req.Identity,
		Token:           req.Token.Address,
		AccountIdentity: req.AccountNumber,
		IsBuyGoods:      strings.EqualFold(req.MethodType, "BUY_GOODS"),
	})
	if err != nil {
		return nil, e.fail(fmt.Errorf("flow: create payment session: %w", err))
	}

	isPaybill := strings.EqualFold(req.MethodType, PaybillMethodType)
	if req.ExistingMethodID == "" && !isPaybill {
		e.setState(StatusCreatingPaymentMethod)
		method, err := e.api.AddPaymentMethod(ctx, backend.NewPaymentMethod{
			Owner:             e.opts.Payer,
			PaymentMethodType: mobileMoneyMethodType,
			Identity:          req.Identity,
			ProviderID:        backend.ProviderID(req.FiatCurrency, req.Network),
		})
		if err != nil {
			return nil, e.fail(fmt.Errorf("flow: register payment method: %w", err))
		}
		e.logger.Debug().Str("method", method.MethodID()).Msg("payment method registered")
	}

	e.setState(StatusDepositing)
	baseUnits, err := chain.ToBaseUnits(req.Quote.Converted, req.Token.DecimalsOrDefault())
	if err != nil {
		return nil, e.fail(err)
	}
	hash, err := e.submit.Submit(ctx, chain.PaymentIntent{
		MetadataAddress: req.Token.Address,
		AmountBaseUnits: baseUnits,
		SessionID:       session.Code(),
	})
	if err != nil {
		return nil, e.fail(fmt.Errorf("flow: deposit to contract: %w", err))
	}
	e.record(ctx, "payment", session.Code(), hash)

	e.setState(StatusCheckingStatus)
	result, err := e.watcher.Await(ctx, session.Code())
	if err != nil {
		if errors.Is(err, settle.ErrUnresolved) {
			// Funds moved; the settlement just outran the watch.
			e.setState(StatusSuccess)
			e.scheduleReset()
			return &PayResult{Outcome: OutcomeUnverified, Session: session, TxnHash: hash}, nil
		}
		return nil, e.fail(err)
	}
	e.resolve(ctx, session.Code(), result)
	if result.Status == settle.StatusFailed {
		// The deposit already landed on chain. This is a hard failure that
		// needs operator attention, not a retry.
		e.setState(StatusError)
		e.scheduleReset()
		return &PayResult{Outcome: OutcomeFailed, Session: session, TxnHash: hash, Settlement: result},
			fmt.Errorf("flow: settlement failed after deposit %s: %s", hash, result.Message)
	}
	e.setState(StatusSuccess)
	e.scheduleReset()
	return &PayResult{Outcome: OutcomeSettled, Session: session, TxnHash: hash, Settlement: result}, nil
}

func (e *Engine) validatePay(ctx context.Context, req PayRequest) error {
	if req.FiatAmount.LessThan(e.opts.MinFiatAmount) {
		return fmt.Errorf("flow: amount %s below minimum %s", req.FiatAmount, e.opts.MinFiatAmount)
	}
	if req.Identity == "" {
		return fmt.Errorf("flow: recipient identity is required")
	}
	if req.Network == "" {
		return fmt.Errorf("flow: mobile network is required")
	}
	if strings.EqualFold(req.MethodType, PaybillMethodType) && req.AccountNumber == "" {
		return fmt.Errorf("flow: paybill payments need an account number")
	}
	if req.Quote == nil {
		return fmt.Errorf("flow: conversion quote is required")
	}
	if req.Token.Address == "" {
		return fmt.Errorf("flow: token address is required")
	}
	ok, held, err := e.gate(ctx, e.opts.Payer, req.Token.ID, req.Quote.Converted)
	if err != nil {
		return fmt.Errorf("flow: balance check: %w", err)
	}
	if !ok {
		return fmt.Errorf("flow: insufficient %s balance: have %s, need %s",
			req.Token.Symbol, held, req.Quote.Converted)
	}
	return nil
}

// OnrampRequest describes one fiat-to-crypto purchase.
type OnrampRequest struct {
	FiatCurrency     string
	FiatAmount       decimal.Decimal
	Network          string
	Identity         string
	ExistingMethodID string
	TargetToken      string
}

// OnrampResult is a finished onramp flow.
type OnrampResult struct {
	Outcome    Outcome
	Code       string
	Settlement *settle.Result
}

// Onramp runs the onramp flow: ensure a payment method, trigger the fiat
// collection, then watch the settlement.
func (e *Engine) Onramp(ctx context.Context, req OnrampRequest) (*OnrampResult, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, ErrFlowInProgress
	}
	defer e.release()
	e.cancelReset()

	if req.FiatAmount.LessThan(e.opts.MinFiatAmount) {
		return nil, fmt.Errorf("flow: amount %s below minimum %s", req.FiatAmount, e.opts.MinFiatAmount)
	}
	if req.Identity == "" && req.ExistingMethodID == "" {
		return nil, fmt.Errorf("flow: payment identity is required")
	}
	if req.TargetToken == "" {
		return nil, fmt.Errorf("flow: target token is required")
	}

	methodID := req.ExistingMethodID
	if methodID == "" {
		e.setState(StatusAddingPaymentMethod)
		method, err := e.api.AddPaymentMethod(ctx, backend.NewPaymentMethod{
			Owner:             e.opts.Payer,
			PaymentMethodType: mobileMoneyMethodType,
			Identity:          req.Identity,
			ProviderID:        backend.ProviderID(req.FiatCurrency, req.Network),
		})
		if err != nil {
			return nil, e.fail(fmt.Errorf("flow: register payment method: %w", err))
		}
		methodID = method.MethodID()
	}

	e.setState(StatusInitiatingOnramp)
	resp, err := e.api.InitiateOnramp(ctx, backend.OnrampRequest{
		PaymentMethodID: methodID,
		Amount:          jsonNumber(req.FiatAmount),
		TargetToken:     req.TargetToken,
	})
	if err != nil {
		return nil, e.fail(fmt.Errorf("flow: initiate onramp: %w", err))
	}
	e.record(ctx, "onramp", resp.Code, "")

	e.setState(StatusMonitoringPayment)
	result, err := e.onramps.Await(ctx, resp.Code)
	if err != nil {
		if errors.Is(err, settle.ErrUnresolved) {
			e.setState(StatusSuccess)
			e.scheduleReset()
			return &OnrampResult{Outcome: OutcomeUnverified, Code: resp.Code}, nil
		}
		return nil, e.fail(err)
	}
	e.resolve(ctx, resp.Code, result)
	if result.Status == settle.StatusFailed {
		e.setState(StatusError)
		e.scheduleReset()
		return &OnrampResult{Outcome: OutcomeFailed, Code: resp.Code, Settlement: result},
			fmt.Errorf("flow: onramp failed: %s", result.Message)
	}
	e.setState(StatusSuccess)
	e.scheduleReset()
	return &OnrampResult{Outcome: OutcomeSettled, Code: resp.Code, Settlement: result}, nil
}

func (e *Engine) setState(s Status) {
	e.logger.Debug().Str("state", string(s)).Msg("flow state")
	if e.opts.OnState != nil {
		e.opts.OnState(s)
	}
}

func (e *Engine) fail(err error) error {
	e.logger.Error().Err(err).Msg("flow failed")
	e.setState(StatusError)
	e.scheduleReset()
	return err
}

// scheduleReset arms the return to idle. A new flow starting before the
// delay elapses cancels the pending reset.
func (e *Engine) scheduleReset() {
	if e.opts.ResetDelay <= 0 || e.opts.OnState == nil {
		return
	}
	e.resetMu.Lock()
	defer e.resetMu.Unlock()
	if e.resetTimer != nil {
		e.resetTimer.Stop()
	}
	e.resetTimer = time.AfterFunc(e.opts.ResetDelay, func() { e.opts.OnState(StatusIdle) })
}

func (e *Engine) cancelReset() {
	e.resetMu.Lock()
	defer e.resetMu.Unlock()
	if e.resetTimer != nil {
		e.resetTimer.Stop()
		e.resetTimer = nil
	}
}

func (e *Engine) release() {
	e.inFlight.Store(false)
}

func (e *Engine) record(ctx context.Context, flowType, code, hash string) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordAttempt(ctx, flowType, code, hash); err != nil {
		e.logger.Warn().Err(err).Str("code", code).Msg("record attempt failed")
	}
}

func (e *Engine) resolve(ctx context.Context, code string, res *settle.Result) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.ResolveAttempt(ctx, code, res.Status, res.Receipt); err != nil {
		e.logger.Warn().Err(err).Str("code", code).Msg("resolve attempt failed")
	}
}

func jsonNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
