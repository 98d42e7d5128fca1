// Package payment classifies caller-supplied transaction references into
// payment verdicts. It only verifies transactions already submitted by the
// caller; it never constructs, signs, or broadcasts anything.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/stacksmith/stackcard/service/config"
	"github.com/stacksmith/stackcard/service/metrics"
	"github.com/stacksmith/stackcard/service/stacks"
)

// Reason is why a payment claim was rejected.
type Reason string

const (
	ReasonNotFound           Reason = "not-found"
	ReasonWrongStatus        Reason = "wrong-status"
	ReasonWrongOperationKind Reason = "wrong-operation-kind"
	ReasonWrongContract      Reason = "wrong-target-contract"
	ReasonWrongAmount        Reason = "wrong-amount"
	ReasonLookupError        Reason = "lookup-error"
)

// Verdict is the outcome of verifying one payment claim. Verdicts are
// computed fresh per request; nothing is cached or remembered.
// A claim that fails txid normalization is classified not-found without a
// chain lookup; Detail names the malformation rather than a lookup miss.
type Verdict struct {
	Valid  bool
	TxID   string // normalized txid, set when normalization succeeded
	Payer  string // tx sender, set when Valid
	Reason Reason // set when !Valid
	Detail string // human-readable context for the reason
}

var txidHexRegex = regexp.MustCompile(`^[0-9a-f]{64}$`)

// NormalizeTxID canonicalizes a caller-supplied transaction reference to
// lowercase "0x" + 64 hex characters.
func NormalizeTxID(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "0x")
	if !txidHexRegex.MatchString(s) {
		return "", fmt.Errorf("invalid transaction id: expected 64 hex characters")
	}
	return "0x" + s, nil
}

// TransactionFetcher is the single chain operation verification needs.
type TransactionFetcher interface {
	GetTransaction(ctx context.Context, txid string) (*stacks.Transaction, error)
}

// Verifier checks that a claimed transaction represents a completed,
// correctly-addressed payment to the configured contract.
type Verifier struct {
	chain   TransactionFetcher
	cfg     *config.PaymentConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewVerifier creates a new payment verifier.
// If m is nil, no metrics will be recorded.
func NewVerifier(chain TransactionFetcher, cfg *config.PaymentConfig, m *metrics.Metrics, logger *slog.Logger) *Verifier {
	return &Verifier{chain: chain, cfg: cfg, metrics: m, logger: logger}
}

// Verify normalizes the claim, looks up the referenced transaction, and
// classifies it. A lookup transport failure is itself Invalid(lookup-error);
// it is never treated as payment accepted.
func (v *Verifier) Verify(ctx context.Context, claim string) Verdict {
	verdict := v.verify(ctx, claim)
	if v.metrics != nil {
		label := "valid"
		if !verdict.Valid {
			label = string(verdict.Reason)
		}
		v.metrics.RecordPaymentVerdict(label)
	}
	return verdict
}

func (v *Verifier) verify(ctx context.Context, claim string) Verdict {
	txid, err := NormalizeTxID(claim)
	if err != nil {
		v.logger.DebugContext(ctx, "malformed payment claim", "error", err)
		return Verdict{Reason: ReasonNotFound, Detail: err.Error()}
	}

	tx, err := v.chain.GetTransaction(ctx, txid)
	if err != nil {
		if errors.Is(err, stacks.ErrTxNotFound) {
			return Verdict{TxID: txid, Reason: ReasonNotFound, Detail: "transaction not found on chain"}
		}
		v.logger.ErrorContext(ctx, "payment lookup failed", "txid", txid, "error", err)
		return Verdict{TxID: txid, Reason: ReasonLookupError, Detail: "could not confirm transaction; try again"}
	}

	if tx.Status != "success" {
		return Verdict{TxID: txid, Reason: ReasonWrongStatus,
			Detail: fmt.Sprintf("transaction status is %q, expected \"success\"", tx.Status)}
	}

	if tx.Type != "contract_call" || tx.ContractCall == nil {
		return Verdict{TxID: txid, Reason: ReasonWrongOperationKind,
			Detail: fmt.Sprintf("transaction type is %q, expected a contract call", tx.Type)}
	}

	if tx.ContractCall.ContractID != v.cfg.ContractID {
		return Verdict{TxID: txid, Reason: ReasonWrongContract,
			Detail: fmt.Sprintf("transaction calls %q, expected %q", tx.ContractCall.ContractID, v.cfg.ContractID)}
	}

	if v.cfg.EnforceAmount {
		paid := stxTransferredTo(tx, v.cfg.Recipient)
		if paid < v.cfg.PriceMicroSTX {
			return Verdict{TxID: txid, Reason: ReasonWrongAmount,
				Detail: fmt.Sprintf("transaction paid %d micro-STX, expected at least %d", paid, v.cfg.PriceMicroSTX)}
		}
	}

	v.logger.InfoContext(ctx, "payment verified",
		"txid", txid,
		"payer", tx.SenderAddress,
		"contract", v.cfg.ContractID,
	)
	return Verdict{Valid: true, TxID: txid, Payer: tx.SenderAddress}
}

// stxTransferredTo sums the STX transfer events addressed to recipient.
// Unparseable event amounts are skipped.
func stxTransferredTo(tx *stacks.Transaction, recipient string) int64 {
	var total int64
	for _, ev := range tx.Events {
		if ev.EventType != "stx_asset" || ev.Asset == nil {
			continue
		}
		if ev.Asset.AssetEventType != "transfer" || ev.Asset.Recipient != recipient {
			continue
		}
		amount, err := strconv.ParseInt(ev.Asset.Amount, 10, 64)
		if err != nil {
			continue
		}
		total += amount
	}
	return total
}
