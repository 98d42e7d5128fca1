package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/stacksmith/stackcard/service/config"
	"github.com/stacksmith/stackcard/service/imagegen"
	"github.com/stacksmith/stackcard/service/metrics"
	"github.com/stacksmith/stackcard/service/prompt"
	"github.com/stacksmith/stackcard/service/stacks"
)

// paymentProofHeader carries the caller's payment claim. Presence of any
// value, even malformed, routes the request into verification rather than
// re-challenging.
const paymentProofHeader = "X-Payment-Txid"

// Response headers on a successful card.
const (
	headerWalletAddress   = "X-Wallet-Address"
	headerWalletName      = "X-Wallet-Name"
	headerPaymentVerified = "X-Payment-Verified"

	// Marker when the address has no registered name.
	noNameMarker = "none"
)

// handleGetData returns a handler that serves the aggregated wallet record.
// GET /data/{address}
func handleGetData(aggregator walletAggregator, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		if err := stacks.ValidateAddress(address); err != nil {
			logger.Debug("invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		rec := aggregator.Aggregate(r.Context(), address)
		writeJSON(w, rec, http.StatusOK)
	})
}

// handleGetPrompt returns a handler that serves the prompt preview for an
// address. The prompt shown here is byte-identical to the one a paid /card
// call would render.
// GET /prompt/{address}
func handleGetPrompt(aggregator walletAggregator, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		if err := stacks.ValidateAddress(address); err != nil {
			logger.Debug("invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		rec := aggregator.Aggregate(r.Context(), address)
		writeJSON(w, map[string]any{
			"walletData": rec,
			"prompt":     prompt.Build(rec),
			"note":       "this is exactly the prompt a paid /card call renders",
		}, http.StatusOK)
	})
}

// handleGetCard returns the handler for the paid card route. The request
// moves through: validate -> aggregate -> challenge or verify -> generate.
// Address validation always runs first so a malformed target never costs a
// verification lookup.
// GET /card/{address}
func handleGetCard(cfg *config.Config, aggregator walletAggregator, verifier paymentVerifier, generator cardGenerator, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		if err := stacks.ValidateAddress(address); err != nil {
			logger.Debug("invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		// The record and prompt are computed before branching on payment so
		// the challenge can embed the same data the paid path uses.
		rec := aggregator.Aggregate(r.Context(), address)
		promptText := prompt.Build(rec)

		claim := r.Header.Get(paymentProofHeader)
		if claim == "" {
			challenge := newChallenge(&cfg.Payment, cfg.Network, r.URL.Path, rec, promptText)
			logger.Info("issued payment challenge", "address", address, "nonce", challenge.Nonce)
			writeJSON(w, challenge, http.StatusPaymentRequired)
			return
		}

		verdict := verifier.Verify(r.Context(), claim)
		if !verdict.Valid {
			logger.Info("rejected payment claim",
				"address", address,
				"reason", verdict.Reason,
			)
			writeJSON(w, map[string]any{
				"error":   "payment verification failed",
				"details": map[string]any{"reason": verdict.Reason, "message": verdict.Detail},
			}, http.StatusForbidden)
			return
		}

		img, err := generator.Generate(r.Context(), promptText)
		if err != nil {
			var payErr *imagegen.PaymentRequiredError
			if errors.As(err, &payErr) {
				// The generator runs its own payment layer; pass its demand
				// through, enriched with the data already computed here.
				if m != nil {
					m.RecordCardGenerated("upstream_payment_required")
				}
				// The upstream body is not always JSON; wrap anything else as
				// a JSON string so the envelope still encodes.
				upstream := payErr.Body
				if !json.Valid(upstream) {
					upstream, _ = json.Marshal(string(payErr.Body))
				}
				writeJSON(w, map[string]any{
					"error":      "image generator requires payment",
					"code":       "upstream_payment_required",
					"upstream":   upstream,
					"walletData": rec,
					"prompt":     promptText,
				}, http.StatusPaymentRequired)
				return
			}

			// The one state where the caller has paid but received nothing;
			// the response must make recovery/support possible.
			logger.Error("card generation failed after payment",
				"address", address,
				"txid", verdict.TxID,
				"error", err,
			)
			if m != nil {
				m.RecordCardGenerated("error")
			}
			writeJSON(w, map[string]any{
				"error":            "card generation failed",
				"details":          err.Error(),
				"walletData":       rec,
				"prompt":           promptText,
				"payment_received": true,
				"payment_txid":     verdict.TxID,
			}, http.StatusInternalServerError)
			return
		}

		if m != nil {
			m.RecordCardGenerated("success")
		}
		logger.Info("card generated",
			"address", address,
			"payer", verdict.Payer,
			"txid", verdict.TxID,
			"bytes", len(img),
		)

		name := rec.Name
		if name == "" {
			name = noNameMarker
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set(headerWalletAddress, rec.Address)
		w.Header().Set(headerWalletName, name)
		w.Header().Set(headerPaymentVerified, "true")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		w.Write(img)
	})
}

// writeJSON writes a JSON response. The payload is encoded before the status
// line is written so an encoding failure still yields the error envelope
// instead of an empty body.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to encode response payload", "error", err)
		writeError(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(body)
}

// writeError writes a JSON error response using the uniform error envelope.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
