package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"

	"github.com/stacksmith/stackcard/service/config"
	"github.com/stacksmith/stackcard/service/stacks"
)

// Challenge is the 402 payload instructing the caller how to pay and what to
// retry with. It embeds the already-computed wallet record and prompt so the
// caller sees exactly what the paid call will render.
type Challenge struct {
	Error        string              `json:"error"`
	Code         string              `json:"code"`
	Resource     string              `json:"resource"`
	Payment      PaymentDetails      `json:"payment"`
	Instructions []string            `json:"instructions"`
	Nonce        string              `json:"nonce"`
	ExpiresAt    time.Time           `json:"expiresAt"`
	Description  string              `json:"description"`
	WalletData   stacks.WalletRecord `json:"walletData"`
	Prompt       string              `json:"prompt"`
	QRCodeData   string              `json:"qr_code_data,omitempty"`
}

// PaymentDetails names the expected payment target and mechanism.
type PaymentDetails struct {
	Contract  string `json:"contract"`
	Function  string `json:"function"`
	Price     string `json:"price"` // micro-STX
	Token     string `json:"token"`
	Recipient string `json:"recipient"`
	Network   string `json:"network"`
}

// newChallenge creates the payment challenge for a card request that arrived
// without proof.
func newChallenge(cfg *config.PaymentConfig, network, resource string, rec stacks.WalletRecord, promptText string) Challenge {
	nonce := uuid.New().String()
	now := time.Now()
	priceSTX := decimal.NewFromInt(cfg.PriceMicroSTX).Shift(-6).String()

	details := PaymentDetails{
		Contract:  cfg.ContractID,
		Function:  cfg.FunctionName,
		Price:     strconv.FormatInt(cfg.PriceMicroSTX, 10),
		Token:     "STX",
		Recipient: cfg.Recipient,
		Network:   network,
	}

	// QR code carrying the compact payment descriptor, for wallet apps.
	// Optional: a QR failure never blocks the challenge.
	qrData := ""
	if descriptor, err := json.Marshal(details); err == nil {
		if png, err := qrcode.Encode(string(descriptor), qrcode.Medium, 256); err == nil {
			qrData = base64.StdEncoding.EncodeToString(png)
		}
	}

	return Challenge{
		Error:    "payment required",
		Code:     "payment_required",
		Resource: resource,
		Payment:  details,
		Instructions: []string{
			fmt.Sprintf("Call %s.%s on %s with %s STX (%s micro-STX).",
				cfg.ContractID, cfg.FunctionName, network, priceSTX, details.Price),
			"Wait for the transaction to reach success status.",
			fmt.Sprintf("Retry this request with the transaction id in the %s header.", paymentProofHeader),
		},
		Nonce:     nonce,
		ExpiresAt: now.Add(cfg.ChallengeTTL),
		Description: fmt.Sprintf(
			"Pay %s STX to render this wallet's card. Proof is checked against the chain on every request; the service stores nothing.",
			priceSTX),
		WalletData: rec,
		Prompt:     promptText,
		QRCodeData: qrData,
	}
}
