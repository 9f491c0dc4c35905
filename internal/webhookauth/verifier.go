package webhookauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

const (
	// Signature header sent by the payment provider: hex HMAC-SHA256 of the
	// raw request body under the shared webhook secret.
	SignatureHeader = "X-Webhook-Signature"

	// Secret token header set by Telegram when the webhook is registered
	// with a secret_token.
	TelegramTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
)

type Result struct {
	OK     bool
	Reason string
}

// Verifier authenticates an inbound webhook before any processing. A failed
// check must leave no state behind, not even an idempotency record.
type Verifier interface {
	Verify(r *http.Request, body []byte) Result
}

// --------------------------------------------------
// HMAC (payment provider)
// --------------------------------------------------

type HMACVerifier struct {
	secret []byte
	header string
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{
		secret: []byte(secret),
		header: SignatureHeader,
	}
}

func (v *HMACVerifier) Verify(r *http.Request, body []byte) Result {
	if len(v.secret) == 0 {
		return Result{OK: false, Reason: "secret_not_configured"}
	}

	got := r.Header.Get(v.header)
	if got == "" {
		return Result{OK: false, Reason: "missing_signature"}
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(got), []byte(want)) {
		return Result{OK: false, Reason: "invalid_signature"}
	}

	return Result{OK: true}
}

// --------------------------------------------------
// Secret token (telegram)
// --------------------------------------------------

type SecretTokenVerifier struct {
	token  string
	header string
}

func NewSecretTokenVerifier(token string) *SecretTokenVerifier {
	return &SecretTokenVerifier{
		token:  token,
		header: TelegramTokenHeader,
	}
}

func (v *SecretTokenVerifier) Verify(r *http.Request, _ []byte) Result {
	if v.token == "" {
		return Result{OK: false, Reason: "secret_not_configured"}
	}

	got := r.Header.Get(v.header)
	if subtle.ConstantTimeCompare([]byte(got), []byte(v.token)) != 1 {
		return Result{OK: false, Reason: "invalid_secret_token"}
	}

	return Result{OK: true}
}

// Compile-time checks
var (
	_ Verifier = (*HMACVerifier)(nil)
	_ Verifier = (*SecretTokenVerifier)(nil)
)
