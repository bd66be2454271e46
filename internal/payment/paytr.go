package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Config holds the PayTR merchant credentials. The key and salt are server
// secrets: they feed the keyed hashes below and must never appear in logs or
// responses.
type Config struct {
	MerchantID   string
	MerchantKey  string
	MerchantSalt string
	Currency     string
}

// AckToken is the plaintext body PayTR expects for an accepted callback.
// Anything else makes the provider redeliver.
const AckToken = "OK"

const merchantOIDPrefix = "LP"

var (
	ErrInvalidSignature  = errors.New("invalid callback signature")
	ErrMalformedCallback = errors.New("malformed callback payload")
	ErrUnknownOrder      = errors.New("unknown merchant order")
	ErrOrderNotPayable   = errors.New("order is not payable")
	ErrAmountMismatch    = errors.New("order amount changed since initiation")
)

// MerchantOrderID derives the external correlation key from the internal
// order id. It is deterministic so repeated initiations of the same order
// reuse one identifier.
func MerchantOrderID(orderID int) string {
	return fmt.Sprintf("%s%08d", merchantOIDPrefix, orderID)
}

// ParseMerchantOrderID recovers the internal order id from a merchant oid.
func ParseMerchantOrderID(oid string) (int, error) {
	if !strings.HasPrefix(oid, merchantOIDPrefix) {
		return 0, fmt.Errorf("merchant oid %q: bad prefix", oid)
	}
	id, err := strconv.Atoi(strings.TrimPrefix(oid, merchantOIDPrefix))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("merchant oid %q: bad order id", oid)
	}
	return id, nil
}

// InitiationToken computes the provider integrity token for an initiation
// request: HMAC over the ordered concatenation of merchant id, merchant oid,
// amount, currency and the merchant salt, keyed with the merchant key.
func (cfg Config) InitiationToken(merchantOID string, amountCents int64) string {
	payload := cfg.MerchantID + merchantOID + strconv.FormatInt(amountCents, 10) + cfg.Currency + cfg.MerchantSalt
	return signHMAC(payload, cfg.MerchantKey)
}

// CallbackHash computes the hash PayTR sends with a callback:
// HMAC(merchant_oid + merchant_salt + status + total_amount, merchant_key),
// base64-encoded. Recomputed server-side before any state is touched.
func (cfg Config) CallbackHash(merchantOID, status, totalAmount string) string {
	payload := merchantOID + cfg.MerchantSalt + status + totalAmount
	return signHMAC(payload, cfg.MerchantKey)
}

func signHMAC(payload, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Callback carries the untrusted provider POST. All fields arrive as form
// strings; TotalAmount stays a string until it passed validation because the
// signature is computed over the raw value.
type Callback struct {
	MerchantOID      string `form:"merchant_oid" json:"merchant_oid" validate:"required"`
	Status           string `form:"status" json:"status" validate:"required,oneof=success failed"`
	TotalAmount      string `form:"total_amount" json:"total_amount" validate:"required"`
	Hash             string `form:"hash" json:"hash" validate:"required"`
	FailedReasonCode string `form:"failed_reason_code" json:"failed_reason_code,omitempty"`
	FailedReasonMsg  string `form:"failed_reason_msg" json:"failed_reason_msg,omitempty"`
}

// EventHash is the deduplication key component: stable across retried
// deliveries of the same provider event, different for a redelivery that
// changed status or amount.
func (cb Callback) EventHash() string {
	sum := sha256.Sum256([]byte(cb.MerchantOID + "|" + cb.Status + "|" + cb.TotalAmount))
	return hex.EncodeToString(sum[:])
}

// AmountCents parses the provider amount (integer kuruş).
func (cb Callback) AmountCents() (int64, error) {
	v, err := strconv.ParseInt(cb.TotalAmount, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: total_amount %q", ErrMalformedCallback, cb.TotalAmount)
	}
	return v, nil
}

// VerifySignature recomputes the expected hash and compares in constant
// time.
func (cfg Config) VerifySignature(cb Callback) error {
	expected := cfg.CallbackHash(cb.MerchantOID, cb.Status, cb.TotalAmount)
	if !hmac.Equal([]byte(expected), []byte(cb.Hash)) {
		return ErrInvalidSignature
	}
	return nil
}
