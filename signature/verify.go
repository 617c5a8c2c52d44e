// Package signature implements the Signature Verifier (spec.md §4.3): a
// replay-resistant keyed-hash signature scheme over a canonicalized request,
// with timestamp freshness and body-integrity checks. Pure given a secret;
// the only external input is the injected clock.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/jmazzahacks/api-gatekeeper/clock"
	"github.com/jmazzahacks/api-gatekeeper/model"
)

// DefaultTolerance is the freshness tolerance used when none is configured.
const DefaultTolerance = 300 * time.Second

// Candidate is one (client, secret) pair the verifier may try. The scan path
// (spec.md §4.3 "Secret discovery") iterates a bounded set of these; the
// indexed path passes exactly one.
type Candidate struct {
	ClientID string
	Secret   string
}

// Sign computes the lowercase-hex HMAC-SHA256 of the canonical string, using
// secret as the key. It is the inverse operation exercised by tests acting as
// a signer, and is also what the verifier recomputes internally.
func Sign(req CanonicalRequest, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(req.CanonicalString()))
	return hex.EncodeToString(mac.Sum(nil))
}

// constantTimeHexEqual compares two hex strings without leaking timing
// information through a length-dependent or early-exit comparison. Unequal
// lengths fail immediately, as permitted by spec.md §4.3 ("unequal lengths
// fail immediately"); equal lengths are compared via subtle.ConstantTimeCompare,
// which never short-circuits on the first differing byte.
func constantTimeHexEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Result is the outcome of a Verify call.
type Result struct {
	OK bool
	// ClientID identifies the owning client on success.
	ClientID string
	// Reason is one of ReasonInvalidSignature, ReasonSignatureExpired, or
	// ReasonBodyTampered on failure; zero value on success.
	Reason model.ReasonTag
}

// Verify attempts to authenticate req against supplied (the signature bundle
// as received: hex signature, decimal timestamp string, hex body hash) by
// trying each candidate in turn. It returns the first candidate for which all
// three checks pass. now and tol implement the freshness window; clk is
// accepted instead of calling time.Now directly so tests can freeze time.
func Verify(
	req CanonicalRequest,
	suppliedSignature, suppliedBodyHash string,
	candidates []Candidate,
	clk clock.Clock,
	tol time.Duration,
) Result {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	now := clk.Now()

	sawSignatureMatch := false
	var bestFailure model.ReasonTag

	for _, c := range candidates {
		expectedSig := Sign(req, c.Secret)
		if !constantTimeHexEqual(expectedSig, suppliedSignature) {
			continue
		}
		sawSignatureMatch = true

		if !freshTimestamp(req.Timestamp, now, tol) {
			bestFailure = model.ReasonSignatureExpired
			continue
		}

		expectedBodyHash := BodyHash(req.Body)
		if !constantTimeHexEqual(expectedBodyHash, suppliedBodyHash) {
			bestFailure = model.ReasonBodyTampered
			continue
		}

		return Result{OK: true, ClientID: c.ClientID}
	}

	if !sawSignatureMatch {
		return Result{Reason: model.ReasonInvalidSignature}
	}
	return Result{Reason: bestFailure}
}

// freshTimestamp reports whether the request timestamp (integer seconds, as
// received) is within tol of now.
func freshTimestamp(raw string, now time.Time, tol time.Duration) bool {
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	ts := time.Unix(sec, 0)
	delta := now.Sub(ts)
	if delta < 0 {
		delta = -delta
	}
	return delta <= tol
}
