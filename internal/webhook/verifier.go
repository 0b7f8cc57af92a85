package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nadhifgr/learnsphere/internal/errs"
	"github.com/stripe/stripe-go/v82"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"
)

const identityTimestampTolerance = 5 * time.Minute

// IdentityVerifier checks identity-provider webhook deliveries. The provider
// signs the concatenation "<msg id>.<timestamp>.<raw body>" with HMAC-SHA256
// using the shared secret, and sends the result base64-encoded in the
// signature header as one or more space-separated "v1,<sig>" entries.
//
// Verification must run over the exact bytes received; re-serializing a
// parsed body changes whitespace and field order and breaks the signature.
type IdentityVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewIdentityVerifier(secret string) (*IdentityVerifier, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return nil, fmt.Errorf("invalid identity webhook secret: %v", err)
	}
	return &IdentityVerifier{secret: key, now: time.Now}, nil
}

// Verify returns the parsed event only after the signature checks out.
func (v *IdentityVerifier) Verify(payload []byte, msgID, timestamp, signature string) (*IdentityEvent, error) {
	if msgID == "" || timestamp == "" || signature == "" {
		return nil, fmt.Errorf("%w: missing signature headers", errs.ErrAuthentication)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed timestamp", errs.ErrAuthentication)
	}
	age := v.now().Sub(time.Unix(ts, 0))
	if age > identityTimestampTolerance || age < -identityTimestampTolerance {
		return nil, fmt.Errorf("%w: timestamp outside tolerance", errs.ErrAuthentication)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(msgID))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, candidate := range strings.Split(signature, " ") {
		version, sig, found := strings.Cut(candidate, ",")
		if !found || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return ParseIdentityEvent(payload)
		}
	}

	return nil, fmt.Errorf("%w: no matching signature", errs.ErrAuthentication)
}

// PaymentVerifier checks payment-provider deliveries using the provider's
// signature header and endpoint secret.
type PaymentVerifier struct {
	secret string
}

func NewPaymentVerifier(secret string) *PaymentVerifier {
	return &PaymentVerifier{secret: secret}
}

func (v *PaymentVerifier) Verify(payload []byte, sigHeader string) (stripe.Event, error) {
	event, err := stripewebhook.ConstructEventWithOptions(payload, sigHeader, v.secret, stripewebhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", errs.ErrAuthentication, err)
	}
	return event, nil
}
