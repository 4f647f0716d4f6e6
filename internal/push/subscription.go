// Package push implements the Web Push side of the server: subscription
// validation, notification payload construction and the encrypted,
// VAPID-authenticated transport to browser push services.
package push

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Fixed key sizes from RFC 8291: an uncompressed P-256 point and a 16 byte auth secret.
const (
	P256dhKeyLength = 65
	AuthKeyLength   = 16
)

var (
	ErrInvalidSubscription = errors.New("invalid subscription")
	ErrMissingKeys         = errors.New("missing subscription keys")
	ErrInvalidKeyLength    = errors.New("invalid key length")
	ErrMalformedBase64     = errors.New("malformed base64")
)

// Subscription is a browser PushSubscription as serialized by PushSubscription.toJSON().
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     *Keys  `json:"keys"`
}

// Keys holds the subscription's encryption parameters, URL-safe base64 encoded.
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// ValidationError describes why a subscription or notification was rejected.
// It matches the package sentinel errors with errors.Is.
type ValidationError struct {
	Err    error
	Field  string
	Length int
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case errors.Is(e.Err, ErrInvalidKeyLength):
		return fmt.Sprintf("%s: %s must decode to %s, got %d bytes", e.Err, e.Field, e.Reason, e.Length)
	case e.Field != "" && e.Reason != "":
		return fmt.Sprintf("%s: %s %s", e.Err, e.Field, e.Reason)
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", e.Err, e.Reason)
	default:
		return e.Err.Error()
	}
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateSubscription checks that a subscription is structurally complete and
// that its keys decode to the sizes required for payload encryption. It has no
// side effects.
func ValidateSubscription(sub Subscription) error {
	if sub.Endpoint == "" {
		return &ValidationError{Err: ErrInvalidSubscription, Field: "endpoint", Reason: "is required"}
	}
	if sub.Keys == nil {
		return &ValidationError{Err: ErrInvalidSubscription, Field: "keys", Reason: "are required"}
	}
	if err := validateEndpoint(sub.Endpoint); err != nil {
		return err
	}
	if sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		missing := "p256dh"
		if sub.Keys.P256dh != "" {
			missing = "auth"
		}
		return &ValidationError{Err: ErrMissingKeys, Field: missing, Reason: "is required"}
	}

	if err := checkKeyLength("p256dh", sub.Keys.P256dh, P256dhKeyLength); err != nil {
		return err
	}
	return checkKeyLength("auth", sub.Keys.Auth, AuthKeyLength)
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return &ValidationError{Err: ErrInvalidSubscription, Field: "endpoint", Reason: "must be an absolute https URL"}
	}
	return nil
}

func checkKeyLength(field, value string, want int) error {
	raw, err := DecodeKey(value)
	if err != nil {
		return &ValidationError{Err: ErrMalformedBase64, Field: field, Reason: err.Error()}
	}
	if len(raw) != want {
		return &ValidationError{
			Err:    ErrInvalidKeyLength,
			Field:  field,
			Length: len(raw),
			Reason: fmt.Sprintf("%d bytes", want),
		}
	}
	return nil
}

// DecodeKey decodes a URL-safe base64 key, with or without padding.
func DecodeKey(s string) ([]byte, error) {
	s = strings.NewReplacer("-", "+", "_", "/").Replace(strings.TrimSpace(s))
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
