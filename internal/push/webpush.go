package push

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const (
	recordSize = 4096
	vapidTTL   = 12 * time.Hour
)

// Signer produces ES256 signatures for VAPID tokens.
type Signer interface {
	// Sign signs a SHA-256 digest and returns the IEEE P1363 (r || s) signature.
	Sign(ctx context.Context, digest []byte) ([]byte, error)
	// PublicKey returns the uncompressed P-256 public key.
	PublicKey() []byte
}

// Options are the per-message push service headers.
type Options struct {
	TTL     int
	Urgency string
	Topic   string
}

// SendError is returned when the push service answers with a non-2xx status.
type SendError struct {
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("push service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("push service returned %d: %s", e.StatusCode, e.Body)
}

// Gone reports whether the push service no longer knows the subscription.
func (e *SendError) Gone() bool {
	return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone
}

// Client sends encrypted, VAPID-authenticated messages to push services.
type Client struct {
	signer     Signer
	httpClient *http.Client
	subject    string
	defaultTTL int
}

// NewClient creates a push client. subject is the VAPID contact (mailto: or https: URL).
func NewClient(signer Signer, subject string, defaultTTL int) *Client {
	return &Client{
		signer:     signer,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		subject:    subject,
		defaultTTL: defaultTTL,
	}
}

// WithHTTPClient sets a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.httpClient = httpClient
	return c
}

// PublicKey returns the VAPID application server key, URL-safe base64 without padding.
func (c *Client) PublicKey() string {
	return base64.RawURLEncoding.EncodeToString(c.signer.PublicKey())
}

// Send encrypts payload for sub and posts it to the subscription endpoint.
func (c *Client) Send(ctx context.Context, sub Subscription, payload []byte, opts Options) error {
	if sub.Keys == nil {
		return ErrMissingKeys
	}
	if opts.TTL == 0 {
		opts.TTL = c.defaultTTL
	}

	body, err := Encrypt(*sub.Keys, payload)
	if err != nil {
		return fmt.Errorf("encrypting payload: %w", err)
	}

	authorization, err := c.vapidHeader(ctx, sub.Endpoint)
	if err != nil {
		return fmt.Errorf("creating VAPID header: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Content-Encoding", "aes128gcm")
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("TTL", strconv.Itoa(opts.TTL))
	if opts.Urgency != "" {
		req.Header.Set("Urgency", opts.Urgency)
	}
	if opts.Topic != "" {
		req.Header.Set("Topic", opts.Topic)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &SendError{StatusCode: resp.StatusCode, Body: string(msg)}
	}
	return nil
}

// Encrypt produces an RFC 8291 aes128gcm body: salt(16) || rs(4) || idlen(1) || keyid(65) || ciphertext.
func Encrypt(keys Keys, plaintext []byte) ([]byte, error) {
	if len(plaintext) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}

	p256dh, err := DecodeKey(keys.P256dh)
	if err != nil {
		return nil, fmt.Errorf("decoding p256dh: %w", err)
	}
	authSecret, err := DecodeKey(keys.Auth)
	if err != nil {
		return nil, fmt.Errorf("decoding auth: %w", err)
	}

	clientPub, err := ecdh.P256().NewPublicKey(p256dh)
	if err != nil {
		return nil, fmt.Errorf("parsing client public key: %w", err)
	}
	serverPriv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating server key: %w", err)
	}
	serverPub := serverPriv.PublicKey().Bytes()

	shared, err := serverPriv.ECDH(clientPub)
	if err != nil {
		return nil, fmt.Errorf("computing shared secret: %w", err)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}

	cek, nonce, err := deriveKeys(shared, authSecret, salt, clientPub.Bytes(), serverPub)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	// 0x02 marks the last (and only) record.
	padded := make([]byte, 0, len(plaintext)+1)
	padded = append(padded, plaintext...)
	padded = append(padded, 0x02)
	ciphertext := gcm.Seal(nil, nonce, padded, nil)

	out := make([]byte, 0, 16+4+1+len(serverPub)+len(ciphertext))
	out = append(out, salt...)
	out = binary.BigEndian.AppendUint32(out, recordSize)
	out = append(out, byte(len(serverPub)))
	out = append(out, serverPub...)
	return append(out, ciphertext...), nil
}

// deriveKeys runs the RFC 8291 key schedule and returns the content encryption key and nonce.
func deriveKeys(shared, authSecret, salt, clientPub, serverPub []byte) (cek, nonce []byte, err error) {
	keyInfo := make([]byte, 0, 14+len(clientPub)+len(serverPub))
	keyInfo = append(keyInfo, "WebPush: info\x00"...)
	keyInfo = append(keyInfo, clientPub...)
	keyInfo = append(keyInfo, serverPub...)

	ikm := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, authSecret, keyInfo), ikm); err != nil {
		return nil, nil, fmt.Errorf("deriving IKM: %w", err)
	}

	cek = make([]byte, 16)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte("Content-Encoding: aes128gcm\x00")), cek); err != nil {
		return nil, nil, fmt.Errorf("deriving CEK: %w", err)
	}
	nonce = make([]byte, 12)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte("Content-Encoding: nonce\x00")), nonce); err != nil {
		return nil, nil, fmt.Errorf("deriving nonce: %w", err)
	}
	return cek, nonce, nil
}

// vapidHeader builds the RFC 8292 Authorization header for endpoint's origin.
func (c *Client) vapidHeader(ctx context.Context, endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("endpoint must be an absolute URL")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"aud": u.Scheme + "://" + u.Host,
		"exp": time.Now().Add(vapidTTL).Unix(),
		"sub": c.subject,
	})
	signingInput, err := token.SigningString()
	if err != nil {
		return "", fmt.Errorf("encoding JWT: %w", err)
	}
	digest := sha256.Sum256([]byte(signingInput))

	sig, err := c.signer.Sign(ctx, digest[:])
	if err != nil {
		return "", fmt.Errorf("signing JWT: %w", err)
	}

	signed := signingInput + "." + base64.RawURLEncoding.EncodeToString(sig)
	return "vapid t=" + signed + ", k=" + c.PublicKey(), nil
}
