// Package keys provides VAPID signers backed by local key material or Cloud KMS.
package keys

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
)

var ErrUnsupportedCurve = errors.New("key must be on the P-256 curve")

// LocalSigner signs VAPID tokens with an in-memory P-256 private key.
type LocalSigner struct {
	privateKey *ecdsa.PrivateKey
	publicKey  []byte
}

func newLocalSigner(priv *ecdsa.PrivateKey) (*LocalSigner, error) {
	if priv.Curve != elliptic.P256() {
		return nil, ErrUnsupportedCurve
	}
	pub, err := priv.PublicKey.ECDH()
	if err != nil {
		return nil, fmt.Errorf("converting public key: %w", err)
	}
	return &LocalSigner{privateKey: priv, publicKey: pub.Bytes()}, nil
}

// NewFileSigner loads an EC private key from a PEM file.
func NewFileSigner(path string) (*LocalSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading private key file: %w", err)
	}
	return ParsePEM(data)
}

// ParsePEM parses a PEM encoded "EC PRIVATE KEY" or PKCS#8 block.
func ParsePEM(data []byte) (*LocalSigner, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to parse PEM block")
	}

	if priv, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return newLocalSigner(priv)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	priv, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not ECDSA")
	}
	return newLocalSigner(priv)
}

// NewSignerFromBase64 builds a signer from a URL-safe base64 32 byte private scalar,
// the format printed by most VAPID key generators.
func NewSignerFromBase64(privateKey string) (*LocalSigner, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(privateKey, "="))
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(raw))
	}

	priv := new(ecdsa.PrivateKey)
	priv.Curve = elliptic.P256()
	priv.D = new(big.Int).SetBytes(raw)
	priv.X, priv.Y = priv.Curve.ScalarBaseMult(raw)
	return newLocalSigner(priv)
}

// Sign signs digest and returns the signature as r || s, 32 bytes each.
func (s *LocalSigner) Sign(_ context.Context, digest []byte) ([]byte, error) {
	r, sv, err := ecdsa.Sign(rand.Reader, s.privateKey, digest)
	if err != nil {
		return nil, fmt.Errorf("signing: %w", err)
	}
	return p1363(r, sv), nil
}

// PublicKey returns the uncompressed public key.
func (s *LocalSigner) PublicKey() []byte {
	return s.publicKey
}

// ECDSAPublicKey exposes the public key for signature verification.
func (s *LocalSigner) ECDSAPublicKey() *ecdsa.PublicKey {
	return &s.privateKey.PublicKey
}

// KeyPair is a freshly generated VAPID key pair.
type KeyPair struct {
	PrivateKey string // URL-safe base64, 32 bytes
	PublicKey  string // URL-safe base64, 65 bytes uncompressed
	PEM        []byte
}

// GenerateKeyPair creates a new P-256 VAPID key pair.
func GenerateKeyPair() (KeyPair, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generating key: %w", err)
	}
	signer, err := newLocalSigner(priv)
	if err != nil {
		return KeyPair{}, err
	}

	der, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return KeyPair{}, fmt.Errorf("marshaling private key: %w", err)
	}

	scalar := make([]byte, 32)
	priv.D.FillBytes(scalar)

	return KeyPair{
		PrivateKey: base64.RawURLEncoding.EncodeToString(scalar),
		PublicKey:  base64.RawURLEncoding.EncodeToString(signer.publicKey),
		PEM:        pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}),
	}, nil
}

func p1363(r, s *big.Int) []byte {
	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	return sig
}
