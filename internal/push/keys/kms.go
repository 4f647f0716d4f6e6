package keys

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"

	kms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"
)

// KMSSigner signs VAPID tokens with an EC_SIGN_P256_SHA256 key held in Cloud KMS.
type KMSSigner struct {
	client    *kms.KeyManagementClient
	keyName   string
	publicKey []byte
}

// NewKMSSigner fetches the public half of keyName, a full cryptoKeyVersions resource name.
func NewKMSSigner(ctx context.Context, keyName string) (*KMSSigner, error) {
	client, err := kms.NewKeyManagementClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating KMS client: %w", err)
	}

	resp, err := client.GetPublicKey(ctx, &kmspb.GetPublicKeyRequest{Name: keyName})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("getting public key: %w", err)
	}

	pub, err := parsePublicKeyPEM([]byte(resp.Pem))
	if err != nil {
		client.Close()
		return nil, err
	}

	return &KMSSigner{client: client, keyName: keyName, publicKey: pub}, nil
}

func parsePublicKeyPEM(data []byte) ([]byte, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to parse public key PEM")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	ecPub, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("key is not ECDSA")
	}
	pub, err := ecPub.ECDH()
	if err != nil {
		return nil, ErrUnsupportedCurve
	}
	if len(pub.Bytes()) != 65 {
		return nil, ErrUnsupportedCurve
	}
	return pub.Bytes(), nil
}

// Sign asks KMS to sign digest and converts the DER signature to r || s.
func (s *KMSSigner) Sign(ctx context.Context, digest []byte) ([]byte, error) {
	resp, err := s.client.AsymmetricSign(ctx, &kmspb.AsymmetricSignRequest{
		Name: s.keyName,
		Digest: &kmspb.Digest{
			Digest: &kmspb.Digest_Sha256{Sha256: digest},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("signing with KMS: %w", err)
	}
	return derToP1363(resp.Signature)
}

// PublicKey returns the uncompressed public key.
func (s *KMSSigner) PublicKey() []byte {
	return s.publicKey
}

// Close closes the KMS client.
func (s *KMSSigner) Close() error {
	return s.client.Close()
}

func derToP1363(der []byte) ([]byte, error) {
	var sig struct {
		R, S *big.Int
	}
	if _, err := asn1.Unmarshal(der, &sig); err != nil {
		return nil, fmt.Errorf("parsing DER signature: %w", err)
	}
	return p1363(sig.R, sig.S), nil
}
