package keypackage

import (
	"fmt"
	"time"

	"grove/internal/crypto"
	"grove/internal/domain"
	"grove/internal/protocol/wire"
)

const (
	keyPackageLabel    = "KeyPackageTBS"
	keyPackageRefLabel = "MLS 1.0 KeyPackage Reference"

	// DefaultLifetime is how long a fresh key package stays valid.
	DefaultLifetime = 90 * 24 * time.Hour
	// clockSkew is subtracted from not_before to tolerate peers running
	// slightly behind.
	clockSkew = time.Hour
)

// DefaultCapabilities advertises every suite this build implements.
func DefaultCapabilities() domain.Capabilities {
	return domain.Capabilities{
		Versions:     []domain.ProtocolVersion{domain.ProtocolVersionMLS10},
		CipherSuites: crypto.SupportedSuites(),
	}
}

// LifetimeFrom returns a validity window of d starting at now.
func LifetimeFrom(now time.Time, d time.Duration) domain.Lifetime {
	return domain.Lifetime{
		NotBefore: uint64(now.Add(-clockSkew).Unix()),
		NotAfter:  uint64(now.Add(d).Unix()),
	}
}

// Generate creates a signed key package for cred and the private keys that
// go with it. The init key and the leaf encryption key are independent.
func Generate(
	suite crypto.Suite,
	cred domain.Credential,
	signer domain.Ed25519Private,
	caps domain.Capabilities,
	lifetime domain.Lifetime,
) (domain.KeyPackage, domain.KeyPackagePrivateKeys, error) {
	if signer.Public() != cred.SignatureKey {
		return domain.KeyPackage{}, domain.KeyPackagePrivateKeys{}, fmt.Errorf("keypackage: signer does not match credential")
	}
	initPriv, initPub, err := suite.GenerateKeyPair()
	if err != nil {
		return domain.KeyPackage{}, domain.KeyPackagePrivateKeys{}, err
	}
	encPriv, encPub, err := suite.GenerateKeyPair()
	if err != nil {
		return domain.KeyPackage{}, domain.KeyPackagePrivateKeys{}, err
	}

	leaf := domain.LeafNode{
		EncryptionKey: encPub,
		Credential:    cred,
		Capabilities:  caps,
		Source:        domain.LeafNodeSourceKeyPackage,
		Lifetime:      lifetime,
	}
	SignLeaf(suite, signer, &leaf, nil, 0)

	kp := domain.KeyPackage{
		Version:     domain.ProtocolVersionMLS10,
		CipherSuite: suite.ID(),
		InitKey:     initPub,
		LeafNode:    leaf,
	}
	kp.Signature = suite.SignWithLabel(signer, keyPackageLabel, wire.KeyPackageTBS(kp))

	return kp, domain.KeyPackagePrivateKeys{InitKey: initPriv, EncryptionKey: encPriv}, nil
}

// Validate checks a key package received from someone else. The returned
// error wraps domain.ErrValidationFailed plus the specific cause
// (ErrUnsupportedSuite, ErrInvalidSignature or ErrExpired).
func Validate(kp domain.KeyPackage, now time.Time) error {
	suite, err := crypto.LookupSuite(kp.CipherSuite)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidationFailed, err)
	}
	if kp.Version != domain.ProtocolVersionMLS10 || !kp.LeafNode.Capabilities.SupportsVersion(kp.Version) {
		return fmt.Errorf("%w: protocol version %d", domain.ErrValidationFailed, kp.Version)
	}
	if !kp.LeafNode.Capabilities.SupportsSuite(kp.CipherSuite) {
		return fmt.Errorf("%w: %w: suite not in leaf capabilities", domain.ErrValidationFailed, domain.ErrUnsupportedSuite)
	}
	if kp.LeafNode.Source != domain.LeafNodeSourceKeyPackage {
		return fmt.Errorf("%w: leaf source %d", domain.ErrValidationFailed, kp.LeafNode.Source)
	}
	if kp.InitKey == kp.LeafNode.EncryptionKey {
		return fmt.Errorf("%w: init key reused as leaf key", domain.ErrValidationFailed)
	}
	if !VerifyLeaf(suite, kp.LeafNode, nil, 0) {
		return fmt.Errorf("%w: %w: leaf node", domain.ErrValidationFailed, domain.ErrInvalidSignature)
	}
	if !suite.VerifyWithLabel(kp.LeafNode.Credential.SignatureKey, keyPackageLabel, wire.KeyPackageTBS(kp), kp.Signature) {
		return fmt.Errorf("%w: %w: key package", domain.ErrValidationFailed, domain.ErrInvalidSignature)
	}
	ts := uint64(now.Unix())
	if ts < kp.LeafNode.Lifetime.NotBefore || ts > kp.LeafNode.Lifetime.NotAfter {
		return fmt.Errorf("%w: %w", domain.ErrValidationFailed, domain.ErrExpired)
	}
	return nil
}

// Ref returns the hash reference naming kp.
func Ref(suite crypto.Suite, kp domain.KeyPackage) domain.KeyPackageRef {
	return suite.RefHash(keyPackageRefLabel, wire.MarshalKeyPackage(kp))
}
