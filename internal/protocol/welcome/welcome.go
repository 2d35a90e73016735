// Package welcome seals and opens the Welcome message that brings new
// members into a group at the epoch a commit created.
package welcome

import (
	"bytes"
	"fmt"

	"grove/internal/crypto"
	"grove/internal/domain"
	"grove/internal/protocol/keypackage"
	"grove/internal/protocol/schedule"
	"grove/internal/protocol/tree"
	"grove/internal/protocol/wire"
)

const (
	welcomeLabel   = "Welcome"
	groupInfoLabel = "GroupInfoTBS"
)

// Recipient is one new member of a Welcome.
type Recipient struct {
	KeyPackage domain.KeyPackage
	// PathSecret is the secret of the lowest node the committer's path shares
	// with the recipient's leaf.
	PathSecret []byte
}

// Joined is what a recipient learns from a Welcome and the tree snapshot.
type Joined struct {
	Suite     crypto.Suite
	GroupInfo *domain.GroupInfo
	Tree      *tree.Tree
	OwnLeaf   domain.LeafIndex
	Epoch     schedule.Epoch
	// PathSecret is empty when the committer sent none.
	PathSecret []byte
}

// SignGroupInfo fills gi.Signature.
func SignGroupInfo(suite crypto.Suite, signer domain.Ed25519Private, gi *domain.GroupInfo) {
	gi.Signature = suite.SignWithLabel(signer, groupInfoLabel, wire.GroupInfoTBS(gi))
}

// VerifyGroupInfo checks gi against the signature key of its signer's leaf.
func VerifyGroupInfo(suite crypto.Suite, t *tree.Tree, gi *domain.GroupInfo) error {
	signer := t.Leaf(gi.Signer)
	if signer == nil {
		return fmt.Errorf("%w: group info signer %d is blank", domain.ErrValidationFailed, gi.Signer)
	}
	if !suite.VerifyWithLabel(signer.Credential.SignatureKey, groupInfoLabel, wire.GroupInfoTBS(gi), gi.Signature) {
		return fmt.Errorf("%w: %w: group info", domain.ErrValidationFailed, domain.ErrInvalidSignature)
	}
	return nil
}

// Encode builds the Welcome for one recipient: GroupInfo under the welcome
// key, GroupSecrets under the recipient's init key.
func Encode(suite crypto.Suite, gi *domain.GroupInfo, joinerSecret, welcomeSecret []byte, r Recipient) (*domain.Welcome, error) {
	key, nonce := schedule.WelcomeKeyNonce(suite, welcomeSecret)
	defer crypto.Wipe(key)
	egi, err := suite.Seal(key, nonce, nil, wire.MarshalGroupInfo(gi))
	if err != nil {
		return nil, err
	}

	secrets := wire.MarshalGroupSecrets(domain.GroupSecrets{JoinerSecret: joinerSecret, PathSecret: r.PathSecret})
	defer crypto.Wipe(secrets)
	ct, err := suite.EncryptWithLabel(r.KeyPackage.InitKey, welcomeLabel, egi, secrets)
	if err != nil {
		return nil, err
	}
	return &domain.Welcome{
		CipherSuite: suite.ID(),
		Secrets: []domain.EncryptedGroupSecrets{{
			NewMember:             keypackage.Ref(suite, r.KeyPackage),
			EncryptedGroupSecrets: ct,
		}},
		EncryptedGroupInfo: egi,
	}, nil
}

// Decode opens w with the key package it was addressed to and checks it
// against the supplied tree snapshot.
//
// Errors: domain.ErrDecryptFailure when w is not for kp or does not open,
// domain.ErrTreeMismatch when the snapshot disagrees with the GroupInfo,
// domain.ErrValidationFailed for bad signatures or confirmation tags.
func Decode(w *domain.Welcome, kp domain.KeyPackage, priv domain.KeyPackagePrivateKeys, snapshot []byte) (*Joined, error) {
	if w.CipherSuite != kp.CipherSuite {
		return nil, fmt.Errorf("%w: welcome suite 0x%04x, key package 0x%04x", domain.ErrDecryptFailure, uint16(w.CipherSuite), uint16(kp.CipherSuite))
	}
	suite, err := crypto.LookupSuite(w.CipherSuite)
	if err != nil {
		return nil, err
	}

	ref := keypackage.Ref(suite, kp)
	var entry *domain.EncryptedGroupSecrets
	for i := range w.Secrets {
		if bytes.Equal(w.Secrets[i].NewMember, ref) {
			entry = &w.Secrets[i]
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: no secrets for key package %s", domain.ErrDecryptFailure, ref)
	}

	raw, err := suite.DecryptWithLabel(priv.InitKey, welcomeLabel, w.EncryptedGroupInfo, entry.EncryptedGroupSecrets)
	if err != nil {
		return nil, fmt.Errorf("%w: group secrets: %w", domain.ErrDecryptFailure, err)
	}
	gs, err := wire.UnmarshalGroupSecrets(raw)
	crypto.Wipe(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecryptFailure, err)
	}

	welcomeSecret := schedule.WelcomeSecret(suite, gs.JoinerSecret)
	key, nonce := schedule.WelcomeKeyNonce(suite, welcomeSecret)
	crypto.Wipe(welcomeSecret)
	giRaw, err := suite.Open(key, nonce, nil, w.EncryptedGroupInfo)
	crypto.Wipe(key)
	if err != nil {
		return nil, fmt.Errorf("%w: group info: %w", domain.ErrDecryptFailure, err)
	}
	gi, err := wire.UnmarshalGroupInfo(giRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecryptFailure, err)
	}
	if gi.GroupContext.CipherSuite != suite.ID() || gi.GroupContext.Version != domain.ProtocolVersionMLS10 {
		return nil, fmt.Errorf("%w: group context suite or version", domain.ErrValidationFailed)
	}

	t, err := tree.Import(snapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTreeMismatch, err)
	}
	if !bytes.Equal(t.Hash(suite), gi.GroupContext.TreeHash) {
		return nil, fmt.Errorf("%w: tree hash", domain.ErrTreeMismatch)
	}
	if err := VerifyGroupInfo(suite, t, gi); err != nil {
		return nil, err
	}

	ep := schedule.FromJoiner(suite, gs.JoinerSecret, gi.GroupContext)
	if !schedule.VerifyConfirmationTag(suite, ep.Secrets.ConfirmationKey, gi.GroupContext.ConfirmedTranscriptHash, gi.ConfirmationTag) {
		return nil, fmt.Errorf("%w: confirmation tag", domain.ErrValidationFailed)
	}

	own, ok := t.FindLeaf(kp.LeafNode.EncryptionKey)
	if !ok || t.Leaf(own).Credential.SignatureKey != kp.LeafNode.Credential.SignatureKey {
		return nil, fmt.Errorf("%w: own leaf not in tree", domain.ErrTreeMismatch)
	}

	return &Joined{
		Suite:      suite,
		GroupInfo:  gi,
		Tree:       t,
		OwnLeaf:    own,
		Epoch:      ep,
		PathSecret: gs.PathSecret,
	}, nil
}
