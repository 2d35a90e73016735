package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"grove/internal/crypto"
	"grove/internal/domain"
	"grove/internal/protocol/keypackage"
	"grove/internal/protocol/wire"
	"grove/internal/store"
)

const treeFile = "ratchet-tree.bin"

func readMessage(path string) (*domain.Message, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := wire.UnmarshalMessage(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func writeMessage(path string, m *domain.Message) error {
	b, err := wire.MarshalMessage(m)
	if err != nil {
		return err
	}
	return store.WriteFile(path, b, 0o600)
}

func readKeyPackages(paths []string) ([]domain.KeyPackage, error) {
	out := make([]domain.KeyPackage, 0, len(paths))
	for _, p := range paths {
		m, err := readMessage(p)
		if err != nil {
			return nil, err
		}
		if m.WireFormat != domain.WireFormatKeyPackage {
			return nil, fmt.Errorf("%s: expected a key package, got %s", p, m.WireFormat)
		}
		out = append(out, *m.KeyPackage)
	}
	return out, nil
}

func shortRef(ref []byte) string {
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return fmt.Sprintf("%x", ref)
}

func writeKeyPackage(dir string, kp domain.KeyPackage) (string, error) {
	suite, err := crypto.LookupSuite(kp.CipherSuite)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "kp-"+shortRef(keypackage.Ref(suite, kp))+".msg")
	return path, writeMessage(path, wire.NewKeyPackageMessage(kp))
}

// writeCommitOutput writes the commit, one file per Welcome and, when there
// are Welcomes, the ratchet tree the joiners need. It returns the paths.
func writeCommitOutput(dir string, out domain.CommitOutput, tree []byte) ([]string, error) {
	var paths []string
	epoch := out.Summary.Epoch
	if out.Commit != nil {
		p := filepath.Join(dir, fmt.Sprintf("commit-%d.msg", epoch))
		if err := writeMessage(p, wire.NewCommitMessage(out.Commit)); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	for _, w := range out.Welcomes {
		p := filepath.Join(dir, fmt.Sprintf("welcome-%d-%s.msg", epoch, shortRef(w.Member)))
		if err := writeMessage(p, wire.NewWelcomeMessage(w.Welcome)); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	if len(out.Welcomes) > 0 {
		p := filepath.Join(dir, treeFile)
		if err := store.WriteFile(p, tree, 0o600); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
