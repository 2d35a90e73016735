package wire

import (
	"fmt"

	"golang.org/x/crypto/cryptobyte"

	"grove/internal/domain"
)

// maxLength bounds any single length prefix we are willing to follow.
const maxLength = 1 << 24

func encode(fn func(b *cryptobyte.Builder)) []byte {
	var b cryptobyte.Builder
	fn(&b)
	return b.BytesOrPanic()
}

// decode runs fn over data and insists on full consumption.
func decode(what string, data []byte, fn func(s *cryptobyte.String) bool) error {
	s := cryptobyte.String(data)
	if !fn(&s) {
		return fmt.Errorf("%w: %s", domain.ErrMalformed, what)
	}
	if !s.Empty() {
		return fmt.Errorf("%w: %s: %d trailing bytes", domain.ErrMalformed, what, len(s))
	}
	return nil
}

func addOpaque(b *cryptobyte.Builder, v []byte) {
	b.AddUint32LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(v) })
}

func readPrefixed(s *cryptobyte.String, out *cryptobyte.String) bool {
	var n uint32
	if !s.ReadUint32(&n) || n > maxLength {
		return false
	}
	var v []byte
	if !s.ReadBytes(&v, int(n)) {
		return false
	}
	*out = cryptobyte.String(v)
	return true
}

func readOpaque(s *cryptobyte.String, out *[]byte) bool {
	var v cryptobyte.String
	if !readPrefixed(s, &v) {
		return false
	}
	if len(v) == 0 {
		*out = nil
		return true
	}
	*out = append([]byte(nil), v...)
	return true
}

func readFixed(s *cryptobyte.String, out []byte) bool {
	var v cryptobyte.String
	if !readPrefixed(s, &v) || len(v) != len(out) {
		return false
	}
	copy(out, v)
	return true
}

func addVector(b *cryptobyte.Builder, fn func(b *cryptobyte.Builder)) {
	b.AddUint32LengthPrefixed(fn)
}

func readVector(s *cryptobyte.String, fn func(s *cryptobyte.String) bool) bool {
	var v cryptobyte.String
	if !readPrefixed(s, &v) {
		return false
	}
	for !v.Empty() {
		if !fn(&v) {
			return false
		}
	}
	return true
}

func addOptional(b *cryptobyte.Builder, present bool, fn func(b *cryptobyte.Builder)) {
	if !present {
		b.AddUint8(0)
		return
	}
	b.AddUint8(1)
	fn(b)
}

func readOptional(s *cryptobyte.String, fn func(s *cryptobyte.String) bool) (present, ok bool) {
	var flag uint8
	if !s.ReadUint8(&flag) {
		return false, false
	}
	switch flag {
	case 0:
		return false, true
	case 1:
		return true, fn(s)
	default:
		return false, false
	}
}

var (
	errUnknownNodeType     = fmt.Errorf("%w: unknown node type", domain.ErrMalformed)
	errUnknownProposalType = fmt.Errorf("%w: unknown proposal type", domain.ErrMalformed)
)
