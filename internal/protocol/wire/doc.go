// Package wire is the canonical binary encoding of every protocol object.
//
// Integers are big-endian. Variable-length byte strings and vectors carry a
// uint32 byte-length prefix, optional values a uint8 presence flag. Decoders
// are strict: a short read, an unknown tag or a trailing byte yields
// domain.ErrMalformed.
//
// The *TBS helpers return the exact byte strings that get signed, hashed or
// mixed into the key schedule; signing code never re-encodes on its own.
package wire
