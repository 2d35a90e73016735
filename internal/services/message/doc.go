// Package message feeds batches of inbound handshake messages into the
// group service.
//
// Messages for different groups are processed concurrently; messages for one
// group are applied in the order they arrive. Messages that fail
// authentication or validation are logged and dropped so the rest of the
// batch still goes through.
package message
