package types

// Identity holds a client's long-term signing material and the random key
// used to seal its group state at rest.
type Identity struct {
	Credential       Credential     `json:"credential"`
	SignaturePrivate Ed25519Private `json:"signature_private"`
	StorageKey       []byte         `json:"storage_key"`
}
