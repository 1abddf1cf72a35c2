package types

// Identity holds your long-term Ed25519 signing keys. Transport keys are
// derived from the signing seed per device and epoch and never stored.
type Identity struct {
	EdPub    Ed25519Public  `json:"edpub"`
	EdPriv   Ed25519Private `json:"edpriv"`
	DeviceID DeviceID       `json:"device_id"`
}

// PublicKey returns the party identifier for the identity.
func (id Identity) PublicKey() PublicKey { return id.EdPub.PublicKey() }

// TransportKeys is the per-device, per-epoch key material a connection uses.
// Binding is the signed statement tying Public to Owner; it is sent as the
// handshake payload so the peer can authenticate the party behind the key.
type TransportKeys struct {
	Owner    PublicKey     `json:"owner"`
	DeviceID DeviceID      `json:"device_id"`
	Epoch    uint32        `json:"epoch"`
	Private  X25519Private `json:"-"`
	Public   X25519Public  `json:"public"`
	Binding  []byte        `json:"binding"`
}
