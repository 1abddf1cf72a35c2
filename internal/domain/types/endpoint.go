package types

import (
	"net"
	"strconv"
)

// EndpointLocator addresses a payee's listener: where to connect and which
// static transport key must answer there.
type EndpointLocator struct {
	Host         string
	Port         uint16
	RemoteStatic X25519Public
}

// Address returns the host:port dial target.
func (l EndpointLocator) Address() string {
	return net.JoinHostPort(l.Host, strconv.Itoa(int(l.Port)))
}

// String renders the locator in its canonical noise:// form.
func (l EndpointLocator) String() string {
	return "noise://" + l.Address() + "@" + l.RemoteStatic.Hex()
}

// EndpointRecord is what a payee publishes to the directory for one method.
type EndpointRecord struct {
	PublicKey PublicKey `json:"public_key"`
	MethodID  MethodID  `json:"method_id"`
	Locator   string    `json:"locator"`
	Signature []byte    `json:"signature"`
}
