package endpoint

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"noisepay/internal/domain"
)

// Scheme is the only accepted locator scheme.
const Scheme = "noise"

const keyHexLen = 64

// Parse validates s and returns the locator it names. Errors wrap
// domain.ErrMalformedEndpoint and name the failing component.
func Parse(s string) (domain.EndpointLocator, error) {
	var loc domain.EndpointLocator

	rest, ok := strings.CutPrefix(s, Scheme+"://")
	if !ok {
		return loc, malformed("missing scheme %q", Scheme+"://")
	}

	at := strings.LastIndexByte(rest, '@')
	if at < 0 {
		return loc, malformed("missing '@' separator")
	}
	hostport, keyHex := rest[:at], rest[at+1:]

	// Split on the last colon so unbracketed IPv6 literals keep their colons.
	colon := strings.LastIndexByte(hostport, ':')
	if colon < 0 {
		return loc, malformed("missing port")
	}
	host, portStr := hostport[:colon], hostport[colon+1:]
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	if host == "" {
		return loc, malformed("empty host")
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return loc, malformed("bad port %q", portStr)
	}
	if port == 0 {
		return loc, malformed("bad port %q", portStr)
	}

	if len(keyHex) != keyHexLen {
		return loc, malformed("wrong key length: %d hex chars, want %d", len(keyHex), keyHexLen)
	}
	if _, err := hex.Decode(loc.RemoteStatic[:], []byte(keyHex)); err != nil {
		return domain.EndpointLocator{}, malformed("non-hex key")
	}

	loc.Host = host
	loc.Port = uint16(port)
	return loc, nil
}

// Format builds the canonical text form for host, port and key.
func Format(host string, port uint16, key domain.X25519Public) string {
	return domain.EndpointLocator{Host: host, Port: port, RemoteStatic: key}.String()
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrMalformedEndpoint, fmt.Sprintf(format, args...))
}
