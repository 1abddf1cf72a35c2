package endpoint_test

import (
	"errors"
	"strings"
	"testing"

	"noisepay/internal/domain"
	"noisepay/internal/endpoint"
)

var keyHex = strings.Repeat("ab", 32)

func TestParse_OK(t *testing.T) {
	loc, err := endpoint.Parse("noise://127.0.0.1:9735@" + keyHex)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if loc.Host != "127.0.0.1" || loc.Port != 9735 {
		t.Fatalf("got host=%q port=%d", loc.Host, loc.Port)
	}
	for i, b := range loc.RemoteStatic {
		if b != 0xab {
			t.Fatalf("key byte %d = %#x", i, b)
		}
	}
	if got := loc.String(); got != "noise://127.0.0.1:9735@"+keyHex {
		t.Fatalf("round trip = %q", got)
	}
	if got := loc.Address(); got != "127.0.0.1:9735" {
		t.Fatalf("address = %q", got)
	}
}

func TestParse_UppercaseKeyCanonicalised(t *testing.T) {
	loc, err := endpoint.Parse("noise://example.org:1@" + strings.ToUpper(keyHex))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.HasSuffix(loc.String(), "@"+keyHex) {
		t.Fatalf("key not lowercased: %s", loc.String())
	}
}

func TestParse_IPv6(t *testing.T) {
	for _, in := range []string{
		"noise://::1:9000@" + keyHex,
		"noise://[::1]:9000@" + keyHex,
		"noise://fe80::1:2:9000@" + keyHex,
	} {
		loc, err := endpoint.Parse(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if loc.Port != 9000 {
			t.Fatalf("%q: port = %d", in, loc.Port)
		}
		if strings.Contains(loc.Host, "[") {
			t.Fatalf("%q: brackets kept in host %q", in, loc.Host)
		}
	}
	loc, _ := endpoint.Parse("noise://[::1]:9000@" + keyHex)
	if loc.Address() != "[::1]:9000" {
		t.Fatalf("address = %q", loc.Address())
	}
}

func TestParse_Malformed(t *testing.T) {
	cases := map[string]string{
		"no separator":   "noise://127.0.0.1:9735",
		"short key":      "noise://127.0.0.1:9735@" + keyHex[:63],
		"long key":       "noise://127.0.0.1:9735@" + keyHex + "a",
		"non-hex key":    "noise://127.0.0.1:9735@" + keyHex[:62] + "zz",
		"wrong scheme":   "tcp://127.0.0.1:9735@" + keyHex,
		"no port":        "noise://127.0.0.1@" + keyHex,
		"port overflow":  "noise://127.0.0.1:65536@" + keyHex,
		"port zero":      "noise://127.0.0.1:0@" + keyHex,
		"port not digit": "noise://127.0.0.1:ab@" + keyHex,
		"empty host":     "noise://:9735@" + keyHex,
		"empty":          "",
	}
	for name, in := range cases {
		_, err := endpoint.Parse(in)
		if !errors.Is(err, domain.ErrMalformedEndpoint) {
			t.Fatalf("%s: err = %v, want ErrMalformedEndpoint", name, err)
		}
	}
}

func TestParse_ErrorNamesComponent(t *testing.T) {
	_, err := endpoint.Parse("noise://127.0.0.1:9735@" + keyHex[:63])
	if err == nil || !strings.Contains(err.Error(), "key length") {
		t.Fatalf("err = %v", err)
	}
	_, err = endpoint.Parse("noise://127.0.0.1:9735")
	if err == nil || !strings.Contains(err.Error(), "'@'") {
		t.Fatalf("err = %v", err)
	}
}

func TestFormat(t *testing.T) {
	var key domain.X25519Public
	key[0] = 0xff
	s := endpoint.Format("localhost", 4000, key)
	loc, err := endpoint.Parse(s)
	if err != nil {
		t.Fatalf("parse formatted: %v", err)
	}
	if loc.RemoteStatic != key || loc.Host != "localhost" || loc.Port != 4000 {
		t.Fatalf("mismatch: %+v", loc)
	}
}
