package geoip

import (
	"net"
	"testing"
)

func TestLookupWithoutDatabase(t *testing.T) {
	r := NewResolver("")
	defer r.Close()

	if got := r.Lookup(net.ParseIP("8.8.8.8")); got != nil {
		t.Errorf("expected nil without a database, got %+v", got)
	}
}

func TestLookupSkipsNonPublicAddresses(t *testing.T) {
	r := NewResolver("")
	defer r.Close()

	for _, ip := range []string{"127.0.0.1", "10.0.0.5", "192.168.1.2", "0.0.0.0"} {
		if got := r.Lookup(net.ParseIP(ip)); got != nil {
			t.Errorf("expected nil for %s, got %+v", ip, got)
		}
	}
	if got := r.Lookup(nil); got != nil {
		t.Errorf("expected nil for nil IP, got %+v", got)
	}
}

func TestLookupAddrParsing(t *testing.T) {
	r := NewResolver("")
	defer r.Close()

	// Both forms must parse without panicking; no DB means nil results.
	if got := r.LookupAddr("203.0.113.9:51234"); got != nil {
		t.Errorf("unexpected result: %+v", got)
	}
	if got := r.LookupAddr("203.0.113.9"); got != nil {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestNewResolverMissingFile(t *testing.T) {
	// A bad path degrades to a disabled resolver rather than failing.
	r := NewResolver("/nonexistent/geo.mmdb")
	defer r.Close()

	if got := r.Lookup(net.ParseIP("8.8.8.8")); got != nil {
		t.Errorf("expected nil from disabled resolver, got %+v", got)
	}
}
