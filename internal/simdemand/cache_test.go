package simdemand

import "testing"

func TestDemandKeyRoundTrip(t *testing.T) {
	key := demandKey(42)
	if key != "ridesim:demand:42" {
		t.Fatalf("unexpected key format: %s", key)
	}

	node := key[len(demandKeyPrefix):]
	if node != "42" {
		t.Fatalf("expected suffix to parse back to node id, got %q", node)
	}
}

func TestDemandKeyDistinctPerNode(t *testing.T) {
	if demandKey(1) == demandKey(2) {
		t.Fatalf("expected distinct keys for distinct nodes")
	}
}

func TestNewCacheWrapsClient(t *testing.T) {
	c := NewCache(nil)
	if c == nil {
		t.Fatalf("expected non-nil cache")
	}
}
