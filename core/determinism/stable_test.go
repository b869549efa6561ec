package determinism

import (
	"testing"
)

// TestHashJSONIgnoresMapInsertionOrder proves equal maps hash equally
func TestHashJSONIgnoresMapInsertionOrder(t *testing.T) {
	a := map[string]any{}
	a["heightMm"] = 2010
	a["frame"] = "aluminium"
	a["softClose"] = true

	b := map[string]any{}
	b["softClose"] = true
	b["frame"] = "aluminium"
	b["heightMm"] = 2010

	ha, err := HashJSON(a)
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	hb, err := HashJSON(b)
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if ha != hb {
		t.Errorf("expected equal hashes, got %s and %s", ha.Hex(), hb.Hex())
	}
	if ha.IsZero() {
		t.Error("hash should not be zero")
	}
	if len(ha.Hex()) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(ha.Hex()))
	}
}

func TestSortedKeys(t *testing.T) {
	m := map[string]int{"casingInner": 1, "doorBlock": 2, "casingFront": 3}
	got := SortedKeys(m)
	want := []string{"casingFront", "casingInner", "doorBlock"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SortedKeys = %v, want %v", got, want)
		}
	}

	var visited []string
	RangeMapSorted(m, func(k string, _ int) bool {
		visited = append(visited, k)
		return k != "casingInner"
	})
	if len(visited) != 2 {
		t.Errorf("expected iteration to stop after 2 keys, visited %v", visited)
	}
}
