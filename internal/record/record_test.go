package record

import "testing"

func TestRawSource_ReturnsIndependentCopies(t *testing.T) {
	a := RawSource()
	if len(a) != 5 {
		t.Fatalf("want 5 records, got %d", len(a))
	}
	a[0].Name = "mutated"

	b := RawSource()
	if b[0].Name != "Alice" {
		t.Fatalf("raw source was mutated through a returned slice: %q", b[0].Name)
	}
	for i, r := range b {
		if r.ID != i+1 {
			t.Fatalf("record %d: want id %d, got %d", i, i+1, r.ID)
		}
		if r.Status != "" {
			t.Fatalf("record %d: raw records carry no status, got %q", i, r.Status)
		}
	}
}

func TestClone_NilBecomesEmpty(t *testing.T) {
	got := Clone(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", got)
	}
}
