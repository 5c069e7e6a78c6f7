package segtable

import "testing"

func TestInsertLookupErase(t *testing.T) {
	tbl := New()
	seg := &Segment{Name: "s", Buf: make([]byte, 4)}

	if _, ok := tbl.Lookup("s"); ok {
		t.Fatalf("expected no entry before Insert")
	}

	tbl.Insert(seg)
	got, ok := tbl.Lookup("s")
	if !ok || got != seg {
		t.Fatalf("expected Lookup to return the inserted segment")
	}
	if tbl.Len() != 1 {
		t.Fatalf("expected Len()=1, got %d", tbl.Len())
	}

	tbl.Erase(seg)
	if _, ok := tbl.Lookup("s"); ok {
		t.Fatalf("expected no entry after Erase")
	}
	if tbl.Len() != 0 {
		t.Fatalf("expected Len()=0 after Erase, got %d", tbl.Len())
	}
}

func TestMarkBusyAllOrNothing(t *testing.T) {
	tbl := New()
	a := &Segment{Name: "a"}
	b := &Segment{Name: "b"}
	tbl.Insert(a)
	tbl.Insert(b)

	if !tbl.MarkBusy(a) {
		t.Fatalf("expected MarkBusy(a) to succeed")
	}
	if !tbl.IsBusy(a) {
		t.Fatalf("expected a to be busy")
	}

	if tbl.MarkBusy(a, b) {
		t.Fatalf("expected MarkBusy(a, b) to fail because a is already busy")
	}
	if tbl.IsBusy(b) {
		t.Fatalf("expected b to remain unclaimed after the failed MarkBusy call")
	}
}

func TestClearBusyReleasesSegments(t *testing.T) {
	tbl := New()
	a := &Segment{Name: "a"}
	tbl.Insert(a)

	if !tbl.MarkBusy(a) {
		t.Fatalf("MarkBusy failed")
	}
	tbl.ClearBusy(a)
	if tbl.IsBusy(a) {
		t.Fatalf("expected a to no longer be busy after ClearBusy")
	}

	if !tbl.MarkBusy(a) {
		t.Fatalf("expected a to be claimable again after ClearBusy")
	}
}

func TestEraseAlsoClearsBusy(t *testing.T) {
	tbl := New()
	a := &Segment{Name: "a"}
	tbl.Insert(a)
	tbl.MarkBusy(a)

	tbl.Erase(a)
	if tbl.IsBusy(a) {
		t.Fatalf("expected Erase to remove the segment from the being-modified set too")
	}
}
