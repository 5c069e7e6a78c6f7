package walrecord

import (
	"bytes"
	"testing"
)

func TestWriteToAndReadAllRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	want := []Record{
		{Offset: 0, Data: []byte("HELLO")},
		{Offset: 10, Data: []byte("WORLD!")},
		{Offset: 3, Data: []byte{}},
	}
	for _, rec := range want {
		if _, err := WriteTo(&buf, rec); err != nil {
			t.Fatalf("WriteTo failed: %v", err)
		}
	}

	got, err := ReadAll(&buf)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Offset != want[i].Offset || !bytes.Equal(got[i].Data, want[i].Data) {
			t.Errorf("record %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadAllDiscardsTornTrailingRecord(t *testing.T) {
	var buf bytes.Buffer

	if _, err := WriteTo(&buf, Record{Offset: 0, Data: []byte("GOOD")}); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	full := buf.Bytes()

	if _, err := WriteTo(&buf, Record{Offset: 4, Data: []byte("BADRECORD")}); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}

	// Simulate a crash mid-write of the second record: truncate a few bytes
	// off the end so its payload is incomplete.
	torn := buf.Bytes()[:len(buf.Bytes())-3]

	got, err := ReadAll(bytes.NewReader(torn))
	if err != nil {
		t.Fatalf("ReadAll should tolerate a torn tail, got error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected only the complete leading record, got %d records", len(got))
	}
	if !bytes.Equal(got[0].Data, []byte("GOOD")) {
		t.Fatalf("expected GOOD, got %q", got[0].Data)
	}

	_ = full // full was taken before the second write: it holds only the first record
}

func TestReadAllOnEmptyInput(t *testing.T) {
	got, err := ReadAll(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("ReadAll on empty input failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no records, got %d", len(got))
	}
}
