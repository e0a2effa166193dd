package eventlog

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func entry(t int64, kind Kind) Entry {
	return Entry{Time: t, Subsystem: SubsystemCasevac, Kind: kind, EntityID: "CAS-0001"}
}

// TestAppend_AssignsSequence verifies Seq is assigned by the log, in order.
func TestAppend_AssignsSequence(t *testing.T) {
	l := New()
	for i := int64(0); i < 3; i++ {
		if err := l.Append(entry(i*10, KindReported)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	for i, en := range l.Entries() {
		if en.Seq != int64(i) {
			t.Errorf("entry %d seq = %d", i, en.Seq)
		}
	}
}

// TestAppend_RejectsTimeRegression verifies the ordering invariant is
// enforced at append time.
func TestAppend_RejectsTimeRegression(t *testing.T) {
	l := New()
	if err := l.Append(entry(100, KindReported)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	err := l.Append(entry(99, KindDispatched))
	var mle *MalformedLogError
	if !errors.As(err, &mle) {
		t.Fatalf("regressing append = %v, want MalformedLogError", err)
	}
	if l.Len() != 1 {
		t.Errorf("log length after rejected append = %d, want 1", l.Len())
	}
}

// TestAppend_AllowsEqualTimes verifies same-tick entries are legal; ordering
// between them is carried by Seq.
func TestAppend_AllowsEqualTimes(t *testing.T) {
	l := New()
	if err := l.Append(entry(50, KindReported)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append(entry(50, KindDispatched)); err != nil {
		t.Fatalf("Append of equal-time entry: %v", err)
	}
}

// TestWriteReadJSONL_RoundTrip verifies a log survives serialisation intact
// and that re-serialising yields identical bytes.
func TestWriteReadJSONL_RoundTrip(t *testing.T) {
	l := New()
	steps := []Entry{
		{Time: 0, Subsystem: SubsystemSystem, Kind: KindRunStarted, Value: 42},
		{Time: 0, Subsystem: SubsystemCasevac, Kind: KindReported, EntityID: "CAS-0001", NodeID: "base", Value: 2},
		{Time: 1800, Subsystem: SubsystemCasevac, Kind: KindHandoff, EntityID: "CAS-0001", VehicleID: "AMB-1", NodeID: "hosp", Value: 1800},
		{Time: 3600, Subsystem: SubsystemSystem, Kind: KindRunEnded},
	}
	for _, en := range steps {
		if err := l.Append(en); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := l.WriteJSONL(&buf); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	first := buf.String()

	got, err := ReadJSONL(strings.NewReader(first))
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if got.Len() != l.Len() {
		t.Fatalf("round-trip length = %d, want %d", got.Len(), l.Len())
	}
	for i, en := range got.Entries() {
		if en != l.Entries()[i] {
			t.Errorf("entry %d = %+v, want %+v", i, en, l.Entries()[i])
		}
	}

	var buf2 bytes.Buffer
	if err := got.WriteJSONL(&buf2); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	if buf2.String() != first {
		t.Error("re-serialised log is not byte-identical")
	}
}

// TestReadJSONL_RejectsDisorder verifies a tampered log fails validation on
// load.
func TestReadJSONL_RejectsDisorder(t *testing.T) {
	input := `{"t":100,"seq":0,"subsystem":"casevac","kind":"reported"}
{"t":50,"seq":1,"subsystem":"casevac","kind":"dispatched"}
`
	_, err := ReadJSONL(strings.NewReader(input))
	var mle *MalformedLogError
	if !errors.As(err, &mle) {
		t.Fatalf("ReadJSONL of disordered input = %v, want MalformedLogError", err)
	}
}

// TestReadJSONL_RejectsDuplicateSeq verifies sequence numbers must be
// strictly increasing.
func TestReadJSONL_RejectsDuplicateSeq(t *testing.T) {
	input := `{"t":100,"seq":3,"subsystem":"casevac","kind":"reported"}
{"t":100,"seq":3,"subsystem":"casevac","kind":"dispatched"}
`
	_, err := ReadJSONL(strings.NewReader(input))
	var mle *MalformedLogError
	if !errors.As(err, &mle) {
		t.Fatalf("ReadJSONL of duplicate seq = %v, want MalformedLogError", err)
	}
}

// TestReadJSONL_RejectsGarbage verifies malformed JSON is surfaced with the
// offending line index.
func TestReadJSONL_RejectsGarbage(t *testing.T) {
	input := `{"t":0,"seq":0,"subsystem":"system","kind":"run_started"}
not json at all
`
	_, err := ReadJSONL(strings.NewReader(input))
	var mle *MalformedLogError
	if !errors.As(err, &mle) {
		t.Fatalf("ReadJSONL of garbage = %v, want MalformedLogError", err)
	}
	if mle.Index != 1 {
		t.Errorf("error index = %d, want 1", mle.Index)
	}
}
