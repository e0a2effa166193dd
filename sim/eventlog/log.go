package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// MalformedLogError reports a log that violates the ordering invariant:
// timestamps must be non-decreasing and sequence numbers strictly increasing.
type MalformedLogError struct {
	Index int
	Msg   string
}

func (e *MalformedLogError) Error() string {
	return fmt.Sprintf("malformed event log at entry %d: %s", e.Index, e.Msg)
}

// Log is the append-only ordered record of every state transition in a run.
// The ordering invariant is enforced on every append; a violation indicates
// an engine bug, never a recoverable condition.
type Log struct {
	entries []Entry
}

// New returns an empty log.
func New() *Log {
	return &Log{entries: make([]Entry, 0, 256)}
}

// Append records an entry, assigning its sequence number. The caller fills
// every field except Seq. Appending an entry earlier than the log tail fails.
func (l *Log) Append(e Entry) error {
	if n := len(l.entries); n > 0 && e.Time < l.entries[n-1].Time {
		return &MalformedLogError{
			Index: n,
			Msg:   fmt.Sprintf("time %d precedes tail time %d", e.Time, l.entries[n-1].Time),
		}
	}
	e.Seq = int64(len(l.entries))
	l.entries = append(l.entries, e)
	return nil
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Entries returns the log contents for iteration. The returned slice is the
// log's internal storage -- callers may iterate over it but MUST NOT modify it.
func (l *Log) Entries() []Entry {
	return l.entries
}

// Validate re-checks the ordering invariant over the whole log. Used by the
// KPI extractor before trusting a log loaded from disk.
func (l *Log) Validate() error {
	for i := 1; i < len(l.entries); i++ {
		if l.entries[i].Time < l.entries[i-1].Time {
			return &MalformedLogError{
				Index: i,
				Msg:   fmt.Sprintf("time %d precedes previous time %d", l.entries[i].Time, l.entries[i-1].Time),
			}
		}
		if l.entries[i].Seq <= l.entries[i-1].Seq {
			return &MalformedLogError{
				Index: i,
				Msg:   fmt.Sprintf("seq %d not after previous seq %d", l.entries[i].Seq, l.entries[i-1].Seq),
			}
		}
	}
	return nil
}

// WriteJSONL serialises the log one JSON object per line. The encoding is
// canonical: identical logs produce byte-identical output.
func (l *Log) WriteJSONL(w io.Writer) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i := range l.entries {
		if err := enc.Encode(&l.entries[i]); err != nil {
			return fmt.Errorf("encode entry %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// ReadJSONL parses a log previously written with WriteJSONL and validates
// its ordering invariant.
func ReadJSONL(r io.Reader) (*Log, error) {
	l := New()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, &MalformedLogError{Index: line, Msg: err.Error()}
		}
		l.entries = append(l.entries, e)
		line++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}
