package manifest

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// Record is one parsed manifest line.
type Record struct {
	Time   time.Time
	Kind   EventKind
	Digest string
	Name   string
}

// HasDigest reports whether the record carries a real digest rather
// than the Sentinel placeholder.
func (r Record) HasDigest() bool {
	return r.Digest != "" && r.Digest != Sentinel
}

// ParseRecord parses a single manifest line. It reports false for
// blank or malformed lines so readers can skip damage without
// aborting.
func ParseRecord(line string) (Record, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Record{}, false
	}

	parts := strings.SplitN(line, " | ", 4)
	if len(parts) != 4 {
		return Record{}, false
	}

	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(parts[0]))
	if err != nil {
		return Record{}, false
	}

	return Record{
		Time:   ts,
		Kind:   EventKind(strings.TrimSpace(parts[1])),
		Digest: strings.TrimSpace(parts[2]),
		Name:   strings.TrimSpace(parts[3]),
	}, true
}

// ReadRecords parses every well-formed line of the manifest at path,
// oldest first. A missing manifest reads as empty rather than an
// error, so inspection commands work before the first event lands.
func ReadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	records := []Record{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if rec, ok := ParseRecord(scanner.Text()); ok {
			records = append(records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	return records, nil
}

// Tail returns the newest n records, oldest first within the slice.
// n of zero or less returns everything.
func Tail(path string, n int) ([]Record, error) {
	records, err := ReadRecords(path)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}
