package index_test

import (
	"errors"
	"testing"
	"time"

	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/agent/index"
)

const sampleDigest = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

func openIndex(t *testing.T) *index.Index {
	t.Helper()
	ix, err := index.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening index: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestPutGet(t *testing.T) {
	ix := openIndex(t)

	entry := &index.Entry{
		Path:    "/watched/report.pdf",
		Digest:  sampleDigest,
		Size:    2048,
		ModTime: time.Now().Unix(),
	}
	if err := ix.Put(entry); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if entry.RecordedAt == 0 {
		t.Error("Put() should stamp RecordedAt")
	}

	got, err := ix.Get("/watched/report.pdf")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Digest != sampleDigest {
		t.Errorf("Digest = %s, want %s", got.Digest, sampleDigest)
	}
	if got.Size != 2048 {
		t.Errorf("Size = %d, want 2048", got.Size)
	}
}

func TestGet_Missing(t *testing.T) {
	ix := openIndex(t)

	if _, err := ix.Get("/watched/absent"); !errors.Is(err, index.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestPut_Overwrites(t *testing.T) {
	ix := openIndex(t)

	first := &index.Entry{Path: "/w/f", Digest: sampleDigest, Size: 10}
	if err := ix.Put(first); err != nil {
		t.Fatal(err)
	}

	second := &index.Entry{Path: "/w/f", Digest: "deadbeef", Size: 20}
	if err := ix.Put(second); err != nil {
		t.Fatal(err)
	}

	got, err := ix.Get("/w/f")
	if err != nil {
		t.Fatal(err)
	}
	if got.Digest != "deadbeef" || got.Size != 20 {
		t.Errorf("Get() = %+v, want the overwritten entry", got)
	}
}

func TestDelete(t *testing.T) {
	ix := openIndex(t)

	if err := ix.Put(&index.Entry{Path: "/w/f", Digest: sampleDigest}); err != nil {
		t.Fatal(err)
	}
	if err := ix.Delete("/w/f"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := ix.Get("/w/f"); !errors.Is(err, index.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	if err := ix.Delete("/w/never-indexed"); err != nil {
		t.Errorf("Delete() of unindexed path error = %v, want nil", err)
	}
}

func TestAll_SortedByPath(t *testing.T) {
	ix := openIndex(t)

	for _, p := range []string{"/w/c", "/w/a", "/w/b"} {
		if err := ix.Put(&index.Entry{Path: p, Digest: sampleDigest}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := ix.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("All() returned %d entries, want 3", len(entries))
	}
	want := []string{"/w/a", "/w/b", "/w/c"}
	for i, entry := range entries {
		if entry.Path != want[i] {
			t.Errorf("entries[%d].Path = %s, want %s", i, entry.Path, want[i])
		}
	}
}

func TestCount(t *testing.T) {
	ix := openIndex(t)

	count, err := ix.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("Count() = %d, want 0 for empty index", count)
	}

	for _, p := range []string{"/w/a", "/w/b"} {
		if err := ix.Put(&index.Entry{Path: p, Digest: sampleDigest}); err != nil {
			t.Fatal(err)
		}
	}

	count, err = ix.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}
