package frameproc

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestHashMD5Known(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewChunkProcessor(4).HashMD5(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "5eb63bbbe01eeed093cb22bb8f5acdc3" {
		t.Errorf("HashMD5 = %s", got)
	}
}

func TestCopyChunked(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	payload := bytes.Repeat([]byte{0xAB, 0xCD}, 5000)
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatal(err)
	}
	// Pre-existing destination content is replaced, not appended to.
	if err := os.WriteFile(dst, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := NewChunkProcessor(1024).Copy(src, dst, nil); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("copied %d bytes, want %d identical bytes", len(got), len(payload))
	}
}

func TestProcessProgressCadence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	if err := os.WriteFile(path, make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}

	var reports [][2]uint64
	progress := func(done, total uint64) { reports = append(reports, [2]uint64{done, total}) }

	// 100 bytes in 4-byte chunks: 25 chunks, reports at 10, 20, and the end.
	err := NewChunkProcessor(4).Process(path, func([]byte) error { return nil }, progress)
	if err != nil {
		t.Fatal(err)
	}

	want := [][2]uint64{{40, 100}, {80, 100}, {100, 100}}
	if len(reports) != len(want) {
		t.Fatalf("reports = %v, want %v", reports, want)
	}
	for i := range want {
		if reports[i] != want[i] {
			t.Errorf("report %d = %v, want %v", i, reports[i], want[i])
		}
	}
}

func TestProcessMissingFile(t *testing.T) {
	err := NewChunkProcessor(4).Process(filepath.Join(t.TempDir(), "nope"), func([]byte) error { return nil }, nil)
	if err == nil {
		t.Error("missing file should error")
	}
}
