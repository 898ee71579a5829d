package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	got, err := ExpandHome("~/x/y.json")
	if err != nil || got != filepath.Join(home, "x/y.json") {
		t.Fatalf("ExpandHome=%q err=%v", got, err)
	}
	if got, _ := ExpandHome("/abs"); got != "/abs" {
		t.Fatalf("absolute path changed: %q", got)
	}
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "doc.json")
	if err := WriteFileAtomic(p, []byte("one"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteFileAtomic(p, []byte("two"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "two" {
		t.Fatalf("content=%q err=%v", b, err)
	}
	entries, _ := os.ReadDir(d)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
	if !PathExists(p) || PathExists(filepath.Join(d, "missing")) {
		t.Fatalf("PathExists mismatch")
	}
}

func TestExt(t *testing.T) {
	if Ext("a/B.YAML") != ".yaml" {
		t.Fatalf("Ext=%q", Ext("a/B.YAML"))
	}
}
