package source

import (
	"testing"
)

func TestAddVirtualAndLineText(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("demo.cpp", []byte("int x = 1;\nint y = 2;\nreturn x;"))

	if got := fs.LineText(id, 1); got != "int x = 1;" {
		t.Fatalf("line 1 = %q", got)
	}
	if got := fs.LineText(id, 2); got != "int y = 2;" {
		t.Fatalf("line 2 = %q", got)
	}
	if got := fs.LineText(id, 3); got != "return x;" {
		t.Fatalf("line 3 = %q", got)
	}
	if got := fs.LineText(id, 4); got != "" {
		t.Fatalf("line 4 should be empty, got %q", got)
	}
}

func TestGetLatestTracksNewestVersion(t *testing.T) {
	fs := NewFileSet()
	fs.AddVirtual("a.cpp", []byte("old"))
	second := fs.AddVirtual("a.cpp", []byte("new"))

	id, ok := fs.GetLatest("a.cpp")
	if !ok {
		t.Fatal("expected a.cpp in the set")
	}
	if id != second {
		t.Fatalf("GetLatest = %d, want %d", id, second)
	}
	if string(fs.Get(id).Content) != "new" {
		t.Fatalf("content = %q", fs.Get(id).Content)
	}
}

func TestNormalizeCRLF(t *testing.T) {
	out, changed := normalizeCRLF([]byte("a\r\nb\rc\n"))
	if !changed {
		t.Fatal("expected change")
	}
	if string(out) != "a\nb\rc\n" {
		t.Fatalf("out = %q", out)
	}

	out, changed = normalizeCRLF([]byte("plain\n"))
	if changed {
		t.Fatal("unexpected change")
	}
	if string(out) != "plain\n" {
		t.Fatalf("out = %q", out)
	}
}
