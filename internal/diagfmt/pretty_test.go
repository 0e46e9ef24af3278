package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"ferrite/internal/diag"
	"ferrite/internal/source"
)

func testBag(t *testing.T) (*diag.Bag, *source.FileSet) {
	t.Helper()
	fileSet := source.NewFileSet()
	content := []byte("auto x = make_widget();\nauto y = std::move(x);\nconsume(x);\n")
	fileID := fileSet.AddVirtual("main.cpp", content)

	bag := diag.NewBag(16)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.OwnUseAfterMove,
		Message:  "Use of moved variable 'x'",
		Function: "make_widget",
		Primary:  source.At(fileID, 3),
	})
	return bag, fileSet
}

func TestPrettyBasic(t *testing.T) {
	bag, fileSet := testBag(t)

	var buf bytes.Buffer
	err := Pretty(&buf, bag, fileSet, PrettyOpts{})
	if err != nil {
		t.Fatalf("Pretty() error: %v", err)
	}

	got := buf.String()
	want := "main.cpp:3: ERROR OWN1001: Use of moved variable 'x' [in make_widget]\n"
	if got != want {
		t.Fatalf("Pretty output = %q, want %q", got, want)
	}
}

func TestPrettyQuotesSourceLine(t *testing.T) {
	bag, fileSet := testBag(t)

	var buf bytes.Buffer
	if err := Pretty(&buf, bag, fileSet, PrettyOpts{Quote: true}); err != nil {
		t.Fatalf("Pretty() error: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "    3 | consume(x);") {
		t.Fatalf("expected quoted source line, got:\n%s", got)
	}
}

func TestPrettyMultiLineSpanCapped(t *testing.T) {
	fileSet := source.NewFileSet()
	content := []byte("l1\nl2\nl3\nl4\nl5\n")
	fileID := fileSet.AddVirtual("wide.cpp", content)

	bag := diag.NewBag(4)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevWarning,
		Code:     diag.ScpDanglingReturn,
		Message:  "spans many lines",
		Primary:  source.Lines(fileID, 1, 5),
	})

	var buf bytes.Buffer
	if err := Pretty(&buf, bag, fileSet, PrettyOpts{Quote: true}); err != nil {
		t.Fatalf("Pretty() error: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "wide.cpp:1-5") {
		t.Fatalf("expected line-range location, got:\n%s", got)
	}
	if !strings.Contains(got, "| l3") {
		t.Fatalf("expected third quoted line, got:\n%s", got)
	}
	if strings.Contains(got, "| l4") {
		t.Fatalf("quote should stop after %d lines, got:\n%s", maxQuotedLines, got)
	}
}

func TestPrettyShowsNotes(t *testing.T) {
	fileSet := source.NewFileSet()
	fileID := fileSet.AddVirtual("main.cpp", []byte("auto y = std::move(x);\nconsume(x);\n"))

	d := diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.OwnUseAfterMove,
		Message:  "Use of moved variable 'x'",
		Primary:  source.At(fileID, 2),
	}
	d = d.WithNote(source.At(fileID, 1), "value moved here")

	bag := diag.NewBag(4)
	bag.Add(d)

	var buf bytes.Buffer
	if err := Pretty(&buf, bag, fileSet, PrettyOpts{ShowNotes: true}); err != nil {
		t.Fatalf("Pretty() error: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "  note: main.cpp:1: value moved here") {
		t.Fatalf("expected note line, got:\n%s", got)
	}
}

func TestPrettyMaxTruncates(t *testing.T) {
	fileSet := source.NewFileSet()
	fileID := fileSet.AddVirtual("main.cpp", []byte("a\nb\nc\n"))

	bag := diag.NewBag(8)
	for line := uint32(1); line <= 3; line++ {
		bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.OwnUseAfterMove,
			Message:  "diag",
			Primary:  source.At(fileID, line),
		})
	}

	var buf bytes.Buffer
	if err := Pretty(&buf, bag, fileSet, PrettyOpts{Max: 1}); err != nil {
		t.Fatalf("Pretty() error: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "... and 2 more") {
		t.Fatalf("expected truncation marker, got:\n%s", got)
	}
	if strings.Count(got, "OWN1001") != 1 {
		t.Fatalf("expected a single rendered diagnostic, got:\n%s", got)
	}
}

func TestPrettyColorEmitsEscapes(t *testing.T) {
	bag, fileSet := testBag(t)

	var buf bytes.Buffer
	if err := Pretty(&buf, bag, fileSet, PrettyOpts{Color: true}); err != nil {
		t.Fatalf("Pretty() error: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected ANSI escapes with Color enabled, got %q", buf.String())
	}
}

func TestFormatPathBasename(t *testing.T) {
	got := formatPath("/very/long/nested/path/main.cpp", PathModeBasename, "")
	if got != "main.cpp" {
		t.Fatalf("formatPath basename = %q", got)
	}
}

func TestFormatPathRelative(t *testing.T) {
	got := formatPath("/proj/src/main.cpp", PathModeRelative, "/proj")
	if got != "src/main.cpp" {
		t.Fatalf("formatPath relative = %q", got)
	}
}
