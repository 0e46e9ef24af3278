package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ferrite/internal/diag"
	"ferrite/internal/safety"
)

// useMovedIR encodes a function that initializes x, moves it into y, and
// then reads x again on an assignment, which the ownership analysis must
// reject.
const useMovedIR = `{
  "file": "prog.cpp",
  "functions": [
    {
      "name": "use_moved",
      "line": 1,
      "variables": [
        {"name": "x", "type": "owned"},
        {"name": "y", "type": "owned"},
        {"name": "z", "type": "owned"}
      ],
      "blocks": [
        {
          "id": 0,
          "stmts": [
            {"kind": "assign", "line": 2, "lhs": "x", "rhs": {"kind": "lit", "value": "42"}},
            {"kind": "move", "line": 3, "from": "x", "to": "y"},
            {"kind": "assign", "line": 4, "lhs": "z", "rhs": {"kind": "var", "name": "x"}}
          ]
        }
      ]
    }
  ]
}`

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestCheckPathsReportsUseAfterMove(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "prog.ir.json", useMovedIR)

	res, err := CheckPaths(context.Background(), []string{dir}, Options{
		SafetyDefault: safety.ModeSafe,
	})
	if err != nil {
		t.Fatalf("CheckPaths: %v", err)
	}
	if len(res.Files) != 1 {
		t.Fatalf("files = %d, want 1", len(res.Files))
	}

	items := res.Merged.Items()
	if len(items) != 1 {
		t.Fatalf("diagnostics = %d, want 1: %+v", len(items), items)
	}
	if items[0].Code != diag.OwnUseAfterMove {
		t.Errorf("code = %v, want OwnUseAfterMove", items[0].Code)
	}
	if items[0].Function != "use_moved" {
		t.Errorf("function = %q, want use_moved", items[0].Function)
	}
	if items[0].Primary.Start != 4 {
		t.Errorf("line = %d, want 4", items[0].Primary.Start)
	}
}

func TestCheckPathsCompanionSourceGatesChecking(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "prog.ir.json", useMovedIR)
	writeInput(t, dir, "prog.cpp", "void use_moved() {\n}\n")

	// Without a @safe annotation nothing is analyzed.
	res, err := CheckPaths(context.Background(), []string{dir}, Options{})
	if err != nil {
		t.Fatalf("CheckPaths: %v", err)
	}
	if res.Merged.Len() != 0 {
		t.Fatalf("unannotated source should suppress analysis, got %d diagnostics", res.Merged.Len())
	}

	writeInput(t, dir, "prog.cpp", "// @safe\nvoid use_moved() {\n}\n")
	res, err = CheckPaths(context.Background(), []string{dir}, Options{})
	if err != nil {
		t.Fatalf("CheckPaths: %v", err)
	}
	if res.Merged.Len() != 1 {
		t.Fatalf("annotated source should enable analysis, got %d diagnostics", res.Merged.Len())
	}
}

func TestCheckPathsCacheHitOnSecondRun(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "prog.ir.json", useMovedIR)

	cache, err := OpenDiskCacheAt(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}
	opts := Options{SafetyDefault: safety.ModeSafe, Cache: cache}

	first, err := CheckPaths(context.Background(), []string{dir}, opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Files[0].Cached {
		t.Fatalf("first run should not hit the cache")
	}

	second, err := CheckPaths(context.Background(), []string{dir}, opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !second.Files[0].Cached {
		t.Fatalf("second run should hit the cache")
	}
	if second.Merged.Len() != first.Merged.Len() {
		t.Fatalf("cached diagnostics = %d, fresh = %d", second.Merged.Len(), first.Merged.Len())
	}
	got := second.Merged.Items()[0]
	want := first.Merged.Items()[0]
	if got.Code != want.Code || got.Message != want.Message || got.Primary.Start != want.Primary.Start {
		t.Fatalf("cached diagnostic differs: got %+v, want %+v", got, want)
	}
}

func TestCheckPathsCacheKeyedOnSafetyDefault(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "prog.ir.json", useMovedIR)

	cache, err := OpenDiskCacheAt(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}

	res, err := CheckPaths(context.Background(), []string{dir}, Options{
		SafetyDefault: safety.ModeSafe,
		Cache:         cache,
	})
	if err != nil {
		t.Fatalf("safe run: %v", err)
	}
	if res.Merged.Len() != 1 {
		t.Fatalf("safe run diagnostics = %d, want 1", res.Merged.Len())
	}

	// A different safety default must not reuse the safe run's entry.
	res, err = CheckPaths(context.Background(), []string{dir}, Options{Cache: cache})
	if err != nil {
		t.Fatalf("default run: %v", err)
	}
	if res.Files[0].Cached {
		t.Fatalf("run with a different safety default must miss the cache")
	}
	if res.Merged.Len() != 0 {
		t.Fatalf("default run diagnostics = %d, want 0", res.Merged.Len())
	}
}

func TestCheckPathsBadInput(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "broken.ir.json", "{not json")

	res, err := CheckPaths(context.Background(), []string{dir}, Options{SafetyDefault: safety.ModeSafe})
	if err != nil {
		t.Fatalf("CheckPaths: %v", err)
	}
	items := res.Merged.Items()
	if len(items) != 1 || items[0].Code != diag.DrvBadInput {
		t.Fatalf("expected one DrvBadInput diagnostic, got %+v", items)
	}
}

func TestCheckPathsMissingPathErrors(t *testing.T) {
	_, err := CheckPaths(context.Background(), []string{"/no/such/path"}, Options{})
	if err == nil {
		t.Fatalf("expected an error for a missing input path")
	}
}

func TestCheckPathsEmitsEvents(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "prog.ir.json", useMovedIR)

	events := make(chan Event, 8)
	_, err := CheckPaths(context.Background(), []string{dir}, Options{
		SafetyDefault: safety.ModeSafe,
		Events:        events,
	})
	if err != nil {
		t.Fatalf("CheckPaths: %v", err)
	}
	close(events)

	var starts, dones int
	for ev := range events {
		switch ev.Kind {
		case EventFileStart:
			starts++
		case EventFileDone:
			dones++
			if ev.Diags != 1 {
				t.Errorf("done event diags = %d, want 1", ev.Diags)
			}
		}
	}
	if starts != 1 || dones != 1 {
		t.Fatalf("events = %d starts, %d dones, want 1 each", starts, dones)
	}
}

func TestCheckPathsCancelUnblocksStalledEvents(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "a.ir.json", useMovedIR)
	writeInput(t, dir, "b.ir.json", useMovedIR)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event) // nobody reads

	done := make(chan struct{})
	go func() {
		_, _ = CheckPaths(ctx, []string{dir}, Options{
			SafetyDefault: safety.ModeSafe,
			Events:        events,
			Jobs:          1,
		})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("CheckPaths still blocked on the events channel after cancellation")
	}
}

func TestListInputsWalksAndSorts(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	b := writeInput(t, dir, "b.ir.json", "{}")
	a := writeInput(t, sub, "a.ir.json", "{}")
	writeInput(t, dir, "notes.txt", "skip me")

	files, err := ListInputs([]string{dir})
	if err != nil {
		t.Fatalf("listInputs: %v", err)
	}
	if len(files) != 2 || files[0] != b || files[1] != a {
		t.Fatalf("files = %v, want [%s %s]", files, b, a)
	}
}

func TestCompanionPath(t *testing.T) {
	if got := companionPath("src/prog.ir.json"); got != "src/prog.cpp" {
		t.Errorf("companionPath = %q", got)
	}
	if got := companionPath("src/prog.json"); got != "src/prog.cpp" {
		t.Errorf("companionPath fallback = %q", got)
	}
}
