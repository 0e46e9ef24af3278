package safety

import "testing"

func TestScanNamespaceAnnotation(t *testing.T) {
	src := []byte(`
// @safe
namespace myapp {
    void func1() {}
    void func2() {}
}
`)
	ctx := Scan(src)
	if ctx.FileDefault != ModeSafe {
		t.Fatalf("file default = %v, want safe", ctx.FileDefault)
	}
	if !ctx.ShouldCheck("func1") || !ctx.ShouldCheck("func2") {
		t.Fatalf("namespace annotation should cover both functions")
	}
}

func TestScanFunctionAnnotations(t *testing.T) {
	src := []byte(`
// Default is unchecked
void plain_func() {}

// @safe
void safe_func() {
    int x = 42;
}

// @unsafe
void explicit_unsafe() {}
`)
	ctx := Scan(src)
	if ctx.FileDefault != ModeDefault {
		t.Fatalf("file default = %v, want default", ctx.FileDefault)
	}
	if ctx.ShouldCheck("plain_func") {
		t.Fatalf("plain_func should not be checked")
	}
	if !ctx.ShouldCheck("safe_func") {
		t.Fatalf("safe_func should be checked")
	}
	if ctx.ShouldCheck("explicit_unsafe") {
		t.Fatalf("explicit_unsafe should not be checked")
	}
}

func TestScanFunctionOverrideBeatsFileDefault(t *testing.T) {
	src := []byte(`
// @safe
namespace app {
void covered() {}

// @unsafe
void escape_hatch() {}
}
`)
	ctx := Scan(src)
	if ctx.ShouldCheck("escape_hatch") {
		t.Fatalf("escape_hatch has an unsafe override")
	}
	if !ctx.ShouldCheck("covered") {
		t.Fatalf("covered falls back to the safe file default")
	}
}

func TestScanAnnotationConsumedByStatement(t *testing.T) {
	src := []byte(`
// @safe
int global_var = compute(42);

void func() {}
`)
	ctx := Scan(src)
	if ctx.FileDefault != ModeDefault {
		t.Fatalf("annotation on a plain declaration must not set the file default")
	}
	if ctx.ShouldCheck("func") {
		t.Fatalf("func has no annotation and the default is unchecked")
	}
}

func TestScanMultiLineDeclaration(t *testing.T) {
	src := []byte(`
// @safe
void long_signature(
    int a,
    int b)
{
}
`)
	ctx := Scan(src)
	if !ctx.ShouldCheck("long_signature") {
		t.Fatalf("annotation should survive a declaration split over lines")
	}
}

func TestScanBlockCommentAnnotation(t *testing.T) {
	src := []byte(`
/*
 * @safe
 */
void documented() {}
`)
	ctx := Scan(src)
	if !ctx.ShouldCheck("documented") {
		t.Fatalf("block comment annotation should attach")
	}
}

func TestScanUnsafeRegions(t *testing.T) {
	src := []byte(`// @safe
void test() {
    int value = 42;
    int& ref1 = value;

    // @unsafe
    int& ref2 = value;
    int& ref3 = value;
    // @endunsafe

    int& ref4 = value;
}
`)
	ctx := Scan(src)
	if len(ctx.Regions) != 1 {
		t.Fatalf("expected 1 region, got %d", len(ctx.Regions))
	}
	if r := ctx.Regions[0]; r.Start != 6 || r.End != 9 {
		t.Fatalf("region = %+v, want 6..9", r)
	}
	for _, tc := range []struct {
		line uint32
		want bool
	}{{5, false}, {7, true}, {8, true}, {11, false}} {
		if got := ctx.LineUnsafe(tc.line); got != tc.want {
			t.Fatalf("LineUnsafe(%d) = %v, want %v", tc.line, got, tc.want)
		}
	}
}

func TestScanNestedUnsafeRegions(t *testing.T) {
	src := []byte(`// @safe
void test() {
    // @unsafe
    int& ref1 = value;
    // @unsafe
    int& ref2 = value;
    // @endunsafe
    int& ref3 = value;
    // @endunsafe
}
`)
	ctx := Scan(src)
	if len(ctx.Regions) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(ctx.Regions))
	}
}

func TestScanUnclosedRegionDropped(t *testing.T) {
	src := []byte(`// @unsafe
int& ref = value;
`)
	ctx := Scan(src)
	if len(ctx.Regions) != 0 {
		t.Fatalf("unclosed region should be dropped, got %d", len(ctx.Regions))
	}
}

func TestNilContext(t *testing.T) {
	var ctx *Context
	if ctx.ShouldCheck("f") {
		t.Fatalf("nil context checks nothing")
	}
	if ctx.LineUnsafe(1) {
		t.Fatalf("nil context has no regions")
	}
}
