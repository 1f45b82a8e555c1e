package mapping

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sample = `# compiler: R8
# compiler_version: 8.2.42
com.example.A -> a:
# {"id":"sourceFile","fileName":"A.java"}
    int count -> b
    java.lang.String name -> c
    1:3:void foo():10:12 -> b
    4:4:void foo():15 -> b
    void bar(int,com.example.B) -> c
    com.example.B[] all() -> d
    void keep() -> keep
com.example.B -> b:
    5:5:void com.example.Util.check():40:40 -> a
    5:5:void run():20:20 -> a
    6:7:void run():21:22 -> a
com.example.Plain -> com.example.Plain:
`

func mustParse(t *testing.T, s string) *Table {
	t.Helper()
	tbl, err := ParseString(s)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	return tbl
}

func TestParse_Classes(t *testing.T) {
	tbl := mustParse(t, sample)
	if tbl.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tbl.Len())
	}
	var got []string
	for _, c := range tbl.Classes() {
		got = append(got, c.OriginalName+"->"+c.RenamedName)
	}
	want := []string{"com.example.A->a", "com.example.B->b", "com.example.Plain->com.example.Plain"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Classes() order (-want +got):\n%s", diff)
	}
	if sf := tbl.ClassNaming("a").SourceFile; sf != "A.java" {
		t.Errorf("SourceFile = %q, want A.java", sf)
	}
	if tbl.ClassNaming("com.example.Plain").IsRenamed() {
		t.Error("identity-mapped class reported renamed")
	}
}

func TestClassNaming_Bidirectional(t *testing.T) {
	tbl := mustParse(t, sample)
	byOrig := tbl.ClassNaming("com.example.A")
	byObf := tbl.ClassNaming("a")
	if byOrig == nil || byOrig != byObf {
		t.Fatalf("ClassNaming(original) = %p, ClassNaming(obfuscated) = %p", byOrig, byObf)
	}
	if tbl.ClassNaming("com.example.Missing") != nil {
		t.Error("unknown class should have no naming")
	}
}

func TestClassNaming_SwappedNames(t *testing.T) {
	// The original name wins when a name is both an original and an
	// obfuscated name.
	tbl := mustParse(t, "x.A -> x.B:\nx.B -> x.A:\n")
	if c := tbl.ClassNaming("x.A"); c == nil || c.OriginalName != "x.A" {
		t.Errorf("ClassNaming(x.A) = %+v, want original x.A", c)
	}
}

func TestLookupByOriginal(t *testing.T) {
	tbl := mustParse(t, sample)
	a := tbl.ClassNaming("a")
	tests := []struct {
		sig  Signature
		want string
	}{
		{FieldSig("int", "count"), "b"},
		{FieldSig("java.lang.String", "name"), "c"},
		{MethodSig("void", "foo"), "b"},
		{MethodSig("void", "bar", "int", "com.example.B"), "c"},
		{MethodSig("com.example.B[]", "all"), "d"},
		{MethodSig("void", "keep"), "keep"},
	}
	for _, tt := range tests {
		m := a.LookupByOriginal(tt.sig)
		if m == nil {
			t.Errorf("LookupByOriginal(%s) = nil", tt.sig)
			continue
		}
		if m.RenamedName != tt.want {
			t.Errorf("LookupByOriginal(%s).RenamedName = %q, want %q", tt.sig, m.RenamedName, tt.want)
		}
	}
	if m := a.LookupByOriginal(MethodSig("void", "foo", "int")); m != nil {
		t.Errorf("overload without mapping = %+v, want nil", m)
	}
	if m := a.LookupByOriginal(MethodSig("void", "keep")); m.IsRenamed() {
		t.Error("keep() reported renamed")
	}
}

func TestLookup_Renamed(t *testing.T) {
	tbl := mustParse(t, sample)
	a := tbl.ClassNaming("com.example.A")
	m := a.Lookup(MethodSig("void", "c", "int", "com.example.B"))
	if m == nil || m.Original.Name != "bar" {
		t.Fatalf("Lookup(void c(int,com.example.B)) = %+v, want bar", m)
	}
	// A field and a method may share a renamed name.
	if f := a.Lookup(FieldSig("int", "b")); f == nil || f.Original.Name != "count" {
		t.Errorf("Lookup(int b) = %+v, want count", f)
	}
}

func TestParse_MergesRanges(t *testing.T) {
	tbl := mustParse(t, sample)
	m := tbl.ClassNaming("a").LookupByOriginal(MethodSig("void", "foo"))
	want := []Range{{1, 3, 10, 12}, {4, 4, 15, 15}}
	if diff := cmp.Diff(want, m.Ranges); diff != "" {
		t.Errorf("Ranges (-want +got):\n%s", diff)
	}
}

func TestParse_InlineFrames(t *testing.T) {
	tbl := mustParse(t, sample)
	b := tbl.ClassNaming("b")
	if n := len(b.Members()); n != 1 {
		t.Fatalf("members = %d, want 1 (frame is not a member key)", n)
	}
	run := b.LookupByOriginal(MethodSig("void", "run"))
	if run == nil {
		t.Fatal("run() not mapped")
	}
	want := []InlineFrame{{
		Class:     "com.example.Util",
		Signature: MethodSig("void", "check"),
		Range:     Range{5, 5, 40, 40},
	}}
	if diff := cmp.Diff(want, run.Inlined); diff != "" {
		t.Errorf("Inlined (-want +got):\n%s", diff)
	}
	if len(run.Ranges) != 2 {
		t.Errorf("Ranges = %v, want 2 entries", run.Ranges)
	}
}

func TestParse_MovedMembers(t *testing.T) {
	tbl := mustParse(t, `com.A -> a:
    void com.B.moved() -> b
    1:1:void com.B.ranged(int):10:10 -> c
    2:2:void com.C.inner():30:30 -> d
    2:2:void com.B.outer():20:20 -> d
`)
	a := tbl.ClassNaming("a")
	if n := len(a.Members()); n != 3 {
		t.Fatalf("members = %d, want 3", n)
	}
	tests := []struct {
		sig   Signature
		class string
		obf   string
	}{
		{MethodSig("void", "moved"), "com.B", "b"},
		{MethodSig("void", "ranged", "int"), "com.B", "c"},
		{MethodSig("void", "outer"), "com.B", "d"},
	}
	for _, tt := range tests {
		m := a.LookupByOriginal(tt.sig)
		if m == nil {
			t.Errorf("%s not mapped", tt.sig)
			continue
		}
		if m.OriginalClass != tt.class || m.RenamedName != tt.obf {
			t.Errorf("%s: OriginalClass %q renamed %q, want %q %q", tt.sig, m.OriginalClass, m.RenamedName, tt.class, tt.obf)
		}
	}
	outer := a.LookupByOriginal(MethodSig("void", "outer"))
	want := []InlineFrame{{Class: "com.C", Signature: MethodSig("void", "inner"), Range: Range{2, 2, 30, 30}}}
	if diff := cmp.Diff(want, outer.Inlined); diff != "" {
		t.Errorf("Inlined (-want +got):\n%s", diff)
	}
	if m := a.Lookup(MethodSig("void", "b")); m == nil || m.Original.Name != "moved" {
		t.Errorf("Lookup(void b()) = %v", m)
	}
}

func TestTypeTranslation(t *testing.T) {
	tbl := mustParse(t, sample)
	tests := []struct {
		in, obf string
	}{
		{"com.example.A", "a"},
		{"com.example.A[][]", "a[][]"},
		{"int", "int"},
		{"int[]", "int[]"},
		{"java.lang.String", "java.lang.String"},
	}
	for _, tt := range tests {
		if got := tbl.ObfuscateType(tt.in); got != tt.obf {
			t.Errorf("ObfuscateType(%q) = %q, want %q", tt.in, got, tt.obf)
		}
		if got := tbl.DeobfuscateType(tt.obf); got != tt.in {
			t.Errorf("DeobfuscateType(%q) = %q, want %q", tt.obf, got, tt.in)
		}
	}
}

func TestSignatureRoundTrip(t *testing.T) {
	tbl := mustParse(t, sample)
	a := tbl.ClassNaming("a")
	for _, m := range a.Members() {
		final, _ := tbl.FinalSignature(a, m.Original)
		back, naming := tbl.OriginalSignature(a, final)
		if naming != m {
			t.Errorf("%s: round trip found naming %+v", m.Original, naming)
		}
		if !back.Equal(m.Original) {
			t.Errorf("round trip %s -> %s -> %s", m.Original, final, back)
		}
	}
	final, _ := tbl.FinalSignature(a, MethodSig("void", "bar", "int", "com.example.B"))
	if want := "void c(int,b)"; final.String() != want {
		t.Errorf("FinalSignature = %q, want %q", final, want)
	}
}

func TestNilTable(t *testing.T) {
	var tbl *Table
	if tbl.Len() != 0 || tbl.ClassNaming("A") != nil || tbl.Classes() != nil {
		t.Error("nil table should be empty")
	}
	if got := tbl.DeobfuscateType("a.B[]"); got != "a.B[]" {
		t.Errorf("DeobfuscateType = %q", got)
	}
	sig := MethodSig("void", "x", "int")
	if got, m := tbl.OriginalSignature(nil, sig); m != nil || !got.Equal(sig) {
		t.Errorf("OriginalSignature = %s, %v", got, m)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		line int
	}{
		{"missing arrow", "com.A a:\n", 1},
		{"missing colon", "com.A -> a\n", 1},
		{"member before class", "    int x -> a\n", 1},
		{"member missing arrow", "com.A -> a:\n    int x a\n", 2},
		{"unbalanced parens", "com.A -> a:\n    void f(int -> a\n", 2},
		{"empty name", "com.A -> a:\n    void (int) -> a\n", 2},
		{"bad line range", "com.A -> a:\n    1:x:void f() -> a\n", 2},
		{"reversed line range", "com.A -> a:\n    5:3:void f() -> a\n", 2},
		{"bad original range", "com.A -> a:\n    1:1:void f():x -> a\n", 2},
		{"duplicate class", "com.A -> a:\ncom.A -> b:\n", 2},
		{"two classes to one name", "com.A -> a:\ncom.B -> a:\n", 2},
		{"conflicting member", "com.A -> a:\n    int x -> a\n    int x -> b\n", 3},
		{"colliding renamed", "com.A -> a:\n    void f() -> a\n    void g() -> a\n", 3},
		{"empty parameter", "com.A -> a:\n    void f(int,) -> a\n", 2},
		{"missing type", "com.A -> a:\n    foo -> a\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.text)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
			if pe.Line != tt.line {
				t.Errorf("Line = %d, want %d (%v)", pe.Line, tt.line, pe)
			}
		})
	}
}
