package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"dexspect/internal/dex"
	"dexspect/internal/dex/dextest"
	"dexspect/internal/dexfmt"
	"dexspect/internal/inspect"
	"dexspect/internal/mapping"
)

const testMapping = `com.example.A -> a:
    int count -> b
    void helper() -> a
`

func newInspector(t *testing.T) *inspect.Inspector {
	t.Helper()
	static := uint32(dex.AccPublic | dex.AccStatic)
	classes := []*dextest.Class{{
		Descriptor:   "La;",
		Access:       uint32(dex.AccPublic),
		SourceFile:   "A.java",
		StaticFields: []dextest.Field{{Name: "b", Type: "I", Access: static}},
		DirectMethods: []dextest.Method{
			{Name: "a", Return: "V", Access: static, Code: dextest.Body(0, dextest.ReturnVoid())},
			{Name: "main", Return: "V", Access: static, Code: dextest.Body(1,
				dextest.Sget(0, dextest.FieldRef("La;", "b", "I")),
				dextest.InvokeStatic(dextest.MethodRef("La;", "a", "V")),
				dextest.InvokeStatic(dextest.MethodRef("Ljava/lang/System;", "gc", "V")),
				dextest.ReturnVoid(),
			)},
			{Name: "n", Return: "V", Access: static | uint32(dex.AccNative)},
		},
	}}
	prog, err := dex.Load("classes.dex", dextest.New().Add(classes...).Build(), dexfmt.Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	table, err := mapping.ParseString(testMapping)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	return inspect.New(prog, table)
}

func TestClasses(t *testing.T) {
	recs := Classes(newInspector(t))
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	r := recs[0]
	if r.Name != "com.example.A" || r.Final != "a" || !r.Renamed {
		t.Errorf("names = %q/%q renamed=%v", r.Name, r.Final, r.Renamed)
	}
	if r.Access != "public" {
		t.Errorf("Access = %q", r.Access)
	}
	if r.Super != "" {
		t.Errorf("Super = %q, want empty for Object", r.Super)
	}
	if r.SourceFile != "A.java" || r.File != "classes.dex" {
		t.Errorf("SourceFile=%q File=%q", r.SourceFile, r.File)
	}
	wantFields := []MemberRecord{{Original: "int count", Final: "int b", Renamed: true, Access: "public static"}}
	if diff := cmp.Diff(wantFields, r.Fields); diff != "" {
		t.Errorf("Fields (-want +got):\n%s", diff)
	}
	var methods []string
	for _, m := range r.Methods {
		methods = append(methods, m.Original+" -> "+m.Final)
	}
	wantMethods := []string{"void helper() -> void a()", "void main() -> void main()", "void n() -> void n()"}
	if diff := cmp.Diff(wantMethods, methods); diff != "" {
		t.Errorf("Methods (-want +got):\n%s", diff)
	}
	if r.Methods[0].Units != 1 || r.Methods[2].Units != 0 {
		t.Errorf("Units = %d, %d", r.Methods[0].Units, r.Methods[2].Units)
	}
}

func TestEncode(t *testing.T) {
	recs := Classes(newInspector(t))

	var jb bytes.Buffer
	if err := EncodeJSON(&jb, recs); err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	var fromJSON []ClassRecord
	if err := json.Unmarshal(jb.Bytes(), &fromJSON); err != nil {
		t.Fatalf("json: %v", err)
	}
	if diff := cmp.Diff(recs, fromJSON); diff != "" {
		t.Errorf("json (-want +got):\n%s", diff)
	}

	var yb bytes.Buffer
	if err := EncodeYAML(&yb, recs); err != nil {
		t.Fatalf("EncodeYAML: %v", err)
	}
	if !strings.Contains(yb.String(), "name: com.example.A") {
		t.Errorf("yaml missing class name:\n%s", yb.String())
	}
	var fromYAML []ClassRecord
	if err := yaml.Unmarshal(yb.Bytes(), &fromYAML); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if diff := cmp.Diff(recs, fromYAML); diff != "" {
		t.Errorf("yaml (-want +got):\n%s", diff)
	}
}

func TestFormatMethod(t *testing.T) {
	in := newInspector(t)
	c := in.Class("com.example.A")
	text := FormatMethod(c.Method("void", "main"), OriginalNames(in))
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d:\n%s", len(lines), text)
	}
	if lines[0] != "; com.example.A void main()" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "; final: a void main()" {
		t.Errorf("final = %q", lines[1])
	}
	if !strings.HasSuffix(lines[3], "  ; com.example.A.count:int") {
		t.Errorf("sget not annotated: %q", lines[3])
	}
	if !strings.HasSuffix(lines[4], "  ; com.example.A.helper()") {
		t.Errorf("invoke not annotated: %q", lines[4])
	}
	if strings.Contains(lines[5], "  ; ") {
		t.Errorf("library call annotated: %q", lines[5])
	}

	native := FormatMethod(c.Method("void", "n"))
	if !strings.HasSuffix(native, "; no code\n") {
		t.Errorf("native listing = %q", native)
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	if err := WriteDOT(dir, "cfg/main", "digraph {}\n"); err != nil {
		t.Fatalf("WriteDOT: %v", err)
	}
	if err := WriteASM(dir, "com.example.A.main()", "nop\n"); err != nil {
		t.Fatalf("WriteASM: %v", err)
	}
	if err := WriteClassesJSON(dir, Classes(newInspector(t))); err != nil {
		t.Fatalf("WriteClassesJSON: %v", err)
	}
	for _, name := range []string{"cfg/main.dot", "asm/com.example.A.main__.txt", "classes.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}
