package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"dexspect/internal/dex"
	"dexspect/internal/dex/dextest"
	"dexspect/internal/output"
)

const testMapping = `com.example.A -> a:
# {"id":"sourceFile","fileName":"A.java"}
    int count -> b
    1:1:void helper():10:10 -> a
com.example.Util -> b:
    void log(java.lang.String) -> a
`

// fixture writes classes.dex and mapping.txt to a temp dir and returns
// their paths.
func fixture(t *testing.T) (dexPath, mapPath string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	color.NoColor = true

	static := uint32(dex.AccPublic | dex.AccStatic)
	logRef := dextest.MethodRef("Lb;", "a", "V", "Ljava/lang/String;")
	classes := []*dextest.Class{
		{
			Descriptor:   "La;",
			Access:       uint32(dex.AccPublic),
			StaticFields: []dextest.Field{{Name: "b", Type: "I", Access: static}},
			DirectMethods: []dextest.Method{
				{Name: "a", Return: "V", Access: static, Code: dextest.Body(1,
					dextest.ConstString(0, "https://example.com/api"),
					dextest.InvokeStatic(logRef, 0),
					dextest.ReturnVoid(),
				)},
				{Name: "main", Return: "V", Access: static, Code: dextest.Body(1,
					dextest.Sget(0, dextest.FieldRef("La;", "b", "I")),
					dextest.IfEqz(0, 6),
					dextest.InvokeStatic(dextest.MethodRef("La;", "a", "V")),
					dextest.ReturnVoid(),
					dextest.InvokeStatic(dextest.MethodRef("La;", "a", "V")),
					dextest.ReturnVoid(),
				)},
			},
		},
		{
			Descriptor: "Lb;",
			DirectMethods: []dextest.Method{
				{Name: "a", Return: "V", Params: []string{"Ljava/lang/String;"}, Access: static,
					Code: dextest.Body(1, dextest.ReturnVoid())},
			},
		},
	}
	dir := t.TempDir()
	dexPath = filepath.Join(dir, "classes.dex")
	mapPath = filepath.Join(dir, "mapping.txt")
	if err := os.WriteFile(dexPath, dextest.New().Add(classes...).Build(), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(mapPath, []byte(testMapping), 0644); err != nil {
		t.Fatal(err)
	}
	return dexPath, mapPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestClassesCmd(t *testing.T) {
	dexPath, mapPath := fixture(t)
	out, err := run(t, "classes", "-m", mapPath, dexPath)
	if err != nil {
		t.Fatalf("classes: %v", err)
	}
	for _, want := range []string{
		"com.example.A <- a  fields=1 methods=2",
		"com.example.Util <- b  fields=0 methods=1",
		"2 of 2 classes renamed, 2 mapping entries",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestClassesCmd_JSON(t *testing.T) {
	dexPath, mapPath := fixture(t)
	out, err := run(t, "classes", "--json", "-m", mapPath, dexPath)
	if err != nil {
		t.Fatalf("classes --json: %v", err)
	}
	var recs []output.ClassRecord
	if err := json.Unmarshal([]byte(out), &recs); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(recs) != 2 || recs[0].Name != "com.example.A" || recs[0].SourceFile != "A.java" {
		t.Errorf("records = %+v", recs)
	}
	if _, err := run(t, "classes", "--json", "--yaml", dexPath); err == nil {
		t.Error("--json with --yaml: expected error")
	}
}

func TestLookupCmd(t *testing.T) {
	_, mapPath := fixture(t)
	tests := []struct {
		name string
		want []string
	}{
		{"com.example.A", []string{"com.example.A -> a", "source A.java", "int count -> b", "void helper() -> a [1:1 -> 10:10]"}},
		{"b", []string{"com.example.Util -> b", "void log(java.lang.String) -> a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "lookup", "-m", mapPath, tt.name)
			if err != nil {
				t.Fatalf("lookup: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
	if _, err := run(t, "lookup", "-m", mapPath, "com.example.Missing"); err == nil {
		t.Error("unknown class: expected error")
	}
	if _, err := run(t, "lookup", "a"); err == nil {
		t.Error("no mapping: expected error")
	}
}

func TestDumpCmd(t *testing.T) {
	dexPath, mapPath := fixture(t)
	out, err := run(t, "dump", "-m", mapPath, "--class", "com.example.A", "--method", "main", dexPath)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	for _, want := range []string{"; com.example.A void main()", "; com.example.A.count:int", "; com.example.A.helper()"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "void helper()\n") {
		t.Errorf("--method did not filter:\n%s", out)
	}

	if _, err := run(t, "dump", "-m", mapPath, "--class", "com.example.A", "--method", "nope", dexPath); err == nil {
		t.Error("unknown method: expected error")
	}
	if _, err := run(t, "dump", "--class", "com.example.Nope", dexPath); err == nil {
		t.Error("unknown class: expected error")
	}
}

func TestGraphCmd(t *testing.T) {
	dexPath, mapPath := fixture(t)
	outDir := t.TempDir()
	out, err := run(t, "graph", "-m", mapPath, "--out", outDir, "--cfg", "--summary", dexPath)
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	if !strings.Contains(out, "methods:   3") {
		t.Errorf("stats missing method count:\n%s", out)
	}
	for _, name := range []string{
		"callgraph.dot", "classgraph.dot", "lattice.dot", "reachable.dot", "cfg.dot", "summary.dot",
		filepath.Join("cfg", output.FileName("com.example.A.main()")+".dot"),
	} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	dot, err := os.ReadFile(filepath.Join(outDir, "callgraph.dot"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(dot), "helper") || strings.Contains(string(dot), "\"a.a()\"") {
		t.Errorf("callgraph not under original names:\n%s", dot)
	}
}

func TestSignalCmd(t *testing.T) {
	dexPath, mapPath := fixture(t)
	outDir := t.TempDir()
	out, err := run(t, "signal", "-m", mapPath, "--out", outDir, dexPath)
	if err != nil {
		t.Fatalf("signal: %v", err)
	}
	for _, want := range []string{
		"1 signal, 2 context of 3 methods",
		"com.example.A.helper()  [url]",
		`"https://example.com/api"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "signal.json")); err != nil {
		t.Errorf("missing signal.json: %v", err)
	}
}
