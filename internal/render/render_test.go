package render

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"dexspect/internal/callgraph"
	"dexspect/internal/dalvik"
)

// main calls helper twice statically and String.length virtually.
// helper calls Util.log. orphan is never called. Util.log is called
// only from helper.
func sampleFuncs() []callgraph.FuncInfo {
	return []callgraph.FuncInfo{
		{
			Name:  "com.example.A.main()",
			Owner: "com.example.A",
			CallEdges: []callgraph.CallEdge{
				{Offset: 0, Kind: dalvik.KindInvokeStatic, Callee: "com.example.A.helper()", Owner: "com.example.A", Internal: true},
				{Offset: 3, Kind: dalvik.KindInvokeStatic, Callee: "com.example.A.helper()", Owner: "com.example.A", Internal: true},
				{Offset: 6, Kind: dalvik.KindInvokeVirtual, Callee: "java.lang.String.length()", Owner: "java.lang.String"},
			},
			Strings: map[uint32]string{9: "hello"},
		},
		{
			Name:  "com.example.A.helper()",
			Owner: "com.example.A",
			CallEdges: []callgraph.CallEdge{
				{Offset: 0, Kind: dalvik.KindInvokeStatic, Callee: "com.example.Util.log(java.lang.String)", Owner: "com.example.Util", Internal: true},
			},
		},
		{Name: "com.example.Util.log(java.lang.String)", Owner: "com.example.Util"},
		{Name: "com.example.B.orphan()", Owner: "com.example.B"},
		{Name: "com.example.B.<clinit>()", Owner: "com.example.B"},
	}
}

func TestFindEntryPoints(t *testing.T) {
	funcs := sampleFuncs()
	got := FindEntryPoints(funcs)
	want := []string{"com.example.A.main()", "com.example.B.<clinit>()", "com.example.B.orphan()"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entry points (-want +got):\n%s", diff)
	}

	reach := ReachableSet([]string{"com.example.A.main()"}, funcs)
	for _, name := range []string{"com.example.A.main()", "com.example.A.helper()", "com.example.Util.log(java.lang.String)"} {
		if !reach[name] {
			t.Errorf("%s not reachable", name)
		}
	}
	if reach["com.example.B.orphan()"] || reach["java.lang.String.length()"] {
		t.Errorf("reachable set too large: %v", reach)
	}
}

func TestReachabilityDOT(t *testing.T) {
	funcs := sampleFuncs()
	entries := FindEntryPoints(funcs)
	dot := ReachabilityDOT(funcs, ReachableSet(entries, funcs), entries, "reach", NASA)
	for _, want := range []string{
		"digraph reachable {",
		"subgraph cluster_" + dotID("com.example.A"),
		dotID("com.example.A.main()") + ` [label="main()", penwidth=1.5`,
		dotID("com.example.A.main()") + " -> " + dotID("com.example.A.helper()") + ` [color="#424242", penwidth=0.7]`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("missing %q in\n%s", want, dot)
		}
	}
	if strings.Contains(dot, dotID("java.lang.String.length()")) {
		t.Error("external method in reachability graph")
	}
	if dot != ReachabilityDOT(funcs, ReachableSet(entries, funcs), entries, "reach", NASA) {
		t.Error("output not deterministic")
	}
}

func TestCallgraphDOT(t *testing.T) {
	dot := CallgraphDOT(sampleFuncs(), "calls", NASA, 0)
	for _, want := range []string{
		"digraph callgraph {",
		"subgraph cluster_" + dotID("com.example.A"),
		dotID("com.example.A.helper()") + ` [label="helper()"]`,
		dotID("java.lang.String.length()") + ` [label="java.lang.String.length()", shape=plaintext`,
		dotID("com.example.A.main()") + " -> " + dotID("java.lang.String.length()") + ` [color="#9E9E9E", style="dotted"]`,
		dotID("com.example.A.main()") + " -> " + dotID("com.example.A.helper()") + ` [color="#0B3D91", style="solid", penwidth=0.7]`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("missing %q in\n%s", want, dot)
		}
	}
	if strings.Contains(dot, dotID("com.example.B.orphan()")) {
		t.Error("method without edges rendered")
	}
}

func TestClassgraphDOT(t *testing.T) {
	funcs := sampleFuncs()
	internal := ClassgraphDOT(funcs, "", NASA, 0, false)
	edge := dotID("com.example.A") + " -> " + dotID("com.example.Util")
	if !strings.Contains(internal, edge) {
		t.Errorf("missing %q in\n%s", edge, internal)
	}
	if strings.Contains(internal, dotID("java.lang.String")) {
		t.Error("external class without external flag")
	}
	all := ClassgraphDOT(funcs, "", NASA, 0, true)
	if !strings.Contains(all, dotID("java.lang.String")+` [label=<<font point-size="10">String</font><br/><font point-size="7" color="#9E9E9E">external</font>>`) {
		t.Errorf("external class missing in\n%s", all)
	}
	if one := ClassgraphDOT(funcs, "", NASA, 1, true); strings.Count(one, "tooltip=") != 1 {
		t.Errorf("maxNodes not applied:\n%s", one)
	}
}

func TestComputeStats(t *testing.T) {
	s := ComputeStats(sampleFuncs())
	if s.TotalMethods != 5 || s.TotalEdges != 4 || s.InternalEdges != 3 || s.ExternalEdges != 1 {
		t.Errorf("stats = %+v", s)
	}
	if s.UniqueOwners != 3 || s.StringRefs != 1 {
		t.Errorf("owners %d strings %d", s.UniqueOwners, s.StringRefs)
	}
	if diff := cmp.Diff(map[string]int{"invoke-static": 3, "invoke-virtual": 1}, s.KindCounts); diff != "" {
		t.Errorf("KindCounts (-want +got):\n%s", diff)
	}
	if s.TopCallees[0] != (NameCount{"com.example.A.helper()", 2}) {
		t.Errorf("TopCallees = %+v", s.TopCallees)
	}
	want := []NameCount{{"com.example.A", 2}, {"com.example.B", 2}, {"com.example.Util", 1}}
	if diff := cmp.Diff(want, s.TopOwners); diff != "" {
		t.Errorf("TopOwners (-want +got):\n%s", diff)
	}
}

func TestCFGDOT(t *testing.T) {
	//   0: if-eqz v0, +4  -> 4
	//   2: const/4
	//   3: return-void
	//   4: return-void
	insts := []dalvik.Inst{
		{Offset: 0, Op: dalvik.OpIfEqz, Size: 2, Branch: 4},
		{Offset: 2, Op: dalvik.OpConst4, Size: 1},
		{Offset: 3, Op: dalvik.OpReturnVoid, Size: 1},
		{Offset: 4, Op: dalvik.OpReturnVoid, Size: 1},
	}
	dot := CFGDOT(dalvik.BuildCFG("La;->f()V", insts), NASA)
	for _, want := range []string{
		"digraph cfg {",
		"La;-&gt;f()V",
		`bb0 -> bb2 [color="#0B3D91"`,
		`bb0 -> bb1 [color="#FC3D21"`,
		"0000: if-eqz",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("missing %q in\n%s", want, dot)
		}
	}
	if CFGDOT(dalvik.FuncCFG{Name: "empty"}, NASA) != "" {
		t.Error("empty CFG rendered")
	}
}

func TestHelpers(t *testing.T) {
	if got := dotID("a.B$1"); got != "n_a_002eB_00241" {
		t.Errorf("dotID = %q", got)
	}
	if got := stripOwner("com.example.A.run()", "com.example.A"); got != "run()" {
		t.Errorf("stripOwner = %q", got)
	}
	if got := simpleName("com.example.A$B"); got != "A$B" {
		t.Errorf("simpleName = %q", got)
	}
	if got := truncLabel("abcdefgh", 6); got != "abc..." {
		t.Errorf("truncLabel = %q", got)
	}
}
