// Package callgraph builds method-level call graphs and control flow
// graphs from a loaded program, in original names when a mapping is
// present.
package callgraph

import (
	"strings"

	"github.com/zboralski/lattice"

	"dexspect/internal/dalvik"
	"dexspect/internal/inspect"
	"dexspect/internal/mapping"
)

// CallEdge is one invoke site inside a method body.
type CallEdge struct {
	Offset   uint32      // code-unit offset of the invoke
	Kind     dalvik.Kind // invoke kind
	Callee   string      // label of the target method
	Owner    string      // original class of the target
	Internal bool        // target is defined in the program
}

// FuncInfo holds the data needed to build call graph and CFG for one method.
type FuncInfo struct {
	Name      string
	Owner     string
	Insts     []dalvik.Inst
	CallEdges []CallEdge
	Strings   map[uint32]string // const-string operands by offset
}

// Label renders a method as "owner.name(params)", the node name used by
// every graph.
func Label(owner string, sig mapping.Signature) string {
	return owner + "." + sig.Name + "(" + strings.Join(sig.Params, ",") + ")"
}

// Collect gathers every method with a body, in container order.
func Collect(in *inspect.Inspector) []FuncInfo {
	var funcs []FuncInfo
	in.AllClasses(func(c inspect.ClassSubject) {
		for _, m := range c.Methods() {
			if m.Code() == nil {
				continue
			}
			funcs = append(funcs, collectMethod(in, m))
		}
	})
	return funcs
}

func collectMethod(in *inspect.Inspector, m inspect.MethodSubject) FuncInfo {
	f := FuncInfo{
		Name:  Label(m.Holder().OriginalName(), m.OriginalSignature()),
		Owner: m.Holder().OriginalName(),
		Insts: m.Code().Insts,
	}
	it := m.Instructions()
	for it.HasNext() {
		s, _ := it.Next()
		switch {
		case s.IsInvoke():
			ref := s.Method()
			owner, sig := in.OriginalMethod(ref)
			f.CallEdges = append(f.CallEdges, CallEdge{
				Offset:   s.Offset(),
				Kind:     s.Kind(),
				Callee:   Label(owner, sig),
				Owner:    owner,
				Internal: in.ResolveMethod(ref).Present(),
			})
		case s.IsConstStringAny():
			if f.Strings == nil {
				f.Strings = make(map[uint32]string)
			}
			v, _ := s.StringValue()
			f.Strings[s.Offset()] = v
		}
	}
	return f
}

// BuildCallGraph constructs a lattice.Graph from collected methods.
// Each method becomes a node and each invoke site an edge.
func BuildCallGraph(funcs []FuncInfo) *lattice.Graph {
	g := &lattice.Graph{}
	for _, f := range funcs {
		g.Nodes = append(g.Nodes, f.Name)
		for _, e := range f.CallEdges {
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: f.Name,
				Callee: e.Callee,
			})
		}
	}
	g.Dedup()
	return g
}
