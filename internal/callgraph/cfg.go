package callgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zboralski/lattice"

	"dexspect/internal/dalvik"
)

// maxStringLabel bounds string literals shown as CFG call sites.
const maxStringLabel = 50

// BuildCFG constructs a lattice.CFGGraph from collected methods.
// Each FuncInfo is partitioned by dalvik.BuildCFG then mapped to
// lattice types.
func BuildCFG(funcs []FuncInfo) *lattice.CFGGraph {
	cg := &lattice.CFGGraph{}
	for _, f := range funcs {
		lcfg, _ := BuildFuncCFG(f)
		cg.Funcs = append(cg.Funcs, lcfg)
	}
	return cg
}

// BuildFuncCFG builds a single-method lattice.FuncCFG. It also returns
// the number of basic blocks, for filtering trivial methods.
func BuildFuncCFG(f FuncInfo) (*lattice.FuncCFG, int) {
	dcfg := dalvik.BuildCFG(f.Name, f.Insts)
	lcfg := convertFuncCFG(&dcfg, f.CallEdges)
	injectStringRefs(lcfg, &dcfg, f.Strings)
	return lcfg, len(dcfg.Blocks)
}

// BuildSummaryCFG builds a one-block FuncCFG listing the interesting
// calls and string literals of a method, each once, in body order.
func BuildSummaryCFG(f FuncInfo) *lattice.FuncCFG {
	edgeByOff := make(map[uint32]CallEdge, len(f.CallEdges))
	for _, e := range f.CallEdges {
		edgeByOff[e.Offset] = e
	}

	seen := make(map[string]bool)
	var calls []lattice.CallSite
	for _, inst := range f.Insts {
		label := ""
		if e, ok := edgeByOff[inst.Offset]; ok && isInterestingCallee(e) {
			label = e.Callee
		} else if v, ok := f.Strings[inst.Offset]; ok {
			label = stringLabel(v)
		}
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		calls = append(calls, lattice.CallSite{Offset: len(calls), Callee: label})
	}

	lcfg := &lattice.FuncCFG{Name: f.Name}
	if len(calls) > 0 {
		lcfg.Blocks = append(lcfg.Blocks, &lattice.BasicBlock{
			ID:    0,
			Start: 0,
			End:   1,
			Term:  true,
			Calls: calls,
		})
	}
	return lcfg
}

// isInterestingCallee drops calls into the platform and the super
// constructor chain.
func isInterestingCallee(e CallEdge) bool {
	for _, p := range []string{"java.", "javax.", "android.", "androidx.", "kotlin.", "dalvik."} {
		if strings.HasPrefix(e.Owner, p) {
			return false
		}
	}
	return true
}

func stringLabel(v string) string {
	if len(v) > maxStringLabel {
		v = v[:maxStringLabel-3] + "..."
	}
	return fmt.Sprintf("%q", v)
}

// injectStringRefs adds string literal call sites into the blocks that
// load them.
func injectStringRefs(lcfg *lattice.FuncCFG, dcfg *dalvik.FuncCFG, strs map[uint32]string) {
	if len(strs) == 0 {
		return
	}
	for bi, db := range dcfg.Blocks {
		added := false
		for idx := db.Start; idx < db.End && idx < len(dcfg.Insts); idx++ {
			if v, ok := strs[dcfg.Insts[idx].Offset]; ok {
				lcfg.Blocks[bi].Calls = append(lcfg.Blocks[bi].Calls, lattice.CallSite{
					Offset: idx,
					Callee: stringLabel(v),
				})
				added = true
			}
		}
		if added {
			sort.Slice(lcfg.Blocks[bi].Calls, func(i, j int) bool {
				return lcfg.Blocks[bi].Calls[i].Offset < lcfg.Blocks[bi].Calls[j].Offset
			})
		}
	}
}

// convertFuncCFG maps a dalvik.FuncCFG to a lattice.FuncCFG. Call edges
// are placed into blocks by matching instruction offsets.
func convertFuncCFG(dcfg *dalvik.FuncCFG, edges []CallEdge) *lattice.FuncCFG {
	edgeByOff := make(map[uint32]CallEdge, len(edges))
	for _, e := range edges {
		edgeByOff[e.Offset] = e
	}

	lcfg := &lattice.FuncCFG{Name: dcfg.Name}
	for _, db := range dcfg.Blocks {
		lb := &lattice.BasicBlock{
			ID:    db.ID,
			Start: db.Start,
			End:   db.End,
			Term:  db.IsTerm,
		}
		for _, ds := range db.Succs {
			lb.Succs = append(lb.Succs, lattice.Successor{
				BlockID: ds.BlockID,
				Cond:    ds.Cond,
			})
		}
		for idx := db.Start; idx < db.End && idx < len(dcfg.Insts); idx++ {
			if e, ok := edgeByOff[dcfg.Insts[idx].Offset]; ok {
				lb.Calls = append(lb.Calls, lattice.CallSite{
					Offset: idx,
					Callee: e.Callee,
				})
			}
		}
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}
