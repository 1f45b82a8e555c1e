package dalvik

import (
	"sort"
	"strconv"
)

// BasicBlock represents a sequence of instructions with a single entry point.
type BasicBlock struct {
	ID      int
	Start   int    // index into FuncCFG.Insts (inclusive)
	End     int    // index into FuncCFG.Insts (exclusive)
	Succs   []Succ // successor edges
	IsEntry bool
	IsTerm  bool // ends with return or throw
}

// Succ describes a control-flow successor edge.
type Succ struct {
	BlockID int
	Cond    string // "" = unconditional, "T" = taken, "F" = fallthrough, "case N" for switches
}

// FuncCFG is a per-method control flow graph.
type FuncCFG struct {
	Name   string
	Blocks []BasicBlock
	Insts  []Inst
}

// BuildCFG constructs a control flow graph from a method's instruction
// stream. Payload pseudo-instructions are data, not code, and are dropped
// before partitioning. Exceptional edges are not modelled.
// The algorithm:
//  1. Find block leaders: index 0, branch targets, instructions after terminators.
//  2. Partition instructions into blocks by leaders.
//  3. Compute successor edges from each block's last instruction.
func BuildCFG(name string, all []Inst) FuncCFG {
	insts := make([]Inst, 0, len(all))
	for _, inst := range all {
		if !inst.Op.IsPayload() {
			insts = append(insts, inst)
		}
	}
	if len(insts) == 0 {
		return FuncCFG{Name: name, Insts: insts}
	}

	// Map offset → instruction index for branch target resolution.
	offToIdx := make(map[uint32]int, len(insts))
	for i, inst := range insts {
		offToIdx[inst.Offset] = i
	}

	// Pass 1: Identify block leaders.
	leaders := make(map[int]bool)
	leaders[0] = true

	for i, inst := range insts {
		bi := DecodeBranch(inst)
		if bi == nil {
			continue
		}
		if i+1 < len(insts) {
			leaders[i+1] = true
		}
		for _, t := range bi.Targets {
			if idx, ok := offToIdx[t]; ok {
				leaders[idx] = true
			}
		}
	}

	sorted := make([]int, 0, len(leaders))
	for idx := range leaders {
		sorted = append(sorted, idx)
	}
	sort.Ints(sorted)

	// Pass 2: Partition into blocks.
	blocks := make([]BasicBlock, len(sorted))
	leaderToBlock := make(map[int]int, len(sorted))
	for i, start := range sorted {
		end := len(insts)
		if i+1 < len(sorted) {
			end = sorted[i+1]
		}
		blocks[i] = BasicBlock{
			ID:      i,
			Start:   start,
			End:     end,
			IsEntry: start == 0,
		}
		leaderToBlock[start] = i
	}

	blockAt := func(off uint32) (int, bool) {
		idx, ok := offToIdx[off]
		if !ok {
			return 0, false
		}
		bid, ok := leaderToBlock[idx]
		return bid, ok
	}

	// Pass 3: Compute successors.
	for i := range blocks {
		blk := &blocks[i]
		last := insts[blk.End-1]
		bi := DecodeBranch(last)

		if bi == nil {
			// Not a branch: fallthrough to next block.
			if nextBlk, ok := leaderToBlock[blk.End]; ok {
				blk.Succs = append(blk.Succs, Succ{BlockID: nextBlk})
			}
			continue
		}

		if bi.Terminal() {
			blk.IsTerm = true
			continue
		}

		switch {
		case bi.IsSwitch:
			for k, t := range bi.Targets {
				if bid, ok := blockAt(t); ok {
					blk.Succs = append(blk.Succs, Succ{BlockID: bid, Cond: "case " + strconv.Itoa(switchKey(last, k))})
				}
			}
			if nextBlk, ok := leaderToBlock[blk.End]; ok {
				blk.Succs = append(blk.Succs, Succ{BlockID: nextBlk, Cond: "F"})
			}
		case bi.Cond:
			if bid, ok := blockAt(bi.Targets[0]); ok {
				blk.Succs = append(blk.Succs, Succ{BlockID: bid, Cond: "T"})
			}
			if nextBlk, ok := leaderToBlock[blk.End]; ok {
				blk.Succs = append(blk.Succs, Succ{BlockID: nextBlk, Cond: "F"})
			}
		default:
			if bid, ok := blockAt(bi.Targets[0]); ok {
				blk.Succs = append(blk.Succs, Succ{BlockID: bid})
			} else {
				// Branch into the middle of an instruction or out of the method.
				blk.IsTerm = true
			}
		}
	}

	return FuncCFG{
		Name:   name,
		Blocks: blocks,
		Insts:  insts,
	}
}

func switchKey(inst Inst, k int) int {
	p := inst.Payload
	if p == nil {
		return k
	}
	if len(p.Keys) > k {
		return int(p.Keys[k])
	}
	return int(p.FirstKey) + k
}
