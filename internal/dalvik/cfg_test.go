package dalvik

import "testing"

func TestBuildCFG_Linear(t *testing.T) {
	insts := []Inst{
		{Offset: 0, Op: OpConst4, Size: 1},
		{Offset: 1, Op: OpNop, Size: 1},
		{Offset: 2, Op: OpReturnVoid, Size: 1},
	}
	cfg := BuildCFG("linear", insts)
	if len(cfg.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(cfg.Blocks))
	}
	blk := cfg.Blocks[0]
	if blk.Start != 0 || blk.End != 3 {
		t.Errorf("block range = [%d,%d), want [0,3)", blk.Start, blk.End)
	}
	if !blk.IsTerm || !blk.IsEntry {
		t.Errorf("block = %+v, want entry and terminal", blk)
	}
	if len(blk.Succs) != 0 {
		t.Errorf("succs = %d, want 0", len(blk.Succs))
	}
}

func TestBuildCFG_ConditionalBranch(t *testing.T) {
	//   0: if-eqz v0, +4  → 4
	//   2: const/4        (fallthrough)
	//   3: return-void
	//   4: return-void    (branch target)
	insts := []Inst{
		{Offset: 0, Op: OpIfEqz, Size: 2, Branch: 4},
		{Offset: 2, Op: OpConst4, Size: 1},
		{Offset: 3, Op: OpReturnVoid, Size: 1},
		{Offset: 4, Op: OpReturnVoid, Size: 1},
	}
	cfg := BuildCFG("cond", insts)
	if len(cfg.Blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(cfg.Blocks))
	}
	b0 := cfg.Blocks[0]
	var hasT, hasF bool
	for _, s := range b0.Succs {
		if s.Cond == "T" && s.BlockID == 2 {
			hasT = true
		}
		if s.Cond == "F" && s.BlockID == 1 {
			hasF = true
		}
	}
	if !hasT || !hasF {
		t.Errorf("block 0 succs = %+v, want T→2 and F→1", b0.Succs)
	}
}

func TestBuildCFG_Loop(t *testing.T) {
	//   0: nop
	//   1: goto -1 → 0
	insts := []Inst{
		{Offset: 0, Op: OpNop, Size: 1},
		{Offset: 1, Op: OpGoto, Size: 1, Branch: -1},
	}
	cfg := BuildCFG("loop", insts)
	if len(cfg.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(cfg.Blocks))
	}
	if s := cfg.Blocks[0].Succs; len(s) != 1 || s[0].BlockID != 0 || s[0].Cond != "" {
		t.Errorf("succs = %+v, want unconditional self edge", s)
	}
}

func TestBuildCFG_SwitchSkipsPayload(t *testing.T) {
	//   0: packed-switch v0, +4
	//   3: return-void          (default)
	//   4: packed-switch-payload first=7 targets=[3, 12]
	//  12: return-void
	sw := &Payload{FirstKey: 7, Targets: []int32{3, 12}}
	insts := []Inst{
		{Offset: 0, Op: OpPackedSwitch, Size: 3, Branch: 4, Payload: sw},
		{Offset: 3, Op: OpReturnVoid, Size: 1},
		{Offset: 4, Op: OpPackedSwitchPayload, Size: 8, Payload: sw},
		{Offset: 12, Op: OpReturnVoid, Size: 1},
	}
	cfg := BuildCFG("switch", insts)
	if len(cfg.Insts) != 3 {
		t.Fatalf("insts = %d, want 3 (payload dropped)", len(cfg.Insts))
	}
	if len(cfg.Blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(cfg.Blocks))
	}
	want := map[string]int{"case 7": 1, "case 8": 2, "F": 1}
	succs := cfg.Blocks[0].Succs
	if len(succs) != len(want) {
		t.Fatalf("succs = %+v", succs)
	}
	for _, s := range succs {
		if id, ok := want[s.Cond]; !ok || id != s.BlockID {
			t.Errorf("unexpected edge %+v", s)
		}
	}
}

func TestBuildCFG_Empty(t *testing.T) {
	cfg := BuildCFG("empty", nil)
	if len(cfg.Blocks) != 0 {
		t.Errorf("blocks = %d, want 0", len(cfg.Blocks))
	}
}
