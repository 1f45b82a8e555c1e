package dalvik

// Dalvik control-flow instruction detection.
// These functions identify basic-block terminators and extract branch targets.

// BranchInfo describes a decoded control-flow instruction.
type BranchInfo struct {
	Targets  []uint32 // absolute code-unit offsets of taken edges
	Cond     bool     // true if execution may fall through
	IsSwitch bool
	IsReturn bool
	IsThrow  bool
}

// Terminal reports whether control never continues inside the method
// after the instruction.
func (b *BranchInfo) Terminal() bool {
	return b.IsReturn || b.IsThrow
}

// DecodeBranch returns control-flow information for inst, or nil if the
// instruction is not a branch, switch, return or throw. Invokes are not
// terminators: calls return to the next instruction.
func DecodeBranch(inst Inst) *BranchInfo {
	switch inst.Kind() {
	case KindReturnVoid, KindReturn:
		return &BranchInfo{IsReturn: true}
	case KindThrow:
		return &BranchInfo{IsThrow: true}
	case KindGoto:
		return &BranchInfo{Targets: []uint32{target(inst, inst.Branch)}}
	case KindIfEqz, KindIfNez, KindIf:
		return &BranchInfo{Targets: []uint32{target(inst, inst.Branch)}, Cond: true}
	case KindSwitch:
		bi := &BranchInfo{Cond: true, IsSwitch: true}
		if inst.Payload != nil {
			for _, t := range inst.Payload.Targets {
				bi.Targets = append(bi.Targets, target(inst, t))
			}
		}
		return bi
	}
	return nil
}

func target(inst Inst, rel int32) uint32 {
	return uint32(int64(inst.Offset) + int64(rel))
}

// IsBranchTerminator returns true if the instruction terminates a basic block.
func IsBranchTerminator(inst Inst) bool {
	return DecodeBranch(inst) != nil
}
