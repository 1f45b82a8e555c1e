package dalvik

import (
	"fmt"
	"strconv"
	"strings"
)

// String renders the instruction in smali-like syntax, prefixed by its
// code-unit offset, e.g. "0004: invoke-virtual {v0, v1}, La;->b(I)V".
func (i Inst) String() string {
	return fmt.Sprintf("%04x: %s", i.Offset, i.Text())
}

// Text renders the instruction without the offset prefix.
func (i Inst) Text() string {
	if i.Op.IsPayload() {
		return i.payloadText()
	}
	name := i.Op.String()
	var ops []string
	reg := func(r uint32) string { return "v" + strconv.FormatUint(uint64(r), 10) }
	branch := func() string { return fmt.Sprintf("%+d", i.Branch) }

	switch i.Op.Format() {
	case Fmt10x:
	case Fmt12x, Fmt22x, Fmt32x:
		ops = append(ops, reg(i.A), reg(i.B))
	case Fmt11n, Fmt21s, Fmt21h, Fmt31i, Fmt51l:
		ops = append(ops, reg(i.A), "#"+strconv.FormatInt(i.Literal, 10))
	case Fmt11x:
		ops = append(ops, reg(i.A))
	case Fmt10t, Fmt20t, Fmt30t:
		ops = append(ops, branch())
	case Fmt21t, Fmt31t:
		ops = append(ops, reg(i.A), branch())
	case Fmt21c, Fmt31c:
		ops = append(ops, reg(i.A), i.refText())
	case Fmt23x:
		ops = append(ops, reg(i.A), reg(i.B), reg(i.C))
	case Fmt22b, Fmt22s:
		ops = append(ops, reg(i.A), reg(i.B), "#"+strconv.FormatInt(i.Literal, 10))
	case Fmt22t:
		ops = append(ops, reg(i.A), reg(i.B), branch())
	case Fmt22c:
		ops = append(ops, reg(i.A), reg(i.B), i.refText())
	case Fmt35c, Fmt3rc, Fmt45cc, Fmt4rcc:
		args := make([]string, len(i.Args))
		for k, r := range i.Args {
			args[k] = reg(uint32(r))
		}
		ops = append(ops, "{"+strings.Join(args, ", ")+"}", i.refText())
		if i.Op.Format() == Fmt45cc || i.Op.Format() == Fmt4rcc {
			ops = append(ops, i.Ref.Proto.Descriptor())
		}
	}
	if len(ops) == 0 {
		return name
	}
	return name + " " + strings.Join(ops, ", ")
}

func (i Inst) refText() string {
	switch i.Ref.Kind {
	case RefString:
		return strconv.Quote(i.Ref.String)
	case RefType:
		return i.Ref.String
	case RefField:
		return i.Ref.Field.String()
	case RefMethod:
		return i.Ref.Method.String()
	case RefProto:
		return i.Ref.Proto.Descriptor()
	case RefCallSite:
		return fmt.Sprintf("call_site@%d", i.Ref.Index)
	case RefMethodHandle:
		return fmt.Sprintf("method_handle@%d", i.Ref.Index)
	}
	return ""
}

func (i Inst) payloadText() string {
	p := i.Payload
	if p == nil {
		return i.Op.String()
	}
	switch i.Op {
	case OpPackedSwitchPayload:
		return fmt.Sprintf("%s first=%d targets=%v", i.Op, p.FirstKey, p.Targets)
	case OpSparseSwitchPayload:
		return fmt.Sprintf("%s keys=%v targets=%v", i.Op, p.Keys, p.Targets)
	}
	return fmt.Sprintf("%s width=%d size=%d", i.Op, p.ElementWidth, len(p.Data)/max(int(p.ElementWidth), 1))
}
