package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dexspect/internal/dalvik"
	"dexspect/internal/dexfmt"
	"dexspect/internal/inspect"
)

// Annotator returns an optional inline comment for an instruction.
// Empty string means no annotation.
type Annotator func(inst dalvik.Inst) string

// OriginalNames annotates invokes and field accesses with the original
// names of their targets. Targets whose name is unchanged get no comment.
func OriginalNames(in *inspect.Inspector) Annotator {
	return func(inst dalvik.Inst) string {
		switch inst.Ref.Kind {
		case dalvik.RefMethod:
			if inst.Category() != dalvik.CategoryInvoke {
				return ""
			}
			owner, sig := in.OriginalMethod(inst.Ref.Method)
			label := owner + "." + sig.Name + "(" + strings.Join(sig.Params, ",") + ")"
			if label == methodText(inst.Ref.Method) {
				return ""
			}
			return label
		case dalvik.RefField:
			owner, sig := in.OriginalField(inst.Ref.Field)
			label := owner + "." + sig.Name + ":" + sig.Type
			if label == fieldText(inst.Ref.Field) {
				return ""
			}
			return label
		}
		return ""
	}
}

func javaName(desc string) string { return dexfmt.DescriptorToJava(desc) }

func methodText(ref dalvik.MethodRef) string {
	params := make([]string, len(ref.Proto.Params))
	for i, p := range ref.Proto.Params {
		params[i] = javaName(p)
	}
	return javaName(ref.Holder) + "." + ref.Name + "(" + strings.Join(params, ",") + ")"
}

func fieldText(ref dalvik.FieldRef) string {
	return javaName(ref.Holder) + "." + ref.Name + ":" + javaName(ref.Type)
}

// FormatMethod renders a method listing: a header naming the method in
// both forms followed by one line per instruction.
// Annotators are checked in order; first non-empty result is used.
func FormatMethod(m inspect.MethodSubject, annotators ...Annotator) string {
	var b strings.Builder
	fmt.Fprintf(&b, "; %s %s\n", m.Holder().OriginalName(), m.OriginalSignature())
	if m.Renamed() || m.Holder().Renamed() {
		fmt.Fprintf(&b, "; final: %s %s\n", m.Holder().FinalName(), m.FinalSignature())
	}
	code := m.Code()
	if code == nil {
		b.WriteString("; no code\n")
		return b.String()
	}
	fmt.Fprintf(&b, "; registers=%d ins=%d outs=%d units=%d\n",
		code.Registers, code.Ins, code.Outs, code.Units)
	for _, t := range code.Tries {
		fmt.Fprintf(&b, "; try 0x%04x-0x%04x\n", t.Start, t.Start+uint32(t.Count))
	}
	for _, inst := range code.Insts {
		b.WriteString(inst.String())
		for _, ann := range annotators {
			if s := ann(inst); s != "" {
				b.WriteString("  ; ")
				b.WriteString(s)
				break
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteASM writes a listing to asm/<name>.txt under dir.
func WriteASM(dir, name, text string) error {
	asmDir := filepath.Join(dir, "asm")
	if err := os.MkdirAll(asmDir, 0755); err != nil {
		return fmt.Errorf("output: mkdir %s: %w", asmDir, err)
	}
	return os.WriteFile(filepath.Join(asmDir, FileName(name)+".txt"), []byte(text), 0644)
}

// FileName makes a method label safe to use as a file name.
func FileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '<', '>', '(', ')', ',', '[', ']', '$', ' ':
			return '_'
		}
		return r
	}, name)
}
