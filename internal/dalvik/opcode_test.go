package dalvik

import "testing"

func TestOpcode_ClassificationTotal(t *testing.T) {
	// Every defined opcode lands in exactly one category and its kind
	// agrees with the predicate it implies.
	for op := Opcode(0); op < 0x100; op++ {
		if !op.Valid() {
			continue
		}
		k := op.Kind()
		cats := 0
		for _, c := range []Category{CategoryOther, CategoryInvoke, CategoryFieldAccess, CategoryConst, CategoryControl} {
			if k.Category() == c {
				cats++
			}
		}
		if cats != 1 {
			t.Errorf("%s: kind %s in %d categories", op, k, cats)
		}
		if k.Category() == CategoryInvoke && op.RefKind() != RefMethod {
			t.Errorf("%s: invoke without method reference", op)
		}
		if k.Category() == CategoryFieldAccess && (op.RefKind() != RefField || op.Width() == WidthNone) {
			t.Errorf("%s: field access without field reference or width", op)
		}
	}
}

func TestOpcode_Kinds(t *testing.T) {
	tests := []struct {
		op   Opcode
		name string
		kind Kind
	}{
		{OpNop, "nop", KindNop},
		{OpReturnVoid, "return-void", KindReturnVoid},
		{0x11, "return-object", KindReturn},
		{OpConst4, "const/4", KindConst4},
		{0x14, "const", KindConst},
		{OpConstString, "const-string", KindConstString},
		{OpConstStringJumbo, "const-string/jumbo", KindConstString},
		{OpThrow, "throw", KindThrow},
		{OpGoto16, "goto/16", KindGoto},
		{OpIfEqz, "if-eqz", KindIfEqz},
		{OpIfNez, "if-nez", KindIfNez},
		{0x34, "if-lt", KindIf},
		{OpPackedSwitch, "packed-switch", KindSwitch},
		{0x54, "iget-object", KindInstanceGet},
		{0x5c, "iput-boolean", KindInstancePut},
		{0x61, "sget-wide", KindStaticGet},
		{0x6d, "sput-short", KindStaticPut},
		{OpInvokeVirtual, "invoke-virtual", KindInvokeVirtual},
		{OpInvokeInterfaceRange, "invoke-interface/range", KindInvokeInterface},
		{OpInvokeSuper, "invoke-super", KindInvokeSuper},
		{OpInvokeDirect, "invoke-direct", KindInvokeDirect},
		{OpInvokeStaticRange, "invoke-static/range", KindInvokeStatic},
		{0xfa, "invoke-polymorphic", KindInvokePolymorphic},
		{0xfc, "invoke-custom", KindInvokeCustom},
		{0x90, "add-int", KindOther},
		{OpPackedSwitchPayload, "packed-switch-payload", KindNop},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.name {
			t.Errorf("Opcode(0x%02x).String() = %q, want %q", uint16(tt.op), got, tt.name)
		}
		if got := tt.op.Kind(); got != tt.kind {
			t.Errorf("%s.Kind() = %s, want %s", tt.op, got, tt.kind)
		}
	}
}

func TestOpcode_Widths(t *testing.T) {
	tests := []struct {
		op   Opcode
		want FieldWidth
	}{
		{OpIget, WidthInt},
		{0x53, WidthWide},
		{0x54, WidthObject},
		{0x55, WidthBoolean},
		{0x56, WidthByte},
		{0x57, WidthChar},
		{0x58, WidthShort},
		{OpSput, WidthInt},
		{OpConst4, WidthNone},
	}
	for _, tt := range tests {
		if got := tt.op.Width(); got != tt.want {
			t.Errorf("%s.Width() = %d, want %d", tt.op, got, tt.want)
		}
	}
}

func TestOpcode_Unused(t *testing.T) {
	for _, op := range []Opcode{0x3e, 0x43, 0x73, 0x79, 0x7a, 0xe3, 0xf9} {
		if op.Valid() {
			t.Errorf("%s should be unused", op)
		}
		if got, want := op.String(), "unused-"; got[:len(want)] != want {
			t.Errorf("String() = %q", got)
		}
	}
}

func TestFormat_Units(t *testing.T) {
	tests := []struct {
		f    Format
		want int
	}{
		{Fmt10x, 1}, {Fmt21c, 2}, {Fmt35c, 3}, {Fmt45cc, 4}, {Fmt51l, 5}, {FmtInvalid, 0},
	}
	for _, tt := range tests {
		if got := tt.f.Units(); got != tt.want {
			t.Errorf("Format(%d).Units() = %d, want %d", tt.f, got, tt.want)
		}
	}
}
