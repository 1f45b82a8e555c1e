package dalvik

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeResolver resolves every index to a synthetic name derived from it.
type fakeResolver struct{}

func (fakeResolver) String(idx uint32) (string, error) { return fmt.Sprintf("s%d", idx), nil }
func (fakeResolver) Type(idx uint32) (string, error)   { return fmt.Sprintf("LT%d;", idx), nil }
func (fakeResolver) Field(idx uint32) (FieldRef, error) {
	return FieldRef{Holder: "LA;", Name: fmt.Sprintf("f%d", idx), Type: "I"}, nil
}
func (fakeResolver) Method(idx uint32) (MethodRef, error) {
	if idx == 0xffff {
		return MethodRef{}, errors.New("index out of range")
	}
	return MethodRef{Holder: "LA;", Name: fmt.Sprintf("m%d", idx), Proto: Proto{Return: "V", Params: []string{"I"}}}, nil
}
func (fakeResolver) Proto(idx uint32) (Proto, error) { return Proto{Return: "V"}, nil }

func TestDecode_Formats(t *testing.T) {
	tests := []struct {
		name  string
		units []uint16
		want  Inst
	}{
		{"nop", []uint16{0x0000}, Inst{Op: OpNop, Size: 1}},
		{"return-void", []uint16{0x000e}, Inst{Op: OpReturnVoid, Size: 1}},
		{"const/4 v1, #-1", []uint16{0xf112}, Inst{Op: OpConst4, Size: 1, A: 1, Literal: -1}},
		{"const/4 v0, #7", []uint16{0x7012}, Inst{Op: OpConst4, Size: 1, A: 0, Literal: 7}},
		{"const/16", []uint16{0x0213, 0xfffe}, Inst{Op: 0x13, Size: 2, A: 2, Literal: -2}},
		{"const/high16", []uint16{0x0015, 0x0001}, Inst{Op: 0x15, Size: 2, Literal: 1 << 16}},
		{"const-wide/high16", []uint16{0x0019, 0x0001}, Inst{Op: 0x19, Size: 2, Literal: 1 << 48}},
		{"const", []uint16{0x0314, 0x5678, 0x1234}, Inst{Op: 0x14, Size: 3, A: 3, Literal: 0x12345678}},
		{"const-wide", []uint16{0x0018, 0x0001, 0x0000, 0x0000, 0x8000},
			Inst{Op: 0x18, Size: 5, Literal: -0x7fffffffffffffff}},
		{"const-string", []uint16{0x011a, 0x0004},
			Inst{Op: OpConstString, Size: 2, A: 1, Ref: Ref{Kind: RefString, Index: 4, String: "s4"}}},
		{"const-string/jumbo", []uint16{0x001b, 0x0001, 0x0001},
			Inst{Op: OpConstStringJumbo, Size: 3, Ref: Ref{Kind: RefString, Index: 0x10001, String: "s65537"}}},
		{"move v1, v2", []uint16{0x2101}, Inst{Op: 0x01, Size: 1, A: 1, B: 2}},
		{"goto -1", []uint16{0xff28}, Inst{Op: OpGoto, Size: 1, Branch: -1}},
		{"if-eqz", []uint16{0x0338, 0x0005}, Inst{Op: OpIfEqz, Size: 2, A: 3, Branch: 5}},
		{"if-eq", []uint16{0x2132, 0xfffc}, Inst{Op: 0x32, Size: 2, A: 1, B: 2, Branch: -4}},
		{"add-int", []uint16{0x0090, 0x0201}, Inst{Op: 0x90, Size: 2, A: 0, B: 1, C: 2}},
		{"add-int/lit8", []uint16{0x00d8, 0xff01}, Inst{Op: 0xd8, Size: 2, B: 1, Literal: -1}},
		{"iget", []uint16{0x1052, 0x0002},
			Inst{Op: OpIget, Size: 2, A: 0, B: 1, Ref: Ref{Kind: RefField, Index: 2,
				Field: FieldRef{Holder: "LA;", Name: "f2", Type: "I"}}}},
		{"sput", []uint16{0x0067, 0x0003},
			Inst{Op: OpSput, Size: 2, Ref: Ref{Kind: RefField, Index: 3,
				Field: FieldRef{Holder: "LA;", Name: "f3", Type: "I"}}}},
		{"new-instance", []uint16{0x0022, 0x0001},
			Inst{Op: 0x22, Size: 2, Ref: Ref{Kind: RefType, Index: 1, String: "LT1;"}}},
		{"invoke-virtual {v0, v1}", []uint16{0x206e, 0x0007, 0x0010},
			Inst{Op: OpInvokeVirtual, Size: 3, A: 2, Args: []uint16{0, 1},
				Ref: Ref{Kind: RefMethod, Index: 7, Method: MethodRef{Holder: "LA;", Name: "m7",
					Proto: Proto{Return: "V", Params: []string{"I"}}}}}},
		{"invoke-static five args", []uint16{0x5471, 0x0001, 0x3210},
			Inst{Op: OpInvokeStatic, Size: 3, A: 5, Args: []uint16{0, 1, 2, 3, 4},
				Ref: Ref{Kind: RefMethod, Index: 1, Method: MethodRef{Holder: "LA;", Name: "m1",
					Proto: Proto{Return: "V", Params: []string{"I"}}}}}},
		{"invoke-direct/range", []uint16{0x0376, 0x0002, 0x0004},
			Inst{Op: OpInvokeDirectRange, Size: 3, A: 3, C: 4, Args: []uint16{4, 5, 6},
				Ref: Ref{Kind: RefMethod, Index: 2, Method: MethodRef{Holder: "LA;", Name: "m2",
					Proto: Proto{Return: "V", Params: []string{"I"}}}}}},
		{"invoke-custom", []uint16{0x10fc, 0x0009, 0x0000},
			Inst{Op: 0xfc, Size: 3, A: 1, Args: []uint16{0}, Ref: Ref{Kind: RefCallSite, Index: 9}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insts, err := Decode(tt.units, fakeResolver{}, 0)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(insts) != 1 {
				t.Fatalf("insts = %d, want 1", len(insts))
			}
			if diff := cmp.Diff(tt.want, insts[0]); diff != "" {
				t.Errorf("Decode mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_Offsets(t *testing.T) {
	// const/4, const-string, invoke-virtual, return-void
	units := []uint16{0x0012, 0x001a, 0x0000, 0x106e, 0x0000, 0x0000, 0x000e}
	insts, err := Decode(units, fakeResolver{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint32{0, 1, 3, 6}
	if len(insts) != len(want) {
		t.Fatalf("insts = %d, want %d", len(insts), len(want))
	}
	for i, off := range want {
		if insts[i].Offset != off {
			t.Errorf("insts[%d].Offset = %d, want %d", i, insts[i].Offset, off)
		}
	}
	if i, err := IndexAt(insts, 3); err != nil || i != 2 {
		t.Errorf("IndexAt(3) = %d, %v, want 2", i, err)
	}
	if _, err := IndexAt(insts, 2); !errors.Is(err, ErrNoInstruction) {
		t.Errorf("IndexAt(2) err = %v, want ErrNoInstruction", err)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		units []uint16
		want  error
	}{
		{"unused opcode", []uint16{0x003e}, ErrUnusedOpcode},
		{"truncated", []uint16{0x001a}, ErrTruncated},
		{"too many args", []uint16{0x606e, 0x0000, 0x0000}, ErrBadArgCount},
		{"bad payload ident", []uint16{0x0400}, ErrBadPayload},
		{"switch without payload", []uint16{0x002b, 0x0003, 0x0000, 0x000e}, ErrBadPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.units, fakeResolver{}, 0)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecode_ResolveError(t *testing.T) {
	_, err := Decode([]uint16{0x006e, 0xffff, 0x0000}, fakeResolver{}, 0)
	if err == nil {
		t.Fatal("expected resolve error")
	}
}

func TestDecode_StepLimit(t *testing.T) {
	units := []uint16{0, 0, 0, 0, 0x000e}
	insts, err := Decode(units, fakeResolver{}, 3)
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("err = %v, want ErrStepLimit", err)
	}
	if len(insts) != 3 {
		t.Errorf("insts = %d, want 3", len(insts))
	}
}

func TestDecode_PackedSwitch(t *testing.T) {
	// 0: packed-switch v0, +4
	// 3: return-void
	// 4: packed-switch-payload size=2 first=10 targets=[3, 3]
	units := []uint16{
		0x002b, 0x0004, 0x0000,
		0x000e,
		0x0100, 0x0002, 0x000a, 0x0000, 0x0003, 0x0000, 0x0003, 0x0000,
	}
	insts, err := Decode(units, fakeResolver{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 3 {
		t.Fatalf("insts = %d, want 3", len(insts))
	}
	want := &Payload{FirstKey: 10, Targets: []int32{3, 3}}
	if diff := cmp.Diff(want, insts[0].Payload); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
	if insts[2].Op != OpPackedSwitchPayload || insts[2].Size != 8 {
		t.Errorf("payload inst = %s size %d", insts[2].Op, insts[2].Size)
	}
	if insts[2].Kind() != KindNop {
		t.Errorf("payload kind = %s, want nop", insts[2].Kind())
	}
}

func TestDecode_SparseSwitchAndFillArray(t *testing.T) {
	units := []uint16{
		0x002c, 0x0006, 0x0000, // 0: sparse-switch v0, +6
		0x0026, 0x000d, 0x0000, // 3: fill-array-data v0, +13
		0x0200, 0x0002, // 6: sparse-switch-payload size=2
		0xffff, 0xffff, 0x0005, 0x0000, // keys -1, 5
		0x0003, 0x0000, 0x0003, 0x0000, // targets
		0x0300, 0x0001, 0x0003, 0x0000, // 16: fill-array-data-payload width=1 size=3
		0x0201, 0x0003,
	}
	insts, err := Decode(units, fakeResolver{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 4 {
		t.Fatalf("insts = %d, want 4", len(insts))
	}
	if got := insts[0].Payload.Keys; !cmp.Equal(got, []int32{-1, 5}) {
		t.Errorf("sparse keys = %v", got)
	}
	fill := insts[1].Payload
	if fill == nil || fill.ElementWidth != 1 || !cmp.Equal(fill.Data, []byte{1, 2, 3}) {
		t.Errorf("fill payload = %+v", fill)
	}
}

func TestInst_Equal(t *testing.T) {
	a := Inst{Offset: 0, Op: OpConst4, Size: 1, A: 1, Literal: 3}
	b := a
	b.Offset = 10
	if !a.Equal(b) {
		t.Error("instructions differing only by offset should be equal")
	}
	b.Literal = 4
	if a.Equal(b) {
		t.Error("instructions with different literals should differ")
	}
}

func TestInst_MethodPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Method on const/4 did not panic")
		}
	}()
	Inst{Op: OpConst4}.Method()
}

func TestInst_FieldPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Field on invoke did not panic")
		}
	}()
	Inst{Op: OpInvokeVirtual, Ref: Ref{Kind: RefMethod}}.Field()
}

func TestInst_StringValue(t *testing.T) {
	inst := Inst{Op: OpConstString, Ref: Ref{Kind: RefString, String: "hello"}}
	if s, ok := inst.StringValue(); !ok || s != "hello" {
		t.Errorf("StringValue = %q, %v", s, ok)
	}
	if _, ok := (Inst{Op: OpNop}).StringValue(); ok {
		t.Error("StringValue on nop should report false")
	}
}
