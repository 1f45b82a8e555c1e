// Package dalvik decodes and classifies Dalvik bytecode from DEX code items.
package dalvik

import "fmt"

// Opcode identifies a Dalvik instruction. Values 0x00-0xff are real
// opcodes; the payload pseudo-opcodes use the full first code unit
// (0x0100, 0x0200, 0x0300) as they appear in the instruction stream.
type Opcode uint16

const (
	OpNop                  Opcode = 0x00
	OpReturnVoid           Opcode = 0x0e
	OpConst4               Opcode = 0x12
	OpConstString          Opcode = 0x1a
	OpConstStringJumbo     Opcode = 0x1b
	OpFillArrayData        Opcode = 0x26
	OpThrow                Opcode = 0x27
	OpGoto                 Opcode = 0x28
	OpGoto16               Opcode = 0x29
	OpGoto32               Opcode = 0x2a
	OpPackedSwitch         Opcode = 0x2b
	OpSparseSwitch         Opcode = 0x2c
	OpIfEqz                Opcode = 0x38
	OpIfNez                Opcode = 0x39
	OpIget                 Opcode = 0x52
	OpIput                 Opcode = 0x59
	OpSget                 Opcode = 0x60
	OpSput                 Opcode = 0x67
	OpInvokeVirtual        Opcode = 0x6e
	OpInvokeSuper          Opcode = 0x6f
	OpInvokeDirect         Opcode = 0x70
	OpInvokeStatic         Opcode = 0x71
	OpInvokeInterface      Opcode = 0x72
	OpInvokeVirtualRange   Opcode = 0x74
	OpInvokeSuperRange     Opcode = 0x75
	OpInvokeDirectRange    Opcode = 0x76
	OpInvokeStaticRange    Opcode = 0x77
	OpInvokeInterfaceRange Opcode = 0x78

	OpPackedSwitchPayload  Opcode = 0x0100
	OpSparseSwitchPayload  Opcode = 0x0200
	OpFillArrayDataPayload Opcode = 0x0300
)

// Format is a Dalvik instruction format identifier (see "Dalvik
// Executable instruction formats").
type Format uint8

const (
	FmtInvalid Format = iota
	Fmt10x
	Fmt12x
	Fmt11n
	Fmt11x
	Fmt10t
	Fmt20t
	Fmt22x
	Fmt21t
	Fmt21s
	Fmt21h
	Fmt21c
	Fmt23x
	Fmt22b
	Fmt22t
	Fmt22s
	Fmt22c
	Fmt30t
	Fmt32x
	Fmt31i
	Fmt31t
	Fmt31c
	Fmt35c
	Fmt3rc
	Fmt45cc
	Fmt4rcc
	Fmt51l
	FmtPayload
)

var formatUnits = [...]int{
	Fmt10x: 1, Fmt12x: 1, Fmt11n: 1, Fmt11x: 1, Fmt10t: 1,
	Fmt20t: 2, Fmt22x: 2, Fmt21t: 2, Fmt21s: 2, Fmt21h: 2, Fmt21c: 2,
	Fmt23x: 2, Fmt22b: 2, Fmt22t: 2, Fmt22s: 2, Fmt22c: 2,
	Fmt30t: 3, Fmt32x: 3, Fmt31i: 3, Fmt31t: 3, Fmt31c: 3, Fmt35c: 3, Fmt3rc: 3,
	Fmt45cc: 4, Fmt4rcc: 4, Fmt51l: 5,
}

// Units returns the fixed width of the format in 16-bit code units, or 0
// for payloads (variable width) and invalid formats.
func (f Format) Units() int {
	if int(f) < len(formatUnits) {
		return formatUnits[f]
	}
	return 0
}

// Kind is the semantic classification of an instruction. Every opcode
// maps to exactly one Kind through the opcode table.
type Kind uint8

const (
	KindOther Kind = iota

	KindInvokeVirtual
	KindInvokeInterface
	KindInvokeDirect
	KindInvokeSuper
	KindInvokeStatic

	KindInstanceGet
	KindInstancePut
	KindStaticGet
	KindStaticPut

	KindConstString
	KindConst4
	KindConst

	KindGoto
	KindIfEqz
	KindIfNez
	KindIf
	KindSwitch
	KindReturnVoid
	KindReturn
	KindThrow
	KindNop

	KindInvokePolymorphic
	KindInvokeCustom
)

var kindNames = [...]string{
	KindOther:             "other",
	KindInvokeVirtual:     "invoke-virtual",
	KindInvokeInterface:   "invoke-interface",
	KindInvokeDirect:      "invoke-direct",
	KindInvokeSuper:       "invoke-super",
	KindInvokeStatic:      "invoke-static",
	KindInstanceGet:       "instance-get",
	KindInstancePut:       "instance-put",
	KindStaticGet:         "static-get",
	KindStaticPut:         "static-put",
	KindConstString:       "const-string",
	KindConst4:            "const/4",
	KindConst:             "const",
	KindGoto:              "goto",
	KindIfEqz:             "if-eqz",
	KindIfNez:             "if-nez",
	KindIf:                "if",
	KindSwitch:            "switch",
	KindReturnVoid:        "return-void",
	KindReturn:            "return",
	KindThrow:             "throw",
	KindNop:               "nop",
	KindInvokePolymorphic: "invoke-polymorphic",
	KindInvokeCustom:      "invoke-custom",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Category groups kinds into the disjoint classes used by instruction
// predicates.
type Category uint8

const (
	CategoryOther Category = iota
	CategoryInvoke
	CategoryFieldAccess
	CategoryConst
	CategoryControl
)

func (c Category) String() string {
	switch c {
	case CategoryInvoke:
		return "invoke"
	case CategoryFieldAccess:
		return "field-access"
	case CategoryConst:
		return "const"
	case CategoryControl:
		return "control"
	}
	return "other"
}

// Category returns the category the kind belongs to.
func (k Kind) Category() Category {
	switch k {
	case KindInvokeVirtual, KindInvokeInterface, KindInvokeDirect, KindInvokeSuper, KindInvokeStatic:
		return CategoryInvoke
	case KindInstanceGet, KindInstancePut, KindStaticGet, KindStaticPut:
		return CategoryFieldAccess
	case KindConstString, KindConst4, KindConst:
		return CategoryConst
	case KindGoto, KindIfEqz, KindIfNez, KindIf, KindSwitch, KindReturnVoid, KindReturn, KindThrow, KindNop:
		return CategoryControl
	}
	return CategoryOther
}

// RefKind says which constant pool an instruction's index operand
// points into.
type RefKind uint8

const (
	RefNone RefKind = iota
	RefString
	RefType
	RefField
	RefMethod
	RefCallSite
	RefMethodHandle
	RefProto
)

// FieldWidth is the value width variant of a field access instruction.
type FieldWidth uint8

const (
	WidthNone FieldWidth = iota
	WidthInt
	WidthWide
	WidthObject
	WidthBoolean
	WidthByte
	WidthChar
	WidthShort
)

var widthSuffixes = [...]string{"", "-wide", "-object", "-boolean", "-byte", "-char", "-short"}

type opInfo struct {
	name   string
	format Format
	kind   Kind
	ref    RefKind
	width  FieldWidth
}

var opTable [256]opInfo

func def(op int, name string, f Format, k Kind, r RefKind) {
	opTable[op] = opInfo{name: name, format: f, kind: k, ref: r}
}

func init() {
	def(0x00, "nop", Fmt10x, KindNop, RefNone)
	def(0x01, "move", Fmt12x, KindOther, RefNone)
	def(0x02, "move/from16", Fmt22x, KindOther, RefNone)
	def(0x03, "move/16", Fmt32x, KindOther, RefNone)
	def(0x04, "move-wide", Fmt12x, KindOther, RefNone)
	def(0x05, "move-wide/from16", Fmt22x, KindOther, RefNone)
	def(0x06, "move-wide/16", Fmt32x, KindOther, RefNone)
	def(0x07, "move-object", Fmt12x, KindOther, RefNone)
	def(0x08, "move-object/from16", Fmt22x, KindOther, RefNone)
	def(0x09, "move-object/16", Fmt32x, KindOther, RefNone)
	def(0x0a, "move-result", Fmt11x, KindOther, RefNone)
	def(0x0b, "move-result-wide", Fmt11x, KindOther, RefNone)
	def(0x0c, "move-result-object", Fmt11x, KindOther, RefNone)
	def(0x0d, "move-exception", Fmt11x, KindOther, RefNone)
	def(0x0e, "return-void", Fmt10x, KindReturnVoid, RefNone)
	def(0x0f, "return", Fmt11x, KindReturn, RefNone)
	def(0x10, "return-wide", Fmt11x, KindReturn, RefNone)
	def(0x11, "return-object", Fmt11x, KindReturn, RefNone)
	def(0x12, "const/4", Fmt11n, KindConst4, RefNone)
	def(0x13, "const/16", Fmt21s, KindConst, RefNone)
	def(0x14, "const", Fmt31i, KindConst, RefNone)
	def(0x15, "const/high16", Fmt21h, KindConst, RefNone)
	def(0x16, "const-wide/16", Fmt21s, KindConst, RefNone)
	def(0x17, "const-wide/32", Fmt31i, KindConst, RefNone)
	def(0x18, "const-wide", Fmt51l, KindConst, RefNone)
	def(0x19, "const-wide/high16", Fmt21h, KindConst, RefNone)
	def(0x1a, "const-string", Fmt21c, KindConstString, RefString)
	def(0x1b, "const-string/jumbo", Fmt31c, KindConstString, RefString)
	def(0x1c, "const-class", Fmt21c, KindConst, RefType)
	def(0x1d, "monitor-enter", Fmt11x, KindOther, RefNone)
	def(0x1e, "monitor-exit", Fmt11x, KindOther, RefNone)
	def(0x1f, "check-cast", Fmt21c, KindOther, RefType)
	def(0x20, "instance-of", Fmt22c, KindOther, RefType)
	def(0x21, "array-length", Fmt12x, KindOther, RefNone)
	def(0x22, "new-instance", Fmt21c, KindOther, RefType)
	def(0x23, "new-array", Fmt22c, KindOther, RefType)
	def(0x24, "filled-new-array", Fmt35c, KindOther, RefType)
	def(0x25, "filled-new-array/range", Fmt3rc, KindOther, RefType)
	def(0x26, "fill-array-data", Fmt31t, KindOther, RefNone)
	def(0x27, "throw", Fmt11x, KindThrow, RefNone)
	def(0x28, "goto", Fmt10t, KindGoto, RefNone)
	def(0x29, "goto/16", Fmt20t, KindGoto, RefNone)
	def(0x2a, "goto/32", Fmt30t, KindGoto, RefNone)
	def(0x2b, "packed-switch", Fmt31t, KindSwitch, RefNone)
	def(0x2c, "sparse-switch", Fmt31t, KindSwitch, RefNone)

	for i, n := range []string{"cmpl-float", "cmpg-float", "cmpl-double", "cmpg-double", "cmp-long"} {
		def(0x2d+i, n, Fmt23x, KindOther, RefNone)
	}
	for i, n := range []string{"if-eq", "if-ne", "if-lt", "if-ge", "if-gt", "if-le"} {
		def(0x32+i, n, Fmt22t, KindIf, RefNone)
	}
	def(0x38, "if-eqz", Fmt21t, KindIfEqz, RefNone)
	def(0x39, "if-nez", Fmt21t, KindIfNez, RefNone)
	for i, n := range []string{"if-ltz", "if-gez", "if-gtz", "if-lez"} {
		def(0x3a+i, n, Fmt21t, KindIf, RefNone)
	}

	widths := []FieldWidth{WidthInt, WidthWide, WidthObject, WidthBoolean, WidthByte, WidthChar, WidthShort}
	for i, w := range widths {
		def(0x44+i, "aget"+widthSuffixes[i], Fmt23x, KindOther, RefNone)
		def(0x4b+i, "aput"+widthSuffixes[i], Fmt23x, KindOther, RefNone)
		def(0x52+i, "iget"+widthSuffixes[i], Fmt22c, KindInstanceGet, RefField)
		def(0x59+i, "iput"+widthSuffixes[i], Fmt22c, KindInstancePut, RefField)
		def(0x60+i, "sget"+widthSuffixes[i], Fmt21c, KindStaticGet, RefField)
		def(0x67+i, "sput"+widthSuffixes[i], Fmt21c, KindStaticPut, RefField)
		for _, base := range []int{0x52, 0x59, 0x60, 0x67} {
			opTable[base+i].width = w
		}
	}

	invokes := []struct {
		name string
		kind Kind
	}{
		{"invoke-virtual", KindInvokeVirtual},
		{"invoke-super", KindInvokeSuper},
		{"invoke-direct", KindInvokeDirect},
		{"invoke-static", KindInvokeStatic},
		{"invoke-interface", KindInvokeInterface},
	}
	for i, inv := range invokes {
		def(0x6e+i, inv.name, Fmt35c, inv.kind, RefMethod)
		def(0x74+i, inv.name+"/range", Fmt3rc, inv.kind, RefMethod)
	}

	unops := []string{
		"neg-int", "not-int", "neg-long", "not-long", "neg-float", "neg-double",
		"int-to-long", "int-to-float", "int-to-double", "long-to-int", "long-to-float",
		"long-to-double", "float-to-int", "float-to-long", "float-to-double",
		"double-to-int", "double-to-long", "double-to-float", "int-to-byte",
		"int-to-char", "int-to-short",
	}
	for i, n := range unops {
		def(0x7b+i, n, Fmt12x, KindOther, RefNone)
	}

	binops := []string{
		"add-int", "sub-int", "mul-int", "div-int", "rem-int", "and-int", "or-int",
		"xor-int", "shl-int", "shr-int", "ushr-int",
		"add-long", "sub-long", "mul-long", "div-long", "rem-long", "and-long",
		"or-long", "xor-long", "shl-long", "shr-long", "ushr-long",
		"add-float", "sub-float", "mul-float", "div-float", "rem-float",
		"add-double", "sub-double", "mul-double", "div-double", "rem-double",
	}
	for i, n := range binops {
		def(0x90+i, n, Fmt23x, KindOther, RefNone)
		def(0xb0+i, n+"/2addr", Fmt12x, KindOther, RefNone)
	}

	lit16 := []string{"add-int/lit16", "rsub-int", "mul-int/lit16", "div-int/lit16",
		"rem-int/lit16", "and-int/lit16", "or-int/lit16", "xor-int/lit16"}
	for i, n := range lit16 {
		def(0xd0+i, n, Fmt22s, KindOther, RefNone)
	}
	lit8 := []string{"add-int/lit8", "rsub-int/lit8", "mul-int/lit8", "div-int/lit8",
		"rem-int/lit8", "and-int/lit8", "or-int/lit8", "xor-int/lit8",
		"shl-int/lit8", "shr-int/lit8", "ushr-int/lit8"}
	for i, n := range lit8 {
		def(0xd8+i, n, Fmt22b, KindOther, RefNone)
	}

	def(0xfa, "invoke-polymorphic", Fmt45cc, KindInvokePolymorphic, RefMethod)
	def(0xfb, "invoke-polymorphic/range", Fmt4rcc, KindInvokePolymorphic, RefMethod)
	def(0xfc, "invoke-custom", Fmt35c, KindInvokeCustom, RefCallSite)
	def(0xfd, "invoke-custom/range", Fmt3rc, KindInvokeCustom, RefCallSite)
	def(0xfe, "const-method-handle", Fmt21c, KindConst, RefMethodHandle)
	def(0xff, "const-method-type", Fmt21c, KindConst, RefProto)
}

var payloadInfo = map[Opcode]opInfo{
	OpPackedSwitchPayload:  {name: "packed-switch-payload", format: FmtPayload, kind: KindNop},
	OpSparseSwitchPayload:  {name: "sparse-switch-payload", format: FmtPayload, kind: KindNop},
	OpFillArrayDataPayload: {name: "fill-array-data-payload", format: FmtPayload, kind: KindNop},
}

func (op Opcode) info() (opInfo, bool) {
	if op < 0x100 {
		info := opTable[op]
		return info, info.format != FmtInvalid
	}
	info, ok := payloadInfo[op]
	return info, ok
}

// Valid reports whether op is a defined opcode or payload pseudo-opcode.
func (op Opcode) Valid() bool {
	_, ok := op.info()
	return ok
}

func (op Opcode) String() string {
	if info, ok := op.info(); ok {
		return info.name
	}
	return fmt.Sprintf("unused-%02x", uint16(op))
}

// Format returns the instruction format of op.
func (op Opcode) Format() Format {
	info, _ := op.info()
	return info.format
}

// Kind returns the classification of op. Undefined opcodes are KindOther,
// but Decode never produces them.
func (op Opcode) Kind() Kind {
	info, _ := op.info()
	return info.kind
}

// RefKind returns the constant pool referenced by op's index operand.
func (op Opcode) RefKind() RefKind {
	info, _ := op.info()
	return info.ref
}

// Width returns the value width of a field access opcode.
func (op Opcode) Width() FieldWidth {
	info, _ := op.info()
	return info.width
}

// IsPayload reports whether op is one of the payload pseudo-opcodes.
func (op Opcode) IsPayload() bool {
	return op == OpPackedSwitchPayload || op == OpSparseSwitchPayload || op == OpFillArrayDataPayload
}
