package mapping

// Range is a line range pair from a member line. Zero values mean the
// range was not given.
type Range struct {
	ObfStart, ObfEnd   int // minified line range, the leading "a:b:"
	OrigStart, OrigEnd int // original line range, the trailing ":c:d"
}

// InlineFrame is one inlined callee recorded above a method's own line.
// Class is set when the frame names a method of another class.
type InlineFrame struct {
	Class     string
	Signature Signature
	Range     Range
}

// MemberNaming maps one original member to its renamed name.
// OriginalClass is set when the member was moved here from another
// class, so its line named it "com.B.moved()".
type MemberNaming struct {
	Original      Signature
	OriginalClass string
	RenamedName   string
	Ranges        []Range
	Inlined       []InlineFrame
}

// Renamed returns the renamed signature: the renamed name over the
// original types.
func (m *MemberNaming) Renamed() Signature { return m.Original.WithName(m.RenamedName) }

// IsRenamed reports whether the member's name changed.
func (m *MemberNaming) IsRenamed() bool { return m.Original.Name != m.RenamedName }

// ClassNaming holds a class's name pair and its member namings.
type ClassNaming struct {
	OriginalName string
	RenamedName  string
	SourceFile   string

	members    []*MemberNaming
	byOriginal map[string]*MemberNaming
	byRenamed  map[string]*MemberNaming
}

func newClassNaming(orig, renamed string) *ClassNaming {
	return &ClassNaming{
		OriginalName: orig,
		RenamedName:  renamed,
		byOriginal:   make(map[string]*MemberNaming),
		byRenamed:    make(map[string]*MemberNaming),
	}
}

// IsRenamed reports whether the class name changed.
func (c *ClassNaming) IsRenamed() bool { return c != nil && c.OriginalName != c.RenamedName }

// Members returns member namings in file order.
func (c *ClassNaming) Members() []*MemberNaming {
	if c == nil {
		return nil
	}
	return c.members
}

// LookupByOriginal returns the naming for an original signature, or nil
// when the member is unmapped and keeps its name.
func (c *ClassNaming) LookupByOriginal(sig Signature) *MemberNaming {
	if c == nil {
		return nil
	}
	return c.byOriginal[key(sig)]
}

// Lookup returns the naming whose renamed signature is sig, or nil.
func (c *ClassNaming) Lookup(renamed Signature) *MemberNaming {
	if c == nil {
		return nil
	}
	return c.byRenamed[key(renamed)]
}

func key(s Signature) string {
	if s.Method {
		return "m:" + s.String()
	}
	return "f:" + s.String()
}
