package mapping

import "strings"

// Signature identifies a member in Java source form: "void foo(int,java.lang.String)"
// for methods, "int count" for fields.
type Signature struct {
	Name   string
	Type   string   // field type or method return type
	Params []string // method parameter types
	Method bool
}

// MethodSig builds a method signature.
func MethodSig(ret, name string, params ...string) Signature {
	return Signature{Name: name, Type: ret, Params: params, Method: true}
}

// FieldSig builds a field signature.
func FieldSig(typ, name string) Signature {
	return Signature{Name: name, Type: typ}
}

func (s Signature) String() string {
	if !s.Method {
		return s.Type + " " + s.Name
	}
	return s.Type + " " + s.Name + "(" + strings.Join(s.Params, ",") + ")"
}

// WithName returns a copy of s named name.
func (s Signature) WithName(name string) Signature {
	s.Name = name
	return s
}

// Map returns a copy of s with every type passed through fn.
func (s Signature) Map(fn func(string) string) Signature {
	out := Signature{Name: s.Name, Type: fn(s.Type), Method: s.Method}
	if s.Params != nil {
		out.Params = make([]string, len(s.Params))
		for i, p := range s.Params {
			out.Params[i] = fn(p)
		}
	}
	return out
}

// Equal compares name, types and kind.
func (s Signature) Equal(o Signature) bool {
	return s.String() == o.String() && s.Method == o.Method
}
