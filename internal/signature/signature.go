// Package signature parses generic signature attributes (JVMS §4.7.9.1)
// and reports each syntactic element to an Action.
package signature

import (
	"errors"
	"fmt"
)

// ErrSyntax is wrapped by every *SyntaxError.
var ErrSyntax = errors.New("signature: malformed generic signature")

// SyntaxError reports where a signature failed to parse.
type SyntaxError struct {
	Sig string
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("signature: %q at %d: %s", e.Sig, e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Kind selects the top-level production.
type Kind int

const (
	KindClass Kind = iota
	KindMethod
	KindField
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindMethod:
		return "method"
	case KindField:
		return "field"
	}
	return "unknown"
}

// Action receives the elements of a signature in source order.
// Replaying every callback verbatim reproduces the input.
//
// Type names are in internal form ("java/util/Map"). ParsedTypeName and
// ParsedInnerTypeName return the name that later inner-type callbacks
// receive as their enclosing type.
type Action interface {
	Start()
	Stop()
	ParsedSymbol(c byte)
	ParsedIdentifier(id string)
	ParsedTypeName(name string) string
	ParsedInnerTypeName(enclosing, name string) string
}

// Parse parses sig as the given production, driving a.
func Parse(kind Kind, sig string, a Action) error {
	p := &parser{sig: sig, a: a}
	a.Start()
	var err error
	switch kind {
	case KindClass:
		err = p.classSignature()
	case KindMethod:
		err = p.methodSignature()
	case KindField:
		err = p.referenceType()
	default:
		return fmt.Errorf("signature: unknown kind %d", kind)
	}
	if err == nil && p.pos != len(sig) {
		err = p.errorf("trailing data")
	}
	if err != nil {
		return err
	}
	a.Stop()
	return nil
}

// ParseClass parses a ClassSignature.
func ParseClass(sig string, a Action) error { return Parse(KindClass, sig, a) }

// ParseMethod parses a MethodSignature.
func ParseMethod(sig string, a Action) error { return Parse(KindMethod, sig, a) }

// ParseField parses a FieldSignature.
func ParseField(sig string, a Action) error { return Parse(KindField, sig, a) }

// Validate reports whether sig is well formed.
func Validate(kind Kind, sig string) error { return Parse(kind, sig, nopAction{}) }

type nopAction struct{}

func (nopAction) Start()                                            {}
func (nopAction) Stop()                                             {}
func (nopAction) ParsedSymbol(byte)                                 {}
func (nopAction) ParsedIdentifier(string)                           {}
func (nopAction) ParsedTypeName(name string) string                 { return name }
func (nopAction) ParsedInnerTypeName(enclosing, name string) string { return enclosing + "$" + name }
