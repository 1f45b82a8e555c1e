package signature

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// echo rebuilds the signature from callbacks and records type names.
type echo struct {
	b      strings.Builder
	types  []string
	inner  [][2]string
	starts int
	stops  int
}

func (e *echo) Start()                     { e.starts++ }
func (e *echo) Stop()                      { e.stops++ }
func (e *echo) ParsedSymbol(c byte)        { e.b.WriteByte(c) }
func (e *echo) ParsedIdentifier(id string) { e.b.WriteString(id) }
func (e *echo) ParsedTypeName(name string) string {
	e.types = append(e.types, name)
	e.b.WriteString(name)
	return name
}
func (e *echo) ParsedInnerTypeName(enclosing, name string) string {
	e.inner = append(e.inner, [2]string{enclosing, name})
	e.b.WriteString(name)
	return enclosing + "$" + name
}

func TestParse_RoundTrip(t *testing.T) {
	tests := []struct {
		kind Kind
		sig  string
	}{
		{KindClass, "Ljava/lang/Object;"},
		{KindClass, "<T:Ljava/lang/Object;>Ljava/lang/Object;Ljava/lang/Comparable<TT;>;"},
		{KindClass, "<K::Ljava/lang/Comparable<TK;>;V:Ljava/lang/Object;>Ljava/util/AbstractMap<TK;TV;>;"},
		{KindClass, "<E:Ljava/lang/Enum<TE;>;>Ljava/lang/Object;"},
		{KindMethod, "()V"},
		{KindMethod, "<T:Ljava/lang/Object;>(TT;[I)TT;"},
		{KindMethod, "(Ljava/util/List<+Ljava/lang/Number;>;Ljava/util/Map<-TK;*>;)[[J"},
		{KindMethod, "()V^Ljava/io/IOException;^TE;"},
		{KindField, "Ljava/util/List<Ljava/lang/String;>;"},
		{KindField, "TT;"},
		{KindField, "[Ljava/util/Map$Entry<TK;TV;>;"},
		{KindField, "Lcom/a/Outer<TT;>.Inner<TU;>.Deep;"},
	}
	for _, tt := range tests {
		t.Run(tt.sig, func(t *testing.T) {
			e := &echo{}
			if err := Parse(tt.kind, tt.sig, e); err != nil {
				t.Fatalf("Parse(%s, %q): %v", tt.kind, tt.sig, err)
			}
			if got := e.b.String(); got != tt.sig {
				t.Errorf("echo = %q, want %q", got, tt.sig)
			}
			if e.starts != 1 || e.stops != 1 {
				t.Errorf("start/stop = %d/%d, want 1/1", e.starts, e.stops)
			}
		})
	}
}

func TestParse_TypeNames(t *testing.T) {
	e := &echo{}
	sig := "Lcom/a/Outer<TT;>.Inner<Ljava/lang/String;>.Deep;"
	if err := ParseField(sig, e); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"com/a/Outer", "java/lang/String"}, e.types); diff != "" {
		t.Errorf("type names (-want +got):\n%s", diff)
	}
	wantInner := [][2]string{{"com/a/Outer", "Inner"}, {"com/a/Outer$Inner", "Deep"}}
	if diff := cmp.Diff(wantInner, e.inner); diff != "" {
		t.Errorf("inner names (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		kind Kind
		sig  string
	}{
		{KindClass, ""},
		{KindClass, "Ljava/lang/Object"},
		{KindClass, "<>Ljava/lang/Object;"},
		{KindClass, "<T>Ljava/lang/Object;"},
		{KindClass, "I"},
		{KindMethod, "(I"},
		{KindMethod, "()"},
		{KindMethod, "(I)V^I"},
		{KindField, "I"},
		{KindField, "Ljava/util/List<>;"},
		{KindField, "L;"},
		{KindField, "Ljava//List;"},
		{KindField, "TT;X"},
	}
	for _, tt := range tests {
		err := Validate(tt.kind, tt.sig)
		if !errors.Is(err, ErrSyntax) {
			t.Errorf("Validate(%s, %q) = %v, want ErrSyntax", tt.kind, tt.sig, err)
		}
		var se *SyntaxError
		if errors.As(err, &se) && se.Sig != tt.sig {
			t.Errorf("SyntaxError.Sig = %q, want %q", se.Sig, tt.sig)
		}
	}
}

func TestParse_NoStopOnError(t *testing.T) {
	e := &echo{}
	if err := ParseClass("Lbroken", e); err == nil {
		t.Fatal("expected error")
	}
	if e.stops != 0 {
		t.Errorf("Stop called %d times on failed parse", e.stops)
	}
}
