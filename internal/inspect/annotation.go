package inspect

import "dexspect/internal/dex"

// AnnotationSubject is an annotation lookup result. The zero value is
// absent.
type AnnotationSubject struct {
	in *Inspector
	a  *dex.Annotation
}

func (in *Inspector) annotation(set []*dex.Annotation, name string) AnnotationSubject {
	desc := in.descriptorOf(name)
	for _, a := range set {
		if a.Type == desc {
			return AnnotationSubject{in: in, a: a}
		}
	}
	return AnnotationSubject{}
}

// Present reports whether the annotation exists.
func (s AnnotationSubject) Present() bool { return s.a != nil }

// Annotation returns the backing annotation, or nil when absent.
func (s AnnotationSubject) Annotation() *dex.Annotation { return s.a }

// FinalType is the annotation type descriptor as stored.
func (s AnnotationSubject) FinalType() string {
	if s.a == nil {
		return ""
	}
	return s.a.Type
}

// OriginalName is the original Java name of the annotation type.
func (s AnnotationSubject) OriginalName() string {
	if s.a == nil {
		return ""
	}
	return s.in.originalType(s.a.Type)
}

// Visibility returns the retention recorded in the container.
func (s AnnotationSubject) Visibility() dex.Visibility {
	if s.a == nil {
		return 0
	}
	return s.a.Visibility
}

// Element returns the value of a named element.
func (s AnnotationSubject) Element(name string) (dex.Value, bool) {
	if s.a == nil {
		return dex.Value{}, false
	}
	return s.a.Element(name)
}
