package dexfmt

import "testing"

func TestDescriptorToJava(t *testing.T) {
	tests := []struct {
		raw, want string
	}{
		{"Lcom/example/Widget;", "com.example.Widget"},
		{"[Ljava/lang/Object;", "java.lang.Object[]"},
		{"[[B", "byte[][]"},
		{"[C", "char[]"},
		{"D", "double"},
		{"V", "void"},
		{"<illegal>", "<illegal>"},
		{"[", "["},
		{"IJ", "IJ"},
	}
	for _, tt := range tests {
		if got := DescriptorToJava(tt.raw); got != tt.want {
			t.Errorf("DescriptorToJava(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestJavaToDescriptor(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"int", "I"},
		{"boolean[]", "[Z"},
		{"java.lang.String", "Ljava/lang/String;"},
		{"a.b.C[][]", "[[La/b/C;"},
		{"Outer$Inner", "LOuter$Inner;"},
	}
	for _, tt := range tests {
		got := JavaToDescriptor(tt.name)
		if got != tt.want {
			t.Errorf("JavaToDescriptor(%q) = %q, want %q", tt.name, got, tt.want)
		}
		if back := DescriptorToJava(got); back != tt.name {
			t.Errorf("DescriptorToJava(%q) = %q, want %q", got, back, tt.name)
		}
	}
}

func TestSplitArray(t *testing.T) {
	elem, dims := SplitArray("a.B[][]")
	if elem != "a.B" || dims != 2 {
		t.Errorf("SplitArray = (%q, %d), want (a.B, 2)", elem, dims)
	}
	if !IsPrimitive("void") || IsPrimitive("java.lang.Void") {
		t.Error("IsPrimitive misclassified void/java.lang.Void")
	}
}

func TestShortyChar(t *testing.T) {
	for desc, want := range map[string]byte{"I": 'I', "[I": 'L', "La;": 'L', "V": 'V'} {
		if got := ShortyChar(desc); got != want {
			t.Errorf("ShortyChar(%q) = %c, want %c", desc, got, want)
		}
	}
}
