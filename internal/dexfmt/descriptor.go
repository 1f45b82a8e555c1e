package dexfmt

import "strings"

// For the rules on how type descriptors are encoded, see
// https://source.android.com/docs/core/runtime/dex-format#typedescriptor

var primitiveNames = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
	'V': "void",
}

var primitiveDescriptors = map[string]byte{
	"byte":    'B',
	"char":    'C',
	"double":  'D',
	"float":   'F',
	"int":     'I',
	"long":    'J',
	"short":   'S',
	"boolean": 'Z',
	"void":    'V',
}

// DescriptorToJava converts a type descriptor such as "[Ljava/lang/Object;"
// to its Java source form ("java.lang.Object[]"). Descriptors that do not
// parse are returned unchanged.
func DescriptorToJava(d string) string {
	dims := 0
	for dims < len(d) && d[dims] == '[' {
		dims++
	}
	if dims == len(d) {
		return d
	}

	var base string
	c := d[dims]
	if c == 'L' {
		if !strings.HasSuffix(d, ";") || len(d)-dims < 3 {
			return d
		}
		base = strings.ReplaceAll(d[dims+1:len(d)-1], "/", ".")
	} else {
		name, ok := primitiveNames[c]
		if !ok || len(d) != dims+1 {
			// not a descriptor; keep it as given
			return d
		}
		base = name
	}
	return base + strings.Repeat("[]", dims)
}

// JavaToDescriptor converts a Java type name ("int[]", "a.b.C") to a
// type descriptor ("[I", "La/b/C;").
func JavaToDescriptor(name string) string {
	dims := 0
	for strings.HasSuffix(name, "[]") {
		name = name[:len(name)-2]
		dims++
	}
	prefix := strings.Repeat("[", dims)
	if c, ok := primitiveDescriptors[name]; ok {
		return prefix + string(c)
	}
	return prefix + "L" + strings.ReplaceAll(name, ".", "/") + ";"
}

// IsPrimitive reports whether name is a Java primitive type name or void.
func IsPrimitive(name string) bool {
	_, ok := primitiveDescriptors[name]
	return ok
}

// IsArray reports whether a Java type name denotes an array.
func IsArray(name string) bool {
	return strings.HasSuffix(name, "[]")
}

// SplitArray splits a Java type name into its element type and the
// number of array dimensions.
func SplitArray(name string) (elem string, dims int) {
	for strings.HasSuffix(name, "[]") {
		name = name[:len(name)-2]
		dims++
	}
	return name, dims
}

// IsDescriptor reports whether s is a reference or array type descriptor.
func IsDescriptor(s string) bool {
	if strings.HasPrefix(s, "[") {
		return true
	}
	return len(s) >= 3 && s[0] == 'L' && s[len(s)-1] == ';'
}

// InternalToJava converts an internal binary name ("a/b/C") to Java form.
func InternalToJava(name string) string {
	return strings.ReplaceAll(name, "/", ".")
}

// JavaToInternal converts a Java class name ("a.b.C") to internal form.
func JavaToInternal(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// ShortyChar returns the shorty descriptor character for a type
// descriptor: reference and array types collapse to 'L'.
func ShortyChar(desc string) byte {
	if desc == "" {
		return 'V'
	}
	if desc[0] == '[' || desc[0] == 'L' {
		return 'L'
	}
	return desc[0]
}
