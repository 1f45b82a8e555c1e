// Package output writes dexspect results to files and streams.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"dexspect/internal/inspect"
)

// ClassRecord is the serialized form of one class.
type ClassRecord struct {
	Name       string         `json:"name" yaml:"name"`
	Final      string         `json:"final" yaml:"final"`
	Renamed    bool           `json:"renamed" yaml:"renamed"`
	Access     string         `json:"access,omitempty" yaml:"access,omitempty"`
	Super      string         `json:"super,omitempty" yaml:"super,omitempty"`
	Interfaces []string       `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	SourceFile string         `json:"source_file,omitempty" yaml:"source_file,omitempty"`
	Signature  string         `json:"signature,omitempty" yaml:"signature,omitempty"`
	File       string         `json:"file" yaml:"file"`
	Fields     []MemberRecord `json:"fields,omitempty" yaml:"fields,omitempty"`
	Methods    []MemberRecord `json:"methods,omitempty" yaml:"methods,omitempty"`
}

// MemberRecord is the serialized form of a field or method.
type MemberRecord struct {
	Original string `json:"original" yaml:"original"`
	Final    string `json:"final" yaml:"final"`
	Renamed  bool   `json:"renamed" yaml:"renamed"`
	Access   string `json:"access,omitempty" yaml:"access,omitempty"`
	Units    int    `json:"units,omitempty" yaml:"units,omitempty"` // code size in 16-bit units
}

// Class converts a class subject into its record, with names in both
// forms.
func Class(c inspect.ClassSubject) ClassRecord {
	r := ClassRecord{
		Name:       c.OriginalName(),
		Final:      c.FinalName(),
		Renamed:    c.Renamed(),
		Access:     c.Access().String(),
		Interfaces: c.Interfaces(),
		SourceFile: c.SourceFile(),
		Signature:  c.OriginalSignatureAttribute(),
		Super:      c.SuperclassName(),
		File:       c.Class().File,
	}
	for _, f := range c.Fields() {
		r.Fields = append(r.Fields, MemberRecord{
			Original: f.OriginalSignature().String(),
			Final:    f.FinalSignature().String(),
			Renamed:  f.Renamed(),
			Access:   f.Access().String(),
		})
	}
	for _, m := range c.Methods() {
		mr := MemberRecord{
			Original: m.OriginalSignature().String(),
			Final:    m.FinalSignature().String(),
			Renamed:  m.Renamed(),
			Access:   m.Access().String(),
		}
		if code := m.Code(); code != nil {
			mr.Units = code.Units
		}
		r.Methods = append(r.Methods, mr)
	}
	return r
}

// Classes converts every class of an inspector, in container order.
func Classes(in *inspect.Inspector) []ClassRecord {
	var out []ClassRecord
	in.AllClasses(func(c inspect.ClassSubject) { out = append(out, Class(c)) })
	return out
}

// EncodeJSON writes v as indented JSON.
func EncodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode json: %w", err)
	}
	return nil
}

// EncodeYAML writes v as YAML.
func EncodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode yaml: %w", err)
	}
	return enc.Close()
}

// WriteJSON writes v as indented JSON to path.
func WriteJSON(path string, v any) error {
	return writeFile(path, func(w io.Writer) error { return EncodeJSON(w, v) })
}

// WriteClassesJSON writes class records to classes.json.
func WriteClassesJSON(dir string, recs []ClassRecord) error {
	return WriteJSON(filepath.Join(dir, "classes.json"), recs)
}

// WriteClassesYAML writes class records to classes.yaml.
func WriteClassesYAML(dir string, recs []ClassRecord) error {
	return writeFile(filepath.Join(dir, "classes.yaml"), func(w io.Writer) error { return EncodeYAML(w, recs) })
}

// WriteDOT writes a Graphviz document to <name>.dot. name may contain
// path separators for directory grouping.
func WriteDOT(dir, name, dot string) error {
	path := filepath.Join(dir, name+".dot")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir: %w", err)
	}
	return os.WriteFile(path, []byte(dot), 0644)
}

func writeFile(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return err
	}
	return f.Close()
}
