// Package dex decodes Android DEX containers into an immutable Program
// of classes, members, annotations and decoded Dalvik instructions.
package dex

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"

	"github.com/apex/log"

	"dexspect/internal/dexfmt"
)

var (
	ErrNotDex         = errors.New("dex: not a DEX file")
	ErrTruncated      = errors.New("dex: truncated data")
	ErrBadIndex       = errors.New("dex: index out of range")
	ErrBadEndian      = errors.New("dex: unsupported endian tag")
	ErrBadChecksum    = errors.New("dex: checksum mismatch")
	ErrMalformed      = errors.New("dex: malformed item")
	ErrDuplicateClass = errors.New("dex: duplicate class")
	ErrNoDex          = errors.New("dex: archive contains no classes*.dex")
)

var zipMagic = []byte("PK\x03\x04")

// Open loads a .dex file or a zip container (.apk, .jar, .zip) holding
// classes*.dex entries.
func Open(path string, opts dexfmt.Options) (*Program, error) {
	return OpenFiles([]string{path}, opts)
}

// OpenFiles loads several inputs into one Program. A class defined in
// more than one input is an error.
func OpenFiles(paths []string, opts dexfmt.Options) (*Program, error) {
	l := newLoader(opts)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("dex: open: %w", err)
		}
		if err := l.add(path, data); err != nil {
			return nil, err
		}
	}
	return l.prog, nil
}

// Load decodes a single in-memory input, either raw DEX or a zip archive.
func Load(name string, data []byte, opts dexfmt.Options) (*Program, error) {
	l := newLoader(opts)
	if err := l.add(name, data); err != nil {
		return nil, err
	}
	return l.prog, nil
}

type loader struct {
	opts dexfmt.Options
	prog *Program
}

func newLoader(opts dexfmt.Options) *loader {
	return &loader{opts: opts, prog: &Program{byDesc: make(map[string]*Class)}}
}

func (l *loader) add(name string, data []byte) error {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return l.addZip(name, data)
	case isDexMagic(data):
		return l.addDex(name, data)
	}
	return fmt.Errorf("%w: %s", ErrNotDex, name)
}

var isClassesDex = regexp.MustCompile(`^classes(\d*)\.dex$`)

// classesOrder sorts classes.dex, classes2.dex, ..., classes10.dex
// numerically.
func classesOrder(name string) int {
	m := isClassesDex.FindStringSubmatch(name)
	if m == nil || m[1] == "" {
		return 1
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func (l *loader) addZip(name string, data []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("dex: %s: %w", name, err)
	}
	var entries []*zip.File
	for _, f := range zr.File {
		if isClassesDex.MatchString(f.Name) {
			entries = append(entries, f)
		}
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: %s", ErrNoDex, name)
	}
	sort.Slice(entries, func(i, j int) bool {
		return classesOrder(entries[i].Name) < classesOrder(entries[j].Name)
	})
	log.WithFields(log.Fields{"archive": name, "entries": len(zr.File), "dex": len(entries)}).Debug("dex: scanning archive")
	for _, f := range entries {
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("dex: %s!%s: %w", name, f.Name, err)
		}
		buf, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("dex: %s!%s: %w", name, f.Name, err)
		}
		if err := l.addDex(name+"!"+f.Name, buf); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) addDex(name string, data []byte) error {
	h, version, sumOK, err := parseHeader(data)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if !sumOK {
		if l.opts.Mode == dexfmt.ModeStrict {
			return fmt.Errorf("%s: %w: stored 0x%08x", name, ErrBadChecksum, h.Checksum)
		}
		l.prog.diags.Addf(name, 8, dexfmt.DiagChecksum, "stored checksum 0x%08x does not match contents", h.Checksum)
	}
	data = data[:h.FileSize]

	p, err := readPools(data, &h)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	c := &container{name: name, data: data, p: p, opts: l.opts, diags: &l.prog.diags}
	classes, err := c.readClasses(&h)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	for _, cls := range classes {
		if prev, dup := l.prog.byDesc[cls.Descriptor]; dup {
			return fmt.Errorf("%w: %s in %s and %s", ErrDuplicateClass, cls.Descriptor, prev.File, name)
		}
		l.prog.byDesc[cls.Descriptor] = cls
	}
	l.prog.classes = append(l.prog.classes, classes...)
	l.prog.files = append(l.prog.files, &File{
		Name:     name,
		Version:  version,
		Size:     len(data),
		Checksum: h.Checksum,
		Strings:  len(p.strings),
		Types:    len(p.types),
		Protos:   len(p.protos),
		Fields:   len(p.fields),
		Methods:  len(p.methods),
		Classes:  len(classes),
	})

	log.WithFields(log.Fields{
		"file":    name,
		"version": version,
		"classes": len(classes),
		"strings": len(p.strings),
		"methods": len(p.methods),
	}).Debug("dex: loaded container")
	return nil
}
