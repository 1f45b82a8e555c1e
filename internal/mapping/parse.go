package mapping

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/apex/log"
)

// ParseError reports a malformed mapping line.
type ParseError struct {
	Line int
	Text string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("mapping: line %d: %s: %q", e.Line, e.Msg, e.Text)
}

// ParseFile loads a mapping file from disk.
func ParseFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapping: open: %w", err)
	}
	defer f.Close()
	t, err := Parse(f)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"file": path, "classes": t.Len()}).Debug("mapping: loaded")
	return t, nil
}

// ParseString parses mapping text held in memory.
func ParseString(s string) (*Table, error) { return Parse(strings.NewReader(s)) }

// Parse reads a mapping file. Any malformed line fails the whole load.
func Parse(r io.Reader) (*Table, error) {
	p := &parser{t: newTable()}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		p.line++
		if err := p.parseLine(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("mapping: read: %w", err)
	}
	if err := p.flush(); err != nil {
		return nil, err
	}
	return p.t, nil
}

// memberLine is a parsed member line before it is committed.
type memberLine struct {
	line    int
	text    string
	class   string // qualifier of an inlined frame, "" otherwise
	sig     Signature
	renamed string
	rng     Range
	hasRng  bool // any line range was given
	hasObf  bool // the leading minified range was given
}

type parser struct {
	t    *Table
	line int
	cur  *ClassNaming
	// stack holds consecutive method lines that share a renamed name and
	// minified range: inlined frames first, the method itself last.
	stack []memberLine
}

func (p *parser) errorf(text, format string, args ...any) error {
	return &ParseError{Line: p.line, Text: text, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseLine(text string) error {
	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "":
		return nil
	case strings.HasPrefix(trimmed, "#"):
		return p.comment(trimmed)
	case text[0] == ' ' || text[0] == '\t':
		return p.member(text, trimmed)
	}
	return p.class(text, trimmed)
}

// comment handles R8 JSON metadata; plain comments are ignored.
func (p *parser) comment(trimmed string) error {
	body := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
	if p.cur == nil || !strings.HasPrefix(body, "{") {
		return nil
	}
	var meta struct {
		ID       string `json:"id"`
		FileName string `json:"fileName"`
	}
	if err := json.Unmarshal([]byte(body), &meta); err != nil {
		return nil
	}
	if meta.ID == "sourceFile" {
		p.cur.SourceFile = meta.FileName
	}
	return nil
}

func (p *parser) class(text, trimmed string) error {
	if err := p.flush(); err != nil {
		return err
	}
	orig, obf, ok := splitArrow(trimmed)
	if !ok {
		return p.errorf(text, "missing ->")
	}
	if !strings.HasSuffix(obf, ":") {
		return p.errorf(text, "class line must end with ':'")
	}
	obf = strings.TrimSpace(strings.TrimSuffix(obf, ":"))
	if orig == "" || obf == "" || strings.ContainsAny(orig+obf, " ()") {
		return p.errorf(text, "bad class name")
	}
	if _, dup := p.t.origToObf[orig]; dup {
		return p.errorf(text, "duplicate class %s", orig)
	}
	if prev, dup := p.t.obfToOrig[obf]; dup {
		return p.errorf(text, "%s and %s both map to %s", prev, orig, obf)
	}
	p.t.origToObf[orig] = obf
	p.t.obfToOrig[obf] = orig
	p.cur = newClassNaming(orig, obf)
	p.t.classes.Put(obf, p.cur)
	return nil
}

func (p *parser) member(text, trimmed string) error {
	if p.cur == nil {
		return p.errorf(text, "member line before any class")
	}
	m, err := p.parseMember(text, trimmed)
	if err != nil {
		return err
	}
	if len(p.stack) > 0 {
		top := p.stack[len(p.stack)-1]
		if !m.hasObf || !top.hasObf || m.renamed != top.renamed ||
			m.rng.ObfStart != top.rng.ObfStart || m.rng.ObfEnd != top.rng.ObfEnd {
			if err := p.flush(); err != nil {
				return err
			}
		}
	}
	if m.sig.Method && m.hasObf {
		p.stack = append(p.stack, m)
		return nil
	}
	return p.commit(m, nil)
}

// flush commits the pending stack: the last line is the member, the
// lines before it are its inlined frames.
func (p *parser) flush() error {
	if len(p.stack) == 0 {
		return nil
	}
	stack := p.stack
	p.stack = nil
	own := stack[len(stack)-1]
	frames := make([]InlineFrame, 0, len(stack)-1)
	for _, f := range stack[:len(stack)-1] {
		frames = append(frames, InlineFrame{Class: f.class, Signature: f.sig, Range: f.rng})
	}
	return p.commit(own, frames)
}

func (p *parser) commit(m memberLine, frames []InlineFrame) error {
	c := p.cur
	if prev := c.byOriginal[key(m.sig)]; prev != nil {
		if prev.RenamedName != m.renamed {
			return &ParseError{Line: m.line, Text: m.text,
				Msg: fmt.Sprintf("%s already mapped to %s", m.sig, prev.RenamedName)}
		}
		if m.hasRng {
			prev.Ranges = append(prev.Ranges, m.rng)
		}
		prev.Inlined = append(prev.Inlined, frames...)
		return nil
	}
	mn := &MemberNaming{Original: m.sig, OriginalClass: m.class, RenamedName: m.renamed, Inlined: frames}
	if m.hasRng {
		mn.Ranges = []Range{m.rng}
	}
	rk := key(mn.Renamed())
	if other := c.byRenamed[rk]; other != nil {
		return &ParseError{Line: m.line, Text: m.text,
			Msg: fmt.Sprintf("%s and %s both rename to %s", other.Original, m.sig, mn.Renamed())}
	}
	c.byOriginal[key(m.sig)] = mn
	c.byRenamed[rk] = mn
	c.members = append(c.members, mn)
	return nil
}

// parseMember parses "[a:b:]type name[(args)][:c[:d]] -> renamed".
func (p *parser) parseMember(text, trimmed string) (memberLine, error) {
	m := memberLine{line: p.line, text: text}
	left, renamed, ok := splitArrow(trimmed)
	if !ok {
		return m, p.errorf(text, "missing ->")
	}
	if renamed == "" || strings.ContainsAny(renamed, " ():") {
		return m, p.errorf(text, "bad renamed name")
	}
	m.renamed = renamed

	if left != "" && left[0] >= '0' && left[0] <= '9' {
		parts := strings.SplitN(left, ":", 3)
		if len(parts) != 3 {
			return m, p.errorf(text, "bad line range")
		}
		a, errA := strconv.Atoi(parts[0])
		b, errB := strconv.Atoi(parts[1])
		if errA != nil || errB != nil || a > b {
			return m, p.errorf(text, "bad line range")
		}
		m.rng.ObfStart, m.rng.ObfEnd = a, b
		m.hasRng, m.hasObf = true, true
		left = parts[2]
	}

	sp := strings.IndexByte(left, ' ')
	if sp <= 0 {
		return m, p.errorf(text, "missing member type")
	}
	typ, rest := left[:sp], strings.TrimSpace(left[sp+1:])

	open := strings.IndexByte(rest, '(')
	if open < 0 {
		if m.hasObf || strings.ContainsAny(rest, " :)") {
			return m, p.errorf(text, "bad field name")
		}
		m.sig = FieldSig(typ, rest)
	} else {
		end := strings.IndexByte(rest, ')')
		if end < open || strings.Count(rest, "(") != 1 || strings.Count(rest, ")") != 1 {
			return m, p.errorf(text, "unbalanced parentheses")
		}
		var params []string
		if args := strings.TrimSpace(rest[open+1 : end]); args != "" {
			for _, a := range strings.Split(args, ",") {
				a = strings.TrimSpace(a)
				if a == "" {
					return m, p.errorf(text, "empty parameter type")
				}
				params = append(params, a)
			}
		}
		m.sig = MethodSig(typ, rest[:open], params...)
		if tail := rest[end+1:]; tail != "" {
			if err := p.parseOrigRange(&m, text, tail); err != nil {
				return m, err
			}
		}
	}

	name := m.sig.Name
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		m.class, name = name[:dot], name[dot+1:]
		m.sig.Name = name
	}
	if name == "" || strings.ContainsAny(name, " ") {
		return m, p.errorf(text, "empty member name")
	}
	if m.class != "" && !m.sig.Method {
		return m, p.errorf(text, "qualified field name")
	}
	return m, nil
}

// parseOrigRange parses the ":c" or ":c:d" suffix after a method's
// parameter list.
func (p *parser) parseOrigRange(m *memberLine, text, tail string) error {
	if !strings.HasPrefix(tail, ":") {
		return p.errorf(text, "unexpected text after parameters")
	}
	parts := strings.Split(tail[1:], ":")
	if len(parts) > 2 {
		return p.errorf(text, "bad original line range")
	}
	c, err := strconv.Atoi(parts[0])
	if err != nil {
		return p.errorf(text, "bad original line range")
	}
	d := c
	if len(parts) == 2 {
		if d, err = strconv.Atoi(parts[1]); err != nil {
			return p.errorf(text, "bad original line range")
		}
	}
	m.rng.OrigStart, m.rng.OrigEnd = c, d
	m.hasRng = true
	return nil
}

func splitArrow(s string) (string, string, bool) {
	i := strings.Index(s, "->")
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+2:]), true
}
