// Package dexfmt provides shared types, diagnostics and the byte stream
// used to decode DEX containers.
package dexfmt

import "fmt"

// DiagKind classifies a diagnostic message.
type DiagKind string

const (
	DiagChecksum  DiagKind = "checksum"
	DiagInvalid   DiagKind = "invalid"
	DiagSignature DiagKind = "signature"
	DiagClamped   DiagKind = "clamped"
	DiagUnknown   DiagKind = "unknown"
)

// Diag records a non-fatal issue encountered during parsing.
type Diag struct {
	Source string   `json:"source,omitempty"`
	Offset uint64   `json:"offset"`
	Kind   DiagKind `json:"kind"`
	Msg    string   `json:"msg"`
}

func (d Diag) String() string {
	if d.Source != "" {
		return fmt.Sprintf("[%s] %s@0x%x: %s", d.Kind, d.Source, d.Offset, d.Msg)
	}
	return fmt.Sprintf("[%s] 0x%x: %s", d.Kind, d.Offset, d.Msg)
}

// Diags accumulates diagnostics.
type Diags struct {
	items []Diag
}

func (d *Diags) Add(source string, offset uint64, kind DiagKind, msg string) {
	d.items = append(d.items, Diag{Source: source, Offset: offset, Kind: kind, Msg: msg})
}

func (d *Diags) Addf(source string, offset uint64, kind DiagKind, format string, args ...any) {
	d.items = append(d.items, Diag{Source: source, Offset: offset, Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

func (d *Diags) Items() []Diag { return d.items }
func (d *Diags) Len() int      { return len(d.items) }

// Mode controls error handling behavior.
type Mode int

const (
	ModeStrict     Mode = iota // first structural error returns error
	ModeBestEffort             // continue, accumulate diags
)

func (m Mode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "best-effort"
}

// Options controls parsing behavior across packages.
type Options struct {
	Mode     Mode
	MaxSteps int // per-method instruction decode cap; 0 = use default
}

// DefaultMaxSteps is the default per-method decode cap.
const DefaultMaxSteps = 1 << 20

func (o Options) EffectiveMaxSteps() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return DefaultMaxSteps
}
