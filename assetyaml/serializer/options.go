// Package serializer converts asset object graphs to and from their YAML
// document form.
//
// Identifiable collections (ids.List, ids.Dict) are written as mappings keyed
// by item id ("<hex>" or "<hex>~<key>") with tombstones for deleted items.
// Objects implementing types.Identifiable are expanded once and written as
// "ref!! <id>" everywhere else. Values whose type tag is unknown or whose
// content does not fit their type are kept as placeholder.Unloadable so that
// writing the graph back reproduces them unchanged.
package serializer

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arthur-debert/assetyaml/assetyaml/descriptor"
	"github.com/arthur-debert/assetyaml/assetyaml/graph"
	"github.com/arthur-debert/assetyaml/types"
	"github.com/google/uuid"
)

// References lists the graph positions holding a back-reference, with the id
// they point at. Deserialization returns the positions it read references
// from; passing the table back to Serialize keeps them references.
type References map[graph.Path]uuid.UUID

// Options configure Serialize and Deserialize.
type Options struct {
	// Types resolves type tags. Defaults to descriptor.DefaultTypes.
	Types *descriptor.TypeRegistry
	// References forces the listed positions to be written as
	// back-references. Without it the first occurrence of an object is
	// expanded and later ones are references.
	References References
	// Strict makes Deserialize fail with a *LoadError when any
	// error-severity diagnostic was recorded.
	Strict bool
	// IDGenerator creates item ids missing at write time. Defaults to
	// types.NewItemID.
	IDGenerator graph.IDGenerator
	// Logger receives debug events. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) types() *descriptor.TypeRegistry {
	if o.Types != nil {
		return o.Types
	}
	return descriptor.DefaultTypes
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) generator() graph.IDGenerator {
	if o.IDGenerator != nil {
		return o.IDGenerator
	}
	return types.NewItemID
}

// Severity grades a diagnostic.
type Severity int

const (
	// SeverityWarning marks recovered anomalies.
	SeverityWarning Severity = iota
	// SeverityError marks content that could not be loaded.
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic codes.
const (
	CodeUnknownTag          = "ASY001"
	CodeUnknownMember       = "ASY002"
	CodeMalformedItemID     = "ASY003"
	CodeUnresolvedReference = "ASY004"
	CodeMissingMember       = "ASY005"
	CodeTypeMismatch        = "ASY006"
)

// Diagnostic reports an anomaly found while loading a document.
type Diagnostic struct {
	Severity Severity
	Code     string
	Message  string
	Path     graph.Path
	Line     int
	Column   int
}

func (d Diagnostic) String() string {
	where := d.Path.String()
	if where == "" {
		where = "<root>"
	}
	return fmt.Sprintf("%d:%d %s: %s %s: %s", d.Line, d.Column, where, d.Code, d.Severity, d.Message)
}

// Result is the outcome of Deserialize.
type Result struct {
	// Value is the loaded root object, or a *placeholder.Unloadable when the
	// root type tag is unknown.
	Value any
	// Diagnostics are the anomalies found, in document order.
	Diagnostics []Diagnostic
	// Dirty is set when content was dropped, so writing Value back will not
	// reproduce the input.
	Dirty bool
	// References are the back-reference positions read.
	References References
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ErrInvalidDocument is matched by every *LoadError.
var ErrInvalidDocument = errors.New("invalid document")

// LoadError is returned by a strict Deserialize when the document contains
// errors.
type LoadError struct {
	Diagnostics []Diagnostic
}

func (e *LoadError) Error() string {
	var msgs []string
	for _, d := range e.Diagnostics {
		if d.Severity == SeverityError {
			msgs = append(msgs, d.String())
		}
	}
	return fmt.Sprintf("invalid document: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidDocument.
func (e *LoadError) Unwrap() error { return ErrInvalidDocument }

// CycleError is returned by Serialize when a pointer cycle does not pass
// through an identifiable object, so it cannot be broken with a reference.
type CycleError struct {
	Path graph.Path
	Type string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle through non-identifiable %s at %q", e.Type, e.Path)
}
