package compiler

import (
	"fmt"

	"github.com/coderline/phase/errors"
)

// DiagnosticKind classifies a reported problem
type DiagnosticKind int

const (
	DiagInternal DiagnosticKind = iota
	DiagUnsupported
	DiagTemplateBinding
	DiagUnresolvedSymbol
	DiagInvocationBinding
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagUnsupported:
		return "unsupported"
	case DiagTemplateBinding:
		return "template"
	case DiagUnresolvedSymbol:
		return "unresolved"
	case DiagInvocationBinding:
		return "binding"
	}
	return "internal"
}

// Diagnostic is a located problem found while emitting a unit
type Diagnostic struct {
	Kind    DiagnosticKind
	Pos     Position
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Kind, d.Message)
}

// located attaches the source position of n to err as a detail
func located(err error, pos Position) error {
	return errors.WithDetail(err, pos.String())
}

// unsupported reports a node kind the backend cannot represent
func unsupported(backend string, n *Node, what string) error {
	var pos Position
	if n != nil {
		pos = n.Pos
	}
	return located(errors.Wrapf(errors.ErrUnsupportedConstruct, "%s: %s in %s", pos, what, backend), pos)
}

func templateBindingError(symbol, variable string) error {
	return errors.Wrapf(errors.ErrTemplateBinding, "template for %s: no value bound for {%s}", symbol, variable)
}

func invocationBindingError(n *Node, method *Symbol, param string) error {
	var pos Position
	if n != nil {
		pos = n.Pos
	}
	return located(errors.Wrapf(errors.ErrInvocationBinding, "%s: call to %s: no argument or default for parameter %s",
		pos, method.Name, param), pos)
}

func unresolvedSymbol(n *Node) Diagnostic {
	return Diagnostic{
		Kind:    DiagUnresolvedSymbol,
		Pos:     n.Pos,
		Message: fmt.Sprintf("no symbol for %s %q, emitted as written", n.Kind, n.Name),
	}
}

// DiagnosticOf classifies a unit failure
func DiagnosticOf(err error, fallback Position) Diagnostic {
	kind := DiagInternal
	switch {
	case errors.Is(err, errors.ErrUnsupportedConstruct):
		kind = DiagUnsupported
	case errors.Is(err, errors.ErrTemplateBinding):
		kind = DiagTemplateBinding
	case errors.Is(err, errors.ErrInvocationBinding):
		kind = DiagInvocationBinding
	case errors.Is(err, errors.ErrUnresolvedSymbol):
		kind = DiagUnresolvedSymbol
	}
	return Diagnostic{Kind: kind, Pos: fallback, Message: err.Error()}
}
