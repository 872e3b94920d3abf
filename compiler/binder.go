package compiler

import (
	"strconv"

	"github.com/coderline/phase/errors"
)

// ArgumentSource tells where the value of a bound parameter comes from
type ArgumentSource int

const (
	SourceArgument   ArgumentSource = iota // actual arguments at the call site
	SourceReceiver                         // extension method receiver
	SourceCallerInfo                       // caller member name, file or line
	SourceDefault                          // default-value expression of the declaration
	SourceConstant                         // statically known literal default
	SourceSentinel                         // null/empty sentinel for an optional parameter
)

func (s ArgumentSource) String() string {
	switch s {
	case SourceReceiver:
		return "receiver"
	case SourceCallerInfo:
		return "caller"
	case SourceDefault:
		return "default"
	case SourceConstant:
		return "constant"
	case SourceSentinel:
		return "sentinel"
	}
	return "argument"
}

// BoundParameter is the binding of one formal parameter
type BoundParameter struct {
	Parameter *Parameter
	// Type is the parameter type with the receiver's type arguments substituted
	Type   *Type
	Args   []*Node
	Source ArgumentSource
	// NeedsPacking is set on a params parameter whose arguments must be collected
	// into a container by the backend's packing helper
	NeedsPacking bool
	RefKind      RefKind
	// Constant is the value of caller-info and literal defaults
	Constant *Constant
}

// ElementType is the element type of a params parameter
func (b *BoundParameter) ElementType() *Type {
	if b.Type != nil && b.Type.Kind == TypeArray {
		return b.Type.Elem
	}
	return b.Type
}

// InvocationBinding maps every formal parameter, in declaration order, to the
// actual arguments contributing to it
type InvocationBinding struct {
	Method  *Symbol
	Entries []*BoundParameter
}

// Lookup returns the entry of the named parameter
func (b *InvocationBinding) Lookup(name string) *BoundParameter {
	for _, e := range b.Entries {
		if e.Parameter.Name == name {
			return e
		}
	}
	return nil
}

// CallSite describes the calling context used for caller-info parameters
type CallSite struct {
	Node   *Node
	Member string
}

// Binder maps call arguments onto formal parameters
type Binder struct {
	oracle SemanticOracle
}

// NewBinder creates a binder that types arguments through oracle
func NewBinder(oracle SemanticOracle) *Binder {
	return &Binder{oracle: oracle}
}

// Bind binds the actual arguments of a call to method. receiver is the call's
// receiver expression, used for extension methods and to instantiate the
// parameter types of generic containers; it may be nil.
func (b *Binder) Bind(method *Symbol, receiver *Node, args []*Argument, site CallSite) (*InvocationBinding, error) {
	if method == nil {
		return nil, errors.AssertionFailedf("bind: nil method")
	}
	actuals := args
	if method.IsExtension && receiver != nil {
		actuals = append([]*Argument{{Value: receiver}}, args...)
	}

	var env map[string]*Type
	if receiver != nil && !method.IsExtension {
		static, _ := b.oracle.ResolveType(receiver)
		env = typeEnv(static)
	}

	entries := make([]*BoundParameter, len(method.Parameters))
	for i, p := range method.Parameters {
		entries[i] = &BoundParameter{Parameter: p, Type: substitute(p.Type, env), RefKind: p.RefKind}
	}
	bound := make([]bool, len(entries))

	// positional arguments, a trailing params parameter absorbs the rest
	pos := 0
	for ; pos < len(actuals) && actuals[pos].Name == ""; pos++ {
		if pos >= len(entries) {
			return nil, invocationBindingError(site.Node, method, "#"+strconv.Itoa(pos))
		}
		e := entries[pos]
		if e.Parameter.IsParams {
			for ; pos < len(actuals) && actuals[pos].Name == ""; pos++ {
				e.Args = append(e.Args, actuals[pos].Value)
			}
			bound[len(entries)-1] = true
			break
		}
		e.Args = []*Node{actuals[pos].Value}
		if e.Parameter.IsThis && method.IsExtension && pos == 0 && receiver != nil {
			e.Source = SourceReceiver
		}
		if actuals[pos].RefKind != RefNone {
			e.RefKind = actuals[pos].RefKind
		}
		bound[pos] = true
	}

	// named arguments
	for ; pos < len(actuals); pos++ {
		a := actuals[pos]
		idx := -1
		for i, e := range entries {
			if e.Parameter.Name == a.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, invocationBindingError(site.Node, method, a.Name)
		}
		entries[idx].Args = append(entries[idx].Args, a.Value)
		if a.RefKind != RefNone {
			entries[idx].RefKind = a.RefKind
		}
		bound[idx] = true
	}

	for i, e := range entries {
		p := e.Parameter
		if p.IsParams {
			e.NeedsPacking = !b.passesThrough(e)
			continue
		}
		if bound[i] {
			continue
		}
		switch {
		case p.CallerInfo != CallerInfoNone:
			e.Source = SourceCallerInfo
			e.Constant = callerConstant(p.CallerInfo, site)
		case p.Default != nil:
			e.Source = SourceDefault
			e.Args = []*Node{p.Default}
		case p.DefaultConstant != nil:
			e.Source = SourceConstant
			e.Constant = p.DefaultConstant
		case p.IsOptional:
			e.Source = SourceSentinel
		default:
			return nil, invocationBindingError(site.Node, method, p.Name)
		}
	}
	return &InvocationBinding{Method: method, Entries: entries}, nil
}

// passesThrough reports whether a params parameter receives a single argument
// already of the container type
func (b *Binder) passesThrough(e *BoundParameter) bool {
	if len(e.Args) != 1 {
		return false
	}
	static, _ := b.oracle.ResolveType(e.Args[0])
	return static != nil && static.AssignableTo(e.Type)
}

func callerConstant(info CallerInfo, site CallSite) *Constant {
	switch info {
	case CallerMemberName:
		return &Constant{Kind: ConstString, Text: site.Member}
	case CallerFilePath:
		file := ""
		if site.Node != nil {
			file = site.Node.Pos.File
		}
		return &Constant{Kind: ConstString, Text: file}
	case CallerLineNumber:
		line := 0
		if site.Node != nil {
			line = site.Node.Pos.Line
		}
		return &Constant{Kind: ConstInt, Text: strconv.Itoa(line)}
	}
	return nil
}

// typeEnv maps the type parameters of t's definition to t's type arguments
func typeEnv(t *Type) map[string]*Type {
	if t == nil || t.Definition == nil || len(t.TypeArgs) != len(t.Definition.TypeArgs) {
		return nil
	}
	env := make(map[string]*Type, len(t.TypeArgs))
	for i, p := range t.Definition.TypeArgs {
		env[p.Name] = t.TypeArgs[i]
	}
	return env
}
