package compiler

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/txtar"

	"github.com/coderline/phase/errors"
	"github.com/coderline/phase/logger"
)

var renderers = map[string]func() Renderer{
	"cpp":        func() Renderer { return NewCPPEmitter() },
	"csharp":     func() Renderer { return NewCSharpEmitter() },
	"java":       func() Renderer { return NewJavaEmitter() },
	"rust":       func() Renderer { return NewRustEmitter() },
	"typescript": func() Renderer { return NewTypeScriptEmitter() },
}

// Backends lists the registered backend names in order
func Backends() []string {
	names := make([]string, 0, len(renderers))
	for name := range renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewRenderer returns a fresh renderer for the named backend
func NewRenderer(name string) (Renderer, error) {
	mk, ok := renderers[name]
	if !ok {
		return nil, errors.WithHintf(errors.Newf("unknown backend %q", name),
			"available backends: %s", strings.Join(Backends(), ", "))
	}
	return mk(), nil
}

// UnitStatus is the outcome of one unit
type UnitStatus int

const (
	// StatusOK means every node was emitted from resolved symbols
	StatusOK UnitStatus = iota
	// StatusFallback means the unit was emitted but some names were unresolved
	StatusFallback
	// StatusFailed means the unit produced no artifacts
	StatusFailed
)

func (s UnitStatus) String() string {
	switch s {
	case StatusFallback:
		return "fallback"
	case StatusFailed:
		return "failed"
	}
	return "ok"
}

// Output is the text of one artifact
type Output struct {
	Backend string
	Path    string
	Text    string
}

// Unit is the result of emitting one type for one backend
type Unit struct {
	Backend     string
	Type        string
	Status      UnitStatus
	Outputs     []Output
	Diagnostics []Diagnostic
	Duration    time.Duration
	Err         error
}

// Report collects the units of a run, ordered by backend then type key
type Report struct {
	RunID string
	Units []*Unit
}

// Count returns the number of units with status s
func (r *Report) Count(s UnitStatus) int {
	n := 0
	for _, u := range r.Units {
		if u.Status == s {
			n++
		}
	}
	return n
}

// Outputs returns the artifacts of all successful units in report order
func (r *Report) Outputs() []Output {
	var out []Output
	for _, u := range r.Units {
		out = append(out, u.Outputs...)
	}
	return out
}

// Options configures a Driver
type Options struct {
	// Backends to emit, all registered backends when empty
	Backends []string
	// Workers bounds the number of units emitted concurrently
	Workers int
	// Templates is the redirection table, the embedded defaults when nil
	Templates *TemplateTable
	// Check renders every unit but keeps no artifact text
	Check bool
	// Trace logs every emitted statement at debug level
	Trace bool
}

// Driver emits every declaration of a compilation for every selected backend
type Driver struct {
	opts Options
}

// NewDriver validates opts and returns a driver
func NewDriver(opts Options) (*Driver, error) {
	if len(opts.Backends) == 0 {
		opts.Backends = Backends()
	}
	for _, b := range opts.Backends {
		if _, err := NewRenderer(b); err != nil {
			return nil, err
		}
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Templates == nil {
		t, err := DefaultTemplates()
		if err != nil {
			return nil, err
		}
		opts.Templates = t
	}
	return &Driver{opts: opts}, nil
}

// Run emits all units. Unit failures do not stop the run: they are recorded in the
// report and returned combined. Cancelling ctx stops units not yet started.
func (d *Driver) Run(ctx context.Context, comp *Compilation) (*Report, error) {
	runID := uuid.NewString()
	log := logger.Named("driver").With("run", runID)
	start := time.Now()

	decls := make([]*TypeDecl, len(comp.Types))
	copy(decls, comp.Types)
	sort.SliceStable(decls, func(i, j int) bool {
		return decls[i].Type.Key() < decls[j].Type.Key()
	})
	backends := append([]string(nil), d.opts.Backends...)
	sort.Strings(backends)

	report := &Report{RunID: runID, Units: make([]*Unit, 0, len(decls)*len(backends))}
	for _, b := range backends {
		for _, decl := range decls {
			report.Units = append(report.Units, &Unit{Backend: b, Type: decl.Type.Key()})
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(d.opts.Workers)
	for i, u := range report.Units {
		decl := decls[i%len(decls)]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				u.Status, u.Err = StatusFailed, err
				return nil
			}
			d.runUnit(comp, decl, u)
			log.Infow("unit", "backend", u.Backend, "type", u.Type, "status", u.Status.String(),
				"duration", u.Duration)
			for _, diag := range u.Diagnostics {
				log.Debugw("diagnostic", "backend", u.Backend, "diagnostic", diag.String())
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs error
	for _, u := range report.Units {
		if u.Err != nil {
			errs = multierr.Append(errs, errors.Wrapf(u.Err, "%s %s", u.Backend, u.Type))
		}
	}
	log.Infow("run finished", "units", len(report.Units), "ok", report.Count(StatusOK),
		"fallback", report.Count(StatusFallback), "failed", report.Count(StatusFailed),
		"duration", time.Since(start))
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, errs
}

func (d *Driver) runUnit(comp *Compilation, decl *TypeDecl, u *Unit) {
	start := time.Now()
	defer func() { u.Duration = time.Since(start) }()

	r, err := NewRenderer(u.Backend)
	if err != nil {
		u.Status, u.Err = StatusFailed, err
		return
	}
	outputs, diags, err := RenderUnit(comp, r, d.opts.Templates, decl, d.opts.Trace)
	u.Diagnostics = diags
	if err != nil {
		u.Status, u.Err = StatusFailed, err
		u.Diagnostics = append(u.Diagnostics, DiagnosticOf(err, decl.Pos))
		return
	}
	if len(diags) > 0 {
		u.Status = StatusFallback
	}
	if !d.opts.Check {
		u.Outputs = outputs
	}
}

// RenderUnit emits every artifact of decl with r. A failure in any artifact fails
// the whole unit; a panic in a renderer is reported as an assertion failure of
// this unit only.
func RenderUnit(comp *Compilation, r Renderer, templates *TemplateTable, decl *TypeDecl, trace bool) (outputs []Output, diags []Diagnostic, err error) {
	defer func() {
		if p := recover(); p != nil {
			outputs = nil
			err = errors.AssertionFailedf("%s renderer panicked on %s: %v", r.Dialect().Name, decl.Type.Key(), p)
		}
	}()
	for _, a := range r.Artifacts(decl, NewTypeResolver(r.Syntax(), comp.Index)) {
		ctx := NewContext(comp, r, templates, decl, a)
		ctx.Trace = trace
		if err := r.EmitArtifact(ctx); err != nil {
			return nil, diags, err
		}
		outputs = append(outputs, Output{Backend: r.Dialect().Name, Path: a.Path, Text: ctx.Writer.String()})
		diags = append(diags, ctx.Fallbacks()...)
	}
	return outputs, diags, nil
}

// WriteOutputs writes every artifact under dir/<backend>/<path>
func WriteOutputs(dir string, outputs []Output) error {
	for _, o := range outputs {
		p := filepath.Join(dir, o.Backend, filepath.FromSlash(o.Path))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return errors.Wrapf(err, "failed to create directory for %s", p)
		}
		if err := os.WriteFile(p, []byte(o.Text), 0644); err != nil {
			return errors.Wrapf(err, "failed to write %s", p)
		}
	}
	return nil
}

// Bundle packs outputs into a single txtar archive named <backend>/<path>
func Bundle(outputs []Output) []byte {
	ar := &txtar.Archive{}
	for _, o := range outputs {
		ar.Files = append(ar.Files, txtar.File{Name: o.Backend + "/" + o.Path, Data: []byte(o.Text)})
	}
	return txtar.Format(ar)
}
