// Package tools declares the operations the model may call and
// dispatches the locally-executed ones. The catalog is static: every
// tool is declared once at startup as either remote (forwarded to the
// host for native execution) or local (run in-process).
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"

	"bonesagent/pkg/claude"
	"bonesagent/pkg/parts"
)

// ErrUnknownTool is returned by Registry.Lookup for names outside the
// catalog.
var ErrUnknownTool = errors.New("unknown tool")

// Result is the outcome of a locally-executed tool.
type Result struct {
	Content []parts.ContentBlock
	IsError bool
}

func TextResult(text string) *Result {
	return &Result{Content: []parts.ContentBlock{parts.Text(text)}}
}

func Errorf(format string, args ...any) *Result {
	return &Result{
		Content: []parts.ContentBlock{parts.Text(fmt.Sprintf(format, args...))},
		IsError: true,
	}
}

type Definition interface {
	Name() string
	Description() string
	// InputSchema is the model-facing contract; the dispatcher does
	// not re-validate beyond what the handler needs to run safely.
	InputSchema() *jsonschema.Schema
	// Remote tools are forwarded to the host; local ones run
	// in-process.
	Remote() bool
	Run(ctx context.Context, input map[string]any) *Result
}

type definition[Req any] struct {
	name        string
	description string
	remote      bool
	run         func(ctx context.Context, req Req) *Result
}

// Remote declares a host-executed tool. Req exists only to derive the
// input schema.
func Remote[Req any](name, description string) Definition {
	return &definition[Req]{name: name, description: description, remote: true}
}

// Local declares an in-process tool.
func Local[Req any](name, description string, run func(ctx context.Context, req Req) *Result) Definition {
	return &definition[Req]{name: name, description: description, run: run}
}

func (d *definition[Req]) Name() string        { return d.name }
func (d *definition[Req]) Description() string { return d.description }
func (d *definition[Req]) Remote() bool        { return d.remote }

func (d *definition[Req]) InputSchema() *jsonschema.Schema {
	var t Req
	return (&jsonschema.Reflector{
		DoNotReference: true,
	}).Reflect(&t)
}

func (d *definition[Req]) Run(ctx context.Context, input map[string]any) *Result {
	if d.remote {
		return Errorf("tool %s executes on the host", d.name)
	}
	encoded, err := json.Marshal(input)
	if err != nil {
		return Errorf("invalid input for %s: %v", d.name, err)
	}
	var req Req
	if err := json.Unmarshal(encoded, &req); err != nil {
		return Errorf("invalid input for %s: %v", d.name, err)
	}
	return d.run(ctx, req)
}

// Registry is the static name → tool catalog, resolved once at
// startup.
type Registry struct {
	order  []Definition
	byName map[string]Definition
}

func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{byName: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if _, ok := r.byName[d.Name()]; ok {
			return nil, fmt.Errorf("duplicate tool %s", d.Name())
		}
		r.byName[d.Name()] = d
		r.order = append(r.order, d)
	}
	return r, nil
}

func (r *Registry) Lookup(name string) (Definition, error) {
	d, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return d, nil
}

// Catalog returns the model-facing tool declarations in registration
// order.
func (r *Registry) Catalog() []claude.Tool {
	catalog := make([]claude.Tool, 0, len(r.order))
	for _, d := range r.order {
		catalog = append(catalog, claude.Tool{
			Name:        d.Name(),
			Description: d.Description(),
			InputSchema: d.InputSchema(),
		})
	}
	return catalog
}
