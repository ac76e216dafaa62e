// Package route maps signal types to instructions.
package route

import (
	"fmt"
	"maps"
	"strings"

	"github.com/felixgeelhaar/agent-runtime/domain/agent"
	"github.com/felixgeelhaar/agent-runtime/domain/ident"
	"github.com/felixgeelhaar/agent-runtime/domain/signal"
)

// Wildcard matches exactly one segment of a signal type.
const Wildcard = "*"

// Route maps a dot-segmented pattern to an instruction template.
type Route struct {
	Path   string
	Target agent.Instruction
}

// Validate checks the pattern and target.
func (r Route) Validate() error {
	if r.Path == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPattern)
	}
	for _, seg := range strings.Split(r.Path, ".") {
		if seg == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidPattern, r.Path)
		}
	}
	if r.Target.Action == nil {
		return fmt.Errorf("%w: %s", ErrMissingTarget, r.Path)
	}
	return nil
}

// Match reports whether pattern matches a signal type. Each segment must
// be equal or the pattern segment must be the wildcard, and the segment
// counts must agree.
func Match(pattern, typ string) bool {
	ps := strings.Split(pattern, ".")
	ts := strings.Split(typ, ".")
	if len(ps) != len(ts) {
		return false
	}
	for i, p := range ps {
		if p != Wildcard && p != ts[i] {
			return false
		}
	}
	return true
}

// Table is an ordered route list. It is owned by a single agent server
// and is not safe for concurrent use.
type Table struct {
	routes []Route
	ids    ident.Generator
}

// NewTable creates a table with the given routes in order.
func NewTable(ids ident.Generator, routes ...Route) (*Table, error) {
	if ids == nil {
		ids = ident.UUID{}
	}
	t := &Table{ids: ids}
	for _, r := range routes {
		if err := t.Add(r); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Add appends a route.
func (t *Table) Add(r Route) error {
	if err := r.Validate(); err != nil {
		return err
	}
	t.routes = append(t.routes, r)
	return nil
}

// Remove deletes every route with exactly this path and reports whether
// any were removed.
func (t *Table) Remove(path string) bool {
	kept := t.routes[:0]
	removed := false
	for _, r := range t.routes {
		if r.Path == path {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	clear(t.routes[len(kept):])
	t.routes = kept
	return removed
}

// Routes returns a copy of the table in order.
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Paths returns the route paths in order.
func (t *Table) Paths() []string {
	paths := make([]string, len(t.routes))
	for i, r := range t.routes {
		paths[i] = r.Path
	}
	return paths
}

// Len returns the number of routes.
func (t *Table) Len() int {
	return len(t.routes)
}

// Match returns every route matching typ, in table order.
func (t *Table) Match(typ string) []Route {
	var matched []Route
	for _, r := range t.routes {
		if Match(r.Path, typ) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Resolve turns a signal into one instruction per matching route.
// Signal data is merged over the target params, and the signal envelope
// is placed in the instruction context under "signal".
func (t *Table) Resolve(sig signal.Signal) ([]agent.Instruction, error) {
	matched := t.Match(sig.Type)
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, sig.Type)
	}

	instructions := make([]agent.Instruction, 0, len(matched))
	for _, r := range matched {
		ctx := maps.Clone(r.Target.Context)
		if ctx == nil {
			ctx = make(map[string]any, 1)
		}
		ctx["signal"] = map[string]any{
			"id":             sig.ID,
			"type":           sig.Type,
			"source":         sig.Source,
			"correlation_id": sig.CorrelationKey(),
		}
		instructions = append(instructions, agent.Instruction{
			ID:      t.ids.NewID(),
			Action:  r.Target.Action,
			Params:  agent.Merge(r.Target.Params, sig.Data),
			Context: ctx,
		})
	}
	return instructions, nil
}
