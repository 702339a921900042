package pattern

import (
	"errors"
	"fmt"
	"sort"
)

// Registry is the immutable per-module lookup from (operation, kind) to
// descriptor. It is safe for concurrent use.
type Registry struct {
	module     string
	tables     map[Kind]Table
	operations []string
	known      map[string]struct{}
}

// NewRegistry copies tables into a new Registry. Every non-zero descriptor must
// match the addressing family of its kind.
func NewRegistry(module string, tables map[Kind]Table) (*Registry, error) {
	if module == "" {
		return nil, errors.New("pattern: module name is required")
	}

	r := &Registry{
		module: module,
		tables: make(map[Kind]Table, len(tables)),
		known:  make(map[string]struct{}),
	}

	var errs []error
	for kind, table := range tables {
		if kind.Family() == Unsupported {
			errs = append(errs, fmt.Errorf("pattern: %s: unknown transport kind %q", module, kind))
			continue
		}
		copied := make(Table, len(table))
		for op, desc := range table {
			if op == "" {
				errs = append(errs, fmt.Errorf("pattern: %s: empty operation name on %s", module, kind))
				continue
			}
			if err := desc.check(kind); err != nil {
				errs = append(errs, fmt.Errorf("pattern: %s.%s: %w", module, op, err))
				continue
			}
			copied[op] = desc
			r.known[op] = struct{}{}
		}
		r.tables[kind] = copied
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	r.operations = make([]string, 0, len(r.known))
	for op := range r.known {
		r.operations = append(r.operations, op)
	}
	sort.Strings(r.operations)
	return r, nil
}

// Module returns the name of the module owning the registry.
func (r *Registry) Module() string { return r.module }

// Operations returns every operation name known to the module, sorted.
func (r *Registry) Operations() []string {
	return append([]string(nil), r.operations...)
}

// Kinds returns the kinds the registry was built for, sorted.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.tables))
	for k := range r.tables {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Has reports whether op is known to the module on any kind.
func (r *Registry) Has(op string) bool {
	_, ok := r.known[op]
	return ok
}

// Resolve returns the descriptor addressing op on kind. It never returns a
// zero descriptor without an *UnsupportedOperationError.
func (r *Registry) Resolve(op string, kind Kind) (Descriptor, error) {
	fail := func(reason Reason) (Descriptor, error) {
		return Descriptor{}, &UnsupportedOperationError{Module: r.module, Operation: op, Kind: kind, Reason: reason}
	}

	table, ok := r.tables[kind]
	if !ok {
		return fail(ReasonKindDisabled)
	}
	if !r.Has(op) {
		return fail(ReasonUnknown)
	}
	desc, ok := table[op]
	if !ok {
		return fail(ReasonMissing)
	}
	if desc.IsZero() {
		return fail(ReasonDeclared)
	}
	return desc, nil
}

// Descriptors returns a copy of the supported descriptors for kind.
func (r *Registry) Descriptors(kind Kind) Table {
	out := make(Table)
	for op, desc := range r.tables[kind] {
		if !desc.IsZero() {
			out[op] = desc
		}
	}
	return out
}

// ReplyTopics returns the sorted, de-duplicated reply topics a topic transport
// must subscribe to before serving any operation of the module.
func (r *Registry) ReplyTopics(kind Kind) []string {
	if kind.Family() != Topic {
		return nil
	}
	seen := make(map[string]struct{})
	for _, desc := range r.tables[kind] {
		if desc.IsZero() {
			continue
		}
		seen[desc.ReplyTopic()] = struct{}{}
	}
	topics := make([]string, 0, len(seen))
	for t := range seen {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// Gaps enumerates every operation that is not resolvable on some enabled kind,
// including operations explicitly declared unsupported.
func (r *Registry) Gaps() []Gap {
	var gaps []Gap
	for _, kind := range r.Kinds() {
		table := r.tables[kind]
		for _, op := range r.operations {
			desc, ok := table[op]
			switch {
			case !ok:
				gaps = append(gaps, Gap{Module: r.module, Operation: op, Kind: kind})
			case desc.IsZero():
				gaps = append(gaps, Gap{Module: r.module, Operation: op, Kind: kind, Declared: true})
			}
		}
	}
	return gaps
}

// Validate fails when an operation is missing from an enabled kind without
// being declared unsupported there.
func (r *Registry) Validate() error {
	var errs []error
	for _, gap := range r.Gaps() {
		if !gap.Declared {
			errs = append(errs, errors.New(gap.String()))
		}
	}
	return errors.Join(errs...)
}
