package pattern

import (
	"errors"
	"fmt"
)

// Definition declares the operations of a module once and derives a Table for
// every kind from it. Point-to-point descriptors default to role = operation
// name; topic descriptors default to topic = operation name.
type Definition struct {
	module string
	ops    []*opDecl
	index  map[string]*opDecl
	errs   []error
}

type opDecl struct {
	name    string
	role    string
	cmd     string
	topic   string
	without map[Kind]struct{}
	off     map[Family]struct{}
}

// Option adjusts a single operation of a Definition.
type Option func(*opDecl)

// Role overrides the point-to-point role.
func Role(role string) Option {
	return func(o *opDecl) { o.role = role }
}

// OnTopic overrides the topic name.
func OnTopic(topic string) Option {
	return func(o *opDecl) { o.topic = topic }
}

// Without declares the operation unsupported on the given kinds.
func Without(kinds ...Kind) Option {
	return func(o *opDecl) {
		for _, k := range kinds {
			o.without[k] = struct{}{}
		}
	}
}

// PointToPointOnly declares the operation unsupported on every topic kind.
func PointToPointOnly() Option {
	return func(o *opDecl) { o.off[Topic] = struct{}{} }
}

// TopicOnly declares the operation unsupported on every point-to-point kind.
func TopicOnly() Option {
	return func(o *opDecl) { o.off[PointToPoint] = struct{}{} }
}

// Define starts a Definition for module.
func Define(module string) *Definition {
	return &Definition{module: module, index: make(map[string]*opDecl)}
}

// Op declares operation name with point-to-point command cmd.
func (d *Definition) Op(name, cmd string, opts ...Option) *Definition {
	if _, dup := d.index[name]; dup {
		d.errs = append(d.errs, fmt.Errorf("pattern: %s: operation %q declared twice", d.module, name))
		return d
	}
	decl := &opDecl{
		name:    name,
		role:    name,
		cmd:     cmd,
		topic:   name,
		without: make(map[Kind]struct{}),
		off:     make(map[Family]struct{}),
	}
	for _, opt := range opts {
		opt(decl)
	}
	d.ops = append(d.ops, decl)
	d.index[name] = decl
	return d
}

// Module returns the module name.
func (d *Definition) Module() string { return d.module }

// Operations returns the declared operation names in declaration order.
func (d *Definition) Operations() []string {
	names := make([]string, 0, len(d.ops))
	for _, op := range d.ops {
		names = append(names, op.name)
	}
	return names
}

// Tables derives one Table per requested kind. With no kinds every known kind
// is derived.
func (d *Definition) Tables(kinds ...Kind) map[Kind]Table {
	if len(kinds) == 0 {
		kinds = Kinds()
	}
	tables := make(map[Kind]Table, len(kinds))
	for _, kind := range kinds {
		table := make(Table, len(d.ops))
		for _, op := range d.ops {
			table[op.name] = op.descriptor(kind)
		}
		tables[kind] = table
	}
	return tables
}

// Build derives the tables for kinds and returns the immutable Registry.
func (d *Definition) Build(kinds ...Kind) (*Registry, error) {
	if err := errors.Join(d.errs...); err != nil {
		return nil, err
	}
	return NewRegistry(d.module, d.Tables(kinds...))
}

// MustBuild is like Build but panics on error. It is meant for package level
// catalog declarations.
func (d *Definition) MustBuild(kinds ...Kind) *Registry {
	r, err := d.Build(kinds...)
	if err != nil {
		panic(err)
	}
	return r
}

func (o *opDecl) descriptor(kind Kind) Descriptor {
	if _, ok := o.without[kind]; ok {
		return Descriptor{}
	}
	family := kind.Family()
	if _, ok := o.off[family]; ok {
		return Descriptor{}
	}
	switch family {
	case PointToPoint:
		return Descriptor{Role: o.role, Cmd: o.cmd}
	case Topic:
		return Descriptor{Topic: o.topic}
	default:
		return Descriptor{}
	}
}
