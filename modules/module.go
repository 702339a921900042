// Package modules declares the gateway catalog: every module with the backend it
// talks to, the operations it can dispatch and the HTTP routes exposing them.
//
// The catalog is data only. The runtime turns each Module into a pattern
// registry and a dispatcher, and mounts its routes under /<Path>.
package modules

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/drblury/protogate/pattern"
	"github.com/drblury/protogate/transport"
)

// Backend services the gateway dispatches to. Each name is also the
// configuration prefix of the backend.
const (
	ProductBackend = "PRODUCT_MICROSERVICE"
	UserBackend    = "USER_MICROSERVICE"
	AuthBackend    = "AUTH_MICROSERVICE"
	CMSBackend     = "CMS_MICROSERVICE"
	MasterBackend  = "MASTER_MICROSERVICE"
)

// Module is one gateway module.
type Module struct {
	Name     string
	Path     string
	Backend  string
	Patterns *pattern.Definition
	Routes   []Route
}

// Registry builds the pattern registry of the module for kinds.
func (m Module) Registry(kinds ...pattern.Kind) (*pattern.Registry, error) {
	if m.Patterns == nil {
		return nil, fmt.Errorf("modules: %s has no patterns", m.Name)
	}
	return m.Patterns.Build(kinds...)
}

// Undeclared returns the routed operations the module never declares, sorted.
// Calls to them fail as unsupported.
func (m Module) Undeclared() []string {
	declared := make(map[string]struct{})
	if m.Patterns != nil {
		for _, op := range m.Patterns.Operations() {
			declared[op] = struct{}{}
		}
	}
	seen := make(map[string]struct{})
	var out []string
	for _, r := range m.Routes {
		if _, ok := declared[r.Operation]; ok {
			continue
		}
		if _, ok := seen[r.Operation]; ok {
			continue
		}
		seen[r.Operation] = struct{}{}
		out = append(out, r.Operation)
	}
	sort.Strings(out)
	return out
}

// Validate checks the module declaration itself. Undeclared operations are
// allowed; they are reported by Undeclared.
func (m Module) Validate() error {
	var errs []error
	if m.Name == "" {
		errs = append(errs, errors.New("modules: module name is required"))
	}
	if m.Backend == "" {
		errs = append(errs, fmt.Errorf("modules: %s: backend is required", m.Name))
	}
	if m.Patterns == nil {
		errs = append(errs, fmt.Errorf("modules: %s: patterns are required", m.Name))
	} else if m.Patterns.Module() != m.Name {
		errs = append(errs, fmt.Errorf("modules: %s: patterns declared for %q", m.Name, m.Patterns.Module()))
	}

	routes := make(map[string]struct{}, len(m.Routes))
	for _, r := range m.Routes {
		if r.Operation == "" {
			errs = append(errs, fmt.Errorf("modules: %s: %s %s has no operation", m.Name, r.Method, r.Path))
		}
		key := r.Method + " " + r.Path
		if _, dup := routes[key]; dup {
			errs = append(errs, fmt.Errorf("modules: %s: route %s declared twice", m.Name, key))
		}
		routes[key] = struct{}{}
	}
	return errors.Join(errs...)
}

// Route maps one HTTP endpoint to an operation.
type Route struct {
	Method    string
	Path      string
	Operation string
	// Public routes skip the access token check.
	Public bool
	// Permission, when set, is verified against the caller's identity.
	Permission string
	Shape      Shape
}

func newRoute(method, path, op string, shape Shape) Route {
	return Route{Method: method, Path: path, Operation: op, Shape: shape}
}

// Get declares a GET route.
func Get(path, op string, shape Shape) Route { return newRoute(http.MethodGet, path, op, shape) }

// Post declares a POST route.
func Post(path, op string, shape Shape) Route { return newRoute(http.MethodPost, path, op, shape) }

// Patch declares a PATCH route.
func Patch(path, op string, shape Shape) Route { return newRoute(http.MethodPatch, path, op, shape) }

// Delete declares a DELETE route.
func Delete(path, op string, shape Shape) Route {
	return newRoute(http.MethodDelete, path, op, shape)
}

// Open marks the route public.
func (r Route) Open() Route {
	r.Public = true
	r.Permission = ""
	return r
}

// Requires guards the route with permission.
func (r Route) Requires(permission string) Route {
	r.Permission = permission
	return r
}

// ListFilters are the query parameters list endpoints forward.
var ListFilters = []string{"page_size", "page", "searchText", "is_active", "sortColumn", "sortBy"}

// Shape describes how a request becomes a payload. The locale is always sent
// as lang, the caller identity as auth, the body nested under data. Path and
// query parameters are copied flat under their own names.
type Shape struct {
	Params []string
	Query  []string
	Auth   bool
	Body   bool
	// List marks a paginated list whose filters are validated.
	List bool
}

// LangOnly sends nothing but the locale.
func LangOnly() Shape { return Shape{} }

// List forwards the standard list filters.
func List() Shape { return Shape{Query: ListFilters, List: true} }

// Query forwards the given query parameters.
func Query(keys ...string) Shape { return Shape{Query: keys} }

// Params forwards the given path parameters.
func Params(names ...string) Shape { return Shape{Params: names} }

// ByUUID forwards the uuid path parameter.
func ByUUID() Shape { return Params("uuid") }

// WithAuth adds the caller identity.
func (s Shape) WithAuth() Shape {
	s.Auth = true
	return s
}

// WithBody adds the request body under data.
func (s Shape) WithBody() Shape {
	s.Body = true
	return s
}

// Input is what the HTTP layer extracted from one request.
type Input struct {
	Lang   string
	Auth   any
	Params map[string]string
	Query  url.Values
	Body   any
}

// Payload builds the payload sent to the backend. Absent query parameters are
// omitted.
func (s Shape) Payload(in Input) transport.Payload {
	p := transport.Payload{"lang": in.Lang}
	for _, name := range s.Params {
		p[name] = in.Params[name]
	}
	for _, key := range s.Query {
		if in.Query.Has(key) {
			p[key] = in.Query.Get(key)
		}
	}
	if s.Auth && in.Auth != nil {
		p["auth"] = in.Auth
	}
	if s.Body && in.Body != nil {
		p["data"] = in.Body
	}
	return p
}

// Permissions names the permission of each conventional resource action.
type Permissions struct {
	List    string
	Add     string
	Update  string
	Delete  string
	Restore string
}

// PermissionsOf derives the conventional permissions of a module, e.g.
// list_attribute_value for attribute-value.
func PermissionsOf(module string) Permissions {
	name := strings.ReplaceAll(module, "-", "_")
	return Permissions{
		List:    "list_" + name,
		Add:     "add_" + name,
		Update:  "update_" + name,
		Delete:  "delete_" + name,
		Restore: "restore_" + name,
	}
}
