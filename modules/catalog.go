package modules

import (
	"errors"
	"fmt"
	"sort"
)

// All returns the full gateway catalog. Every call builds fresh declarations.
func All() []Module {
	return []Module{
		Auth(),
		AdminUser(),
		Seller(),
		User(),
		Financier(),
		Role(),
		Brand(),
		Warehouse(),
		Attribute(),
		AttributeValue(),
		Industry(),
		UOM(),
		Category(),
		ProductRating(),
		Product(),
		Cart(),
		Wishlist(),
		Order(),
		FaqCategory(),
		Testimonial(),
		GlobalSetting(),
	}
}

// Find returns the module named name from list.
func Find(list []Module, name string) (Module, bool) {
	for _, m := range list {
		if m.Name == name {
			return m, true
		}
	}
	return Module{}, false
}

// Backends returns the distinct backends list depends on, sorted.
func Backends(list []Module) []string {
	seen := make(map[string]struct{})
	for _, m := range list {
		seen[m.Backend] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// Validate checks every module and that names and mount paths are unique.
func Validate(list []Module) error {
	var errs []error
	names := make(map[string]struct{}, len(list))
	paths := make(map[string]struct{}, len(list))
	for _, m := range list {
		if err := m.Validate(); err != nil {
			errs = append(errs, err)
		}
		if _, dup := names[m.Name]; dup {
			errs = append(errs, fmt.Errorf("modules: %s declared twice", m.Name))
		}
		names[m.Name] = struct{}{}
		if _, dup := paths[m.Path]; dup {
			errs = append(errs, fmt.Errorf("modules: path %q mounted twice", m.Path))
		}
		paths[m.Path] = struct{}{}
	}
	return errors.Join(errs...)
}
