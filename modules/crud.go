package modules

import "github.com/drblury/protogate/pattern"

// CRUDOption adjusts the routes CRUD generates.
type CRUDOption func(*crud)

type crud struct {
	openDropdown bool
	rename       map[string]string
}

// OpenDropdown drops the list permission from the dropdown route.
func OpenDropdown() CRUDOption {
	return func(c *crud) { c.openDropdown = true }
}

// RenameOp dispatches the conventional operation from to operation to.
func RenameOp(from, to string) CRUDOption {
	return func(c *crud) { c.rename[from] = to }
}

// CRUD generates the nine conventional routes of a resource. resource is the
// operation suffix, e.g. "Brand" yields fetchAllBrand, findBrandById and so on.
func CRUD(resource string, perms Permissions, opts ...CRUDOption) []Route {
	c := &crud{rename: make(map[string]string)}
	for _, opt := range opts {
		opt(c)
	}
	op := func(name string) string {
		if to, ok := c.rename[name]; ok {
			return to
		}
		return name
	}

	dropdown := Get("/dropdown", op("fetchAll"+resource+"ForDropdown"), LangOnly())
	if !c.openDropdown {
		dropdown = dropdown.Requires(perms.List)
	}

	return []Route{
		Get("", op("fetchAll"+resource), List()).Requires(perms.List),
		Get("/deleted", op("fetchAllDeleted"+resource), List()).Requires(perms.List),
		dropdown,
		Get("/:uuid", op("find"+resource+"ById"), ByUUID()).Requires(perms.List),
		Post("", op("create"+resource), LangOnly().WithAuth().WithBody()).Requires(perms.Add),
		Patch("/toggle/visibility/:uuid", op("toggle"+resource+"Visibility"), ByUUID().WithAuth().WithBody()).Requires(perms.Update),
		Patch("/:uuid", op("update"+resource), ByUUID().WithAuth().WithBody()).Requires(perms.Update),
		Patch("/restore/:uuid", op("restore"+resource), ByUUID().WithAuth()).Requires(perms.Restore),
		Delete("/:uuid", op("delete"+resource), ByUUID().WithAuth()).Requires(perms.Delete),
	}
}

// crudOps declares the nine conventional operations of a resource on d. cmd
// is the kebab-case resource name used in commands.
func crudOps(d *pattern.Definition, resource, cmd string) *pattern.Definition {
	return d.Op("fetchAll"+resource, "fetch-all-"+cmd).
		Op("fetchAllDeleted"+resource, "fetch-all-deleted-"+cmd).
		Op("fetchAll"+resource+"ForDropdown", "fetch-all-"+cmd+"-for-dropdown").
		Op("find"+resource+"ById", "find-"+cmd+"-by-id").
		Op("create"+resource, "create-"+cmd).
		Op("toggle"+resource+"Visibility", "toggle-"+cmd+"-visibility").
		Op("update"+resource, "update-"+cmd).
		Op("restore"+resource, "restore-"+cmd).
		Op("delete"+resource, "delete-"+cmd)
}
