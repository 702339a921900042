package modules

import "github.com/drblury/protogate/pattern"

// FaqCategory manages the categories FAQ entries are grouped by.
func FaqCategory() Module {
	return Module{
		Name:    "faq-category",
		Path:    "faq-category",
		Backend: CMSBackend,
		Patterns: pattern.Define("faq-category").
			Op("fetchAllFaqCategory", "fetch-all-faq-category").
			Op("fetchAllDeletedFaqCategory", "fetch-all-deleted-faq-category").
			Op("fetchAllFaqCategoryForDropdown", "fetch-all-faq-category-for-dropdown").
			Op("findFaqCategoryById", "find-faq-category-by-id").
			Op("createFaqCategory", "create-faq-category").
			Op("updateFaqCategory", "update-faq-category").
			Op("deleteFaqCategory", "delete-faq-category").
			Op("restoreDeletedFaqCategory", "restore-deleted-faq-category").
			Op("toggleFaqCategoryVisibility", "toggle-faq-category-visibility"),
		Routes: CRUD("FaqCategory", PermissionsOf("faq-category"),
			RenameOp("restoreFaqCategory", "restoreDeletedFaqCategory")),
	}
}

// Testimonial manages customer testimonials shown on the storefront.
func Testimonial() Module {
	perms := PermissionsOf("testimonial")
	return Module{
		Name:    "testimonial",
		Path:    "testimonial",
		Backend: CMSBackend,
		Patterns: pattern.Define("testimonial").
			Op("fetchTestimonials", "fetch-testimonials").
			Op("fetchAllTestimonial", "fetch-all-testimonial").
			Op("findTestimonialById", "find-testimonial-by-id").
			Op("createTestimonial", "create-testimonial").
			Op("updateTestimonial", "update-testimonial").
			Op("deleteTestimonial", "delete-testimonial").
			Op("toggleTestimonialVisibility", "toggle-testimonial-visibility"),
		Routes: []Route{
			Get("", "fetchAllTestimonial", List()).Open(),
			Get("/customer", "fetchTestimonials", LangOnly()).Open(),
			Get("/:uuid", "findTestimonialById", ByUUID()).Requires(perms.List),
			Post("", "createTestimonial", LangOnly().WithAuth().WithBody()).Requires(perms.Add),
			Patch("/:uuid", "updateTestimonial", ByUUID().WithAuth().WithBody()).Requires(perms.Update),
			Delete("/:uuid", "deleteTestimonial", ByUUID()).Requires(perms.Delete),
			Patch("/toggle/visibility/:uuid", "toggleTestimonialVisibility", ByUUID().WithAuth().WithBody()).Requires(perms.Update),
		},
	}
}

// GlobalSetting manages marketplace wide settings.
func GlobalSetting() Module {
	perms := PermissionsOf("global-setting")
	return Module{
		Name:    "global-setting",
		Path:    "global-setting",
		Backend: MasterBackend,
		Patterns: pattern.Define("global-setting").
			Op("fetchAllGlobalSetting", "fetch-all-global-setting").
			Op("updateGlobalSetting", "update-global-setting"),
		Routes: []Route{
			Get("", "fetchAllGlobalSetting", Query("page", "searchText")).Requires(perms.List),
			Patch("", "updateGlobalSetting", LangOnly().WithAuth().WithBody()).Requires(perms.Update),
			// No backend serves deleteGlobalSetting; it answers as unsupported.
			Delete("/:uuid", "deleteGlobalSetting", ByUUID()).Requires(perms.Delete),
		},
	}
}
