package modules

import "github.com/drblury/protogate/pattern"

// Seller serves seller profiles and the onboarding steps. Uploaded documents
// travel in the request body like any other field.
func Seller() Module {
	onboarding := LangOnly().WithAuth()

	return Module{
		Name:    "seller",
		Path:    "seller",
		Backend: UserBackend,
		Patterns: pattern.Define("seller").
			// Listing sellers was only ever served over point-to-point backends.
			Op("fetchAllSeller", "fetch-all-seller", pattern.PointToPointOnly()).
			Op("fetchSellerProfile", "fetch-seller-profile").
			Op("fetchBasicDetails", "fetch-basic-details").
			Op("fetchBankDetails", "fetch-bank-details").
			Op("fetchVerificationDetails", "fetch-verification-details").
			Op("fetchDocumentsDetails", "fetch-documents-details").
			Op("createUpdateBasicDetails", "create-update-basic-details").
			Op("createUpdateBankDetails", "create-update-bank-details").
			Op("createUpdateVerification", "create-update-verification").
			Op("createUpdateDocuments", "create-update-documents").
			Op("fetchSellerBasicDetailsById", "fetch-seller-basic-details-by-id", pattern.Role("fetchSellerBasicDetailsId")).
			Op("fetchSellerBankDetailsById", "fetch-seller-bank-details-by-id").
			Op("fetchSellerVerificationById", "fetch-seller-verification-by-id").
			Op("fetchSellerDocumentsById", "fetch-seller-Documents-by-id"),
		Routes: []Route{
			Get("", "fetchAllSeller", List()).Requires("list_seller"),
			Get("/profile", "fetchSellerProfile", onboarding),
			Get("/onboarding/basic-details", "fetchBasicDetails", onboarding),
			Post("/onboarding/basic-details", "createUpdateBasicDetails", onboarding.WithBody()),
			Get("/onboarding/bank-details", "fetchBankDetails", onboarding),
			Post("/onboarding/bank-details", "createUpdateBankDetails", onboarding.WithBody()),
			Get("/onboarding/verification", "fetchVerificationDetails", onboarding),
			Post("/onboarding/verification", "createUpdateVerification", onboarding.WithBody()),
			Get("/onboarding/documents", "fetchDocumentsDetails", onboarding),
			Post("/onboarding/documents", "createUpdateDocuments", onboarding.WithBody()),
			Get("/basic-information/:uuid", "fetchSellerBasicDetailsById", ByUUID()),
			Get("/bank-details/:uuid", "fetchSellerBankDetailsById", ByUUID()),
			Get("/verification/:uuid", "fetchSellerVerificationById", ByUUID()),
			Get("/document/:uuid", "fetchSellerDocumentsById", ByUUID()),
		},
	}
}

// User serves buyers and the password reset lookup. The buyer profile shares
// the module since both reach the same backend under /user.
func User() Module {
	return Module{
		Name:    "user",
		Path:    "user",
		Backend: UserBackend,
		Patterns: pattern.Define("user").
			Op("fetchAllBuyers", "fetch-all-buyers").
			Op("fetchBuyerProfile", "fetch-buyer-profile").
			Op("fetchUserByResetToken", "fetch-user-by-reset-token").
			Op("fetchUsersBasicDetailsId", "fetch-users-basic-details-by-id"),
		Routes: []Route{
			Get("", "fetchAllBuyers", List()).Requires("list_buyer"),
			Get("/profile", "fetchBuyerProfile", LangOnly().WithAuth()),
			Get("/password", "fetchUserByResetToken", Query("token")).Open(),
			Get("/basic-information/:uuid", "fetchUsersBasicDetailsId", ByUUID()).Open(),
		},
	}
}

// Financier lists financiers and their onboarding records.
func Financier() Module {
	return Module{
		Name:    "financier",
		Path:    "financier",
		Backend: UserBackend,
		Patterns: pattern.Define("financier").
			Op("fetchAllFinanciers", "fetch-all-financiers").
			Op("fetchFinancierBasicDetailsById", "fetch-financier-basic-details-by-id").
			Op("fetchFinancierBankDetailsById", "fetch-financier-bank-details-by-id").
			Op("fetchFinancierVerificationById", "fetch-financier-verification-by-id").
			Op("fetchFinancierDocumentsById", "fetch-financier-documents-by-id"),
		Routes: []Route{
			Get("", "fetchAllFinanciers", List()).Requires("list_financier"),
			Get("/basic-information/:uuid", "fetchFinancierBasicDetailsById", ByUUID()),
		},
	}
}

// Role manages back office roles and the permissions attached to them. Every
// route only needs a signed in caller.
func Role() Module {
	d := pattern.Define("role").
		Op("fetchAllRole", "fetch-all-role").
		Op("fetchAllRolesDeleted", "fetch-all-roles-deleted").
		Op("fetchAllRoleForDropdown", "fetch-all-role-for-dropdown").
		Op("fetchAllRolesMeta", "fetch-all-roles-meta").
		Op("fetchRolesPermissions", "fetch-roles-permissions").
		Op("findRoleById", "find-role-by-id").
		Op("createRole", "create-role").
		Op("toggleRoleVisibility", "toggle-role-visibility").
		Op("updateRole", "update-role").
		Op("deleteRole", "delete-role").
		Op("restoreRoleById", "restore-role-by-id").
		Op("attachPermissionsToRole", "attach-permissions-to-role")

	write := ByUUID().WithAuth().WithBody()
	return Module{
		Name:     "role",
		Path:     "role",
		Backend:  UserBackend,
		Patterns: d,
		Routes: []Route{
			Get("", "fetchAllRole", Query("page", "searchText")),
			Get("/deleted", "fetchAllRolesDeleted", Query("page", "searchText")),
			Get("/dropdown", "fetchAllRoleForDropdown", LangOnly()),
			Get("/meta", "fetchAllRolesMeta", LangOnly()),
			Get("/permissions", "fetchRolesPermissions", Query("role_id")),
			Post("/attach/permissions", "attachPermissionsToRole", LangOnly().WithAuth().WithBody()),
			Get("/:uuid", "findRoleById", ByUUID()),
			Post("", "createRole", LangOnly().WithAuth().WithBody()),
			Patch("/toggle/visibility/:uuid", "toggleRoleVisibility", write),
			Patch("/restore/:uuid", "restoreRoleById", ByUUID()),
			Patch("/:uuid", "updateRole", write),
			Delete("/:uuid", "deleteRole", ByUUID().WithAuth()),
		},
	}
}
