package modules

import "github.com/drblury/protogate/pattern"

// Operations the HTTP guards dispatch to the auth module.
const (
	AuthModule          = "auth"
	OpVerifyAccessToken = "veriryAccessToken"
	OpVerifyPermission  = "veriryPermission"
)

// Auth handles sign in, registration and the token checks behind the guards.
func Auth() Module {
	body := LangOnly().WithBody()
	return Module{
		Name:    AuthModule,
		Path:    "auth",
		Backend: AuthBackend,
		Patterns: pattern.Define(AuthModule).
			Op(OpVerifyAccessToken, "verify-access-token").
			Op(OpVerifyPermission, "verify-permission").
			Op("adminLogin", "admin-login").
			Op("sellerRegistration", "seller-registration").
			Op("buyerRegistration", "buyer-registration").
			Op("sellerLogin", "seller-login").
			Op("buyerLogin", "buyer_login").
			Op("forgotPassword", "forgot-password").
			Op("resetPassword", "reset-password"),
		Routes: []Route{
			Post("/admin/login", "adminLogin", body).Open(),
			Post("/seller/login", "sellerLogin", body).Open(),
			Post("/seller/register", "sellerRegistration", body).Open(),
			Post("/buyer/login", "buyerLogin", body).Open(),
			Post("/buyer/register", "buyerRegistration", body).Open(),
			Post("/forgot-password", "forgotPassword", body).Open(),
			Patch("/reset-password", "resetPassword", body).Open(),
		},
	}
}

// AdminUser manages back office users and seller onboarding reviews.
func AdminUser() Module {
	perms := Permissions{
		List:    "list_admin_user",
		Add:     "add_admin_user",
		Update:  "update_admin_user",
		Delete:  "delete_admin_user",
		Restore: "restore_admin_user",
	}
	review := ByUUID().WithAuth().WithBody()

	return Module{
		Name:    "admin-user",
		Path:    "admin",
		Backend: UserBackend,
		Patterns: pattern.Define("admin-user").
			Op("fetchAllAdminUser", "fetch-all-admin-user").
			Op("fetchAllDeletedAdminUser", "fetch-all-deleted-admin-user").
			Op("fetchAllAdminUserForDropdown", "fetch-all-admin-user-for-dropdown").
			Op("findAdminUserById", "find-admin-user-by-id").
			Op("findAdminUserProfile", "find-admin-user-profile").
			Op("createAdminUser", "create-admin-user").
			Op("toggleAdminUserVisibility", "toggle-admin-user-visibility").
			Op("updateAdminUser", "update-admin-user").
			Op("updateAdminUserPassword", "update-admin-user-password").
			Op("deleteAdminUser", "delete-admin-user").
			Op("restoreAdminUser", "restore-admin-user").
			Op("updateBasicInformationStatus", "update-basic-information-status").
			Op("updateBankingInformationStatus", "update-banking-information-status").
			// The topic backends never subscribed to verification reviews.
			Op("updateVerificationStatus", "update-verification-status", pattern.PointToPointOnly()).
			Op("updateDocumentStatus", "update-document-status").
			Op("fetchAdminUserBasicDetailsById", "fetch-admin-user-basic-details"),
		Routes: []Route{
			Get("", "fetchAllAdminUser", List()).Requires(perms.List),
			Get("/deleted", "fetchAllDeletedAdminUser", Query("page", "searchText")).Requires(perms.List),
			Get("/dropdown", "fetchAllAdminUserForDropdown", LangOnly()),
			Get("/profile", "findAdminUserProfile", LangOnly().WithAuth()),
			Get("/:uuid", "findAdminUserById", ByUUID()).Requires(perms.List),
			Post("", "createAdminUser", LangOnly().WithAuth().WithBody()).Requires(perms.Add),
			Patch("/toggle/visibility/:uuid", "toggleAdminUserVisibility", review).Requires(perms.Update),
			Patch("/password", "updateAdminUserPassword", LangOnly().WithAuth().WithBody()).Requires(perms.Update),
			Patch("/:uuid", "updateAdminUser", review).Requires(perms.Update),
			Delete("/:uuid", "deleteAdminUser", ByUUID().WithAuth()).Requires(perms.Delete),
			Get("/restore/:uuid", "restoreAdminUser", ByUUID().WithAuth()).Requires(perms.Restore),
			Patch("/on-boarding/basic-info-update/:uuid", "updateBasicInformationStatus", review),
			Patch("/on-boarding/banking-info-update/:uuid", "updateBankingInformationStatus", review),
			Patch("/on-boarding/verification-update/:uuid", "updateVerificationStatus", review),
			Patch("/on-boarding/document-update/:uuid", "updateDocumentStatus", review),
			Get("/basic-information/:uuid", "fetchAdminUserBasicDetailsById", ByUUID()),
		},
	}
}
