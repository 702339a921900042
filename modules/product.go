package modules

import "github.com/drblury/protogate/pattern"

// Brand manages product brands.
func Brand() Module {
	perms := PermissionsOf("brand")
	return Module{
		Name:    "brand",
		Path:    "brand",
		Backend: ProductBackend,
		Patterns: crudOps(pattern.Define("brand"), "Brand", "brand").
			Op("fetchBrandByIdForDropdown", "fetch-brand-by-is-for-dropdown"),
		Routes: append(CRUD("Brand", perms, OpenDropdown()),
			Get("/dropdownById/:id", "fetchBrandByIdForDropdown", Params("id")),
		),
	}
}

// Warehouse manages seller warehouses.
func Warehouse() Module {
	return Module{
		Name:     "warehouse",
		Path:     "warehouse",
		Backend:  ProductBackend,
		Patterns: crudOps(pattern.Define("warehouse"), "Warehouse", "warehouse"),
		Routes:   CRUD("Warehouse", PermissionsOf("warehouse")),
	}
}

// Attribute manages product attributes.
func Attribute() Module {
	perms := PermissionsOf("attribute")
	return Module{
		Name:    "attribute",
		Path:    "attribute",
		Backend: ProductBackend,
		Patterns: crudOps(pattern.Define("attribute"), "Attribute", "attribute").
			Op("fetchAttributeByCategory", "fetch-attribute-by-category"),
		Routes: append(CRUD("Attribute", perms),
			Get("/by-category/:categoryId", "fetchAttributeByCategory", Params("categoryId")),
		),
	}
}

// AttributeValue manages the values of product attributes.
func AttributeValue() Module {
	return Module{
		Name:     "attribute-value",
		Path:     "attribute-value",
		Backend:  ProductBackend,
		Patterns: crudOps(pattern.Define("attribute-value"), "AttributeValue", "attribute-value"),
		Routes:   CRUD("AttributeValue", PermissionsOf("attribute-value")),
	}
}

// Industry manages industries.
func Industry() Module {
	return Module{
		Name:     "industry",
		Path:     "industry",
		Backend:  ProductBackend,
		Patterns: crudOps(pattern.Define("industry"), "Industry", "industry"),
		Routes:   CRUD("Industry", PermissionsOf("industry"), OpenDropdown()),
	}
}

// UOM manages units of measure and their rounding rules.
func UOM() Module {
	perms := PermissionsOf("uom")
	return Module{
		Name:    "uom",
		Path:    "uom",
		Backend: ProductBackend,
		Patterns: crudOps(pattern.Define("uom"), "Uom", "uom").
			Op("fetchRoundRule", "fetch-round-rule").
			Op("fetchRoundValue", "fetch-round-value").
			Op("fetchUomByIdForDropdown", "fetch-uom-by-is-for-dropdown"),
		Routes: append(CRUD("Uom", perms, OpenDropdown()),
			Get("/roundrule", "fetchRoundRule", LangOnly()).Requires(perms.List),
			Get("/roundvalue", "fetchRoundValue", LangOnly()).Requires(perms.List),
			Get("/dropdownById/:id", "fetchUomByIdForDropdown", Params("id")),
		),
	}
}

// Category manages the product category tree.
func Category() Module {
	perms := PermissionsOf("category")
	return Module{
		Name:    "category",
		Path:    "category",
		Backend: ProductBackend,
		Patterns: crudOps(pattern.Define("category"), "Category", "category").
			Op("fetchCategoryBySlug", "fetch-category-by-slug").
			Op("fetchCategoryByIdForDropdown", "fetch-category-by-id-for-dropdown").
			Op("fetchProductCategorySellerDropdown", "fetch-product-category-seller-dropdown"),
		Routes: append(CRUD("Category", perms, OpenDropdown()),
			Get("/dropdownById/:id", "fetchCategoryByIdForDropdown", Params("id")),
			Get("/fetchCategoryBySlug/:slug", "fetchCategoryBySlug", Params("slug")).Open(),
			Get("/dropdown/seller", "fetchProductCategorySellerDropdown", LangOnly().WithAuth()),
		),
	}
}

// ProductRating manages buyer ratings of products.
func ProductRating() Module {
	perms := PermissionsOf("product-rating")
	return Module{
		Name:    "product-rating",
		Path:    "product-rating",
		Backend: ProductBackend,
		Patterns: pattern.Define("product-rating").
			Op("fetchAllProductRating", "fetch-all-product-rating").
			Op("fetchAllDeletedProductRating", "fetch-all-deleted-product-rating").
			Op("findProductRatingById", "find-product-rating-by-id").
			Op("createProductRating", "create-product-rating").
			Op("restoreProductRating", "restore-product-rating").
			Op("toggleProductRatingVisibility", "toggle-product-rating-visibility").
			Op("deleteProductRating", "delete-product-rating"),
		Routes: []Route{
			Get("", "fetchAllProductRating", Query("page", "searchText")).Requires(perms.List),
			Get("/deleted", "fetchAllDeletedProductRating", Query("page", "searchText")).Requires(perms.List),
			Get("/:uuid", "findProductRatingById", ByUUID()).Requires(perms.List),
			Post("", "createProductRating", LangOnly().WithAuth().WithBody()).Requires(perms.Add),
			Patch("/toggle/visibility/:uuid", "toggleProductRatingVisibility", ByUUID().WithAuth().WithBody()).Requires(perms.Update),
			Delete("/:uuid", "deleteProductRating", ByUUID().WithAuth()).Requires(perms.Delete),
			Patch("/restore/:uuid", "restoreProductRating", ByUUID().WithAuth()).Requires(perms.Restore),
		},
	}
}

// Cart manages the buyer cart.
func Cart() Module {
	return Module{
		Name:    "cart",
		Path:    "cart",
		Backend: ProductBackend,
		Patterns: pattern.Define("cart").
			Op("fetchCartProduct", "fetch-cart-product").
			Op("addProductToCart", "add-product-to-cart").
			Op("removeProductFromCart", "remove-product-from-cart").
			Op("updateCart", "update-cart"),
		Routes: []Route{
			Get("", "fetchCartProduct", Query("page", "searchText").WithAuth()),
			Post("", "addProductToCart", LangOnly().WithAuth().WithBody()),
			Delete("/:uuid", "removeProductFromCart", ByUUID().WithAuth()),
			Patch("/:uuid", "updateCart", ByUUID().WithAuth().WithBody()),
		},
	}
}

// Wishlist manages the buyer wishlist.
func Wishlist() Module {
	return Module{
		Name:    "wishlist",
		Path:    "wishlist",
		Backend: ProductBackend,
		Patterns: pattern.Define("wishlist").
			Op("fetchWishlistProduct", "fetch-all-wishlist-product", pattern.Role("fetchAllWishlistProduct")).
			Op("AddProductToWishList", "add-product-to-wishlist").
			Op("RemoveProductFromWishList", "remove-product-from-wishlist"),
		Routes: []Route{
			Get("", "fetchWishlistProduct", Query("page", "searchText").WithAuth()),
			Post("", "AddProductToWishList", LangOnly().WithAuth().WithBody()),
			Delete("/:uuid", "RemoveProductFromWishList", ByUUID().WithAuth()),
		},
	}
}

// Order manages buyer orders and their fulfilment.
func Order() Module {
	sorted := []string{"page_size", "page", "searchText", "sortColumn", "sortBy"}
	return Module{
		Name:    "order",
		Path:    "order",
		Backend: ProductBackend,
		Patterns: pattern.Define("order").
			Op("fetchOrderForAdmin", "fetch-order-for-admin").
			Op("fetchOrderForSeller", "fetch-order-for-seller").
			Op("fetchOrderForUser", "fetch-order-for-user").
			Op("createOrder", "create-order").
			Op("updateOrderStatus", "update-order-status").
			Op("updateProductOrderStatus", "update-product-order-status").
			Op("fetchOrderByIdForSeller", "fetch-order-by-id-for-seller").
			Op("fetchOrderByIdForUser", "fetch-order-by-id-for-user"),
		Routes: []Route{
			Get("", "fetchOrderForSeller", Query(append(sorted, "status")...).WithAuth()),
			Get("/admin", "fetchOrderForAdmin", Query(sorted...).WithAuth()),
			Get("/user", "fetchOrderForUser", Query(sorted...).WithAuth()),
			Get("/seller/:uuid", "fetchOrderByIdForSeller", ByUUID().WithAuth()),
			Get("/user/:uuid", "fetchOrderByIdForUser", ByUUID().WithAuth()),
			Post("", "createOrder", LangOnly().WithAuth().WithBody()),
			Patch("/status/:uuid", "updateOrderStatus", ByUUID().WithAuth().WithBody()),
			Patch("/product/status/:uuid", "updateProductOrderStatus", ByUUID().WithAuth().WithBody()),
		},
	}
}

// Product manages the product listing wizard and the shop front queries.
func Product() Module {
	step := func(name, cmd string) []Route {
		return []Route{
			Get("/"+cmd+"/:uuid", "fetchProduct"+name, ByUUID().WithAuth()),
			Post("/"+cmd+"/:uuid", "createProduct"+name, ByUUID().WithAuth().WithBody()),
		}
	}

	routes := []Route{
		Get("/fetchProductBySubCategorySlug/:slug", "fetchProductBySubCategorySlug", Params("slug")).Open(),
		Get("/fetchProductByBrandSlug/:slug", "fetchProductByBrandSlug", Params("slug")).Open(),
		Get("/shop", "fetchAllProductForShop", Query("page_size", "page", "searchText")).Open(),
		Get("/fetchProductBySlug/:slug", "fetchProductBySlug", Params("slug")).Open(),
		Get("/fetchProductAttributesById/:parentId", "fetchProductAttributesById", Params("parentId")).Open(),
		Get("", "fetchAllProduct", List().WithAuth()),
		Get("/basic-information/:uuid", "fetchProductBasicInformation", ByUUID().WithAuth()),
		Post("/basic-information", "createProductBasicInformation", LangOnly().WithAuth().WithBody()),
	}
	routes = append(routes, step("Variants", "variants")...)
	routes = append(routes, step("Locations", "locations")...)
	routes = append(routes, step("ShippingInformation", "shipping")...)
	routes = append(routes, step("SeoInformation", "seo")...)

	return Module{
		Name:    "product",
		Path:    "product",
		Backend: ProductBackend,
		Patterns: pattern.Define("product").
			Op("fetchAllProduct", "fetch-all-product").
			Op("fetchProductBasicInformation", "fetch-product-basic-information").
			Op("createProductBasicInformation", "create-product-basic-information").
			Op("fetchProductVariants", "fetch-product-variants").
			Op("createProductVariants", "create-product-variants").
			Op("fetchProductLocations", "fetch-product-locations").
			Op("createProductLocations", "create-product-locations").
			Op("fetchProductShippingInformation", "fetch-product-shipping-information").
			Op("createProductShippingInformation", "create-product-shipping-information").
			Op("fetchProductSeoInformation", "fetch-product-seo-information").
			Op("createProductSeoInformation", "create-product-seo-information").
			Op("fetchAllProductForShop", "fetch-all-product-for-shop").
			Op("fetchProductBySubCategorySlug", "fetch-product-by-subcategory-slug").
			Op("fetchProductByBrandSlug", "fetch-product-by-brand-slug").
			Op("fetchProductBySlug", "fetch-product-by-slug").
			Op("fetchProductAttributesById", "fetch-product-attribute-by-id"),
		Routes: routes,
	}
}
