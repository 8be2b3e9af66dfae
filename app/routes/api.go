// Package routes wires controllers onto the named-route router.
package routes

import (
	"github.com/charvilabs/charvi/app/controllers"
	"github.com/charvilabs/charvi/pkg/middleware"
	"github.com/charvilabs/charvi/pkg/rbac"
	"github.com/charvilabs/charvi/pkg/router"
)

// Controllers bundles every controller RegisterAPI mounts.
type Controllers struct {
	Auth     *controllers.AuthController
	Products *controllers.ProductController
	Carts    *controllers.CartController
	Orders   *controllers.OrderController
	Checkout *controllers.CheckoutController
	Chat     *controllers.ChatController
	Wishlist *controllers.WishlistController
	Address  *controllers.AddressController
	Admin    *controllers.AdminController
}

func RegisterAPI(r *router.Router, c *Controllers) {
	api := r.Group("/api")

	// ── Public ───────────────────────────────────────────────────────────────
	api.Post("/register", "auth.register", c.Auth.Register)
	api.Post("/login", "auth.login", c.Auth.Login)
	api.Post("/refresh", "auth.refresh", c.Auth.Refresh)
	api.Post("/forgot-password", "auth.forgot", c.Auth.ForgotPassword)
	api.Post("/reset-password", "auth.reset", c.Auth.ResetPassword)

	api.Get("/products", "products.list", c.Products.List)
	api.Get("/products/{ref}", "products.show", c.Products.Get)
	api.Get("/products/{id}/reviews", "products.reviews", c.Products.ListReviews)

	// Chat adapts to identity but works anonymously.
	api.Post("/chat", "chat.message", c.Chat.Message, middleware.OptionalAuth)

	// ── Authenticated ────────────────────────────────────────────────────────
	user := api.Group("", middleware.Auth)

	user.Get("/profile", "auth.profile", c.Auth.Profile)

	user.Get("/cart", "cart.show", c.Carts.Get)
	user.Post("/cart/items", "cart.add", c.Carts.Add)
	user.Put("/cart/items/{productId}", "cart.quantity", c.Carts.SetQuantity)
	user.Delete("/cart/items/{productId}", "cart.remove", c.Carts.Remove)
	user.Delete("/cart", "cart.clear", c.Carts.Clear)

	user.Get("/orders", "orders.mine", c.Orders.Mine)
	user.Get("/orders/{id}", "orders.show", c.Orders.Get)
	user.Post("/orders/{id}/verify-delivery", "orders.verify", c.Orders.VerifyDelivery)
	user.Delete("/orders/{id}/items/{productId}", "orders.cancelItem", c.Orders.CancelItem)
	user.Post("/orders/{id}/return", "orders.return", c.Orders.RequestReturn)

	user.Post("/checkout", "checkout.begin", c.Checkout.Begin)
	user.Post("/checkout/confirm", "checkout.confirm", c.Checkout.Confirm)

	user.Get("/wishlist", "wishlist.show", c.Wishlist.Get)
	user.Post("/wishlist", "wishlist.add", c.Wishlist.Add)
	user.Delete("/wishlist/{productId}", "wishlist.remove", c.Wishlist.Remove)

	user.Get("/addresses", "addresses.list", c.Address.List)
	user.Post("/addresses", "addresses.create", c.Address.Create)
	user.Put("/addresses/{id}", "addresses.update", c.Address.Update)
	user.Delete("/addresses/{id}", "addresses.delete", c.Address.Delete)
	user.Post("/addresses/{id}/default", "addresses.default", c.Address.MakeDefault)

	user.Post("/products/{id}/reviews", "products.review", c.Products.SubmitReview)

	// ── Admin ────────────────────────────────────────────────────────────────
	admin := api.Group("/admin", middleware.Auth, rbac.HasRole("admin"))

	admin.Post("/products", "admin.products.create", c.Products.Create)
	admin.Put("/products/{id}", "admin.products.update", c.Products.Update)
	admin.Delete("/products/{id}", "admin.products.delete", c.Products.Delete)
	admin.Post("/products/{id}/image", "admin.products.image", c.Products.UploadImage)

	admin.Get("/orders", "admin.orders.list", c.Orders.ListAll)
	admin.Put("/orders/{id}/status", "admin.orders.status", c.Orders.UpdateStatus)

	admin.Get("/analytics", "admin.analytics", c.Admin.Dashboard)
}
