package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/zaloga/internal/checkout"
	"github.com/erazemk/zaloga/internal/kiosk"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// Options holds the dependencies of the API router.
type Options struct {
	DB          *sql.DB
	JWTSecret   string
	TokenTTL    time.Duration
	Coordinator *checkout.Coordinator
	Kiosk       *kiosk.Manager
	TrackingIDs *store.TrackingIDs

	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
}

// NewRouter creates the API router with the operator, kiosk and mobile
// gateways registered.
func NewRouter(opts Options) http.Handler {
	mux := http.NewServeMux()
	db := opts.DB

	authHandler := &AuthHandler{DB: db, JWTSecret: opts.JWTSecret, TokenTTL: opts.TokenTTL, Kiosk: opts.Kiosk}
	usersHandler := &UsersHandler{DB: db, Kiosk: opts.Kiosk}
	itemsHandler := &ItemsHandler{DB: db, Coordinator: opts.Coordinator, TrackingIDs: opts.TrackingIDs}
	assetsHandler := &AssetsHandler{DB: db, Coordinator: opts.Coordinator, TrackingIDs: opts.TrackingIDs}
	itemSubjects := &SubjectHandler{DB: db, Coordinator: opts.Coordinator, Kind: model.SubjectItem}
	assetSubjects := &SubjectHandler{DB: db, Coordinator: opts.Coordinator, Kind: model.SubjectAsset}
	checkoutHandler := &CheckoutHandler{DB: db, Coordinator: opts.Coordinator}
	categoriesHandler := &CategoriesHandler{DB: db}
	tagsHandler := &TagsHandler{DB: db}
	reasonsHandler := &ReasonsHandler{DB: db}
	transactionsHandler := &TransactionsHandler{DB: db}
	settingsHandler := &SettingsHandler{DB: db}
	kioskHandler := &KioskHandler{DB: db, Sessions: opts.Kiosk}
	mobileHandler := &MobileHandler{DB: db, JWTSecret: opts.JWTSecret, TokenTTL: opts.TokenTTL}
	lookup := Lookup(db)

	authMW := AuthMiddleware(opts.JWTSecret, db)
	kioskMW := KioskMiddleware(opts.Kiosk)
	mobileMW := MobileAuthMiddleware(opts.JWTSecret)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	operator := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	manager := func(h http.HandlerFunc) http.Handler { return authMW(requireManager(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public: logins.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/kiosk/login", kioskHandler.Login)
	mux.HandleFunc("POST /api/mobile/auth/login", mobileHandler.Login)

	// Operator session.
	mux.Handle("POST /api/auth/logout", operator(authHandler.Logout))
	mux.Handle("PUT /api/auth/password", operator(authHandler.ChangePassword))
	mux.Handle("PUT /api/auth/pin", operator(authHandler.SetPIN))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("PUT /api/users/{id}/pin", admin(usersHandler.SetPIN))
	mux.Handle("GET /api/users/{id}/history", admin(usersHandler.History))

	// Items: read (all roles), write (manager+).
	mux.Handle("GET /api/items", operator(itemsHandler.List))
	mux.Handle("GET /api/items/low-stock", operator(itemsHandler.LowStock))
	mux.Handle("POST /api/items", manager(itemsHandler.Create))
	mux.Handle("GET /api/items/{id}", operator(itemsHandler.Get))
	mux.Handle("PUT /api/items/{id}", manager(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", manager(itemsHandler.Delete))
	mux.Handle("POST /api/items/{id}/adjust", manager(itemsHandler.Adjust))
	mux.Handle("POST /api/items/{id}/remove", manager(itemSubjects.Remove))
	mux.Handle("PUT /api/items/{id}/image", manager(itemSubjects.UploadImage))
	mux.Handle("GET /api/items/{id}/image", operator(itemSubjects.GetImage))
	mux.Handle("GET /api/items/{id}/history", operator(itemSubjects.History))
	mux.Handle("PUT /api/items/{id}/tags/{tag}", manager(itemSubjects.AttachTag))
	mux.Handle("DELETE /api/items/{id}/tags/{tag}", manager(itemSubjects.DetachTag))

	// Assets: read (all roles), write (manager+).
	mux.Handle("GET /api/assets", operator(assetsHandler.List))
	mux.Handle("POST /api/assets", manager(assetsHandler.Create))
	mux.Handle("GET /api/assets/{id}", operator(assetsHandler.Get))
	mux.Handle("PUT /api/assets/{id}", manager(assetsHandler.Update))
	mux.Handle("DELETE /api/assets/{id}", manager(assetsHandler.Delete))
	mux.Handle("PUT /api/assets/{id}/status", manager(assetsHandler.SetStatus))
	mux.Handle("POST /api/assets/{id}/remove", manager(assetSubjects.Remove))
	mux.Handle("PUT /api/assets/{id}/image", manager(assetSubjects.UploadImage))
	mux.Handle("GET /api/assets/{id}/image", operator(assetSubjects.GetImage))
	mux.Handle("GET /api/assets/{id}/history", operator(assetSubjects.History))
	mux.Handle("PUT /api/assets/{id}/tags/{tag}", manager(assetSubjects.AttachTag))
	mux.Handle("DELETE /api/assets/{id}/tags/{tag}", manager(assetSubjects.DetachTag))

	// Checkout and check-in (all roles).
	mux.Handle("POST /api/checkout", operator(checkoutHandler.Checkout))
	mux.Handle("POST /api/checkin", operator(checkoutHandler.Checkin))
	mux.Handle("GET /api/lookup/{tracking}", operator(lookup))

	// Categories, tags and reasons: read (all roles), write (manager+).
	mux.Handle("GET /api/categories", operator(categoriesHandler.List))
	mux.Handle("POST /api/categories", manager(categoriesHandler.Create))
	mux.Handle("PUT /api/categories/{id}", manager(categoriesHandler.Update))
	mux.Handle("DELETE /api/categories/{id}", manager(categoriesHandler.Delete))

	mux.Handle("GET /api/tags", operator(tagsHandler.List))
	mux.Handle("POST /api/tags", manager(tagsHandler.Create))
	mux.Handle("PUT /api/tags/{id}", manager(tagsHandler.Update))
	mux.Handle("DELETE /api/tags/{id}", manager(tagsHandler.Delete))
	mux.Handle("GET /api/tags/{id}/subjects", operator(tagsHandler.Subjects))

	mux.Handle("GET /api/reasons", operator(reasonsHandler.List))
	mux.Handle("POST /api/reasons", manager(reasonsHandler.Create))
	mux.Handle("PUT /api/reasons/{id}", manager(reasonsHandler.Update))

	// Transaction log (manager+) and settings (admin only).
	mux.Handle("GET /api/transactions", manager(transactionsHandler.List))
	mux.Handle("GET /api/settings", admin(settingsHandler.Get))
	mux.Handle("PUT /api/settings", admin(settingsHandler.Update))

	// Kiosk gateway.
	mux.Handle("POST /api/kiosk/logout", kioskMW(http.HandlerFunc(kioskHandler.Logout)))
	mux.Handle("GET /api/kiosk/me", kioskMW(http.HandlerFunc(kioskHandler.Me)))
	mux.Handle("GET /api/kiosk/reasons", kioskMW(http.HandlerFunc(reasonsHandler.ListActive)))
	mux.Handle("GET /api/kiosk/lookup/{tracking}", kioskMW(lookup))
	mux.Handle("POST /api/kiosk/checkout", kioskMW(http.HandlerFunc(checkoutHandler.Checkout)))
	mux.Handle("POST /api/kiosk/checkin", kioskMW(http.HandlerFunc(checkoutHandler.Checkin)))

	// Mobile gateway.
	mux.Handle("POST /api/mobile/auth/refresh", mobileMW(http.HandlerFunc(mobileHandler.Refresh)))
	mux.Handle("GET /api/mobile/auth/verify", mobileMW(http.HandlerFunc(mobileHandler.Verify)))
	mux.Handle("GET /api/mobile/checkout/reasons", mobileMW(http.HandlerFunc(reasonsHandler.ListActive)))
	mux.Handle("POST /api/mobile/checkout", mobileMW(http.HandlerFunc(checkoutHandler.Checkout)))
	mux.Handle("POST /api/mobile/checkin", mobileMW(http.HandlerFunc(checkoutHandler.Checkin)))
	mux.Handle("GET /api/mobile/checkout/history", mobileMW(http.HandlerFunc(mobileHandler.History)))
	mux.Handle("GET /api/mobile/lookup/{tracking}", mobileMW(lookup))
	mux.Handle("GET /api/mobile/items/search", mobileMW(http.HandlerFunc(mobileHandler.SearchItems)))
	mux.Handle("GET /api/mobile/assets/search", mobileMW(http.HandlerFunc(mobileHandler.SearchAssets)))

	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	return mux
}
