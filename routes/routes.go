package routes

import (
	"profile-service/config"
	"profile-service/handlers"
	"profile-service/middleware"
	"profile-service/store"

	"github.com/gorilla/mux"
)

// Handlers bundles everything SetupRoutes wires into the router.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Profiles     *handlers.ProfileHandler
	Slugs        *handlers.SlugHandler
	NfcLinks     *handlers.NfcLinkHandler
	Appointments *handlers.AppointmentHandler
	Dashboards   *handlers.DashboardHandler
}

func SetupRoutes(cfg config.Config, h Handlers, verifier middleware.GoogleVerifier, sessions store.AdminSessionStore) *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()

	admin := middleware.AdminMiddleware(cfg, sessions)
	google := middleware.GoogleAuthMiddleware(verifier)

	// Auth
	api.Handle("/auth/admin", middleware.ErrorHandler(h.Auth.AdminLoginHandler)).Methods("POST")
	api.Handle("/auth/verify", middleware.ErrorHandler(h.Auth.VerifyHandler)).Methods("GET")
	api.Handle("/auth/logout", middleware.ErrorHandler(h.Auth.LogoutHandler)).Methods("POST")
	api.Handle("/auth/google/login", middleware.ErrorHandler(h.Auth.GoogleLoginHandler)).Methods("GET")
	api.Handle("/auth/google/callback", middleware.ErrorHandler(h.Auth.GoogleCallbackHandler)).Methods("GET")

	// Slug registry
	api.Handle("/slugs", middleware.ErrorHandler(h.Profiles.GenerateSlugHandler)).Methods("POST")
	api.Handle("/slugs/{slug}", middleware.ErrorHandler(h.Slugs.CheckSlugHandler)).Methods("GET")
	api.Handle("/slugs/{slug}", admin(middleware.ErrorHandler(h.Slugs.DeactivateSlugHandler))).Methods("DELETE")

	// Profiles
	api.Handle("/profile", middleware.ErrorHandler(h.Profiles.CreateProfileHandler)).Methods("POST")
	api.Handle("/profile/slug/{slug}", middleware.ErrorHandler(h.Profiles.GetProfileBySlugHandler)).Methods("GET")
	api.Handle("/profile/slug/{slug}", middleware.ErrorHandler(h.Profiles.UpdateProfileBySlugHandler)).Methods("POST")
	api.Handle("/profile/slug/{slug}/claim", middleware.ErrorHandler(h.Profiles.ClaimProfileBySlugHandler)).Methods("POST")
	api.Handle("/profile/{username}", middleware.ErrorHandler(h.Profiles.GetProfileByUsernameHandler)).Methods("GET")

	// NFC links (admin)
	api.Handle("/nfc-links", admin(middleware.ErrorHandler(h.NfcLinks.GenerateHandler))).Methods("POST")
	api.Handle("/nfc-links", admin(middleware.ErrorHandler(h.NfcLinks.ListHandler))).Methods("GET")
	api.Handle("/nfc-links/{slug}/assign", admin(middleware.ErrorHandler(h.NfcLinks.AssignHandler))).Methods("PUT")
	api.Handle("/nfc-links/{slug}/deactivate", admin(middleware.ErrorHandler(h.NfcLinks.DeactivateHandler))).Methods("PUT")

	// Appointments
	api.Handle("/appointments", middleware.ErrorHandler(h.Appointments.CreateHandler)).Methods("POST")
	api.Handle("/appointments/profile/{username}", middleware.ErrorHandler(h.Appointments.ListForProfileHandler)).Methods("GET")
	api.Handle("/appointments/{id}", middleware.ErrorHandler(h.Appointments.UpdateHandler)).Methods("PUT")

	// Dashboards (Google auth)
	dashboards := api.PathPrefix("/v1/dashboards").Subrouter()
	dashboards.Use(google)
	dashboards.Handle("", middleware.ErrorHandler(h.Dashboards.ListHandler)).Methods("GET")
	dashboards.Handle("", middleware.ErrorHandler(h.Dashboards.CreateHandler)).Methods("POST")
	dashboards.Handle("/{id}", middleware.ErrorHandler(h.Dashboards.GetHandler)).Methods("GET")
	dashboards.Handle("/{id}", middleware.ErrorHandler(h.Dashboards.UpdateHandler)).Methods("PUT")
	dashboards.Handle("/{id}", middleware.ErrorHandler(h.Dashboards.DeleteHandler)).Methods("DELETE")

	router.HandleFunc("/health", handlers.HealthHandler).Methods("GET")

	return router
}
