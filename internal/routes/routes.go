package routes

import (
	"net/http"

	"github.com/blockkit/blockkit-api/internal/handlers"
	"github.com/gorilla/mux"
)

// NewRouter sets up the API routes
func NewRouter(
	auth *handlers.AuthHandler,
	repoAccess *handlers.RepoAccessHandler,
	teamInvites *handlers.TeamInviteHandler,
	billing *handlers.BillingHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Public auth endpoints
	router.HandleFunc("/api/signup", auth.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/api/login", auth.Login).Methods(http.MethodPost)

	// Stripe checkout fulfilment (authenticated by signature, not JWT)
	router.HandleFunc("/webhooks/stripe", billing.StripeWebhook).Methods(http.MethodPost)

	// Team invite preview/accept are reached from an email link, pre-login.
	router.HandleFunc("/api/team/invites/{token}", teamInvites.PreviewInvite).Methods(http.MethodGet)
	router.HandleFunc("/api/team/invites/{token}/accept", teamInvites.AcceptInvite).Methods(http.MethodPost)

	// Authenticated API
	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware)
	api.HandleFunc("/me", auth.Me).Methods(http.MethodGet)
	api.HandleFunc("/account", auth.DeleteAccount).Methods(http.MethodDelete)
	api.HandleFunc("/blocks/{itemID}/repo-access", repoAccess.RequestInvite).Methods(http.MethodPost)
	api.HandleFunc("/team/invites", teamInvites.CreateInvite).Methods(http.MethodPost)
	api.HandleFunc("/team/invites", teamInvites.ListInvites).Methods(http.MethodGet)

	return router
}
