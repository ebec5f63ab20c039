package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/blockkit/blockkit-api/internal/models"
	"github.com/blockkit/blockkit-api/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const maxWebhookBodyBytes = int64(65536)

// BillingHandler fulfils completed Stripe checkouts: one-off block purchases
// become purchase records, subscription checkouts activate a license tier.
type BillingHandler struct {
	userRepo      repository.UserRepository
	purchaseRepo  repository.PurchaseRepository
	webhookSecret string
	logger        zerolog.Logger
}

func NewBillingHandler(
	userRepo repository.UserRepository,
	purchaseRepo repository.PurchaseRepository,
	webhookSecret string,
	logger zerolog.Logger,
) *BillingHandler {
	return &BillingHandler{
		userRepo:      userRepo,
		purchaseRepo:  purchaseRepo,
		webhookSecret: webhookSecret,
		logger:        logger.With().Str("component", "billing").Logger(),
	}
}

// StripeWebhook handles POST /webhooks/stripe.
func (h *BillingHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret == "" {
		h.logger.Error().Msg("stripe webhook secret not configured")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read webhook payload")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		h.logger.Error().Err(err).Msg("webhook signature verification failed")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			h.logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to unmarshal checkout session")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := h.handleCheckoutCompleted(&session); err != nil {
			h.logger.Error().Err(err).Str("session_id", session.ID).Msg("failed to fulfil checkout")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	default:
		h.logger.Info().Str("event_type", string(event.Type)).Str("event_id", event.ID).Msg("ignoring webhook event")
	}

	writeJSON(w, http.StatusOK, map[string]string{"received": "true"})
}

func (h *BillingHandler) handleCheckoutCompleted(session *stripe.CheckoutSession) error {
	var email string
	if session.CustomerDetails != nil {
		email = session.CustomerDetails.Email
	}
	if email == "" {
		h.logger.Warn().Str("session_id", session.ID).Msg("checkout session has no customer email")
		return nil
	}

	user, err := h.userRepo.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The storefront creates the account before checkout; a missing
			// user here means the session predates the account or was paid
			// with a different email. Operators reconcile manually.
			h.logger.Warn().Str("email", email).Str("session_id", session.ID).Msg("no account for checkout email")
			return nil
		}
		return err
	}

	if itemID := session.Metadata["item_id"]; itemID != "" {
		if err := h.purchaseRepo.RecordPurchase(user.ID, itemID); err != nil {
			return err
		}
		h.logger.Info().Str("user_id", user.ID).Str("item_id", itemID).Msg("purchase recorded")
	}

	if tier := models.LicenseTier(session.Metadata["license_tier"]); tier != "" {
		if !models.IsValidTier(tier) || tier == models.TierNone {
			h.logger.Warn().Str("tier", string(tier)).Str("session_id", session.ID).Msg("unknown license tier in checkout metadata")
			return nil
		}
		if _, err := h.userRepo.SetLicense(user.ID, tier, true); err != nil {
			return err
		}
		h.logger.Info().Str("user_id", user.ID).Str("tier", string(tier)).Msg("license activated")
	}

	return nil
}
