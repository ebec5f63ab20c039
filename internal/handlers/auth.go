package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/blockkit/blockkit-api/internal/authz"
	"github.com/blockkit/blockkit-api/internal/models"
	"github.com/blockkit/blockkit-api/internal/repository"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
)

type AuthHandler struct {
	userRepo     repository.UserRepository
	purchaseRepo repository.PurchaseRepository
	jwtSecret    string
	logger       zerolog.Logger
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewAuthHandler(userRepo repository.UserRepository, purchaseRepo repository.PurchaseRepository, jwtSecret string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		userRepo:     userRepo,
		purchaseRepo: purchaseRepo,
		jwtSecret:    jwtSecret,
		logger:       logger.With().Str("component", "auth").Logger(),
	}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.userRepo.CreateUser(req.Email, req.Password, models.TierNone, false)
	if err != nil {
		http.Error(w, "Failed to create user: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.User{ID: user.ID, Email: user.Email, IsActive: user.IsActive, LicenseTier: user.LicenseTier})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.userRepo.AuthenticateUser(req.Email, req.Password)
	if err != nil {
		http.Error(w, "Authentication failed", http.StatusUnauthorized)
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	})
	tokenString, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to sign token")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": tokenString})
}

type profileResponse struct {
	ID               string   `json:"id"`
	Email            string   `json:"email"`
	LicenseTier      string   `json:"license_tier"`
	HasActiveLicense bool     `json:"has_active_license"`
	Purchases        []string `json:"purchases"`
}

// Me handles GET /api/me, returning the caller's account and the blocks
// they have bought.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	user, err := h.userRepo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "unknown_identity", "Account not found")
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("user lookup failed")
		writeError(w, http.StatusInternalServerError, "generic_failure", "Failed to load account")
		return
	}

	purchases, err := h.purchaseRepo.ListPurchasesByUser(userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("purchase listing failed")
		writeError(w, http.StatusInternalServerError, "generic_failure", "Failed to load purchases")
		return
	}

	items := make([]string, 0, len(purchases))
	for _, p := range purchases {
		items = append(items, p.ItemID)
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:               user.ID,
		Email:            user.Email,
		LicenseTier:      string(user.LicenseTier),
		HasActiveLicense: user.HasActiveLicense,
		Purchases:        items,
	})
}

// DeleteAccount handles DELETE /api/account. Deactivation is a soft delete;
// the user can no longer log in and their license stops qualifying.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	if err := h.userRepo.DeactivateUser(userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "unknown_identity", "Account not found")
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to deactivate account")
		writeError(w, http.StatusInternalServerError, "generic_failure", "Failed to close account")
		return
	}

	email, _ := authz.EmailFromRequest(r)
	h.logger.Info().Str("user_id", userID).Str("email", email).Msg("account deactivated")
	w.WriteHeader(http.StatusNoContent)
}

// JWTMiddleware validates the bearer token and places the caller's identity
// on the request context.
func (h *AuthHandler) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
			return
		}
		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !claims.VerifyExpiresAt(time.Now().Unix(), true) {
			http.Error(w, "Token expired", http.StatusUnauthorized)
			return
		}
		userID, ok := claims["sub"].(string)
		if !ok || userID == "" {
			http.Error(w, "Missing token claim", http.StatusUnauthorized)
			return
		}
		email, _ := claims["email"].(string)

		ctx := authz.WithIdentity(r.Context(), userID, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
