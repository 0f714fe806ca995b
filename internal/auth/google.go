package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"biolens-backend/internal/credits"
	sharedauth "biolens-backend/internal/shared/auth"
	"biolens-backend/internal/shared/config"
	"biolens-backend/internal/shared/server/respond"
	"biolens-backend/internal/shared/telemetry"
	"biolens-backend/internal/users"
)

const userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleHandler implements Google sign-in issuing application JWTs.
type GoogleHandler struct {
	oauth           *oauth2.Config
	users           *users.Service
	credits         *credits.Service
	startingCredits int
	uiRedirectURL   string
}

// NewGoogleHandler wires the OAuth flow. Returns nil when Google
// sign-in is not configured.
func NewGoogleHandler(cfg config.Config, usersSvc *users.Service, creditsSvc *credits.Service) *GoogleHandler {
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return nil
	}
	return &GoogleHandler{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		users:           usersSvc,
		credits:         creditsSvc,
		startingCredits: cfg.StartingCredits,
		uiRedirectURL:   cfg.UIRedirectURL,
	}
}

// Start handles GET /api/v1/auth/google/start.
func (h *GoogleHandler) Start(c *gin.Context) {
	state := randomState()
	c.SetCookie("oauth_state", state, 600, "/", "", false, true)
	c.Redirect(http.StatusFound, h.oauth.AuthCodeURL(state))
}

// Callback handles GET /api/v1/auth/google/callback.
func (h *GoogleHandler) Callback(c *gin.Context) {
	state, err := c.Cookie("oauth_state")
	if err != nil || state == "" || c.Query("state") != state {
		respond.Error(c, http.StatusBadRequest, "invalid_state", "OAuth state mismatch", nil)
		return
	}

	code := c.Query("code")
	if code == "" {
		respond.Error(c, http.StatusBadRequest, "missing_code", "Missing authorization code", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "oauth_exchange_failed", "Failed to complete sign-in", nil)
		return
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "oauth_userinfo_failed", "Failed to complete sign-in", nil)
		return
	}

	user, created, err := h.users.EnsureAccount(ctx, info.Email, info.Name, info.Picture)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to create account", nil)
		return
	}

	if created {
		if err := h.credits.GrantSignupCredits(ctx, user.ID, h.startingCredits); err != nil {
			telemetry.Error("auth.signup_grant_failed", map[string]any{
				"user_id": user.ID,
				"error":   err.Error(),
			})
		}
	}

	jwt, err := sharedauth.SignJWT(sharedauth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		Name:  user.Name,
		Exp:   time.Now().Add(24 * time.Hour).Unix(),
		Iat:   time.Now().Unix(),
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to issue token", nil)
		return
	}

	telemetry.Info("auth.signin", map[string]any{
		"user_id": user.ID,
		"created": created,
	})

	if h.uiRedirectURL != "" {
		c.Redirect(http.StatusFound, h.uiRedirectURL+"#token="+url.QueryEscape(jwt))
		return
	}
	respond.OK(c, gin.H{"token": jwt, "user": user})
}

type googleUserInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (h *GoogleHandler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := h.oauth.Client(ctx, token)
	resp, err := client.Get(userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read userinfo: %w", err)
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("userinfo missing email")
	}
	return &info, nil
}

func randomState() string {
	var b [24]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return base64.RawURLEncoding.EncodeToString(b[:])
}
