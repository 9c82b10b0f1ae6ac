package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"gridx-backend/config"
	"gridx-backend/services"
	"gridx-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"go.uber.org/zap"
)

// SetupOAuth registers the Google provider and the cookie store gothic keeps
// its state in. It reports false when no client credentials are configured.
func SetupOAuth(cfg config.AuthConfig, secure bool) bool {
	if cfg.GoogleKey == "" || cfg.GoogleSecret == "" {
		return false
	}

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = store

	base := strings.TrimRight(cfg.PublicURL, "/")
	goth.UseProviders(
		google.New(cfg.GoogleKey, cfg.GoogleSecret, base+"/api/auth/oauth/google/callback", "email", "profile"),
	)
	return true
}

type OAuthController struct {
	accounts      *services.AccountService
	frontendURL   string
	secureCookies bool
}

func NewOAuthController(accounts *services.AccountService, frontendURL string, secureCookies bool) *OAuthController {
	return &OAuthController{
		accounts:      accounts,
		frontendURL:   strings.TrimRight(frontendURL, "/"),
		secureCookies: secureCookies,
	}
}

// withProvider exposes the :provider path segment the way gothic expects it.
// The requested action rides along in the OAuth state and is validated by
// gothic on the way back.
func withProvider(c *gin.Context, state string) {
	q := c.Request.URL.Query()
	q.Set("provider", c.Param("provider"))
	if state != "" {
		q.Set("state", state)
	}
	c.Request.URL.RawQuery = q.Encode()
}

func (oc *OAuthController) Begin(c *gin.Context) {
	if _, err := goth.GetProvider(c.Param("provider")); err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "Unknown OAuth provider")
		return
	}

	action := c.DefaultQuery("action", services.OAuthActionLogin)
	if action != services.OAuthActionLogin && action != services.OAuthActionRegister {
		utils.RespondWithError(c, http.StatusBadRequest, services.ErrInvalidOAuthAction.Error())
		return
	}
	nonce, err := utils.GenerateRandomString(16)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to start OAuth flow")
		return
	}

	withProvider(c, action+":"+nonce)
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

func (oc *OAuthController) Callback(c *gin.Context) {
	action := strings.SplitN(c.Query("state"), ":", 2)[0]
	if action != services.OAuthActionRegister {
		action = services.OAuthActionLogin
	}

	withProvider(c, "")
	gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		zap.L().Warn("OAuth callback failed", zap.String("provider", c.Param("provider")), zap.Error(err))
		oc.redirectError(c, action, "OAuth authentication failed")
		return
	}

	user, err := oc.accounts.FindOrCreateOAuthUser(c.Request.Context(), gothUser.Email, gothUser.Name, action)
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		oc.redirectError(c, action, "User already exists. Please log in.")
		return
	case errors.Is(err, services.ErrUserNotFound):
		oc.redirectError(c, action, "No account found. Please register first.")
		return
	case err != nil:
		zap.L().Error("OAuth account lookup failed", zap.Error(err))
		oc.redirectError(c, action, "Authentication failed")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email)
	if err != nil {
		oc.redirectError(c, action, "Failed to generate token")
		return
	}
	utils.SetTokenCookie(c, token, oc.secureCookies)

	payload, _ := json.Marshal(userResponse(user))
	params := url.Values{}
	params.Set("token", token)
	params.Set("user", string(payload))
	c.Redirect(http.StatusFound, oc.frontendURL+"/oauth/callback?"+params.Encode())
}

func (oc *OAuthController) redirectError(c *gin.Context, action, message string) {
	page := "/login"
	if action == services.OAuthActionRegister {
		page = "/register"
	}
	c.Redirect(http.StatusFound, oc.frontendURL+page+"?error="+url.QueryEscape(message))
}
