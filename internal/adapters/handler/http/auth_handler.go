package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/pollsystem/api/internal/core/ports"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

type CookieConfig struct {
	Domain     string
	SameSite   http.SameSite
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type AuthHandler struct {
	authService ports.AuthService
	cookies     CookieConfig
}

func NewAuthHandler(authService ports.AuthService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
	}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleCallbackRequest struct {
	Credential string `json:"credential"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Signup godoc
// @Summary      Registers a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      201  {object}  domain.User
// @Failure      400,409  {object}  ErrorResponse
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.Signup(r.Context(), ports.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusCreated, user)
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setSessionCookies(w, session)
	JSONResponse(w, http.StatusOK, session)
}

// GoogleCallback accepts the Google Identity Services credential either as a form post or as JSON.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	var credential string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "failed to parse form")
			return
		}
		credential = r.FormValue("credential")
	} else {
		var req googleCallbackRequest
		if err := decodeJSON(r, &req); err == nil {
			credential = req.Credential
		}
	}
	if credential == "" {
		writeErrorMessage(w, http.StatusBadRequest, "missing credential")
		return
	}

	session, err := h.authService.LoginWithGoogle(r.Context(), credential)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setSessionCookies(w, session)
	JSONResponse(w, http.StatusOK, session)
}

// Refresh godoc
// @Summary      Refreshes the authenticated user's access token
// @Description  Creates a new access token based on the refresh token, read from the body or the refresh_token cookie.
// @Tags         auth
// @Accept       json
// @Success      200
// @Failure      401
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := h.refreshToken(r)
	if token == "" {
		writeErrorMessage(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	session, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		h.expireCookies(w)
		writeError(w, r, err)
		return
	}

	h.setSessionCookies(w, session)
	JSONResponse(w, http.StatusOK, session)
}

// Logout godoc
// @Summary      Logs the authenticated user out
// @Description  Revokes the refresh token and clears the session cookies
// @Tags         auth
// @Success      200
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.refreshToken(r); token != "" {
		if err := h.authService.Logout(r.Context(), token); err != nil {
			writeError(w, r, err)
			return
		}
	}

	h.expireCookies(w)
	JSONResponse(w, http.StatusOK, MessageResponse{Message: "Logged out successfully!"})
}

func (h *AuthHandler) refreshToken(r *http.Request) string {
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var req refreshRequest
	if r.Body != nil && decodeJSON(r, &req) == nil {
		return req.RefreshToken
	}
	return ""
}

func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, session *ports.Session) {
	h.setCookie(w, accessTokenCookie, session.AccessToken, h.cookies.AccessTTL)
	h.setCookie(w, refreshTokenCookie, session.RefreshToken, h.cookies.RefreshTTL)
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookies.Domain,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.SameSite,
		MaxAge:   int(ttl.Seconds()),
	})
}

func (h *AuthHandler) expireCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: accessTokenCookie, MaxAge: -1, Path: "/", Domain: h.cookies.Domain})
	http.SetCookie(w, &http.Cookie{Name: refreshTokenCookie, MaxAge: -1, Path: "/", Domain: h.cookies.Domain})
}
