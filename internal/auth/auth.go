package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kargopost/orderwizard/internal/token"
)

const (
	HeaderStaffCodeKey = "staffCode"
	cookieStaffToken   = "orderwizardStaffToken"
)

type Auth interface {
	Login(w http.ResponseWriter, r *http.Request)
	Middleware(h http.HandlerFunc) http.HandlerFunc
}

// Credentials - учетная запись оператора бэк-офиса. Управление персоналом
// вне области мастера: здесь одна пара логин/пароль из конфигурации.
type Credentials struct {
	Login    string
	Password string
}

type auth struct {
	tokens *token.Service
	creds  Credentials
}

func NewAuth(tokens *token.Service, creds Credentials) Auth {
	return &auth{tokens: tokens, creds: creds}
}

type loginJSONRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (a *auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Login != a.creds.Login || req.Password != a.creds.Password {
		http.Error(w, "wrong login or password", http.StatusUnauthorized)
		return
	}

	staffToken, err := a.tokens.Mint(req.Login)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieStaffToken,
		Value:    staffToken,
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Now().Add(24 * time.Hour),
	})
	w.WriteHeader(http.StatusOK)
}

func (a *auth) Middleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staffCode, err := a.getStaffCode(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		r.Header.Set(HeaderStaffCodeKey, staffCode)

		h.ServeHTTP(w, r)
	}
}

func (a *auth) getStaffCode(r *http.Request) (string, error) {
	tokenCookie, err := r.Cookie(cookieStaffToken)
	if err != nil {
		return "", err
	}
	return a.tokens.GetStaffCode(tokenCookie.Value)
}
