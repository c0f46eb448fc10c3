package fakebackend

import (
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	userIDKey = "user_id"
)

var errTokenNotValid = errors.New("token_not_valid")

// Claims mirrors the claims SimpleJWT puts in its tokens
type Claims struct {
	TokenType  string `json:"token_type"`
	UserID     int    `json:"user_id"`
	Generation int    `json:"gen"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for userID. It is exported so tests can craft
// tokens with arbitrary lifetimes.
func (b *Backend) IssueToken(tokenType string, userID int, ttl time.Duration) (string, error) {
	b.mu.Lock()
	gen := b.accessGen
	if tokenType == tokenTypeRefresh {
		gen = b.refreshGen
	}
	b.mu.Unlock()

	now := time.Now()
	claims := Claims{
		TokenType:  tokenType,
		UserID:     userID,
		Generation: gen,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.opts.Secret)
}

func (b *Backend) verify(token, tokenType string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return b.opts.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, errors.New("token has wrong type")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	gen := b.accessGen
	if tokenType == tokenTypeRefresh {
		gen = b.refreshGen
	}
	if claims.Generation < gen {
		return nil, errors.New("token has been revoked")
	}
	if _, ok := b.accounts[claims.UserID]; !ok {
		return nil, errors.New("user not found")
	}
	return claims, nil
}

type obtainRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type registerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func (b *Backend) obtainToken(c echo.Context) error {
	atomic.AddInt32(&b.tokenCalls, 1)

	var req obtainRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	missing := fieldErrors{}
	if req.Username == "" {
		missing["username"] = []string{"This field is required."}
	}
	if req.Password == "" {
		missing["password"] = []string{"This field is required."}
	}
	if len(missing) > 0 {
		return missing
	}

	b.mu.Lock()
	acct := b.accountByUsername(req.Username)
	b.mu.Unlock()
	if acct == nil || acct.password != req.Password {
		return echo.NewHTTPError(http.StatusUnauthorized, "No active account found with the given credentials")
	}

	access, err := b.IssueToken(tokenTypeAccess, acct.user.ID, b.opts.AccessTTL)
	if err != nil {
		return err
	}
	refresh, err := b.IssueToken(tokenTypeRefresh, acct.user.ID, b.opts.RefreshTTL)
	if err != nil {
		return err
	}

	b.mu.Lock()
	now := time.Now().UTC()
	acct.user.LastLogin = &now
	b.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (b *Backend) refreshToken(c echo.Context) error {
	atomic.AddInt32(&b.refreshCalls, 1)

	var req refreshRequest
	if err := c.Bind(&req); err != nil || req.Refresh == "" {
		return fieldErrors{"refresh": []string{"This field is required."}}
	}

	claims, err := b.verify(req.Refresh, tokenTypeRefresh)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Token is invalid or expired").SetInternal(errTokenNotValid)
	}

	access, err := b.IssueToken(tokenTypeAccess, claims.UserID, b.opts.AccessTTL)
	if err != nil {
		return err
	}
	resp := map[string]string{"access": access}
	if b.opts.RotateRefresh {
		refresh, err := b.IssueToken(tokenTypeRefresh, claims.UserID, b.opts.RefreshTTL)
		if err != nil {
			return err
		}
		resp["refresh"] = refresh
	}
	return c.JSON(http.StatusOK, resp)
}

func (b *Backend) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	errs := fieldErrors{}
	switch {
	case req.Username == "":
		errs["username"] = []string{"This field is required."}
	case b.accountByUsername(req.Username) != nil:
		errs["username"] = []string{"Username is already taken."}
	}
	switch {
	case req.Email == "":
		errs["email"] = []string{"This field is required."}
	case !strings.Contains(req.Email, "@"):
		errs["email"] = []string{"Enter a valid email address."}
	default:
		for _, acct := range b.accounts {
			if acct.user.Email == req.Email {
				errs["email"] = []string{"Email is already registered."}
				break
			}
		}
	}
	switch {
	case req.Password == "":
		errs["password"] = []string{"This field is required."}
	case len(req.Password) < 6:
		errs["password"] = []string{"Ensure this field has at least 6 characters."}
	}
	if len(errs) > 0 {
		return errs
	}

	id := b.addAccount(SeedUser{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	user := b.accounts[id].user
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"id":         user.ID,
		"username":   user.Username,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"email":      user.Email,
		"role":       user.Role,
	})
}

// authenticate resolves the bearer token. A missing header is allowed
// when optional is set; a present but invalid token is always rejected.
func (b *Backend) authenticate(optional bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt32(&b.requests, 1)

			header := c.Request().Header.Get("Authorization")
			if header == "" {
				if optional && isSafeMethod(c.Request().Method) {
					return next(c)
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication credentials were not provided.")
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication credentials were not provided.")
			}
			claims, err := b.verify(token, tokenTypeAccess)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Given token not valid for any token type").SetInternal(errTokenNotValid)
			}
			c.Set(userIDKey, claims.UserID)
			return next(c)
		}
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

func currentUserID(c echo.Context) int {
	id, _ := c.Get(userIDKey).(int)
	return id
}
