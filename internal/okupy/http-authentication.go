// Аутентификация пользователей через каталог LDAP.
//
// Основные возможности:
//   - Вход по логину и паролю каталога, без локальной проверки пароля.
//   - Локальная зеркальная запись создается при первом успешном входе.
//   - Сессионный токен JWT в httpOnly-куке, с продлением по флагу remember.
package okupy

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aisa-it/okupy/okupy.go/internal/okupy/apierrors"
	"github.com/aisa-it/okupy/okupy.go/internal/okupy/dao"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Сроки жизни сессионного токена.
const (
	SessionExpiresPeriod  = time.Hour * 12
	RememberExpiresPeriod = time.Hour * 24 * 30
)

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	Remember bool   `json:"remember" form:"remember"`
}

func (s *Services) AddAuthenticationServices(e *echo.Echo) {
	e.GET("/login/", s.loginForm)
	e.POST("/login/", s.login)
	e.POST("/logout/", s.logout)
}

func (s *Services) loginForm(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"fields": []string{"username", "password", "remember"},
	})
}

func (s *Services) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	req.Username = strings.TrimSpace(req.Username)

	if req.Username == "" || req.Password == "" {
		fields := make(map[string]string)
		if req.Username == "" {
			fields["username"] = "This field is required."
		}
		if req.Password == "" {
			fields["password"] = "This field is required."
		}
		return EErrorFields(c, apierrors.ErrLoginFailed, fields)
	}

	ok, err := s.dir.Bind(req.Username, req.Password)
	if err != nil {
		// Недоступный каталог не раскрывается, вход просто не проходит.
		slog.Error("Directory bind", "err", err)
		return EErrorDefined(c, apierrors.ErrLoginFailed)
	}
	if !ok {
		return EErrorDefined(c, apierrors.ErrLoginFailed)
	}

	user, err := dao.GetOrCreateUser(s.db, req.Username)
	if err != nil {
		slog.Error("Local user record", "username", req.Username, "err", err)
		return EErrorDefined(c, apierrors.ErrDatabaseUnavailable)
	}

	if err := dao.TouchLastLogin(s.db, user); err != nil {
		return EErrorDefined(c, apierrors.ErrDatabaseUnavailable)
	}

	expiresPeriod := SessionExpiresPeriod
	if req.Remember {
		expiresPeriod = RememberExpiresPeriod
	}

	token, err := GenJwtToken([]byte(s.cfg.SecretKey), user.ID, expiresPeriod)
	if err != nil {
		return EError(c, err)
	}

	setAuthCookie(c, token, expiresPeriod)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user": user,
	})
}

func (s *Services) logout(c echo.Context) error {
	clearAuthCookie(c)
	return c.NoContent(http.StatusOK)
}

type Token struct {
	JWT          *jwt.Token
	SignedString string
}

// Генерация JWT ключа
func GenJwtToken(secret []byte, userId string, expiresPeriod time.Duration) (*Token, error) {
	u, _ := uuid.NewV4()
	claims := jwt.MapClaims{
		"exp":     jwt.NewNumericDate(time.Now().Add(expiresPeriod)),
		"iat":     jwt.NewNumericDate(time.Now()),
		"jti":     fmt.Sprintf("%x", u),
		"user_id": userId,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedString, err := token.SignedString(secret)
	if err != nil {
		return nil, err
	}

	return &Token{
		JWT:          token,
		SignedString: signedString,
	}, nil
}

func setAuthCookie(c echo.Context, token *Token, expiresPeriod time.Duration) {
	cookie := new(http.Cookie)
	cookie.Name = "session_token"
	cookie.Value = token.SignedString
	cookie.HttpOnly = true
	cookie.Secure = true
	cookie.Path = "/"
	cookie.SameSite = http.SameSiteNoneMode
	cookie.Expires = time.Now().Add(expiresPeriod)
	c.SetCookie(cookie)
}

func clearAuthCookie(c echo.Context) {
	cookie := new(http.Cookie)
	cookie.Name = "session_token"
	cookie.Value = ""
	cookie.HttpOnly = true
	cookie.Secure = true
	cookie.Path = "/"
	cookie.SameSite = http.SameSiteNoneMode
	cookie.MaxAge = -1
	c.SetCookie(cookie)
}
