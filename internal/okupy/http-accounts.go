// Регистрация и активация учетных записей.
//
// Основные возможности:
//   - Заявка на регистрацию с проверкой дубликатов в каталоге и очереди.
//   - Письмо со ссылкой активации, заявка ждет в очереди.
//   - Заведение записи в каталоге при переходе по ссылке активации.
package okupy

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aisa-it/okupy/okupy.go/internal/okupy/apierrors"
	"github.com/aisa-it/okupy/okupy.go/internal/okupy/dao"
	"github.com/aisa-it/okupy/okupy.go/internal/okupy/directory"
	"github.com/aisa-it/okupy/okupy.go/internal/okupy/tokens"
	"github.com/labstack/echo/v4"
)

type SignupRequest struct {
	Username       string `json:"username" form:"username" validate:"required,username"`
	FirstName      string `json:"first_name" form:"first_name" validate:"required,fullName"`
	LastName       string `json:"last_name" form:"last_name" validate:"required,fullName"`
	Email          string `json:"email" form:"email" validate:"required,email"`
	Password       string `json:"password" form:"password" validate:"required"`
	PasswordVerify string `json:"password_verify" form:"password_verify" validate:"required"`
}

func (s *Services) AddAccountServices(e *echo.Echo) {
	e.GET("/", s.index)
	e.POST("/signup/", s.signup)
	e.GET("/signup/", s.signupForm)
	e.GET("/activate/:token/", s.activate)
}

func (s *Services) index(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"name":    "okupy",
		"version": appVersion,
	})
}

func (s *Services) signupForm(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"fields": []string{"username", "first_name", "last_name", "email", "password", "password_verify"},
	})
}

func (s *Services) signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return EError(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return EError(c, err)
	}

	if req.Password != req.PasswordVerify {
		return EErrorDefined(c, apierrors.ErrPasswordsDontMatch)
	}

	// Порядок проверок фиксирован: сперва каталог, затем очередь.
	record, err := s.dir.FindByUsername(req.Username)
	if err != nil {
		return s.unavailable(c, apierrors.ErrLDAPUnavailable, err)
	}
	if record != nil {
		return EErrorDefined(c, apierrors.ErrUsernameExists)
	}

	record, err = s.dir.FindByEmail(req.Email)
	if err != nil {
		return s.unavailable(c, apierrors.ErrLDAPUnavailable, err)
	}
	if record != nil {
		return EErrorDefined(c, apierrors.ErrEmailExists)
	}

	exists, err := dao.QueueUsernameExists(s.db, req.Username)
	if err != nil {
		return s.unavailable(c, apierrors.ErrDatabaseUnavailable, err)
	}
	if exists {
		return EErrorDefined(c, apierrors.ErrAccountPending)
	}

	exists, err = dao.QueueEmailExists(s.db, req.Email)
	if err != nil {
		return s.unavailable(c, apierrors.ErrDatabaseUnavailable, err)
	}
	if exists {
		return EErrorDefined(c, apierrors.ErrAccountPending)
	}

	hash, err := directory.SSHAPassword(req.Password)
	if err != nil {
		return EError(c, err)
	}

	queued := dao.Queue{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  hash,
	}
	if err := s.db.Create(&queued).Error; err != nil {
		slog.Error("Queue signup", "username", req.Username, "err", err)
		return s.unavailable(c, apierrors.ErrDatabaseUnavailable, err)
	}

	token, err := tokens.Encode([]byte(s.cfg.SecretKey), queued.ID)
	if err != nil {
		return EError(c, err)
	}

	if err := s.emailService.SendActivation(queued.Email, queued.FirstName, token); err != nil {
		slog.Error("Send activation mail", "email", queued.Email, "err", err)
	}

	return c.JSON(http.StatusOK, Notification{
		Severity: apierrors.SeverityInfo,
		Message:  "You will shortly receive an activation mail",
	})
}

func (s *Services) activate(c echo.Context) error {
	id, err := tokens.Decode([]byte(s.cfg.SecretKey), c.Param("token"))
	if err != nil {
		return EErrorDefined(c, apierrors.ErrInvalidURL)
	}

	queued, err := dao.GetQueueByID(s.db, id)
	if err != nil {
		return s.unavailable(c, apierrors.ErrDatabaseUnavailable, err)
	}
	if queued == nil {
		return EErrorDefined(c, apierrors.ErrInvalidURL)
	}

	uidNumber, err := s.dir.NextUidNumber()
	if err != nil {
		return s.unavailable(c, apierrors.ErrLDAPUnavailable, err)
	}

	if err := s.dir.Create(s.newUserRecord(queued, uidNumber)); err != nil {
		return s.unavailable(c, apierrors.ErrLDAPUnavailable, err)
	}

	// Заявка выполнена, запись в каталоге заведена.
	if err := s.db.Delete(&dao.Queue{}, queued.ID).Error; err != nil {
		slog.Error("Delete queued signup", "id", queued.ID, "err", err)
	}

	return c.JSON(http.StatusOK, Notification{
		Severity: apierrors.SeveritySuccess,
		Message:  "Your account has been activated successfully",
	})
}

// Отказ внешней системы: оператор получает письмо с исходной ошибкой,
// пользователь - warning. Заявка при этом остается в очереди.
func (s *Services) unavailable(c echo.Context, defined apierrors.DefinedError, cause error) error {
	slog.Error(defined.Err, "err", cause)

	detail := defined.Err
	if cause != nil {
		detail = cause.Error()
	}
	if err := s.emailService.SendOperatorError(detail); err != nil {
		slog.Error("Send operator mail", "err", err)
	}

	return EErrorDefined(c, defined)
}

// newUserRecord собирает запись каталога для активированной заявки.
func (s *Services) newUserRecord(queued *dao.Queue, uidNumber int) directory.Record {
	fullName := fmt.Sprintf("%s %s", queued.FirstName, queued.LastName)

	objectClasses := s.cfg.UserObjectClasses()
	if s.cfg.LdapProvisionDev {
		objectClasses = append(objectClasses, s.cfg.DevObjectClasses()...)
	}

	return directory.Record{
		DN: s.dir.UserDN(queued.Username),
		Attributes: map[string][]string{
			"objectClass":        objectClasses,
			"uid":                {queued.Username},
			"userPassword":       {queued.Password},
			"mail":               {queued.Email},
			"givenName":          {queued.FirstName},
			"sn":                 {queued.LastName},
			"cn":                 {fullName},
			"gecos":              {fullName},
			"uidNumber":          {strconv.Itoa(uidNumber)},
			"gidNumber":          {s.cfg.LdapDefaultGid},
			"homeDirectory":      {"/home/" + queued.Username},
			s.cfg.LdapACLAttribute: {s.cfg.LdapACLValue},
		},
	}
}
