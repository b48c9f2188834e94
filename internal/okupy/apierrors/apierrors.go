// Пакет содержит определения ошибок, используемых в приложении okupy для обработки ситуаций,
// возникающих при работе с каталогом LDAP, реляционной базой и пользовательскими формами.
// Каждая ошибка имеет код, статус HTTP, уровень важности и описание, что позволяет удобно
// обрабатывать исключения и предоставлять информативные сообщения пользователю.
//
// Основные возможности:
//   - Определение типов ошибок, связанных с входом, регистрацией и активацией учетных записей.
//   - Предоставление кодов ошибок, соответствующих кодам HTTP статусов.
//   - Теги важности (info/success/warning/error) для отображения уведомлений.
//   - Функция для форматирования сообщений об ошибках с использованием аргументов.
package apierrors

import (
	"fmt"
	"net/http"
)

// Уровни важности пользовательских уведомлений.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

type DefinedError struct {
	Code       int    `json:"code"`
	StatusCode int    `json:"-"`
	Severity   string `json:"severity"`
	Err        string `json:"error"`
}

func (e DefinedError) Error() string {
	return e.Err
}

func (e DefinedError) WithFormattedMessage(a ...interface{}) DefinedError {
	e.Err = fmt.Sprintf(e.Err, a...)
	return e
}

var (
	// 1*** - auth errors
	ErrLoginFailed = DefinedError{Code: 1001, StatusCode: http.StatusUnauthorized, Severity: SeverityError, Err: "Login failed"}

	// 2*** - signup errors
	ErrPasswordsDontMatch = DefinedError{Code: 2001, StatusCode: http.StatusBadRequest, Severity: SeverityWarning, Err: "Passwords don't match"}
	ErrUsernameExists     = DefinedError{Code: 2002, StatusCode: http.StatusConflict, Severity: SeverityWarning, Err: "Username already exists"}
	ErrEmailExists        = DefinedError{Code: 2003, StatusCode: http.StatusConflict, Severity: SeverityWarning, Err: "Email already exists"}
	ErrAccountPending     = DefinedError{Code: 2004, StatusCode: http.StatusConflict, Severity: SeverityWarning, Err: "Account is already pending activation"}

	// 3*** - activation errors
	ErrInvalidURL = DefinedError{Code: 3001, StatusCode: http.StatusNotFound, Severity: SeverityWarning, Err: "Invalid URL"}

	// 4*** - collaborator availability errors
	ErrLDAPUnavailable     = DefinedError{Code: 4001, StatusCode: http.StatusServiceUnavailable, Severity: SeverityWarning, Err: "Can't contact LDAP server"}
	ErrDatabaseUnavailable = DefinedError{Code: 4002, StatusCode: http.StatusServiceUnavailable, Severity: SeverityWarning, Err: "Can't contact the database"}

	// 9*** - generic
	ErrGeneric = DefinedError{Code: 9001, StatusCode: http.StatusInternalServerError, Severity: SeverityError, Err: "Something went wrong. Please try again later"}
)
