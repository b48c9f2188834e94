// Пакет для валидации данных форм okupy. Использует библиотеку
// go-playground/validator и регулярные выражения для проверки формата
// имен пользователей и полных имен.
package okupy

import (
	"regexp"
	"unicode/utf8"

	"github.com/go-playground/validator"
)

type RequestValidator struct {
	validator *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	if err := v.RegisterValidation("username", usernameValidator); err != nil {
		return nil
	}
	if err := v.RegisterValidation("fullName", fullNameValidator); err != nil {
		return nil
	}
	return &RequestValidator{v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	if err := rv.validator.Struct(i); err != nil {
		_, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil
		}
		return err
	}
	return nil
}

// Буквы любых алфавитов, цифры и @.+-_ как в uid каталога.
func usernameValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	lenStr := utf8.RuneCountInString(value)
	if !validUsernameRe.MatchString(value) {
		return false
	}
	return lenStr >= 1 && lenStr <= 100
}

func fullNameValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	lenStr := utf8.RuneCountInString(value)
	if !validFullNameRe.MatchString(value) {
		return false
	}
	return lenStr >= 1 && lenStr <= 100
}

var (
	validUsernameRe = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
	validFullNameRe = regexp.MustCompile(`^[\p{L}\p{N} '.-]+$`)
)
