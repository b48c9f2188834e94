// Управление конфигурацией приложения из переменных окружения.
// Содержит структуру Config для хранения параметров и функцию ReadConfig для их загрузки из переменных окружения.
//
// Основные возможности:
//   - Загрузка конфигурации из переменных окружения с использованием тегов struct.
//   - Валидация обязательных переменных (SECRET_KEY, WEB_URL, LDAP-подключение).
//   - Маскировка секретных значений (passwords) в логах.
//   - Предоставление значений по умолчанию для LDAP-атрибутов и email-воркеров.
package config

import (
	"log/slog"
	"net/url"
	"os"
	"reflect"
	"strings"
)

type Config struct {
	// Ключ для подписи сессионных токенов и шифрования активационных
	// идентификаторов очереди. Первые 16 байт используются как AES-ключ.
	SecretKey string `env:"SECRET_KEY"`

	DatabaseDSN string `env:"DATABASE_URL"`

	WebURLRaw string `env:"WEB_URL"`
	WebURL    *url.URL

	LdapURLRaw       string `env:"LDAP_URL"`
	LdapURL          *url.URL
	LdapBindUser     string `env:"LDAP_BIND_USER"`
	LdapBindPassword string `env:"LDAP_BIND_PASSWORD"`
	LdapOrganization string `env:"LDAP_ORGANIZATION"`

	// Списки objectClass через запятую. Dev-классы добавляются к новым
	// учетным записям только при LdapProvisionDev.
	LdapUserObjectClasses string `env:"LDAP_USER_OBJECTCLASSES"`
	LdapDevObjectClasses  string `env:"LDAP_DEV_OBJECTCLASSES"`
	LdapProvisionDev      bool   `env:"LDAP_PROVISION_DEV"`

	LdapACLAttribute string `env:"LDAP_ACL_ATTRIBUTE"`
	LdapACLValue     string `env:"LDAP_ACL_VALUE"`
	LdapDefaultGid   string `env:"LDAP_DEFAULT_GID"`

	EmailHost          string `env:"EMAIL_HOST"`
	EmailUser          string `env:"EMAIL_HOST_USER"`
	EmailPassword      string `env:"EMAIL_HOST_PASSWORD"`
	EmailPort          int    `env:"EMAIL_PORT"`
	EmailFrom          string `env:"EMAIL_FROM"`
	EmailSubjectPrefix string `env:"EMAIL_SUBJECT_PREFIX"`
	EmailWorkers       int    `env:"EMAIL_WORKERS"`

	// Адрес оператора для писем об отказах внешних систем.
	OperatorEmail string `env:"OPERATOR_EMAIL"`
}

// ReadConfig загружает конфигурацию приложения из переменных окружения и выполняет валидацию.
// Обязательные переменные: SECRET_KEY, WEB_URL, LDAP_URL, LDAP_ORGANIZATION.
// Секретные значения маскируются в логах. Для необязательных параметров
// подставляются значения по умолчанию.
func ReadConfig() *Config {
	config := &Config{}

	envConfig("env", config)

	if len(config.SecretKey) < 16 {
		slog.Error("SECRET_KEY is required and must be at least 16 bytes")
		os.Exit(1)
	}

	if config.WebURLRaw == "" {
		slog.Error("WEB_URL is required")
		os.Exit(1)
	} else {
		var err error
		config.WebURL, err = url.Parse(config.WebURLRaw)
		if err != nil {
			slog.Error("WEB_URL incorrect", "err", err)
			os.Exit(1)
		}
	}

	if config.LdapURLRaw == "" {
		slog.Error("LDAP_URL is required")
		os.Exit(1)
	} else {
		var err error
		config.LdapURL, err = url.Parse(config.LdapURLRaw)
		if err != nil {
			slog.Error("LDAP_URL incorrect", "err", err)
			os.Exit(1)
		}
	}

	if config.LdapOrganization == "" {
		slog.Error("LDAP_ORGANIZATION is required")
		os.Exit(1)
	}

	if config.LdapUserObjectClasses == "" {
		config.LdapUserObjectClasses = "person,organizationalPerson,inetOrgPerson,posixAccount"
	}

	if config.LdapACLAttribute == "" {
		config.LdapACLAttribute = "gentooACL"
	}

	if config.LdapACLValue == "" {
		config.LdapACLValue = "user.group"
	}

	if config.LdapDefaultGid == "" {
		config.LdapDefaultGid = "100"
	}

	if config.EmailWorkers <= 0 {
		config.EmailWorkers = 5
	}

	return config
}

// UserObjectClasses возвращает список objectClass для новых учетных записей.
func (c *Config) UserObjectClasses() []string {
	return splitClasses(c.LdapUserObjectClasses)
}

// DevObjectClasses возвращает список дополнительных objectClass для dev-аккаунтов.
func (c *Config) DevObjectClasses() []string {
	return splitClasses(c.LdapDevObjectClasses)
}

func splitClasses(raw string) []string {
	if raw == "" {
		return nil
	}
	var classes []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			classes = append(classes, c)
		}
	}
	return classes
}

// Присваивает полям в переданной структуре значения переменных. Название переменной для каждого поля лежит в теге этого поля.
func envConfig(key string, s interface{}) {
	v := reflect.ValueOf(s).Elem()
	typeParam := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fName := typeParam.Field(i).Name
		fEnvTag := typeParam.Field(i).Tag.Get(key)

		if !Exist(fEnvTag) {
			continue
		}

		logValue := GetEnv(fEnvTag)
		if logValue == "" {
			continue
		}

		// Secure passwords in log
		if strings.Contains(strings.ToLower(fName), "pass") || strings.Contains(strings.ToLower(fName), "secret") || strings.Contains(strings.ToLower(fName), "token") {
			pass := strings.Split(GetEnv(fEnvTag), "")
			logValue = pass[0]
			for i := 1; i < len(pass)-1; i++ {
				logValue += "*"
			}
			logValue += pass[len(pass)-1]

		}
		slog.Info("Set config value",
			slog.String("key", typeParam.Name()+"."+fName),
			slog.String("value", logValue),
			slog.String("source", "ENVIRONMENT"),
		)

		switch v.Field(i).Interface().(type) {
		case string:
			v.Field(i).SetString(GetEnv(fEnvTag))
		case int:
			v.Field(i).SetInt(int64(GetIntEnv(fEnvTag)))
		case bool:
			v.Field(i).SetBool(GetBoolEnv(fEnvTag))
		}
	}
}
