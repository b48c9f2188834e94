// Пакет directory определяет интерфейс каталога учетных записей (LDAP).
//
// Каталог является авторитетным хранилищем учетных данных и профильных
// атрибутов. Все компоненты приложения зависят от внедряемого интерфейса
// Directory, а не от глобального клиента, что позволяет подменять каталог
// фейком в тестах без мутации общего состояния.
//
// Реализации:
//   - LdapDirectory (ldap.go) — каталог через LDAP
package directory

import "errors"

// ErrUnavailable возвращается, когда каталог недоступен. Недоступность
// отличима от отсутствия записи: поиск отсутствующей записи возвращает
// nil без ошибки.
var ErrUnavailable = errors.New("can't contact LDAP server")

// Record - запись каталога: DN и набор атрибутов.
type Record struct {
	DN         string
	Attributes map[string][]string
}

// Attr возвращает первое значение атрибута или пустую строку.
func (r *Record) Attr(name string) string {
	if vals := r.Attributes[name]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

type Directory interface {
	// FindByUsername ищет запись по uid. Возвращает nil, nil если записи
	// нет; ошибку - только при недоступности каталога.
	FindByUsername(username string) (*Record, error)

	// FindByEmail ищет запись по атрибуту mail. Контракт как у FindByUsername.
	FindByEmail(email string) (*Record, error)

	// Create добавляет новую запись в поддерево людей.
	Create(r Record) error

	// NextUidNumber возвращает max(uidNumber)+1 по поддереву или 1, если
	// поддерево пусто. Чтение и последующее создание не атомарны:
	// одновременные активации могут получить одинаковый номер.
	NextUidNumber() (int, error)

	// Bind выполняет аутентификацию кандидата. false без ошибки означает
	// неверные учетные данные или неизвестного пользователя.
	Bind(username, password string) (bool, error)

	// UserDN возвращает DN записи пользователя по uid.
	UserDN(username string) string
}
