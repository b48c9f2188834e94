package directory

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/go-ldap/ldap/v3"
)

// LdapDirectory - каталог через LDAP. Соединение открывается на каждую
// операцию и закрывается по ее завершении.
type LdapDirectory struct {
	serverAdr *url.URL
	adminUsr  string
	adminPwd  string

	organization string
}

func InitLDAP(serverAdr *url.URL, adminUsr string, adminPwd string, organization string) *LdapDirectory {
	return &LdapDirectory{
		serverAdr:    serverAdr,
		adminUsr:     adminUsr,
		adminPwd:     adminPwd,
		organization: organization,
	}
}

// PeopleDN возвращает DN поддерева людей.
func (ld *LdapDirectory) PeopleDN() string {
	return fmt.Sprintf("ou=people,o=%s", ld.organization)
}

// UserDN возвращает DN записи пользователя по uid.
func (ld *LdapDirectory) UserDN(username string) string {
	return fmt.Sprintf("uid=%s,%s", username, ld.PeopleDN())
}

func (ld *LdapDirectory) connect() (*ldap.Conn, error) {
	l, err := ldap.DialURL(ld.serverAdr.String())
	if err != nil {
		slog.Error("Dial LDAP", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := l.StartTLS(&tls.Config{InsecureSkipVerify: true}); err != nil {
		slog.Debug("Start LDAP TLS", "err", err)
	}

	if err := l.Bind(ld.adminUsr, ld.adminPwd); err != nil {
		slog.Error("LDAP bind admin user", "err", err)
		l.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return l, nil
}

func (ld *LdapDirectory) search(filter string, attributes []string) ([]*ldap.Entry, error) {
	l, err := ld.connect()
	if err != nil {
		return nil, err
	}
	defer l.Close()

	searchRequest := ldap.NewSearchRequest(
		ld.PeopleDN(),
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		filter,
		attributes,
		nil,
	)

	sr, err := l.Search(searchRequest)
	if err != nil {
		// Отсутствующее поддерево эквивалентно пустому.
		if ldapErr, ok := err.(*ldap.Error); ok && ldapErr.ResultCode == ldap.LDAPResultNoSuchObject {
			return nil, nil
		}
		slog.Error("LDAP search", "filter", searchRequest.Filter, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return sr.Entries, nil
}

func (ld *LdapDirectory) findOne(filter string) (*Record, error) {
	entries, err := ld.search(filter, nil)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	entry := entries[0]
	attributes := make(map[string][]string, len(entry.Attributes))
	for _, attr := range entry.Attributes {
		attributes[attr.Name] = attr.Values
	}

	return &Record{DN: entry.DN, Attributes: attributes}, nil
}

func (ld *LdapDirectory) FindByUsername(username string) (*Record, error) {
	return ld.findOne(fmt.Sprintf("(uid=%s)", ldap.EscapeFilter(username)))
}

func (ld *LdapDirectory) FindByEmail(email string) (*Record, error) {
	return ld.findOne(fmt.Sprintf("(mail=%s)", ldap.EscapeFilter(email)))
}

func (ld *LdapDirectory) Create(r Record) error {
	l, err := ld.connect()
	if err != nil {
		return err
	}
	defer l.Close()

	addRequest := ldap.NewAddRequest(r.DN, nil)
	for name, values := range r.Attributes {
		addRequest.Attribute(name, values)
	}

	if err := l.Add(addRequest); err != nil {
		slog.Error("LDAP add", "dn", r.DN, "err", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

func (ld *LdapDirectory) NextUidNumber() (int, error) {
	entries, err := ld.search("(uidNumber=*)", []string{"uidNumber"})
	if err != nil {
		return 0, err
	}

	max := 0
	for _, entry := range entries {
		n, err := strconv.Atoi(entry.GetAttributeValue("uidNumber"))
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}

	return max + 1, nil
}

func (ld *LdapDirectory) Bind(username, password string) (bool, error) {
	record, err := ld.FindByUsername(username)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}

	l, err := ldap.DialURL(ld.serverAdr.String())
	if err != nil {
		slog.Error("Dial LDAP", "err", err)
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer l.Close()

	if err := l.StartTLS(&tls.Config{InsecureSkipVerify: true}); err != nil {
		slog.Debug("Start LDAP TLS", "err", err)
	}

	if err := l.Bind(record.DN, password); err != nil {
		if ldapErr, ok := err.(*ldap.Error); ok && ldapErr.ResultCode == 49 {
			return false, nil
		}
		slog.Error("LDAP bind", "err", err)
		return false, nil
	}

	return true, nil
}
