package okupy

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/aisa-it/okupy/okupy.go/internal/okupy/config"
	"github.com/aisa-it/okupy/okupy.go/internal/okupy/dao"
	"github.com/aisa-it/okupy/okupy.go/internal/okupy/directory"
	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeDirectory - каталог в памяти для тестов обработчиков.
type fakeDirectory struct {
	records   map[string]*directory.Record
	passwords map[string]string
	down      bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		records:   make(map[string]*directory.Record),
		passwords: make(map[string]string),
	}
}

func (fd *fakeDirectory) addUser(username, email, password string, uidNumber int) {
	fd.records[username] = &directory.Record{
		DN: fd.UserDN(username),
		Attributes: map[string][]string{
			"uid":       {username},
			"mail":      {email},
			"uidNumber": {strconv.Itoa(uidNumber)},
		},
	}
	fd.passwords[username] = password
}

func (fd *fakeDirectory) FindByUsername(username string) (*directory.Record, error) {
	if fd.down {
		return nil, directory.ErrUnavailable
	}
	return fd.records[username], nil
}

func (fd *fakeDirectory) FindByEmail(email string) (*directory.Record, error) {
	if fd.down {
		return nil, directory.ErrUnavailable
	}
	for _, r := range fd.records {
		if r.Attr("mail") == email {
			return r, nil
		}
	}
	return nil, nil
}

func (fd *fakeDirectory) Create(r directory.Record) error {
	if fd.down {
		return directory.ErrUnavailable
	}
	fd.records[r.Attr("uid")] = &r
	return nil
}

func (fd *fakeDirectory) NextUidNumber() (int, error) {
	if fd.down {
		return 0, directory.ErrUnavailable
	}
	max := 0
	for _, r := range fd.records {
		if n, err := strconv.Atoi(r.Attr("uidNumber")); err == nil && n > max {
			max = n
		}
	}
	return max + 1, nil
}

func (fd *fakeDirectory) Bind(username, password string) (bool, error) {
	if fd.down {
		return false, directory.ErrUnavailable
	}
	if _, ok := fd.records[username]; !ok {
		return false, nil
	}
	return fd.passwords[username] == password, nil
}

func (fd *fakeDirectory) UserDN(username string) string {
	return fmt.Sprintf("uid=%s,ou=people,o=gentoo", username)
}

// fakeMailer фиксирует отправленные уведомления.
type fakeMailer struct {
	activations []struct {
		To    string
		Name  string
		Token string
	}
	operatorErrors []string
}

func (fm *fakeMailer) SendActivation(to string, firstName string, token string) error {
	fm.activations = append(fm.activations, struct {
		To    string
		Name  string
		Token string
	}{to, firstName, token})
	return nil
}

func (fm *fakeMailer) SendOperatorError(detail string) error {
	fm.operatorErrors = append(fm.operatorErrors, detail)
	return nil
}

func newTestConfig(t *testing.T) *config.Config {
	webURL, err := url.Parse("https://www.gentoo.org")
	require.NoError(t, err)

	return &config.Config{
		SecretKey:             "0123456789abcdef",
		WebURL:                webURL,
		LdapOrganization:      "gentoo",
		LdapUserObjectClasses: "person,organizationalPerson,inetOrgPerson,posixAccount",
		LdapACLAttribute:      "gentooACL",
		LdapACLValue:          "user.group",
		LdapDefaultGid:        "100",
		EmailSubjectPrefix:    "[gentoo] ",
		EmailWorkers:          1,
		OperatorEmail:         "operator@gentoo.org",
	}
}

func newTestServices(t *testing.T) (*Services, *echo.Echo, *fakeDirectory, *fakeMailer) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, dao.Migrate(db))

	fd := newFakeDirectory()
	fm := &fakeMailer{}

	e := echo.New()
	e.Validator = NewRequestValidator()

	s := &Services{
		db:           db,
		cfg:          newTestConfig(t),
		dir:          fd,
		emailService: fm,
	}

	return s, e, fd, fm
}

func postForm(e *echo.Echo, path string, form url.Values) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// closeDB симулирует недоступную базу.
func closeDB(t *testing.T, db *gorm.DB) {
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}
