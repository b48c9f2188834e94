package okupy

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/aisa-it/okupy/okupy.go/internal/okupy/dao"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginForm(username, password string) url.Values {
	return url.Values{
		"username": {username},
		"password": {password},
	}
}

func sessionCookie(rec interface{ Result() *http.Response }) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session_token" {
			return c
		}
	}
	return nil
}

func TestLoginSuccess(t *testing.T) {
	s, e, fd, _ := newTestServices(t)
	fd.addUser("larry", "larry@gentoo.org", "s3cret", 1000)

	c, rec := postForm(e, "/login/", loginForm("larry", "s3cret"))
	require.NoError(t, s.login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	// Локальная запись создана с непригодным паролем и пустым профилем:
	// каталог нужен только для bind, атрибуты из него не переносятся.
	user, err := dao.GetUserByUsername(s.db, "larry")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, dao.UnusablePassword, user.Password)
	assert.False(t, user.HasUsablePassword())
	assert.Equal(t, "", user.Email)
	assert.Equal(t, "", user.FirstName)
	assert.Equal(t, "", user.LastName)
	assert.NotNil(t, user.LastLogin)
}

func TestLoginTrimsUsername(t *testing.T) {
	s, e, fd, _ := newTestServices(t)
	fd.addUser("larry", "larry@gentoo.org", "s3cret", 1000)

	c, rec := postForm(e, "/login/", loginForm("  larry  ", "s3cret"))
	require.NoError(t, s.login(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginUnicodeUsername(t *testing.T) {
	s, e, fd, _ := newTestServices(t)
	fd.addUser("dreßler", "dressler@gentoo.org", "s3cret", 1001)

	c, rec := postForm(e, "/login/", loginForm("dreßler", "s3cret"))
	require.NoError(t, s.login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	user, err := dao.GetUserByUsername(s.db, "dreßler")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "dreßler", user.Username)
}

func TestLoginWrongPassword(t *testing.T) {
	s, e, fd, _ := newTestServices(t)
	fd.addUser("larry", "larry@gentoo.org", "s3cret", 1000)

	c, rec := postForm(e, "/login/", loginForm("larry", "wrong"))
	require.NoError(t, s.login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login failed")
	assert.Nil(t, sessionCookie(rec))
}

func TestLoginUnknownUser(t *testing.T) {
	s, e, _, _ := newTestServices(t)

	c, rec := postForm(e, "/login/", loginForm("nobody", "s3cret"))
	require.NoError(t, s.login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login failed")
}

func TestLoginMissingFields(t *testing.T) {
	s, e, _, _ := newTestServices(t)

	for _, form := range []url.Values{
		loginForm("", "s3cret"),
		loginForm("larry", ""),
		loginForm("   ", "s3cret"),
	} {
		c, rec := postForm(e, "/login/", form)
		require.NoError(t, s.login(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Login failed")
		assert.Contains(t, rec.Body.String(), "This field is required.")
	}
}

func TestLoginDirectoryDown(t *testing.T) {
	s, e, fd, _ := newTestServices(t)
	fd.addUser("larry", "larry@gentoo.org", "s3cret", 1000)
	fd.down = true

	// Локальная запись с совпадающим паролем не дает входа мимо каталога.
	require.NoError(t, s.db.Create(&dao.User{
		ID:       dao.GenID(),
		Username: "larry",
		Email:    "larry@gentoo.org",
		Password: "s3cret",
	}).Error)

	c, rec := postForm(e, "/login/", loginForm("larry", "s3cret"))
	require.NoError(t, s.login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login failed")
	assert.Nil(t, sessionCookie(rec))
}

func TestLoginSecondVisitReusesRecord(t *testing.T) {
	s, e, fd, _ := newTestServices(t)
	fd.addUser("larry", "larry@gentoo.org", "s3cret", 1000)

	for i := 0; i < 2; i++ {
		c, rec := postForm(e, "/login/", loginForm("larry", "s3cret"))
		require.NoError(t, s.login(c))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	var count int64
	require.NoError(t, s.db.Model(&dao.User{}).Where("username = ?", "larry").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestLoginRememberExtendsSession(t *testing.T) {
	s, e, fd, _ := newTestServices(t)
	fd.addUser("larry", "larry@gentoo.org", "s3cret", 1000)

	form := loginForm("larry", "s3cret")
	form.Set("remember", "true")

	c, rec := postForm(e, "/login/", form)
	require.NoError(t, s.login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.Expires.After(time.Now().Add(29*24*time.Hour)))
}

func TestLogoutClearsCookie(t *testing.T) {
	s, e, _, _ := newTestServices(t)

	c, rec := postForm(e, "/logout/", url.Values{})
	require.NoError(t, s.logout(c))
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, "", cookie.Value)
	assert.Equal(t, -1, cookie.MaxAge)
}
