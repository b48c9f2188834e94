// DAO (Data Access Object) для работы с локальными записями пользователей.
//
// Локальная запись создается при первом успешном входе через каталог и
// зеркалирует профильные атрибуты LDAP. Авторитетным хранилищем учетных
// данных остается каталог: локальный пароль непригоден для входа.
package dao

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// UnusablePassword - значение локального пароля, которое заведомо не
// совпадет ни с одним хешем. Вход всегда идет через каталог.
const UnusablePassword = "!"

// Пользователи
type User struct {
	ID string `gorm:"column:id;primaryKey;type:text" json:"id"`

	Username string `json:"username" gorm:"uniqueIndex" validate:"required,username"`
	Email    string `json:"email" gorm:"index"`
	Password string `json:"-"`

	FirstName string `json:"first_name" validate:"omitempty,fullName"`
	LastName  string `json:"last_name" validate:"omitempty,fullName"`

	IsActive bool `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"-"`
	LastLogin *time.Time `json:"last_login" extensions:"x-nullable"`
}

func (User) TableName() string { return "users" }

// HasUsablePassword сообщает, пригоден ли локальный пароль для проверки.
func (u User) HasUsablePassword() bool {
	return u.Password != "" && u.Password != UnusablePassword
}

// GetUserByUsername возвращает локальную запись или nil, если ее нет.
func GetUserByUsername(db *gorm.DB, username string) (*User, error) {
	var user User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetOrCreateUser возвращает локальную запись пользователя, создавая ее
// при первом входе с непригодным паролем и пустыми профильными полями.
// Каталог при этом не опрашивается.
func GetOrCreateUser(db *gorm.DB, username string) (*User, error) {
	user, err := GetUserByUsername(db, username)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	user = &User{
		ID:       GenID(),
		Username: username,
		Password: UnusablePassword,
	}
	if err := db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// TouchLastLogin отмечает момент успешного входа.
func TouchLastLogin(db *gorm.DB, user *User) error {
	now := time.Now()
	user.LastLogin = &now
	return db.Model(user).Update("last_login", now).Error
}
