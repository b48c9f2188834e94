// DAO очереди регистрации.
//
// Заявка попадает в очередь после проверки дубликатов и ждет перехода по
// ссылке активации из письма. Первичный ключ заявки обратимо шифруется в
// активационный токен, поэтому тип ключа фиксирован как uint64.
package dao

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Заявки на регистрацию
type Queue struct {
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`

	Username  string `json:"username" gorm:"uniqueIndex" validate:"required,username"`
	FirstName string `json:"first_name" validate:"required,fullName"`
	LastName  string `json:"last_name" validate:"required,fullName"`
	Email     string `json:"email" gorm:"uniqueIndex" validate:"required,email"`

	// Хеш пароля в схеме {SSHA}, переносится в userPassword при активации.
	Password string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (Queue) TableName() string { return "queue" }

// QueueUsernameExists проверяет наличие заявки с таким username.
func QueueUsernameExists(db *gorm.DB, username string) (bool, error) {
	var count int64
	if err := db.Model(&Queue{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// QueueEmailExists проверяет наличие заявки с таким email.
func QueueEmailExists(db *gorm.DB, email string) (bool, error) {
	var count int64
	if err := db.Model(&Queue{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetQueueByID возвращает заявку или nil, если ее нет.
func GetQueueByID(db *gorm.DB, id uint64) (*Queue, error) {
	var q Queue
	if err := db.First(&q, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}
