// DAO (Data Access Object) - предоставляет интерфейс для взаимодействия с базой данных.
// Содержит модели локальных учетных записей, очереди регистрации и хранилища OpenID.
//
// Основные возможности:
//   - Локальные записи пользователей, зеркалирующие каталог LDAP.
//   - Очередь регистрации с ожиданием активации по email.
//   - Ассоциации и nonce протокола OpenID.
package dao

import (
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// GenID генерирует уникальный идентификатор в формате UUID.
// Не принимает параметров и возвращает строку, представляющую собой UUID.
func GenID() string {
	u2, _ := uuid.NewV4()
	return u2.String()
}

// GenUUID генерирует уникальный идентификатор в формате UUID. Не принимает параметров и возвращает UUID.
//
// Возвращает:
//   - uuid.UUID: UUID, представляющий собой уникальный идентификатор.
func GenUUID() uuid.UUID {
	u2, _ := uuid.NewV4()
	return u2
}

// Migrate создает или обновляет схему всех моделей приложения.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Queue{},
		&Association{},
		&Nonce{},
	)
}
