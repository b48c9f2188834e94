// DAO хранилища протокола OpenID: ассоциации с потребителями и nonce.
package dao

import "time"

// Ассоциации OpenID. Уникальность пары (server_url, handle) не
// навязывается: несколько ассоциаций могут сосуществовать, читается
// последняя выданная.
type Association struct {
	ID string `gorm:"column:id;primaryKey;type:text" json:"id"`

	ServerURL string `json:"server_url" gorm:"index"`
	Handle    string `json:"handle" gorm:"index"`

	Secret    []byte `json:"-"`
	Issued    int64  `json:"issued"`
	Lifetime  int32  `json:"lifetime"`
	AssocType string `json:"assoc_type"`

	CreatedAt time.Time `json:"created_at"`
}

func (Association) TableName() string { return "openid_associations" }

// Expired сообщает, истек ли срок жизни ассоциации на момент now.
func (a Association) Expired(now time.Time) bool {
	return a.Issued+int64(a.Lifetime) < now.Unix()
}

// Nonce OpenID, защита от повторного использования ответа провайдера.
// Тройка (server_url, timestamp, salt) уникальна.
type Nonce struct {
	ID string `gorm:"column:id;primaryKey;type:text" json:"id"`

	ServerURL string `json:"server_url" gorm:"index:idx_nonce,unique"`
	Timestamp int64  `json:"timestamp" gorm:"index:idx_nonce,unique"`
	Salt      string `json:"salt" gorm:"index:idx_nonce,unique"`

	CreatedAt time.Time `json:"created_at"`
}

func (Nonce) TableName() string { return "openid_nonces" }
