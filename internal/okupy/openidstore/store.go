// Хранилище состояния OpenID-провайдера поверх реляционной базы.
//
// Ассоциации разделяются с потребителями и живут ограниченное время,
// nonce одноразовы. Очистка устаревших записей выполняется периодическими
// задачами планировщика.
package openidstore

import (
	"time"

	"github.com/aisa-it/okupy/okupy.go/internal/okupy/dao"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NonceSkew - максимально допустимое расхождение метки nonce с текущим
// временем. Nonce за пределами окна отвергаются без обращения к базе.
const NonceSkew = 5 * time.Hour

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// StoreAssociation сохраняет ассоциацию. Записи только добавляются:
// повторный handle не перезаписывает прежнюю строку.
func (s *Store) StoreAssociation(serverURL string, assoc dao.Association) error {
	assoc.ID = dao.GenID()
	assoc.ServerURL = serverURL

	return s.db.Create(&assoc).Error
}

func (s *Store) associationFilter(serverURL string, handle string) *gorm.DB {
	query := s.db.Where("server_url = ?", serverURL)
	if handle != "" {
		query = query.Where("handle = ?", handle)
	}
	return query
}

// GetAssociation возвращает последнюю выданную ассоциацию по handle или,
// при пустом handle, по serverURL. Если найденная ассоциация истекла,
// удаляются все строки под тем же фильтром и возвращается nil.
func (s *Store) GetAssociation(serverURL string, handle string) (*dao.Association, error) {
	var assoc dao.Association
	if err := s.associationFilter(serverURL, handle).
		Order("issued desc").First(&assoc).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	if assoc.Expired(time.Now()) {
		if err := s.associationFilter(serverURL, handle).
			Delete(&dao.Association{}).Error; err != nil {
			return nil, err
		}
		return nil, nil
	}

	return &assoc, nil
}

// RemoveAssociation удаляет ассоциацию. Возвращает true независимо от
// того, существовала ли она.
func (s *Store) RemoveAssociation(serverURL string, handle string) (bool, error) {
	err := s.db.
		Where("server_url = ? AND handle = ?", serverURL, handle).
		Delete(&dao.Association{}).Error
	return err == nil, err
}

// UseNonce атомарно регистрирует nonce. Возвращает false для повторного
// nonce и для метки времени за пределами окна NonceSkew.
func (s *Store) UseNonce(serverURL string, timestamp int64, salt string) (bool, error) {
	now := time.Now().Unix()
	skew := int64(NonceSkew.Seconds())
	if timestamp < now-skew || timestamp > now+skew {
		return false, nil
	}

	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&dao.Nonce{
		ID:        dao.GenID(),
		ServerURL: serverURL,
		Timestamp: timestamp,
		Salt:      salt,
	})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

// CleanupNonces удаляет nonce за пределами окна NonceSkew.
func (s *Store) CleanupNonces() (int64, error) {
	now := time.Now().Unix()
	skew := int64(NonceSkew.Seconds())

	result := s.db.
		Where("timestamp < ? OR timestamp > ?", now-skew, now+skew).
		Delete(&dao.Nonce{})
	return result.RowsAffected, result.Error
}

// CleanupAssociations удаляет истекшие ассоциации.
func (s *Store) CleanupAssociations() (int64, error) {
	result := s.db.
		Where("issued + lifetime < ?", time.Now().Unix()).
		Delete(&dao.Association{})
	return result.RowsAffected, result.Error
}
