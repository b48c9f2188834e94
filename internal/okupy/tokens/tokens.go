// Кодек активационных идентификаторов очереди регистрации.
//
// Первичный ключ записи очереди обратимо шифруется в непрозрачный URL-safe
// токен фиксированной длины, по которому запись можно найти без
// дополнительного индекса. Один блок AES-128 кодируется в base64 без
// паддинга, что дает ровно 22 символа алфавита [A-Za-z0-9_-].
package tokens

import (
	"crypto/aes"
	"encoding/base64"
	"encoding/binary"
	"errors"
)

// TokenLength - длина активационного токена в символах.
const TokenLength = 22

var ErrInvalidToken = errors.New("invalid activation token")

// Первые 8 байт блока фиксированы нулями: после расшифровки они служат
// проверкой целостности токена.
func pack(id uint64) []byte {
	block := make([]byte, aes.BlockSize)
	binary.BigEndian.PutUint64(block[8:], id)
	return block
}

// Encode шифрует первичный ключ записи очереди в 22-символьный токен.
// Используются первые 16 байт ключа key (AES-128).
func Encode(key []byte, id uint64) (string, error) {
	c, err := aes.NewCipher(key[:aes.BlockSize])
	if err != nil {
		return "", err
	}

	src := pack(id)
	dst := make([]byte, aes.BlockSize)
	c.Encrypt(dst, src)

	return base64.RawURLEncoding.EncodeToString(dst), nil
}

// Decode восстанавливает первичный ключ из токена. Возвращает
// ErrInvalidToken для токенов неверной длины, алфавита или с нарушенным
// паддингом.
func Decode(key []byte, token string) (uint64, error) {
	if len(token) != TokenLength {
		return 0, ErrInvalidToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != aes.BlockSize {
		return 0, ErrInvalidToken
	}

	c, err := aes.NewCipher(key[:aes.BlockSize])
	if err != nil {
		return 0, err
	}

	dst := make([]byte, aes.BlockSize)
	c.Decrypt(dst, raw)

	for _, b := range dst[:8] {
		if b != 0 {
			return 0, ErrInvalidToken
		}
	}

	return binary.BigEndian.Uint64(dst[8:]), nil
}
