package directory

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
)

const sshaSaltLength = 8

// SSHAPassword хеширует пароль для атрибута userPassword в схеме {SSHA}:
// base64(sha1(password + salt) + salt).
func SSHAPassword(password string) (string, error) {
	salt := make([]byte, sshaSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	h := sha1.New()
	h.Write([]byte(password))
	h.Write(salt)

	return "{SSHA}" + base64.StdEncoding.EncodeToString(append(h.Sum(nil), salt...)), nil
}

// VerifySSHA проверяет пароль против хеша {SSHA}.
func VerifySSHA(hash, password string) (bool, error) {
	encoded, ok := strings.CutPrefix(hash, "{SSHA}")
	if !ok {
		return false, fmt.Errorf("unsupported password scheme: %s", hash)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false, err
	}
	if len(raw) <= sha1.Size {
		return false, fmt.Errorf("malformed SSHA hash")
	}

	digest, salt := raw[:sha1.Size], raw[sha1.Size:]

	h := sha1.New()
	h.Write([]byte(password))
	h.Write(salt)

	return subtle.ConstantTimeCompare(digest, h.Sum(nil)) == 1, nil
}
