package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	memory   = 64 * 1024
	timeCost = 3
	threads  = 2
	saltLen  = 16
	keyLen   = 32
)

var ErrInvalidPassword = errors.New("invalid_password")

// Hash derives an argon2id hash in the standard encoded form.
func Hash(plain string) (string, error) {
	if strings.TrimSpace(plain) == "" {
		return "", ErrInvalidPassword
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(plain), salt, timeCost, memory, threads, keyLen)
	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory,
		timeCost,
		threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks a plain password against an encoded argon2id hash.
func Verify(plain, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return false
	}

	var m uint32
	var t uint32
	var p uint8
	{
		params := strings.Split(parts[3], ",")
		if len(params) != 3 {
			return false
		}

		mv, ok := strings.CutPrefix(params[0], "m=")
		if !ok {
			return false
		}
		tv, ok := strings.CutPrefix(params[1], "t=")
		if !ok {
			return false
		}
		pv, ok := strings.CutPrefix(params[2], "p=")
		if !ok {
			return false
		}

		m64, err := strconv.ParseUint(mv, 10, 32)
		if err != nil {
			return false
		}
		t64, err := strconv.ParseUint(tv, 10, 32)
		if err != nil {
			return false
		}
		p64, err := strconv.ParseUint(pv, 10, 8)
		if err != nil {
			return false
		}

		m = uint32(m64)
		t = uint32(t64)
		p = uint8(p64)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	check := argon2.IDKey([]byte(plain), salt, t, m, p, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, check) == 1
}
