package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrMalformedHash is returned when a stored credential cannot be
// parsed as an argon2id PHC string.
var ErrMalformedHash = errors.New("malformed password hash")

// hashParams carries the argon2id cost settings an encoded hash was
// produced with. Each stored hash keeps its own parameters, so costs
// can be raised for new accounts without invalidating old credentials.
type hashParams struct {
	memory  uint32
	time    uint32
	threads uint8
	saltLen uint32
	keyLen  uint32
}

// defaultHashParams is what new owner passwords are hashed with.
// 64 MiB, 3 passes, 1 lane tracks the OWASP argon2id guidance.
var defaultHashParams = hashParams{
	memory:  64 * 1024,
	time:    3,
	threads: 1,
	saltLen: 16,
	keyLen:  32,
}

// HashPassword derives an argon2id hash for an owner password and
// returns it in PHC form: $argon2id$v=19$m=...,t=...,p=...$salt$key.
func HashPassword(password string) (string, error) {
	p := defaultHashParams

	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
	return encodeHash(p, salt, key), nil
}

// VerifyPassword reports whether password matches the stored PHC hash,
// re-deriving with the parameters recorded in the hash itself. The
// comparison is constant time.
func VerifyPassword(password, encoded string) (bool, error) {
	p, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func encodeHash(p hashParams, salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

// decodeHash splits a PHC string into cost parameters, salt and key.
// Only argon2id at the library's current version is accepted.
func decodeHash(encoded string) (hashParams, []byte, []byte, error) {
	var p hashParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" { //nolint:mnd // PHC format has exactly 6 $-delimited parts
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, nil, nil, fmt.Errorf("%w: bad cost parameters %q", ErrMalformedHash, parts[3])
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: decoding salt: %v", ErrMalformedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: decoding key: %v", ErrMalformedHash, err)
	}

	p.keyLen = uint32(len(key)) //nolint:gosec // G115: derived keys are 32 bytes
	return p, salt, key, nil
}
