package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"

	"github.com/dmitrijs2005/cadete/internal/common"
)

// PasswordHasher hashes new passwords and verifies stored ones.
type PasswordHasher interface {
	Hash(password string) (string, error)

	// Verify reports whether password matches encoded. Unrecognised or
	// malformed encodings never match.
	Verify(encoded, password string) bool

	// NeedsRehash reports whether encoded should be replaced by Hash output.
	NeedsRehash(encoded string) bool

	// DummyVerify costs about as much as Verify and always fails. It keeps
	// the response time of unknown users close to that of known ones.
	DummyVerify(password string)
}

// Argon2Hasher produces Argon2id hashes in PHC string format:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
//
// and also verifies legacy bcrypt and Werkzeug pbkdf2/scrypt hashes.
type Argon2Hasher struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen int

	dummyOnce sync.Once
	dummy     string
}

// NewArgon2Hasher returns a hasher with t=1, m=64 MiB, p=4 and a 32-byte key.
func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 32, SaltLen: 16}
}

var b64 = base64.RawStdEncoding

func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := common.GenerateRandByteArray(h.SaltLen)
	key := argon2.IDKey([]byte(password), salt, h.Time, h.Memory, h.Threads, h.KeyLen)
	defer common.WipeByteArray(key)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.Memory, h.Time, h.Threads, b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

func (h *Argon2Hasher) Verify(encoded, password string) bool {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return verifyArgon2id(encoded, password)
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
	case strings.HasPrefix(encoded, "pbkdf2:"):
		return verifyWerkzeugPBKDF2(encoded, password)
	case strings.HasPrefix(encoded, "scrypt:"):
		return verifyWerkzeugScrypt(encoded, password)
	default:
		return false
	}
}

func (h *Argon2Hasher) NeedsRehash(encoded string) bool {
	p, ok := parseArgon2id(encoded)
	if !ok {
		return true
	}
	return p.memory != h.Memory || p.time != h.Time || p.threads != h.Threads || uint32(len(p.key)) != h.KeyLen
}

func (h *Argon2Hasher) DummyVerify(password string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = h.Hash("dummy password")
	})
	_ = h.Verify(h.dummy, password)
}

// IsHashed reports whether encoded is in one of the formats Verify accepts.
// Anything else is taken to be a legacy plaintext password.
func IsHashed(encoded string) bool {
	for _, prefix := range []string{"$argon2id$", "$2a$", "$2b$", "$2y$", "pbkdf2:", "scrypt:"} {
		if strings.HasPrefix(encoded, prefix) {
			return true
		}
	}
	return false
}

type argon2Params struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func parseArgon2id(encoded string) (*argon2Params, bool) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, false
	}

	p := &argon2Params{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, false
	}

	var err error
	if p.salt, err = b64.DecodeString(parts[4]); err != nil {
		return nil, false
	}
	if p.key, err = b64.DecodeString(parts[5]); err != nil || len(p.key) == 0 {
		return nil, false
	}

	return p, true
}

func verifyArgon2id(encoded, password string) bool {
	p, ok := parseArgon2id(encoded)
	if !ok || p.time == 0 || p.threads == 0 {
		return false
	}

	key := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	defer common.WipeByteArray(key)

	return subtle.ConstantTimeCompare(key, p.key) == 1
}

// Werkzeug default when the iteration count is omitted from the method.
const werkzeugPBKDF2Iterations = 260000

// verifyWerkzeugPBKDF2 checks "pbkdf2:sha256[:iterations]$salt$hexdigest".
func verifyWerkzeugPBKDF2(encoded, password string) bool {
	method, salt, digest, ok := splitWerkzeug(encoded)
	if !ok {
		return false
	}

	args := strings.Split(method, ":")
	if len(args) < 2 || len(args) > 3 || args[1] != "sha256" {
		return false
	}

	iterations := werkzeugPBKDF2Iterations
	if len(args) == 3 {
		n, err := strconv.Atoi(args[2])
		if err != nil || n <= 0 {
			return false
		}
		iterations = n
	}

	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, sha256.Size, sha256.New)
	return subtle.ConstantTimeCompare(key, digest) == 1
}

// verifyWerkzeugScrypt checks "scrypt:N:r:p$salt$hexdigest" with a 64-byte key.
func verifyWerkzeugScrypt(encoded, password string) bool {
	method, salt, digest, ok := splitWerkzeug(encoded)
	if !ok {
		return false
	}

	args := strings.Split(method, ":")
	n, r, p := 32768, 8, 1
	if len(args) == 4 {
		var err error
		if n, err = strconv.Atoi(args[1]); err != nil {
			return false
		}
		if r, err = strconv.Atoi(args[2]); err != nil {
			return false
		}
		if p, err = strconv.Atoi(args[3]); err != nil {
			return false
		}
	} else if len(args) != 1 {
		return false
	}

	key, err := scrypt.Key([]byte(password), []byte(salt), n, r, p, 64)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(key, digest) == 1
}

func splitWerkzeug(encoded string) (method, salt string, digest []byte, ok bool) {
	parts := strings.SplitN(encoded, "$", 3)
	if len(parts) != 3 || parts[1] == "" {
		return "", "", nil, false
	}

	digest, err := hex.DecodeString(parts[2])
	if err != nil || len(digest) == 0 {
		return "", "", nil, false
	}

	return parts[0], parts[1], digest, true
}
