// internal/form/csrf.go
//
// Forms subsystem: stateless CSRF tokens.
//
// Context
//   Every rendered form embeds a hidden `csrf_token`.  The token layout is:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(secret, nonce+unixMicro) )
//
//   •  nonce – 16 random bytes.
//   •  unixMicro – issue time, 8 bytes, big-endian.
//   •  HMAC – keyed with the process secret.
//
//   Verification checks the signature and the age window.  No server-side
//   storage is needed, so any instance can verify any other's token.
//
// Workflow
//   •  SetSecret(key)     → cmd/web installs the configured secret.
//   •  GenerateToken()    → renderer embeds the result.
//   •  VerifyToken(tok)   → constant-time verify; false on any failure.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	nonceBytes = 16
	tokenBytes = nonceBytes + 8 + sha256.Size
	tokenTTL   = 2 * time.Hour
	clockSkew  = time.Minute
)

var (
	secretMu  sync.RWMutex
	secretKey []byte
)

// SetSecret installs the HMAC key.  Keys shorter than 32 bytes are
// rejected and leave the current key in place.
func SetSecret(key []byte) bool {
	if len(key) < 32 {
		return false
	}
	secretMu.Lock()
	secretKey = append([]byte(nil), key...)
	secretMu.Unlock()
	return true
}

// GenerateToken creates a new CSRF token.  Call once per form render.
func GenerateToken() (string, error) {
	return generateAt(time.Now())
}

func generateAt(now time.Time) (string, error) {
	buf := make([]byte, nonceBytes+8, tokenBytes)
	if _, err := rand.Read(buf[:nonceBytes]); err != nil {
		return "", err
	}
	binary.BigEndian.PutUint64(buf[nonceBytes:], uint64(now.UnixMicro()))
	buf = append(buf, sign(buf)...)
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// VerifyToken returns true if tok passes HMAC and age checks.
func VerifyToken(tok string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}
	body, sig := raw[:nonceBytes+8], raw[nonceBytes+8:]

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(body[nonceBytes:])))
	if time.Since(issued) > tokenTTL || time.Until(issued) > clockSkew {
		return false
	}
	return hmac.Equal(sig, sign(body))
}

func sign(body []byte) []byte {
	mac := hmac.New(sha256.New, secret())
	mac.Write(body)
	return mac.Sum(nil)
}

// secret returns the installed key, generating an ephemeral one on first
// use when SetSecret was never called.
func secret() []byte {
	secretMu.RLock()
	k := secretKey
	secretMu.RUnlock()
	if k != nil {
		return k
	}

	secretMu.Lock()
	defer secretMu.Unlock()
	if secretKey == nil {
		secretKey = make([]byte, 32)
		_, _ = rand.Read(secretKey)
		zap.S().Warnw("csrf secret not configured, using ephemeral key")
	}
	return secretKey
}
