package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen is the shortest password accepted at sign-up.
const MinPasswordLen = 8

var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLen {
		return "", ErrPasswordTooShort
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash string, password string) bool {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Claims is the payload of a session token.
type Claims struct {
	UserID string `json:"uid"`
	Exp    int64  `json:"exp"`
}

// SignToken returns "v1.<base64url(claims)>.<base64url(hmac-sha256)>".
func SignToken(secret []byte, userID string, expiresAt time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("missing secret")
	}
	if userID == "" {
		return "", errors.New("missing user id")
	}
	payload, err := json.Marshal(Claims{UserID: userID, Exp: expiresAt.UTC().Unix()})
	if err != nil {
		return "", err
	}
	msg := "v1." + base64.RawURLEncoding.EncodeToString(payload)
	return msg + "." + sign(secret, msg), nil
}

// VerifyToken checks the signature and expiry of token.
func VerifyToken(secret []byte, token string, now time.Time) (Claims, bool) {
	token = strings.TrimSpace(token)
	if token == "" || len(secret) == 0 {
		return Claims{}, false
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] != "v1" {
		return Claims{}, false
	}
	want := sign(secret, parts[0]+"."+parts[1])
	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(want)) != 1 {
		return Claims{}, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, false
	}
	var c Claims
	if err := json.Unmarshal(raw, &c); err != nil {
		return Claims{}, false
	}
	if c.UserID == "" {
		return Claims{}, false
	}
	if c.Exp <= 0 || now.UTC().Unix() > c.Exp {
		return Claims{}, false
	}
	return c, true
}

// NewAPIKey returns a fresh API key. Keys are random UUIDs.
func NewAPIKey() string {
	return uuid.NewString()
}

func sign(secret []byte, msg string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(msg))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
