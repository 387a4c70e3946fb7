package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the verified content of a token. Authorities is empty for
// refresh tokens; they carry identity only, and the current role set is
// re-read from storage when the token is redeemed.
type Claims struct {
	UserID      uint64
	Username    string
	Authorities []string
	Refresh     bool
	ExpiresAt   time.Time
}

// TokenCodec issues and verifies HS256 JWTs. The signing key is derived
// once from the configured secret at construction; the codec itself is
// stateless and safe for concurrent use.
type TokenCodec struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		key:        []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccess signs a short-lived access token carrying the subject,
// username and the comma-joined authority list.
func (c *TokenCodec) IssueAccess(userID uint64, username string, authorities []string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(c.accessTTL)
	claims := jwt.MapClaims{
		"sub":         strconv.FormatUint(userID, 10),
		"username":    username,
		"authorities": strings.Join(authorities, ","),
		"iat":         now.Unix(),
		"exp":         exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueRefresh signs a long-lived refresh token. It deliberately carries
// no authorities: a role revoked between issuance and refresh must not
// be replayable forward.
func (c *TokenCodec) IssueRefresh(userID uint64) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(c.refreshTTL)
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(userID, 10),
		"type": "refresh",
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseAndVerify checks the signature and expiry of a token and returns
// its claims. The signature is verified before any claim is trusted.
// Expired tokens fail with ErrTokenExpired; every other defect collapses
// to ErrInvalidToken.
func (c *TokenCodec) ParseAndVerify(raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}

	var out Claims
	switch sub := mc["sub"].(type) {
	case string:
		id, err := strconv.ParseUint(sub, 10, 64)
		if err != nil {
			return Claims{}, ErrInvalidToken
		}
		out.UserID = id
	case float64:
		out.UserID = uint64(sub)
	default:
		return Claims{}, ErrInvalidToken
	}
	if name, ok := mc["username"].(string); ok {
		out.Username = name
	}
	if joined, ok := mc["authorities"].(string); ok && joined != "" {
		out.Authorities = strings.Split(joined, ",")
	}
	if typ, ok := mc["type"].(string); ok && typ == "refresh" {
		out.Refresh = true
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
