package tokenauth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/ghga-de/dcs-go/internal/models"
)

func generateRSAKeyPair(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return key, pubPEM
}

func validCrypt4ghKey() string {
	return base64.StdEncoding.EncodeToString(make([]byte, 32))
}

func signToken(t *testing.T, key *rsa.PrivateKey, wot models.WorkOrderToken, registered jwt.RegisteredClaims) string {
	t.Helper()
	c := struct {
		models.WorkOrderToken
		jwt.RegisteredClaims
	}{wot, registered}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestValidate_ValidToken(t *testing.T) {
	key, pubPEM := generateRSAKeyPair(t)
	validator, err := NewValidator(pubPEM)
	require.NoError(t, err)

	wot := models.WorkOrderToken{
		Type:                  "download",
		FileID:                "file-1",
		UserID:                "user-1",
		FullUserName:          "Ada Lovelace",
		Email:                 "ada@example.org",
		UserPublicCrypt4ghKey: validCrypt4ghKey(),
	}
	tokenString := signToken(t, key, wot, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	got, err := validator.Validate(tokenString)
	require.NoError(t, err)
	require.Equal(t, wot, got)
	require.True(t, got.IsDownloadFor("file-1"))
	require.False(t, got.IsDownloadFor("file-2"))
}

func TestValidate_ExpiredToken(t *testing.T) {
	key, pubPEM := generateRSAKeyPair(t)
	validator, err := NewValidator(pubPEM)
	require.NoError(t, err)

	wot := models.WorkOrderToken{
		Type:                  "download",
		FileID:                "file-1",
		UserID:                "user-1",
		FullUserName:          "Ada Lovelace",
		Email:                 "ada@example.org",
		UserPublicCrypt4ghKey: validCrypt4ghKey(),
	}
	tokenString := signToken(t, key, wot, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})

	_, err = validator.Validate(tokenString)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidate_WrongSigningKey(t *testing.T) {
	signingKey, _ := generateRSAKeyPair(t)
	_, otherPubPEM := generateRSAKeyPair(t)
	validator, err := NewValidator(otherPubPEM)
	require.NoError(t, err)

	wot := models.WorkOrderToken{
		Type:                  "download",
		FileID:                "file-1",
		UserID:                "user-1",
		FullUserName:          "Ada Lovelace",
		Email:                 "ada@example.org",
		UserPublicCrypt4ghKey: validCrypt4ghKey(),
	}
	tokenString := signToken(t, signingKey, wot, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	_, err = validator.Validate(tokenString)
	require.ErrorIs(t, err, ErrTokenSignature)
}

func TestValidate_MalformedToken(t *testing.T) {
	_, pubPEM := generateRSAKeyPair(t)
	validator, err := NewValidator(pubPEM)
	require.NoError(t, err)

	_, err = validator.Validate("not-even-a-jwt")
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestValidate_BadCrypt4ghKey_IsMalformed(t *testing.T) {
	key, pubPEM := generateRSAKeyPair(t)
	validator, err := NewValidator(pubPEM)
	require.NoError(t, err)

	wot := models.WorkOrderToken{
		Type:                  "download",
		FileID:                "file-1",
		UserID:                "user-1",
		FullUserName:          "Ada Lovelace",
		Email:                 "ada@example.org",
		UserPublicCrypt4ghKey: base64.StdEncoding.EncodeToString([]byte("too-short")),
	}
	tokenString := signToken(t, key, wot, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	_, err = validator.Validate(tokenString)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestNewValidator_RejectsGarbagePEM(t *testing.T) {
	_, err := NewValidator([]byte("not a pem key at all"))
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestWorkOrderToken_IsDownloadFor_RejectsUploadType(t *testing.T) {
	wot := models.WorkOrderToken{Type: "upload", FileID: "file-1"}
	require.False(t, wot.IsDownloadFor("file-1"))
}
