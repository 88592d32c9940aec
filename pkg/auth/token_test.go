package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/donorjournal-backend/pkg/config"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "donorjournal"}

func TestMintAndParseAccessToken(t *testing.T) {
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(testJWT, now, 30*time.Minute, AccessTokenPayload{UserID: userID, JTI: "abc"})
	require.NoError(t, err)

	claims, err := ParseAccessToken(testJWT, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, testJWT.Issuer, claims.Issuer)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "abc", claims.ID)
	assert.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestMintAccessTokenValidation(t *testing.T) {
	now := time.Now()
	_, err := MintAccessToken(config.JWTConfig{Issuer: "x"}, now, time.Minute, AccessTokenPayload{UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrSecretRequired)
	_, err = MintAccessToken(config.JWTConfig{Secret: "x"}, now, time.Minute, AccessTokenPayload{UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrIssuerRequired)
	_, err = MintAccessToken(testJWT, now, 0, AccessTokenPayload{UserID: uuid.New()})
	assert.Error(t, err)
	_, err = MintAccessToken(testJWT, now, time.Minute, AccessTokenPayload{})
	assert.ErrorIs(t, err, ErrMissingUser)
}

func TestParseAccessTokenRejects(t *testing.T) {
	userID := uuid.New()

	expired, err := MintAccessToken(testJWT, time.Now().Add(-2*time.Hour), time.Hour, AccessTokenPayload{UserID: userID})
	require.NoError(t, err)
	_, err = ParseAccessToken(testJWT, expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	valid, err := MintAccessToken(testJWT, time.Now(), time.Hour, AccessTokenPayload{UserID: userID})
	require.NoError(t, err)

	_, err = ParseAccessToken(config.JWTConfig{Secret: "other", Issuer: testJWT.Issuer}, valid)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	_, err = ParseAccessToken(config.JWTConfig{Secret: testJWT.Secret, Issuer: "someone-else"}, valid)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	_, err = ParseAccessToken(testJWT, "not-a-token")
	assert.ErrorIs(t, err, jwt.ErrTokenMalformed)

	_, err = ParseAccessToken(config.JWTConfig{}, valid)
	assert.ErrorIs(t, err, ErrSecretRequired)
}

func TestParseAccessTokenRequiresUser(t *testing.T) {
	claims := AccessTokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    testJWT.Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWT.Secret))
	require.NoError(t, err)

	_, err = ParseAccessToken(testJWT, raw)
	assert.ErrorIs(t, err, ErrMissingUser)
}

func TestParseAccessTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := AccessTokenClaims{UserID: uuid.New(), RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    testJWT.Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testJWT.Secret))
	require.NoError(t, err)

	_, err = ParseAccessToken(testJWT, raw)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}
