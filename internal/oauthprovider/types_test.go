package oauthprovider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenResponseToOAuth2Token_SetsExpiryFromExpiresIn(t *testing.T) {
	tr := &tokenResponse{AccessToken: "at-1", RefreshToken: "rt-1", TokenType: "Bearer", ExpiresIn: 3600}

	tok := tr.toOAuth2Token()
	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, "rt-1", tok.RefreshToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, time.Minute)
}

func TestTokenResponseToOAuth2Token_NoExpiresInLeavesZeroExpiry(t *testing.T) {
	tr := &tokenResponse{AccessToken: "at-1"}

	tok := tr.toOAuth2Token()
	assert.True(t, tok.Expiry.IsZero())
}

func TestTokenRecordFromOAuth2_CarriesExpiry(t *testing.T) {
	tok := (&tokenResponse{AccessToken: "at-1", RefreshToken: "rt-1", ExpiresIn: 60}).toOAuth2Token()

	rec := tokenRecordFromOAuth2(tok)
	assert.Equal(t, "at-1", rec.AccessToken)
	assert.Equal(t, "rt-1", rec.RefreshToken)
	if assert.NotNil(t, rec.ExpiresAt) {
		assert.WithinDuration(t, time.Now().Add(time.Minute), *rec.ExpiresAt, time.Minute)
	}
}

func TestTokenRecordFromOAuth2_NoExpiryLeavesNilExpiresAt(t *testing.T) {
	tok := (&tokenResponse{AccessToken: "at-1"}).toOAuth2Token()

	rec := tokenRecordFromOAuth2(tok)
	assert.Nil(t, rec.ExpiresAt)
}
