package crypto

import (
	"context"
	"testing"

	"github.com/Widen/tap-rest-api-msdk/constants"
	"github.com/goccy/go-json"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecryptConfigNestedEnvelope(t *testing.T) {
	viper.Set(constants.EncryptionKey, "local-passphrase")
	defer viper.Set(constants.EncryptionKey, "")
	ctx := context.Background()

	secret, err := EncryptJSONString(ctx, "s3cr3t")
	require.NoError(t, err)

	raw := []byte(`{"api_url":"https://api.example.com","client_secret":` + secret + `,"streams":[{"name":"a"}]}`)
	out, err := DecryptConfig(ctx, raw)
	require.NoError(t, err)

	var cfg map[string]any
	require.NoError(t, json.Unmarshal(out, &cfg))
	assert.Equal(t, "s3cr3t", cfg["client_secret"])
	assert.Equal(t, "https://api.example.com", cfg["api_url"])
}

func TestDecryptConfigWholeDocument(t *testing.T) {
	viper.Set(constants.EncryptionKey, "local-passphrase")
	defer viper.Set(constants.EncryptionKey, "")
	ctx := context.Background()

	envelope, err := EncryptJSONString(ctx, `{"api_url":"https://api.example.com"}`)
	require.NoError(t, err)

	out, err := DecryptConfig(ctx, []byte(envelope))
	require.NoError(t, err)
	assert.JSONEq(t, `{"api_url":"https://api.example.com"}`, string(out))
}

func TestDecryptConfigDisabled(t *testing.T) {
	viper.Set(constants.EncryptionKey, "")
	raw := []byte(`{"client_secret":{"encrypted_data":"not-base64"}}`)

	out, err := DecryptConfig(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}
