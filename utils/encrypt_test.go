package utils

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SolGuard/config"
)

func setTestEncryptionKey(t *testing.T) {
	t.Helper()
	old := config.Cfg.EncryptionKey
	config.Cfg.EncryptionKey = "0123456789abcdef0123456789abcdef"
	t.Cleanup(func() { config.Cfg.EncryptionKey = old })
}

func TestEncryptDecryptPhoneRoundTrip(t *testing.T) {
	setTestEncryptionKey(t)

	encoded, err := EncryptPhone("+8613812345678")
	require.NoError(t, err)
	assert.NotEmpty(t, encoded)

	plain, err := DecryptPhone(encoded)
	require.NoError(t, err)
	assert.Equal(t, "+8613812345678", plain)
}

func TestEncryptPhoneNonDeterministic(t *testing.T) {
	setTestEncryptionKey(t)

	// GCM nonce 随机，同一明文两次加密密文不同
	a, err := EncryptPhone("13812345678")
	require.NoError(t, err)
	b, err := EncryptPhone("13812345678")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptPhoneRejectsTamperedCiphertext(t *testing.T) {
	setTestEncryptionKey(t)

	encoded, err := EncryptPhone("13812345678")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	_, err = DecryptPhone(tampered)
	assert.Error(t, err)
}

func TestDecryptPhoneInvalidPayload(t *testing.T) {
	setTestEncryptionKey(t)

	_, err := DecryptPhone("not-base64!!!")
	assert.Error(t, err)

	// 合法 base64 但比 nonce 还短
	_, err = DecryptPhone(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}

func TestHashPhone(t *testing.T) {
	oldSalt := config.Cfg.PhoneHashSalt
	config.Cfg.PhoneHashSalt = "test-salt"
	t.Cleanup(func() { config.Cfg.PhoneHashSalt = oldSalt })

	h1 := HashPhone("13812345678")
	h2 := HashPhone("13812345678")
	assert.Equal(t, h1, h2, "same phone hashes to same value")
	assert.Len(t, h1, 64, "sha256 hex")

	assert.NotEqual(t, h1, HashPhone("13812345679"))

	config.Cfg.PhoneHashSalt = "other-salt"
	assert.NotEqual(t, h1, HashPhone("13812345678"), "salt changes the hash")
}
