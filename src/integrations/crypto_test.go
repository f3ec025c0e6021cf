package integrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestSymmetricRoundTrip(t *testing.T) {
	sealed, err := SymmetricEncrypt(`{"access_token":"tok"}`, testKey)
	assert.NoError(t, err)
	assert.NotContains(t, sealed, "access_token", "ciphertext must not leak plaintext")

	opened, err := SymmetricDecrypt(sealed, testKey)
	assert.NoError(t, err)
	assert.Equal(t, `{"access_token":"tok"}`, opened)
}

func TestSymmetricEncryptUniqueNonce(t *testing.T) {
	a, err := SymmetricEncrypt("same input", testKey)
	assert.NoError(t, err)
	b, err := SymmetricEncrypt("same input", testKey)
	assert.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestSymmetricDecryptWrongKey(t *testing.T) {
	sealed, err := SymmetricEncrypt("secret", testKey)
	assert.NoError(t, err)

	_, err = SymmetricDecrypt(sealed, []byte("ffffffffffffffffffffffffffffffff"))
	assert.Error(t, err)
}

func TestSymmetricDecryptGarbage(t *testing.T) {
	_, err := SymmetricDecrypt("not base64!!", testKey)
	assert.Error(t, err)

	_, err = SymmetricDecrypt("QQ==", testKey)
	assert.Error(t, err, "shorter than a nonce")
}
