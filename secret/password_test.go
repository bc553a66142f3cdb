package secret

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

func fastHasher() *Hasher {
	h := NewHasher()
	h.Iterations = 1000
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := fastHasher()
	for _, passwd := range []string{"password", "", "çãõ unicode 🔑", strings.Repeat("x", 1024)} {
		encoded, err := h.Hash(passwd)
		if err != nil {
			t.Fatal(err)
		}
		if len(encoded) != EncodedLength {
			t.Fatalf("encoded hash should have %v chars got %v", EncodedLength, len(encoded))
		}
		if !h.Verify(encoded, passwd) {
			t.Errorf("Verify(Hash(%q), %q) should be true", passwd, passwd)
		}
		if h.Verify(encoded, passwd+"!") {
			t.Errorf("Verify(Hash(%q), %q) should be false", passwd, passwd+"!")
		}
	}
}

func TestHashUsesDistinctSalts(t *testing.T) {
	h := fastHasher()
	first, err := h.Hash("secret")
	require.NoError(t, err)
	second, err := h.Hash("secret")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.NotEqual(t, first[:SaltLength], second[:SaltLength])
	require.True(t, h.Verify(first, "secret"))
	require.True(t, h.Verify(second, "secret"))
}

func TestHashLayout(t *testing.T) {
	entropy := bytes.Repeat([]byte{7}, SaltEntropy)
	h := fastHasher()
	h.Rand = bytes.NewReader(entropy)

	encoded, err := h.Hash("pa55")
	require.NoError(t, err)

	sum := sha256.Sum256(entropy)
	salt := hex.EncodeToString(sum[:])
	key := pbkdf2.Key([]byte("pa55"), []byte(salt), h.Iterations, sha512.Size, sha512.New)
	require.Equal(t, salt+hex.EncodeToString(key), encoded)
}

func TestIterationsArePartOfTheFormat(t *testing.T) {
	h := fastHasher()
	encoded, err := h.Hash("pa55")
	require.NoError(t, err)

	other := fastHasher()
	other.Iterations = h.Iterations + 1
	require.False(t, other.Verify(encoded, "pa55"))
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	h := fastHasher()
	valid, err := h.Hash("pa55")
	require.NoError(t, err)

	for name, encoded := range map[string]string{
		"empty":     "",
		"short":     valid[:EncodedLength-1],
		"long":      valid + "0",
		"non-hex":   "z" + valid[1:],
		"salt only": valid[:SaltLength],
		"bcrypt":    "$2a$12$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy",
	} {
		t.Run(name, func(t *testing.T) {
			require.False(t, h.Verify(encoded, "pa55"))
		})
	}
}

func TestHashFailsWhenEntropyIsMissing(t *testing.T) {
	h := fastHasher()
	h.Rand = bytes.NewReader([]byte{1, 2, 3})
	_, err := h.Hash("pa55")
	if err == nil {
		t.Fatal("Hash should fail when the random source is exhausted")
	}
}

func TestDefaultHasher(t *testing.T) {
	if testing.Short() {
		t.Skip("default iteration count is slow")
	}
	encoded, err := HashPassword("correct horse")
	require.NoError(t, err)
	require.True(t, NewHasher().Verify(encoded, "correct horse"))
	require.False(t, NewHasher().Verify(encoded, "battery staple"))
}

func TestEqual(t *testing.T) {
	require.True(t, Equal([]byte("abc"), []byte("abc")))
	require.True(t, Equal(nil, []byte{}))
	require.False(t, Equal([]byte("abc"), []byte("abd")))
	require.False(t, Equal([]byte("abc"), []byte("abcd")))
	require.True(t, EqualString("token", "token"))
	require.False(t, EqualString("token", "Token"))
}

func TestDeriveKey(t *testing.T) {
	_, err := DeriveKey("purpose", nil)
	require.True(t, errors.Is(err, ErrMissingSecret))

	a, err := DeriveKey("reset", []byte("s3cr3t"))
	require.NoError(t, err)
	b, err := DeriveKey("login", []byte("s3cr3t"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	expected := sha256.Sum256([]byte("resets3cr3t"))
	require.Equal(t, expected[:], a)

	require.NotEqual(t, Sign(a, []byte("value")), Sign(b, []byte("value")))
}

func TestFromEnv(t *testing.T) {
	env := map[string]string{"SECRET": "hunter2"}
	get := func(k string) string { return env[k] }
	set := func(k, v string) error { env[k] = v; return nil }

	val, err := FromEnv("SECRET", get, set)
	require.NoError(t, err)
	require.Equal(t, []byte("hunter2"), val)
	require.Equal(t, "", env["SECRET"], "reading the secret should remove it from the environment")

	_, err = FromEnv("SECRET", get, set)
	require.True(t, errors.Is(err, ErrMissingSecret))
}
