package cryptox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// cheap params keep the suite fast
var testKDF = KDFParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1}

func TestSealOpen(t *testing.T) {
	key, err := NewDataKey()
	require.NoError(t, err)

	nonce, ct, err := Seal(key, []byte("hello vault"), []byte("file-1"))
	require.NoError(t, err)
	require.NotContains(t, string(ct), "hello vault")

	pt, err := Open(key, nonce, ct, []byte("file-1"))
	require.NoError(t, err)
	require.Equal(t, "hello vault", string(pt))
}

func TestOpen_Failures(t *testing.T) {
	key, err := NewDataKey()
	require.NoError(t, err)
	nonce, ct, err := Seal(key, []byte("secret"), []byte("aad"))
	require.NoError(t, err)

	otherKey, err := NewDataKey()
	require.NoError(t, err)

	tampered := append([]byte(nil), ct...)
	tampered[0] ^= 0xff

	tests := []struct {
		name  string
		key   []byte
		nonce []byte
		ct    []byte
		aad   []byte
	}{
		{"wrong key", otherKey, nonce, ct, []byte("aad")},
		{"wrong aad", key, nonce, ct, []byte("other")},
		{"tampered ciphertext", key, nonce, tampered, []byte("aad")},
		{"short nonce", key, nonce[:4], ct, []byte("aad")},
		{"short key", key[:16], nonce, ct, []byte("aad")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.key, tt.nonce, tt.ct, tt.aad)
			require.ErrorIs(t, err, ErrOpen)
		})
	}
}

func TestWrapUnwrapKey(t *testing.T) {
	kek, err := NewDataKey()
	require.NoError(t, err)
	dek, err := NewDataKey()
	require.NoError(t, err)

	wrapped, err := WrapKey(kek, dek, []byte("file-1"))
	require.NoError(t, err)

	got, err := UnwrapKey(kek, wrapped, []byte("file-1"))
	require.NoError(t, err)
	require.Equal(t, dek, got)

	_, err = UnwrapKey(kek, wrapped[:10], []byte("file-1"))
	require.ErrorIs(t, err, ErrOpen)

	_, err = UnwrapKey(kek, wrapped, []byte("file-2"))
	require.ErrorIs(t, err, ErrOpen)
}

func TestDerivePasswordKey(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	k1, err := DerivePasswordKey("hunter22", salt, testKDF)
	require.NoError(t, err)
	require.Len(t, k1, DataKeySize)

	k2, err := DerivePasswordKey("hunter22", salt, testKDF)
	require.NoError(t, err)
	require.Equal(t, k1, k2)

	k3, err := DerivePasswordKey("hunter23", salt, testKDF)
	require.NoError(t, err)
	require.NotEqual(t, k1, k3)

	_, err = DerivePasswordKey("hunter22", salt[:4], testKDF)
	require.Error(t, err)
}

func TestKDFParams_Validate(t *testing.T) {
	require.NoError(t, DefaultKDFParams.Validate())
	require.NoError(t, testKDF.Validate())

	require.Error(t, KDFParams{Memory: 1024, Iterations: 1, Parallelism: 1}.Validate())
	require.Error(t, KDFParams{Memory: 8192, Iterations: 0, Parallelism: 1}.Validate())
	require.Error(t, KDFParams{Memory: 8192, Iterations: 1, Parallelism: 0}.Validate())
	require.Error(t, KDFParams{Memory: 8192, Iterations: 11, Parallelism: 1}.Validate())
}

func TestDeriveTokenKey(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	a, err := DeriveTokenKey("tok", salt, "strongbox/link")
	require.NoError(t, err)
	b, err := DeriveTokenKey("tok", salt, "strongbox/link")
	require.NoError(t, err)
	c, err := DeriveTokenKey("tok", salt, "strongbox/other")
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3}
	Wipe(b)
	require.Equal(t, []byte{0, 0, 0}, b)
}

func TestMasterKey_FromEnv(t *testing.T) {
	ResetMasterKeyForTesting()
	t.Cleanup(ResetMasterKeyForTesting)
	t.Setenv(MasterKeyEnv, "correct horse battery staple")

	sealed, err := SealWithMasterKey([]byte("private"), []byte("ctx"))
	require.NoError(t, err)

	ephemeral, err := MasterKeyIsEphemeral()
	require.NoError(t, err)
	require.False(t, ephemeral)

	// A fresh load from the same material opens what was sealed before.
	ResetMasterKeyForTesting()
	opened, err := OpenWithMasterKey(sealed, []byte("ctx"))
	require.NoError(t, err)
	require.Equal(t, "private", string(opened))

	_, err = OpenWithMasterKey(sealed, []byte("other"))
	require.ErrorIs(t, err, ErrOpen)
}

func TestMasterKey_FromFile(t *testing.T) {
	ResetMasterKeyForTesting()
	path := filepath.Join(t.TempDir(), "master.key")
	require.NoError(t, os.WriteFile(path, []byte("file material"), 0o600))
	SetMasterKeyPath(path)
	t.Cleanup(func() {
		SetMasterKeyPath("")
		ResetMasterKeyForTesting()
	})

	ephemeral, err := MasterKeyIsEphemeral()
	require.NoError(t, err)
	require.False(t, ephemeral)

	k1, err := DeriveMasterSubkey("strongbox/owner/u1", []byte("salt-salt-salt-1"))
	require.NoError(t, err)
	k2, err := DeriveMasterSubkey("strongbox/owner/u2", []byte("salt-salt-salt-1"))
	require.NoError(t, err)
	require.Len(t, k1, DataKeySize)
	require.NotEqual(t, k1, k2)
}

func TestMasterKey_Ephemeral(t *testing.T) {
	ResetMasterKeyForTesting()
	t.Cleanup(ResetMasterKeyForTesting)
	t.Setenv(MasterKeyEnv, "")

	ephemeral, err := MasterKeyIsEphemeral()
	require.NoError(t, err)
	require.True(t, ephemeral)
}
