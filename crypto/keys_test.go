package crypto

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.PubKey().Address()

	encoded := addr.String()
	require.Equal(t, "lx1", encoded[:3])

	decoded, err := DecodeAddress(encoded)
	require.NoError(t, err)
	require.Equal(t, addr, decoded)

	text, err := addr.MarshalText()
	require.NoError(t, err)
	var parsed Address
	require.NoError(t, parsed.UnmarshalText(text))
	require.Equal(t, addr, parsed)
}

func TestDecodeAddressRejectsForeignPrefix(t *testing.T) {
	conv, err := bech32.ConvertBits(make([]byte, 20), 8, 5, true)
	require.NoError(t, err)
	foreign, err := bech32.Encode("cosmos", conv)
	require.NoError(t, err)
	_, err = DecodeAddress(foreign)
	require.ErrorContains(t, err, "unexpected address prefix")
	_, err = DecodeAddress("  ")
	require.Error(t, err)
}

func TestModuleAddressIsDeterministic(t *testing.T) {
	a := ModuleAddress("leasex/escrow/vault")
	b := ModuleAddress("leasex/escrow/vault")
	require.Equal(t, a, b)
	require.False(t, a.IsZero())
	require.NotEqual(t, a, ModuleAddress("leasex/other"))
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "keys", "resolver.keystore")

	require.NoError(t, SaveToKeystore(path, key, "correct horse"))
	loaded, err := LoadFromKeystore(path, "correct horse")
	require.NoError(t, err)
	require.Equal(t, key.Bytes(), loaded.Bytes())

	_, err = LoadFromKeystore(path, "wrong")
	require.Error(t, err)
}
