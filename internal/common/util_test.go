package common

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString(t *testing.T) {
	s, err := MakeRandHexString(32)
	require.NoError(t, err)
	assert.Len(t, s, 64)
	_, err = hex.DecodeString(s)
	require.NoError(t, err)

	empty, err := MakeRandHexString(0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestWipeByteArray(t *testing.T) {
	password := []byte("correct horse")
	WipeByteArray(password)
	assert.Equal(t, make([]byte, len("correct horse")), password)

	WipeByteArray(nil)
}

func TestGenerateRandByteArray(t *testing.T) {
	a := GenerateRandByteArray(32)
	b := GenerateRandByteArray(32)
	require.Len(t, a, 32)
	require.Len(t, b, 32)
	if string(a) == string(b) {
		t.Logf("two salts are identical; extremely unlikely")
	}
}

func TestMakeRandShareCode_Alphabet(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		s, err := MakeRandShareCode(5)
		require.NoError(t, err)
		require.Len(t, s, 5)
		for _, r := range s {
			if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') {
				t.Fatalf("unexpected rune %q in %q", r, s)
			}
		}
		seen[s] = struct{}{}
	}
	// 36^5 вариантов, совпадения почти невозможны
	assert.Greater(t, len(seen), 45)
}

func TestMakeRandShareCode_Zero(t *testing.T) {
	s, err := MakeRandShareCode(0)
	require.NoError(t, err)
	assert.Empty(t, s)
}
