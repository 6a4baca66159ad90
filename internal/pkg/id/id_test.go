package id

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateRoomCode_Shape(t *testing.T) {
	code := GenerateRoomCode()

	require.Len(t, code, 6)
	for _, c := range code {
		require.True(t, (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'), "unexpected char %q", c)
	}
}

func TestGenerateRoomCode_Varies(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		seen[GenerateRoomCode()] = true
	}
	require.Greater(t, len(seen), 1)
}

func TestGenerate_Length(t *testing.T) {
	require.Len(t, Generate(), 12)
}
