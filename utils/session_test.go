package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSessionID(t *testing.T) {
	first, err := GenerateSessionID()
	assert.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := GenerateSessionID()
	assert.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestGenerateSessionIDRandError(t *testing.T) {
	originalRandRead := randRead
	randRead = func(b []byte) (int, error) {
		return 0, errors.New("rand error")
	}
	defer func() { randRead = originalRandRead }()

	_, err := GenerateSessionID()
	assert.Error(t, err)
}

func TestHashStateDeterministic(t *testing.T) {
	assert.Equal(t, HashState("state"), HashState("state"))
	assert.NotEqual(t, HashState("state"), HashState("other"))
	assert.Len(t, HashState("state"), 64)
}
