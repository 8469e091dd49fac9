package coupons

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCodeChecker struct {
	existing map[string]bool
	calls    int
	err      error
}

func (f *fakeCodeChecker) CodeExists(_ context.Context, code string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.existing[code], nil
}

func TestGenerateCode_Format(t *testing.T) {
	checker := &fakeCodeChecker{}
	pattern := regexp.MustCompile(`^HASH-[A-Z0-9]{6}$`)

	code, err := GenerateCode(context.Background(), checker)
	require.NoError(t, err)
	assert.Regexp(t, pattern, code)
}

func TestGenerateCode_UniqueAcrossManyGenerations(t *testing.T) {
	checker := &fakeCodeChecker{}
	pattern := regexp.MustCompile(`^HASH-[A-Z0-9]{6}$`)

	seen := make(map[string]bool)
	for i := 0; i < 150; i++ {
		code, err := GenerateCode(context.Background(), checker)
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
		assert.False(t, seen[code], "duplicate code generated: %s", code)
		seen[code] = true
	}
}

func TestGenerateCode_RegeneratesOnCollision(t *testing.T) {
	// first candidate reports taken, second is free
	checker := &collisionOnceChecker{remaining: 1}

	code, err := GenerateCode(context.Background(), checker)
	require.NoError(t, err)
	assert.NotEmpty(t, code)
	assert.Equal(t, 2, checker.calls)
}

type collisionOnceChecker struct {
	remaining int
	calls     int
}

func (c *collisionOnceChecker) CodeExists(_ context.Context, _ string) (bool, error) {
	c.calls++
	if c.remaining > 0 {
		c.remaining--
		return true, nil
	}
	return false, nil
}

func TestGenerateCode_CheckerErrorPropagates(t *testing.T) {
	checker := &fakeCodeChecker{err: errors.New("db down")}

	_, err := GenerateCode(context.Background(), checker)
	assert.Error(t, err)
}

func TestGenerateCode_GivesUpAfterMaxAttempts(t *testing.T) {
	always := &collisionOnceChecker{remaining: maxCodeAttempts + 5}

	_, err := GenerateCode(context.Background(), always)
	assert.Error(t, err)
	assert.Equal(t, maxCodeAttempts, always.calls)
}
