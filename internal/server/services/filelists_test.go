package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/logging"
	"github.com/dmitrijs2005/gophsend/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileListService_PutGet(t *testing.T) {
	s := NewFileListService(nil, repomanager.NewMemoryRepositoryManager(), logging.NewNopLogger())
	ctx := context.Background()

	_, err := s.Get(ctx, "u1", "kid")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, s.Put(ctx, "u1", "kid", []byte("v1")))
	require.NoError(t, s.Put(ctx, "u1", "kid", []byte("v2")))

	got, err := s.Get(ctx, "u1", "kid")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	_, err = s.Get(ctx, "u2", "kid")
	assert.ErrorIs(t, err, common.ErrNotFound, "lists are per user")
}

func TestFileListService_Validation(t *testing.T) {
	s := NewFileListService(nil, repomanager.NewMemoryRepositoryManager(), logging.NewNopLogger())
	ctx := context.Background()

	assert.ErrorIs(t, s.Put(ctx, "u1", "", []byte("x")), common.ErrValidation)
	assert.ErrorIs(t, s.Put(ctx, "u1", "kid", nil), common.ErrValidation)
	assert.ErrorIs(t, s.Put(ctx, "u1", "kid", bytes.Repeat([]byte{1}, MaxFileListSize+1)), common.ErrValidation)

	_, err := s.Get(ctx, "u1", "")
	assert.ErrorIs(t, err, common.ErrValidation)
}
