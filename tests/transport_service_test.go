// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"context"
	"testing"

	"github.com/kwameosei/shulegate/app/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockTransportService(t *testing.T) {
	ctx := context.Background()

	t.Run("AcceptsByDefault", func(t *testing.T) {
		transport := services.NewMockTransportService()

		receipt, err := transport.Send(ctx, "+254700123456", "Hello")
		require.NoError(t, err)
		assert.True(t, receipt.Accepted)
		assert.Equal(t, "ACCEPTED", receipt.Status)
		assert.Equal(t, "mock-1", receipt.ProviderRef)

		messages := transport.GetSentMessages()
		require.Len(t, messages, 1)
		assert.Equal(t, "+254700123456", messages[0].Recipient)
		assert.Equal(t, "Hello", messages[0].Message)
	})

	t.Run("RejectNextScript", func(t *testing.T) {
		transport := services.NewMockTransportService()
		transport.RejectNext = 1

		receipt, err := transport.Send(ctx, "+254700123456", "Hello")
		require.NoError(t, err)
		assert.False(t, receipt.Accepted)
		assert.Equal(t, "REJECTED", receipt.Status)
		assert.Empty(t, transport.GetSentMessages())

		// Scripted outcome is consumed; the next send goes through
		receipt, err = transport.Send(ctx, "+254700123456", "Hello again")
		require.NoError(t, err)
		assert.True(t, receipt.Accepted)
		assert.Len(t, transport.GetSentMessages(), 1)
	})

	t.Run("FailNextScript", func(t *testing.T) {
		transport := services.NewMockTransportService()
		transport.FailNext = 2

		_, err := transport.Send(ctx, "+254700123456", "Hello")
		require.Error(t, err)
		_, err = transport.Send(ctx, "+254700123456", "Hello")
		require.Error(t, err)

		receipt, err := transport.Send(ctx, "+254700123456", "Hello")
		require.NoError(t, err)
		assert.True(t, receipt.Accepted)
	})

	t.Run("ProviderRefsAreSequential", func(t *testing.T) {
		transport := services.NewMockTransportService()

		first, err := transport.Send(ctx, "+254700123456", "One")
		require.NoError(t, err)
		second, err := transport.Send(ctx, "+254700123457", "Two")
		require.NoError(t, err)

		assert.Equal(t, "mock-1", first.ProviderRef)
		assert.Equal(t, "mock-2", second.ProviderRef)
	})

	t.Run("ClearSentMessages", func(t *testing.T) {
		transport := services.NewMockTransportService()
		_, err := transport.Send(ctx, "+254700123456", "Hello")
		require.NoError(t, err)

		transport.ClearSentMessages()
		assert.Empty(t, transport.GetSentMessages())
	})
}
