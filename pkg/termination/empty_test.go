package termination

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaiwa/pkg/thread"
)

func msg(role, content string) thread.Message {
	return thread.Message{Role: role, Content: content}
}

func TestConsecutiveEmpty_Terminates(t *testing.T) {
	rule := NewConsecutiveEmpty(2)
	history := []thread.Message{
		msg("assistant", "working on it"),
		msg("user", ""),
		msg("assistant", "still working"),
		msg("user", ""),
	}

	result, err := rule.Check(context.Background(), history)
	require.NoError(t, err)
	assert.True(t, result.Terminated)
	assert.Equal(t, ReasonConsecutiveEmptyInput, result.Reason)
	assert.Equal(t, "Last 2 user messages were empty.", result.Explanation)
}

func TestConsecutiveEmpty_RecentNonEmptyContinues(t *testing.T) {
	rule := NewConsecutiveEmpty(2)
	history := []thread.Message{
		msg("user", ""),
		msg("user", ""),
		msg("user", "here is the output"),
	}

	result, err := rule.Check(context.Background(), history)
	require.NoError(t, err)
	assert.False(t, result.Terminated)
}

func TestConsecutiveEmpty_TooFewUserMessages(t *testing.T) {
	rule := NewConsecutiveEmpty(3)
	history := []thread.Message{
		msg("assistant", "hello"),
		msg("user", ""),
		msg("user", ""),
	}

	result, err := rule.Check(context.Background(), history)
	require.NoError(t, err)
	assert.False(t, result.Terminated)
}

func TestConsecutiveEmpty_IgnoresNonUserRoles(t *testing.T) {
	rule := NewConsecutiveEmpty(2)
	history := []thread.Message{
		msg("user", ""),
		msg("assistant", "a perfectly normal reply"),
		msg("info", "snippet"),
		msg("user", ""),
	}

	result, err := rule.Check(context.Background(), history)
	require.NoError(t, err)
	assert.True(t, result.Terminated)
}

func TestConsecutiveEmpty_EmptyHistory(t *testing.T) {
	rule := NewConsecutiveEmpty(2)
	result, err := rule.Check(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, result.Terminated)
}

func TestNewConsecutiveEmpty_ClampsWindow(t *testing.T) {
	rule := NewConsecutiveEmpty(0)
	assert.Equal(t, 1, rule.Window)
}
