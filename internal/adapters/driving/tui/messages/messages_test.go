package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

func TestTurnCompleted(t *testing.T) {
	t.Run("with result", func(t *testing.T) {
		res := &driving.TurnResult{
			Reply:     "hello",
			Retrieved: domain.RetrievalResult{Query: "hi"},
		}
		msg := TurnCompleted{Input: "hi", Result: res}

		assert.Equal(t, "hi", msg.Input)
		assert.Equal(t, "hello", msg.Result.Reply)
		assert.NoError(t, msg.Err)
	})

	t.Run("with error", func(t *testing.T) {
		msg := TurnCompleted{Input: "hi", Err: domain.ErrTurnInProgress}

		assert.Nil(t, msg.Result)
		assert.ErrorIs(t, msg.Err, domain.ErrTurnInProgress)
	})
}

func TestSessionReset(t *testing.T) {
	assert.NoError(t, SessionReset{}.Err)
	assert.Error(t, SessionReset{Err: errors.New("busy")}.Err)
}

func TestPromptReloaded(t *testing.T) {
	msg := PromptReloaded{Name: "mode_counsel"}

	assert.Equal(t, "mode_counsel", msg.Name)
}

func TestErrorOccurred(t *testing.T) {
	err := errors.New("boom")
	msg := ErrorOccurred{Err: err}

	assert.Equal(t, err, msg.Err)
}
