package action_test

import (
	"context"
	"errors"
	"testing"

	"github.com/smilemakc/anacostia/internal/action"
	"github.com/smilemakc/anacostia/internal/node"
	"github.com/stretchr/testify/assert"
)

func TestOpenAIAction_Execute_BuildPromptError(t *testing.T) {
	a := action.NewOpenAIAction("sk-unused", func(n *node.Node) (string, error) {
		return "", errors.New("no template bound")
	})
	n := node.New("llm", node.KindAction)

	ok, err := a.Execute(context.Background(), n)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewOpenAIAction_Defaults(t *testing.T) {
	a := action.NewOpenAIAction("sk-unused", func(n *node.Node) (string, error) {
		return "prompt", nil
	})
	assert.Equal(t, "gpt-4o", a.Model)
	assert.Equal(t, "output", a.OutputKey)
}
