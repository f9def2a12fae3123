package agent

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromptForLogin(t *testing.T) {
	t.Run("returns after ENTER", func(t *testing.T) {
		var out bytes.Buffer
		prompt := PromptForLogin(strings.NewReader("\n"), &out)

		assert.NoError(t, prompt(context.Background()))
		assert.Contains(t, out.String(), "Press ENTER")
	})

	t.Run("closed input counts as confirmation", func(t *testing.T) {
		prompt := PromptForLogin(strings.NewReader(""), io.Discard)
		assert.NoError(t, prompt(context.Background()))
	})

	t.Run("honours cancellation", func(t *testing.T) {
		r, w := io.Pipe()
		defer w.Close()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := PromptForLogin(r, io.Discard)(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
