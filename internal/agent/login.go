package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// PromptForLogin asks the user to sign in in the browser window and waits for
// ENTER on in.
func PromptForLogin(in io.Reader, out io.Writer) LoginPrompt {
	return func(ctx context.Context) error {
		fmt.Fprintln(out, "Please log in manually in the browser.")
		fmt.Fprintln(out, "Press ENTER after you have logged in to continue...")

		done := make(chan error, 1)
		go func() {
			_, err := bufio.NewReader(in).ReadString('\n')
			if err == io.EOF {
				err = nil
			}
			done <- err
		}()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-done:
			return err
		}
	}
}
