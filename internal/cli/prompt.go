package cli

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// readPassword reads without echo from a terminal and falls back to a plain
// line when input is piped.
func (a *app) readPassword(w io.Writer, prompt string) (string, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(w, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	return a.readLine(w, prompt)
}

// credential returns the flag value or prompts for it.
func (a *app) credential(w io.Writer, value, prompt string, secret bool) (string, error) {
	if value != "" {
		return value, nil
	}
	if secret {
		return a.readPassword(w, prompt)
	}
	return a.readLine(w, prompt)
}
