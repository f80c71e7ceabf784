package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"edusphere/internal/portal"
)

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f any) bool {
	file, ok := f.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// confirm asks a y/N question before a destructive action. --yes answers
// for the user; without a terminal the action is refused.
func confirm(cmd *cobra.Command, question string) error {
	if flagYes {
		return nil
	}
	in := cmd.InOrStdin()
	if !isTerminal(in) {
		return fmt.Errorf("%w: pass --yes to %s", portal.ErrConfirmationRequired, question)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s? [y/N] ", capitalize(question))
	answer, err := readLine(in)
	if err != nil {
		return err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return nil
	default:
		return fmt.Errorf("%w: %s cancelled", portal.ErrConfirmationRequired, question)
	}
}

// promptSecret reads a secret without echo on a terminal, or one line from a pipe.
func promptSecret(cmd *cobra.Command, label string) (string, error) {
	in := cmd.InOrStdin()
	if file, ok := in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", label)
		secret, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
		}
		return string(secret), nil
	}
	return readLine(in)
}

// promptNewSecret reads a secret twice on a terminal and checks both match.
func promptNewSecret(cmd *cobra.Command, label string) (string, error) {
	secret, err := promptSecret(cmd, label)
	if err != nil {
		return "", err
	}
	if secret == "" {
		return "", fmt.Errorf("%s cannot be empty", strings.ToLower(label))
	}
	if !isTerminal(cmd.InOrStdin()) {
		return secret, nil
	}
	again, err := promptSecret(cmd, "Repeat "+strings.ToLower(label))
	if err != nil {
		return "", err
	}
	if again != secret {
		return "", errors.New("entries do not match")
	}
	return secret, nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
