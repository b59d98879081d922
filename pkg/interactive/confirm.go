// Package interactive holds the small amount of terminal interaction the
// orchestrator needs: a yes/no confirmation gate before a pull or push
// mutates the sync repository, skipped entirely in non-interactive contexts
// (pipes, CI, cron).
package interactive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// IsInteractive reports whether stdin and stdout are both attached to a
// terminal. Prompting when either end is redirected would hang a script
// waiting on input nobody can supply.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Confirm prompts message on out and reads a yes/no answer from in,
// defaulting to defaultYes when the user just presses enter. Callers should
// only invoke Confirm after checking IsInteractive.
func Confirm(in io.Reader, out io.Writer, message string, defaultYes bool) (bool, error) {
	hint := "Y/n"
	if !defaultYes {
		hint = "y/N"
	}
	fmt.Fprintf(out, "%s [%s] ", message, hint)

	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return false, fmt.Errorf("interactive: read confirmation: %w", err)
		}
		return defaultYes, nil
	}

	answer := strings.ToLower(strings.TrimSpace(sc.Text()))
	switch answer {
	case "":
		return defaultYes, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return defaultYes, nil
	}
}
