package tui

import (
	"errors"
	"os"

	"github.com/mattn/go-isatty"
)

// EnvNoInteractive disables every prompt when set to a non-empty value.
const EnvNoInteractive = "STACKGRAPH_NO_INTERACTIVE"

// ErrInteractiveDisabled is returned when a prompt cannot be shown.
var ErrInteractiveDisabled = errors.New("interactive prompts are disabled")

// ErrCanceled is returned when the user backs out of a prompt.
var ErrCanceled = errors.New("canceled")

// IsTTY returns true if we can use a TTY for interactive prompts
func IsTTY() bool {
	if !((isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())) &&
		(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))) {
		return false
	}
	// Also try to open /dev/tty to verify it's actually available
	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

// Interactive reports whether prompts may be shown
func Interactive() bool {
	return os.Getenv(EnvNoInteractive) == "" && IsTTY()
}

func checkInteractiveAllowed() error {
	if !Interactive() {
		return ErrInteractiveDisabled
	}
	return nil
}
