package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"github.com/fahmaliyi/passwallet/vault"
)

const (
	minMasterLen   = 6
	unlockAttempts = 3
)

var ErrUnlockAborted = errors.New("cli: vault not unlocked")

// App is one interactive session over a vault store.
type App struct {
	Store *vault.Store
	Log   *zap.Logger
	In    *bufio.Reader
	Out   io.Writer

	// ClipboardClear is how long a copied password stays on the clipboard.
	ClipboardClear time.Duration

	// Clipboard and ReadSecret default to the system clipboard and the
	// no-echo terminal prompt.
	Clipboard  func(text string) error
	ReadSecret func(prompt string) ([]byte, error)

	idMap  map[int]string
	copied bool
}

func NewApp(store *vault.Store, log *zap.Logger, in io.Reader, out io.Writer) *App {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{
		Store:          store,
		Log:            log,
		In:             bufio.NewReader(in),
		Out:            out,
		ClipboardClear: 30 * time.Second,
		Clipboard:      clipboard.WriteAll,
	}
	a.ReadSecret = func(prompt string) ([]byte, error) {
		return ReadPassword(a.In, a.Out, prompt)
	}
	return a
}

// Unlock creates the vault on first run or opens the existing one, asking
// for the master password.
func (a *App) Unlock() error {
	switch a.Store.State() {
	case vault.Uninitialized:
		return a.setup()
	case vault.Unlocked:
		return nil
	default:
		return a.login()
	}
}

func (a *App) setup() error {
	fmt.Fprintln(a.Out, "No vault found. Let's create a new one.")
	fmt.Fprintln(a.Out, "Choose a strong master password - you'll need it to access your vault.")
	for {
		master, err := a.ReadSecret("Create master password: ")
		if err != nil {
			return err
		}
		if len(master) < minMasterLen {
			vault.Zero(master)
			fmt.Fprintf(a.Out, "Master password must be at least %d characters long.\n", minMasterLen)
			continue
		}
		confirm, err := a.ReadSecret("Confirm master password: ")
		if err != nil {
			vault.Zero(master)
			return err
		}
		match := string(master) == string(confirm)
		vault.Zero(confirm)
		if !match {
			vault.Zero(master)
			fmt.Fprintln(a.Out, "Passwords don't match. Please try again.")
			continue
		}

		err = a.Store.Initialize(master)
		vault.Zero(master)
		if err != nil {
			return fmt.Errorf("create vault: %w", err)
		}
		fmt.Fprintln(a.Out, "Vault created.")
		return nil
	}
}

func (a *App) login() error {
	for attempt := 1; attempt <= unlockAttempts; attempt++ {
		master, err := a.ReadSecret("Master password: ")
		if err != nil {
			return err
		}
		err = a.Store.Open(master)
		vault.Zero(master)
		switch {
		case err == nil:
			fmt.Fprintln(a.Out, "Vault unlocked.")
			return nil
		case errors.Is(err, vault.ErrAuthFailed), errors.Is(err, vault.ErrValidation):
			a.Log.Warn("unlock attempt failed", zap.Int("attempt", attempt))
			fmt.Fprintln(a.Out, "Invalid master password.")
		case errors.Is(err, vault.ErrFormat):
			fmt.Fprintln(a.Out, "The vault files are damaged or incomplete. Restore them from a backup.")
			return err
		default:
			return err
		}
	}
	return ErrUnlockAborted
}

// copySecret puts secret on the clipboard and clears it after
// ClipboardClear.
func (a *App) copySecret(secret []byte) error {
	if err := a.Clipboard(string(secret)); err != nil {
		return err
	}
	a.copied = true
	if a.ClipboardClear > 0 {
		time.AfterFunc(a.ClipboardClear, func() {
			if err := a.Clipboard(""); err != nil {
				a.Log.Warn("clipboard clear failed", zap.Error(err))
			}
		})
	}
	return nil
}

// ClearClipboard empties the clipboard if this session put a password on it.
// Pending clear timers do not survive process exit, so call this on the way
// out.
func (a *App) ClearClipboard() {
	if !a.copied {
		return
	}
	if err := a.Clipboard(""); err != nil {
		a.Log.Warn("clipboard clear failed", zap.Error(err))
	}
	a.copied = false
}
