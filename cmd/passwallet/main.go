package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"go.uber.org/zap"

	"github.com/fahmaliyi/passwallet/cli"
	"github.com/fahmaliyi/passwallet/config"
	"github.com/fahmaliyi/passwallet/logger"
	"github.com/fahmaliyi/passwallet/vault"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Wipe locked buffers on Ctrl-C and on exit.
	memguard.CatchInterrupt()
	defer memguard.Purge()

	opts, err := config.Parse(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}

	log, err := logger.New(opts.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	kdf, err := opts.KDFParams()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}

	store := vault.NewStore(opts.SaltPath, opts.VaultPath, kdf, vault.WithLogger(log))
	defer store.Close()

	app := cli.NewApp(store, log, os.Stdin, os.Stdout)
	app.ClipboardClear = opts.ClipboardClear.Duration
	defer app.ClearClipboard()

	if err := app.Unlock(); err != nil {
		if !errors.Is(err, cli.ErrUnlockAborted) {
			log.Error("unlock failed", zap.Error(err))
		}
		fmt.Println("Error opening vault:", err)
		return 1
	}

	if opts.UI == "tui" {
		err = app.RunTUI()
	} else {
		err = app.RunCommands()
	}
	if err != nil {
		log.Error("session ended with error", zap.Error(err))
		fmt.Println("Error:", err)
		return 1
	}
	return 0
}
