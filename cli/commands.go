package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fahmaliyi/passwallet/passgen"
	"github.com/fahmaliyi/passwallet/vault"
)

const help = "Commands: a=add, l=list, s TEXT=search, v N=reveal, c N=copy, d N=delete, g=generate, p=passphrase, w=save, q=quit"

// RunCommands runs the line-oriented loop until quit or end of input.
// Numbers refer to the last list or search output.
func (a *App) RunCommands() error {
	for {
		fmt.Fprintln(a.Out)
		fmt.Fprintln(a.Out, help)
		fmt.Fprint(a.Out, "> ")

		line, err := readLine(a.In)
		if errors.Is(err, io.EOF) {
			return a.quit()
		}
		if err != nil {
			return err
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch cmd := parts[0]; cmd {
		case "a":
			if err := a.handleAdd(); err != nil {
				a.report(err)
			}
			a.idMap = nil
		case "l":
			a.handleList()
		case "s":
			a.handleSearch(strings.TrimSpace(strings.TrimPrefix(line, "s")))
		case "v", "c", "d":
			if len(parts) < 2 {
				fmt.Fprintln(a.Out, "Specify item number")
				continue
			}
			num, err := strconv.Atoi(parts[1])
			id, ok := a.idMap[num]
			if err != nil || !ok {
				fmt.Fprintln(a.Out, "Invalid item number")
				continue
			}
			switch cmd {
			case "v":
				a.handleReveal(id)
			case "c":
				a.handleCopy(id)
			case "d":
				a.handleDelete(id)
				a.idMap = nil
			}
		case "g":
			if _, err := a.generateInteractive(); err != nil {
				a.report(err)
			}
		case "p":
			a.handlePassphrase()
		case "w":
			a.handleSave()
		case "q":
			return a.quit()
		default:
			fmt.Fprintln(a.Out, "Unknown command")
		}
	}
}

func (a *App) records() *vault.Repository {
	repo, err := a.Store.Records()
	if err != nil {
		// RunCommands is only reachable after Unlock.
		panic(err)
	}
	return repo
}

func (a *App) report(err error) {
	switch {
	case errors.Is(err, vault.ErrValidation), errors.Is(err, passgen.ErrValidation):
		fmt.Fprintln(a.Out, "Invalid input:", err)
	default:
		a.Log.Error("command failed", zap.Error(err))
		fmt.Fprintln(a.Out, "Error:", err)
	}
}

func (a *App) printRecords(records []vault.Record) {
	a.idMap = make(map[int]string, len(records))
	for i, r := range records {
		num := i + 1
		a.idMap[num] = r.ID
		fmt.Fprintf(a.Out, "%d) Site: %s | Username: %s | Created: %s\n",
			num, r.SiteName, r.Username, r.CreatedAt.Local().Format("2006-01-02"))
	}
}

func (a *App) handleList() {
	records := a.records().List()
	if len(records) == 0 {
		fmt.Fprintln(a.Out, "Vault is empty.")
		a.idMap = nil
		return
	}
	fmt.Fprintln(a.Out, "Vault entries:")
	a.printRecords(records)
	fmt.Fprintf(a.Out, "Total entries: %d\n", len(records))
}

func (a *App) handleSearch(query string) {
	if query == "" {
		fmt.Fprintln(a.Out, "Usage: s TEXT")
		return
	}
	matches := a.records().SearchBySite(query)
	if len(matches) == 0 {
		fmt.Fprintf(a.Out, "No entries found matching '%s'.\n", query)
		a.idMap = nil
		return
	}
	fmt.Fprintf(a.Out, "Found %d matching entries:\n", len(matches))
	a.printRecords(matches)
}

func (a *App) handleReveal(id string) {
	r, ok := a.records().Get(id)
	if !ok {
		fmt.Fprintln(a.Out, "Entry not found")
		return
	}
	defer vault.Zero(r.Password)
	fmt.Fprintf(a.Out, "Site: %s\nUsername: %s\nPassword: %s\nNotes: %s\n",
		r.SiteName, r.Username, r.Password, r.Notes)
}

func (a *App) handleCopy(id string) {
	r, ok := a.records().Get(id)
	if !ok {
		fmt.Fprintln(a.Out, "Entry not found")
		return
	}
	defer vault.Zero(r.Password)
	if err := a.copySecret(r.Password); err != nil {
		a.report(err)
		return
	}
	fmt.Fprintf(a.Out, "Password copied to clipboard. Clearing in %s...\n", a.ClipboardClear)
}

func (a *App) handleDelete(id string) {
	if err := a.records().Remove(id); err != nil {
		a.report(err)
		return
	}
	fmt.Fprintln(a.Out, "Entry deleted. Use 'w' to save.")
}

func (a *App) handleSave() {
	if err := a.Store.Save(); err != nil {
		if errors.Is(err, vault.ErrModifiedExternally) {
			fmt.Fprintln(a.Out, "The vault file changed on disk since it was opened; not overwriting it.")
			return
		}
		a.report(err)
		return
	}
	fmt.Fprintln(a.Out, "Vault saved.")
}

func (a *App) handlePassphrase() {
	fmt.Fprint(a.Out, "Number of words (default 6): ")
	answer, err := readLine(a.In)
	if err != nil {
		a.report(err)
		return
	}
	words := 6
	if answer != "" {
		if n, err := strconv.Atoi(answer); err == nil {
			words = n
		}
	}
	phrase, err := passgen.Passphrase(words, "-")
	if err != nil {
		a.report(err)
		return
	}
	fmt.Fprintf(a.Out, "Passphrase: %s\n", phrase)
}

func (a *App) quit() error {
	if a.Store.Dirty() {
		fmt.Fprint(a.Out, "Save changes before quitting? (Y/n): ")
		// Without an answer (end of input) nothing is written.
		answer, err := readLine(a.In)
		if err == nil && yes(answer, true) {
			if err := a.Store.Save(); err != nil {
				return fmt.Errorf("save vault: %w", err)
			}
			fmt.Fprintln(a.Out, "Vault saved.")
		}
	}
	fmt.Fprintln(a.Out, "Goodbye!")
	return nil
}
