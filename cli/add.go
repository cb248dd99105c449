package cli

import (
	"fmt"
	"strconv"

	"github.com/fahmaliyi/passwallet/passgen"
	"github.com/fahmaliyi/passwallet/vault"
)

const maxGeneratedLen = 128

func (a *App) prompt(label string) (string, error) {
	fmt.Fprint(a.Out, label)
	return readLine(a.In)
}

// handleAdd asks for a new record, optionally generating its password. The
// record is added in memory only; saving is explicit.
func (a *App) handleAdd() error {
	fmt.Fprintln(a.Out, "--- Add New Entry ---")

	site, err := a.prompt("Site/Service: ")
	if err != nil {
		return err
	}
	username, err := a.prompt("Username: ")
	if err != nil {
		return err
	}

	repo := a.records()
	if existing := repo.FindBySite(site); len(existing) > 0 {
		answer, err := a.prompt(fmt.Sprintf("An entry for '%s' already exists. Add another? (y/N): ", site))
		if err != nil {
			return err
		}
		if !yes(answer, false) {
			fmt.Fprintln(a.Out, "Entry not added.")
			return nil
		}
	}

	var secret []byte
	answer, err := a.prompt("Generate password? (y/N): ")
	if err != nil {
		return err
	}
	if yes(answer, false) {
		pw, err := a.generateInteractive()
		if err != nil {
			return err
		}
		secret = []byte(pw)
	} else {
		secret, err = a.ReadSecret("Password: ")
		if err != nil {
			return err
		}
	}
	if len(secret) == 0 {
		fmt.Fprintln(a.Out, "Password cannot be empty.")
		return nil
	}

	notes, err := a.prompt("Notes (optional): ")
	if err != nil {
		vault.Zero(secret)
		return err
	}

	_, err = repo.Add(vault.Record{
		SiteName: site,
		Username: username,
		Password: secret,
		Notes:    notes,
	})
	vault.Zero(secret)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.Out, "Entry added. Use 'w' to save.")
	return nil
}

// generateInteractive asks for a policy, shows the result with its
// strength and returns it.
func (a *App) generateInteractive() (string, error) {
	fmt.Fprintln(a.Out, "--- Password Generator ---")
	p := passgen.DefaultPolicy()

	answer, err := a.prompt(fmt.Sprintf("Password length (default %d): ", p.Length))
	if err != nil {
		return "", err
	}
	if answer != "" {
		n, err := strconv.Atoi(answer)
		if err != nil {
			return "", fmt.Errorf("%w: length %q is not a number", passgen.ErrValidation, answer)
		}
		if n > maxGeneratedLen {
			fmt.Fprintf(a.Out, "Maximum length is %d. Using %d.\n", maxGeneratedLen, maxGeneratedLen)
			n = maxGeneratedLen
		}
		p.Length = n
	}

	for _, c := range []struct {
		label string
		flag  *bool
	}{
		{"Include uppercase letters? (Y/n): ", &p.Upper},
		{"Include lowercase letters? (Y/n): ", &p.Lower},
		{"Include numbers? (Y/n): ", &p.Digits},
		{"Include special characters? (Y/n): ", &p.Symbols},
	} {
		answer, err := a.prompt(c.label)
		if err != nil {
			return "", err
		}
		*c.flag = yes(answer, true)
	}

	pw, err := p.Generate()
	if err != nil {
		return "", err
	}
	fmt.Fprintf(a.Out, "Generated password: %s\n", pw)
	fmt.Fprintf(a.Out, "Strength: %s\n", passgen.Strength(pw))
	return pw, nil
}
