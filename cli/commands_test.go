package cli

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fahmaliyi/passwallet/vault"
)

func script(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

// unlockedApp seeds a vault and returns an app already unlocked on it.
func unlockedApp(t *testing.T, input string, sites []string, secrets ...string) (*App, *strings.Builder, *fakeClipboard, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	seedVault(t, fs, sites...)
	app, _, clip := newTestApp(t, fs, input, append([]string{"Secret1!"}, secrets...)...)
	require.NoError(t, app.Unlock())
	sb := &strings.Builder{}
	app.Out = sb
	return app, sb, clip, fs
}

func reopen(t *testing.T, fs afero.Fs) []vault.Record {
	t.Helper()
	s := newStore(fs)
	defer s.Close()
	require.NoError(t, s.Open([]byte("Secret1!")))
	repo, err := s.Records()
	require.NoError(t, err)
	return repo.List()
}

func TestRunCommandsAddListRevealSave(t *testing.T) {
	in := script(
		"a", "example.com", "alice", "n", "",
		"l",
		"v 1",
		"w",
		"q",
	)
	app, out, _, fs := unlockedApp(t, in, nil, "p@ss")

	require.NoError(t, app.RunCommands())
	o := out.String()
	assert.Contains(t, o, "Entry added. Use 'w' to save.")
	assert.Contains(t, o, "Vault entries:")
	assert.Contains(t, o, "1) Site: example.com | Username: alice")
	assert.Contains(t, o, "Total entries: 1")
	assert.Contains(t, o, "Password: p@ss")
	assert.Contains(t, o, "Vault saved.")
	assert.Contains(t, o, "Goodbye!")
	assert.NotContains(t, o, "Save changes before quitting?")

	records := reopen(t, fs)
	require.Len(t, records, 1)
	assert.Equal(t, "example.com", records[0].SiteName)
	assert.Equal(t, "alice", records[0].Username)
	assert.Equal(t, "p@ss", string(records[0].Password))
}

func TestRunCommandsEmptyPasswordRejected(t *testing.T) {
	in := script("a", "example.com", "alice", "n", "q")
	app, out, _, fs := unlockedApp(t, in, nil, "")

	require.NoError(t, app.RunCommands())
	assert.Contains(t, out.String(), "Password cannot be empty.")
	assert.Empty(t, reopen(t, fs))
}

func TestRunCommandsBlankSite(t *testing.T) {
	in := script("a", "  ", "alice", "n", "", "q")
	app, out, _, _ := unlockedApp(t, in, nil, "p@ss")

	require.NoError(t, app.RunCommands())
	assert.Contains(t, out.String(), "Invalid input:")
	assert.False(t, app.Store.Dirty())
}

func TestRunCommandsDuplicateSite(t *testing.T) {
	in := script(
		"a", "Example.com", "bob", "n",
		"a", "example.com", "carol", "y", "n", "",
		"w", "q",
	)
	app, out, _, fs := unlockedApp(t, in, []string{"example.com"}, "p@ss")

	require.NoError(t, app.RunCommands())
	assert.Equal(t, 2, strings.Count(out.String(), "already exists. Add another?"))
	assert.Contains(t, out.String(), "Entry not added.")

	records := reopen(t, fs)
	require.Len(t, records, 2)
	assert.Equal(t, "carol", records[1].Username)
}

func TestRunCommandsSearch(t *testing.T) {
	in := script("s git", "v 2", "s nomatch", "v 1", "s", "q")
	app, out, _, _ := unlockedApp(t, in, []string{"GitHub", "Example", "GitLab"})

	require.NoError(t, app.RunCommands())
	o := out.String()
	assert.Contains(t, o, "Found 2 matching entries:")
	assert.Contains(t, o, "1) Site: GitHub")
	assert.Contains(t, o, "2) Site: GitLab")
	assert.Contains(t, o, "Password: pw-GitLab")
	assert.Contains(t, o, "No entries found matching 'nomatch'.")
	assert.Contains(t, o, "Invalid item number")
	assert.Contains(t, o, "Usage: s TEXT")
}

func TestRunCommandsCopy(t *testing.T) {
	in := script("l", "c 1", "q")
	app, out, clip, _ := unlockedApp(t, in, []string{"example.com"})

	require.NoError(t, app.RunCommands())
	assert.Contains(t, out.String(), "Password copied to clipboard.")
	assert.Equal(t, []string{"pw-example.com"}, clip.writes)
}

func TestRunCommandsDeleteAndDiscard(t *testing.T) {
	in := script("l", "d 1", "d 1", "q", "n")
	app, out, _, fs := unlockedApp(t, in, []string{"a", "b"})

	require.NoError(t, app.RunCommands())
	o := out.String()
	assert.Contains(t, o, "Entry deleted. Use 'w' to save.")
	assert.Contains(t, o, "Invalid item number", "numbers reset after delete")
	assert.Contains(t, o, "Save changes before quitting? (Y/n): ")
	assert.Len(t, reopen(t, fs), 2)
}

func TestRunCommandsEOFDoesNotSave(t *testing.T) {
	in := "l\nd 1\n"
	app, out, _, fs := unlockedApp(t, in, []string{"a", "b"})

	require.NoError(t, app.RunCommands())
	assert.Contains(t, out.String(), "Save changes before quitting? (Y/n): ")
	assert.NotContains(t, out.String(), "Vault saved.")
	assert.Contains(t, out.String(), "Goodbye!")
	assert.Len(t, reopen(t, fs), 2)
}

func TestRunCommandsQuitSavesByDefault(t *testing.T) {
	in := script("l", "d 1", "q", "")
	app, out, _, fs := unlockedApp(t, in, []string{"a", "b"})

	require.NoError(t, app.RunCommands())
	assert.Contains(t, out.String(), "Vault saved.")
	records := reopen(t, fs)
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].SiteName)
}

func TestRunCommandsSaveConflict(t *testing.T) {
	in := script("l", "d 1", "w", "q", "n")
	app, out, _, fs := unlockedApp(t, in, []string{"a"})

	require.NoError(t, afero.WriteFile(fs, vaultPath, []byte("replaced by another process"), 0o600))
	require.NoError(t, app.RunCommands())
	assert.Contains(t, out.String(), "changed on disk")
}

func TestRunCommandsGenerate(t *testing.T) {
	in := script(
		"g", "20", "", "", "", "",
		"g", "500", "n", "n", "y", "n",
		"g", "abc",
		"g", "8", "n", "n", "n", "n",
		"q",
	)
	app, out, _, _ := unlockedApp(t, in, nil)

	require.NoError(t, app.RunCommands())
	o := out.String()
	assert.Equal(t, 2, strings.Count(o, "Generated password: "))
	assert.Contains(t, o, "Strength: ")
	assert.Contains(t, o, "Maximum length is 128. Using 128.")
	assert.Equal(t, 2, strings.Count(o, "Invalid input:"))

	for _, line := range strings.Split(o, "\n") {
		if i := strings.Index(line, "Generated password: "); i >= 0 {
			pw := line[i+len("Generated password: "):]
			assert.Contains(t, []int{20, 128}, len(pw))
		}
	}
}

func TestRunCommandsAddWithGeneratedPassword(t *testing.T) {
	in := script("a", "example.com", "alice", "y", "16", "", "", "", "", "notes here", "w", "q")
	app, _, _, fs := unlockedApp(t, in, nil)

	require.NoError(t, app.RunCommands())
	records := reopen(t, fs)
	require.Len(t, records, 1)
	assert.Len(t, records[0].Password, 16)
	assert.Equal(t, "notes here", records[0].Notes)
}

func TestRunCommandsPassphrase(t *testing.T) {
	in := script("p", "4", "p", "0", "q")
	app, out, _, _ := unlockedApp(t, in, nil)

	require.NoError(t, app.RunCommands())
	o := out.String()
	i := strings.Index(o, "Passphrase: ")
	require.GreaterOrEqual(t, i, 0)
	phrase := strings.SplitN(o[i+len("Passphrase: "):], "\n", 2)[0]
	assert.GreaterOrEqual(t, strings.Count(phrase, "-"), 3)
	assert.Contains(t, o, "Invalid input:")
}

func TestRunCommandsUnknown(t *testing.T) {
	app, out, _, _ := unlockedApp(t, script("x", "v", "q"), nil)
	require.NoError(t, app.RunCommands())
	assert.Contains(t, out.String(), "Unknown command")
	assert.Contains(t, out.String(), "Specify item number")
}
