package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/spechealth/internal/app"
	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/infrastructure/cli/helpers"
)

var healthyRepo = map[string]string{
	"package.json": `{"name": "demo", "version": "1.0.0",
		"scripts": {"edit": "x", "render": "x", "dev": "x"},
		"dependencies": {"spec-up-t": "^1.1.0"}}`,
	"specs.json": `{"specs": [{"title": "Demo", "logo": "l.svg", "favicon": "f.ico",
		"spec_directory": "./spec", "output_path": "./docs",
		"markdown_paths": ["spec-head.md", "terms-and-definitions-intro.md"],
		"source": {"host": "github", "account": "acme", "repo": "demo"},
		"external_specs": [{"external_spec": "toip", "gh_page": "https://example.org/toip"}]}]}`,
	".gitignore":                          "node_modules\n.env\n.DS_Store\n*.log\ndocs/\n",
	"spec/spec-head.md":                   "# Demo",
	"spec/terms-and-definitions-intro.md": "Intro",
	"docs/index.html":                     "<html></html>",
}

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func testContainer(t *testing.T) ContainerFunc {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	c, err := app.BuildContainer(context.Background(), app.Options{
		ConfigPath: filepath.Join(home, "config.yaml"),
	})
	require.NoError(t, err)
	return func() (*app.Container, error) { return c, nil }
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunHealthyRepository(t *testing.T) {
	container := testContainer(t)
	repo := writeRepo(t, healthyRepo)

	out, err := execute(t, NewRunCommand(container), repo, "--offline", "--format", "json")
	require.NoError(t, err, out)

	var report domain.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 8, report.Summary.Total)
	assert.Equal(t, 100, report.Summary.Score)
	assert.Equal(t, "local", report.Provider.Type)
	assert.Nil(t, report.Error)
}

func TestRunBrokenRepositoryExitsWithErrors(t *testing.T) {
	container := testContainer(t)
	repo := writeRepo(t, map[string]string{"README.md": "nothing here"})

	out, err := execute(t, NewRunCommand(container), repo, "--offline")
	var exitErr *helpers.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, domain.ExitCodeErrors, exitErr.Code)
	assert.Contains(t, out, "[FAIL] package-json")
	assert.Contains(t, out, "[SKIP] spec-directory")
}

func TestRunWarningsOnlyExitCode(t *testing.T) {
	container := testContainer(t)
	files := map[string]string{}
	for k, v := range healthyRepo {
		files[k] = v
	}
	files[".gitignore"] = "node_modules\n.env\ndocs\n"
	repo := writeRepo(t, files)

	_, err := execute(t, NewRunCommand(container), repo, "--offline", "--checks", "gitignore")
	var exitErr *helpers.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, domain.ExitCodeWarnings, exitErr.Code)
}

func TestRunExplicitEmptySelection(t *testing.T) {
	container := testContainer(t)
	repo := writeRepo(t, nil)

	out, err := execute(t, NewRunCommand(container), repo, "--checks=", "--format", "json")
	require.NoError(t, err)
	var report domain.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Zero(t, report.Summary.Total)
}

func TestRunRecordsHistory(t *testing.T) {
	container := testContainer(t)
	repo := writeRepo(t, healthyRepo)

	_, err := execute(t, NewRunCommand(container), repo, "--offline", "--categories", "configuration", "--format", "json")
	require.NoError(t, err)
	_, err = execute(t, NewRunCommand(container), repo, "--offline", "--no-history", "--format", "json")
	require.NoError(t, err)

	out, err := execute(t, NewHistoryCommand(container), "--format", "json")
	require.NoError(t, err)
	var records []domain.HistoryRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, 3, records[0].Total)

	out, err = execute(t, NewHistoryCommand(container), "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "History cleared")

	out, err = execute(t, NewHistoryCommand(container))
	require.NoError(t, err)
	assert.Contains(t, out, MsgNoHistoryRecorded)
}

func TestChecksListing(t *testing.T) {
	container := testContainer(t)

	out, err := execute(t, NewChecksCommand(container))
	require.NoError(t, err)
	assert.Contains(t, out, "package-json")
	assert.Contains(t, out, "8 checks (8 enabled, 0 disabled)")

	out, err = execute(t, NewChecksCommand(container), "--format", "json")
	require.NoError(t, err)
	var listing checkListing
	require.NoError(t, json.Unmarshal([]byte(out), &listing))
	require.Len(t, listing.Checks, 8)
	assert.Equal(t, "package-json", listing.Checks[0].ID)
	assert.Equal(t, "output-index", listing.Checks[7].ID)
}

func TestConfigCommands(t *testing.T) {
	container := testContainer(t)
	c, err := container()
	require.NoError(t, err)
	path := c.ConfigLoader.Path()

	out, err := execute(t, NewConfigCommand(container, func() string { return path }), "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	out, err = execute(t, NewConfigCommand(container, func() string { return path }), "validate")
	require.NoError(t, err)
	assert.Contains(t, out, MsgConfigurationValid)

	out, err = execute(t, NewConfigCommand(container, func() string { return path }), "diff")
	require.NoError(t, err)
	assert.Contains(t, out, MsgNoDifferencesFromDefault)

	out, err = execute(t, NewConfigCommand(container, func() string { return path }), "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_entries: 200")

	require.NoError(t, os.WriteFile(path, []byte("output:\n  format: html\n"), 0o600))
	_, err = execute(t, NewConfigCommand(container, func() string { return path }), "validate")
	assert.Error(t, err)
}

func TestCacheCommands(t *testing.T) {
	container := testContainer(t)

	out, err := execute(t, NewCacheCommand(container), "list")
	require.NoError(t, err)
	assert.Contains(t, out, MsgNoCachedProbes)

	out, err = execute(t, NewCacheCommand(container), "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache cleared")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, NewVersionCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "spechealth dev")

	out, err = execute(t, NewVersionCommand(), "--format", "json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info["version"])
	assert.NotEmpty(t, info["goVersion"])

	_, err = execute(t, NewVersionCommand(), "--format", "yaml")
	assert.Error(t, err)
}
