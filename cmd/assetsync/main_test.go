package main

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/ProhorTaim/Egregoria/internal/config"
	"github.com/ProhorTaim/Egregoria/internal/storage"
	"github.com/ProhorTaim/Egregoria/internal/testutil/mediahost"
)

const lfsPointer = "version https://git-lfs.github.com/spec/v1\noid sha256:4d7a\nsize 1234\n"

type harness struct {
	cfg    *config.Config
	cwd    string
	stdout bytes.Buffer
}

func newHarness(t *testing.T, cwd string) *harness {
	t.Helper()
	cfg := config.FromViper(viper.New())
	cfg.Log.Level = "error"
	return &harness{cfg: cfg, cwd: cwd}
}

func (h *harness) run(args ...string) int {
	app := newApp(h.cfg, environment{
		stdout: &h.stdout,
		stderr: io.Discard,
		color:  false,
		getwd:  func() (string, error) { return h.cwd, nil },
	})
	return exitCode(app.Run(append([]string{"assetsync"}, args...)), io.Discard)
}

func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	return dir
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestSync_RestoresAndReplaces(t *testing.T) {
	host := mediahost.New(t)
	host.Put("assets/i18n/en.json", []byte(`{"hello":"Hello"}`))
	host.Put("assets/i18n/ru.json", []byte(`{"hello":"Привет"}`))

	dir := newProject(t)
	writeFile(t, filepath.Join(dir, "assets", "i18n", "ru.json"), lfsPointer)

	h := newHarness(t, dir)
	h.cfg.Remote.BaseURL = host.BaseURL()

	code := h.run("--include", "assets/i18n/**")
	require.Equal(t, 0, code, h.stdout.String())

	en, err := os.ReadFile(filepath.Join(dir, "assets", "i18n", "en.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"hello":"Hello"}`, string(en))
	ru, err := os.ReadFile(filepath.Join(dir, "assets", "i18n", "ru.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"hello":"Привет"}`, string(ru))

	out := h.stdout.String()
	assert.Contains(t, out, "[RESTORE] assets/i18n/en.json ... ✓")
	assert.Contains(t, out, "[REPLACE] assets/i18n/ru.json ... ✓")
	assert.Contains(t, out, "Files to check: 2")
	assert.Contains(t, out, "✓ Done!")

	// second run is a no-op
	h.stdout.Reset()
	require.Equal(t, 0, h.run("--include", "assets/i18n/**"))
	assert.Len(t, host.Requests(), 2)
	assert.Contains(t, h.stdout.String(), "Skipped (valid): 2")
}

func TestSync_FailureSetsExitCode(t *testing.T) {
	host := mediahost.New(t)
	host.Put("assets/i18n/en.json", []byte(`{}`))

	dir := newProject(t)
	h := newHarness(t, dir)
	h.cfg.Remote.BaseURL = host.BaseURL()

	code := h.run("sync", "--include", "assets/i18n/*.json")
	assert.Equal(t, 1, code)

	assert.FileExists(t, filepath.Join(dir, "assets", "i18n", "en.json"))
	assert.NoFileExists(t, filepath.Join(dir, "assets", "i18n", "ru.json"))

	out := h.stdout.String()
	assert.Contains(t, out, "✗ FAILED (HTTP 404)")
	assert.Contains(t, out, "  - assets/i18n/ru.json")
	assert.Contains(t, out, "⚠ Finished with errors")
}

func TestSync_ServerErrorKeepsPlaceholder(t *testing.T) {
	host := mediahost.New(t)
	host.Fail("assets/i18n/ru.json", http.StatusBadGateway)

	dir := newProject(t)
	stub := filepath.Join(dir, "assets", "i18n", "ru.json")
	writeFile(t, stub, lfsPointer)

	h := newHarness(t, dir)
	h.cfg.Remote.BaseURL = host.BaseURL()

	assert.Equal(t, 1, h.run("--include", "assets/i18n/ru.json"))
	body, err := os.ReadFile(stub)
	require.NoError(t, err)
	assert.Equal(t, lfsPointer, string(body))
	assert.Contains(t, h.stdout.String(), "HTTP 502")
}

func TestSync_UnresolvableDirectory(t *testing.T) {
	host := mediahost.New(t)

	h := newHarness(t, t.TempDir())
	h.cfg.Remote.BaseURL = host.BaseURL()

	assert.Equal(t, 1, h.run())
	assert.Equal(t, 1, h.run("sync", filepath.Join(t.TempDir(), "missing")))
	assert.Empty(t, host.Requests())
	assert.NotContains(t, h.stdout.String(), "Files to check")
}

func TestSync_ExplicitDirectoryArgument(t *testing.T) {
	host := mediahost.New(t)
	host.Put("assets/i18n/en.json", []byte(`{}`))

	dir := newProject(t)
	h := newHarness(t, t.TempDir())
	h.cfg.Remote.BaseURL = host.BaseURL()

	require.Equal(t, 0, h.run("sync", "--include", "assets/i18n/en.json", dir))
	assert.FileExists(t, filepath.Join(dir, "assets", "i18n", "en.json"))
	assert.Contains(t, h.stdout.String(), "Folder:  "+dir)
}

func TestSync_AppLevelFlagsReachSubcommand(t *testing.T) {
	host := mediahost.New(t)
	host.Put("assets/i18n/en.json", []byte(`{}`))

	dir := newProject(t)
	h := newHarness(t, dir)

	require.Equal(t, 0, h.run("--remote-base", host.BaseURL(), "sync", "--include", "assets/i18n/en.json"))
	assert.Equal(t, []string{"assets/i18n/en.json"}, host.Requests())
}

func TestSync_DryRunFetchesNothing(t *testing.T) {
	host := mediahost.New(t)

	dir := newProject(t)
	writeFile(t, filepath.Join(dir, "assets", "i18n", "ru.json"), lfsPointer)

	h := newHarness(t, dir)
	h.cfg.Remote.BaseURL = host.BaseURL()

	require.Equal(t, 0, h.run("--dry-run", "--include", "assets/i18n/**"))
	assert.Empty(t, host.Requests())
	assert.NoFileExists(t, filepath.Join(dir, "assets", "i18n", "en.json"))

	out := h.stdout.String()
	assert.Contains(t, out, "dry run")
	assert.Contains(t, out, "[RESTORE] assets/i18n/en.json")
	assert.Contains(t, out, "[REPLACE] assets/i18n/ru.json")
	assert.Contains(t, out, "2 file(s) would be downloaded")
}

func TestSync_InvalidSettings(t *testing.T) {
	dir := newProject(t)
	h := newHarness(t, dir)

	assert.Equal(t, 1, h.run("--source", "ftp"))
	assert.Equal(t, 1, h.run("--include", "assets/[i18n"))
	assert.Equal(t, 1, h.run("--remote-base", "ftp://example.com"))
}

func TestSync_TLSVerificationFlag(t *testing.T) {
	host := mediahost.NewTLS(t)
	host.Put("assets/i18n/en.json", []byte(`{}`))

	dir := newProject(t)
	h := newHarness(t, dir)
	h.cfg.Remote.BaseURL = host.BaseURL()

	assert.Equal(t, 1, h.run("--include", "assets/i18n/en.json"))
	assert.NoFileExists(t, filepath.Join(dir, "assets", "i18n", "en.json"))
	assert.Contains(t, h.stdout.String(), "certificate")

	h.stdout.Reset()
	require.Equal(t, 0, h.run("--insecure-skip-verify", "--include", "assets/i18n/en.json"))
	assert.FileExists(t, filepath.Join(dir, "assets", "i18n", "en.json"))
}

func TestHTTPConfig_CarriesFlags(t *testing.T) {
	h := newHarness(t, t.TempDir())
	var got storage.HTTPConfig
	h.cfg.Remote.BaseURL = "https://mirror.example.com/files"

	app := newApp(h.cfg, environment{stdout: &h.stdout, stderr: io.Discard, getwd: os.Getwd})
	app.Action = func(c *cli.Context) error {
		got = httpConfig((&assetSync{cfg: h.cfg}).settings(c))
		return nil
	}
	require.NoError(t, app.Run([]string{"assetsync", "--insecure-skip-verify", "--timeout", "30s"}))

	assert.True(t, got.InsecureSkipVerify)
	assert.Equal(t, 30*time.Second, got.Timeout)
	assert.Equal(t, "https://mirror.example.com/files", got.BaseURL)

	assert.False(t, httpConfig(*h.cfg).InsecureSkipVerify, "verification is on unless asked otherwise")
}

func TestSync_BannerShowsCargoProject(t *testing.T) {
	host := mediahost.New(t)
	host.Put("assets/i18n/en.json", []byte(`{}`))

	dir := newProject(t)
	writeFile(t, filepath.Join(dir, "Cargo.toml"), "[workspace]\nmembers = [\"engine\", \"simulation\"]\n")

	h := newHarness(t, dir)
	h.cfg.Remote.BaseURL = host.BaseURL()

	require.Equal(t, 0, h.run("--include", "assets/i18n/en.json"))
	assert.Contains(t, h.stdout.String(), "Project: workspace (2 members)")
}

func TestStatus(t *testing.T) {
	dir := newProject(t)
	h := newHarness(t, dir)

	assert.Equal(t, 1, h.run("status", "--include", "assets/i18n/**"))
	assert.Contains(t, h.stdout.String(), "Missing:      2")

	writeFile(t, filepath.Join(dir, "assets", "i18n", "en.json"), `{"a":1}`)
	writeFile(t, filepath.Join(dir, "assets", "i18n", "ru.json"), strings.Repeat("x", 400))

	h.stdout.Reset()
	assert.Equal(t, 0, h.run("status", "--include", "assets/i18n/**"))
	assert.Contains(t, h.stdout.String(), "Present:      2")
}

func TestList(t *testing.T) {
	h := newHarness(t, t.TempDir())

	require.Equal(t, 0, h.run("list", "--include", "assets/i18n/*"))
	assert.Equal(t, "assets/i18n/en.json\nassets/i18n/ru.json\n", h.stdout.String())

	h.stdout.Reset()
	require.Equal(t, 0, h.run("list", "--categories"))
	lines := strings.Split(strings.TrimSpace(h.stdout.String()), "\n")
	assert.Len(t, lines, 9)
	assert.True(t, strings.HasPrefix(lines[0], "core"))
}

func TestExitCode(t *testing.T) {
	var stderr bytes.Buffer

	assert.Equal(t, 0, exitCode(nil, &stderr))
	assert.Empty(t, stderr.String())

	assert.Equal(t, 1, exitCode(cli.Exit("", 1), &stderr))
	assert.Empty(t, stderr.String())

	assert.Equal(t, 3, exitCode(cli.Exit("boom", 3), &stderr))
	assert.Equal(t, "boom\n", stderr.String())

	stderr.Reset()
	assert.Equal(t, 1, exitCode(errors.New("flag provided but not defined"), &stderr))
	assert.Contains(t, stderr.String(), "flag provided but not defined")
}
