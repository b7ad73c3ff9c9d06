package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/stubd/pkg/config"
)

func writeMapping(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, config.MappingsDirName, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()
	writeMapping(t, dir, "ok.json", `{"request": {"url": "/ok"}, "response": {"body": "ok"}}`)

	var buf bytes.Buffer
	require.NoError(t, runValidate(&buf, validateFlags{rootDir: dir}, nil, false))
	assert.Contains(t, buf.String(), "ok.json")
	assert.Contains(t, buf.String(), "1 mappings in 1 valid files, 0 invalid")

	writeMapping(t, dir, "bad.yaml", "request:\n  url: /bad\nresponse:\n  status: 42\n")
	buf.Reset()
	err := runValidate(&buf, validateFlags{rootDir: dir}, nil, false)
	require.ErrorIs(t, err, ErrInvalidMappings)
	assert.Contains(t, buf.String(), "bad.yaml")
	assert.Contains(t, buf.String(), "invalid")
}

func TestRunValidate_JSON(t *testing.T) {
	dir := t.TempDir()
	writeMapping(t, dir, "two.json", `{"mappings": [
		{"request": {"url": "/a"}, "response": {"body": "a"}},
		{"request": {"url": "/b"}, "response": {"body": "b"}}
	]}`)

	var buf bytes.Buffer
	require.NoError(t, runValidate(&buf, validateFlags{rootDir: dir}, nil, true))

	var out ValidateOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.True(t, out.Valid)
	assert.Equal(t, 2, out.Mappings)
	require.Len(t, out.Files, 1)
	assert.Equal(t, 2, out.Files[0].Mappings)
}

func TestRunValidate_NoFiles(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runValidate(&buf, validateFlags{rootDir: t.TempDir()}, nil, false))
	assert.Contains(t, buf.String(), "No mapping files found")
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printVersion(&buf, VersionOutput{Version: "1.2.3", Commit: "abc", Date: "today", Go: "go1.24", OS: "linux", Arch: "amd64"}, false))
	assert.Equal(t, "stubd v1.2.3 (abc, today)\ngo1.24 linux/amd64\n", buf.String())

	buf.Reset()
	require.NoError(t, printVersion(&buf, VersionOutput{Version: "dev"}, true))
	var out VersionOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "dev", out.Version)
}

func TestLoadServeConfig_FlagsOverrideEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STUBD_PORT", "7000")
	t.Setenv("STUBD_PROXY_ALL", "http://env.example")

	cmd := &cobra.Command{Use: "test"}
	addServeFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9100", "--no-request-journal", "--mappings", "a/*.json", "--mappings", "b/**/*.yaml", "--log-level", "debug"}))

	cfg, _, err := loadServeConfig(cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "http://env.example", cfg.ProxyAll)
	assert.True(t, cfg.DisableRequestJournal)
	assert.Equal(t, []string{"a/*.json", "b/**/*.yaml"}, cfg.Mappings)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, config.DefaultMaxJournalEntries, cfg.MaxJournalEntries)
}

func TestLoadServeConfig_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd := &cobra.Command{Use: "test"}
	addServeFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--tls-cert", "only-cert.pem"}))

	_, _, err := loadServeConfig(cmd.Flags())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestPrintSummary(t *testing.T) {
	cfg := config.Default()
	cfg.ProxyAll = "http://upstream"

	var buf bytes.Buffer
	printSummary(&buf, summary{
		cfg:       cfg,
		httpAddr:  "127.0.0.1:8080",
		httpsAddr: "127.0.0.1:8443",
		result: &config.LoadResult{
			Files:  []config.FileSummary{{Path: "mappings/a.json", Size: 2048, Mappings: 3}},
			Errors: []config.LoadError{{Path: "mappings/b.json", Message: "file is empty"}},
		},
		mappings: 4,
	})

	out := buf.String()
	assert.Contains(t, out, "http://127.0.0.1:8080/__admin")
	assert.Contains(t, out, "https://127.0.0.1:8443")
	assert.Contains(t, out, "4 from 1 files (2.0 kB)")
	assert.Contains(t, out, "http://upstream")
	assert.Contains(t, out, "Warning: mappings/b.json: file is empty")
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["validate"])
	assert.True(t, names["version"])
	assert.NotNil(t, rootCmd.Flags().Lookup("port"), "root runs serve by default")
}
