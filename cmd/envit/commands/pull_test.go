package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/envit/internal/config"
	"github.com/systmms/envit/internal/logging"
	"github.com/systmms/envit/internal/resolve"
	"github.com/systmms/envit/internal/sources"
)

// pullFixture lays out a config file, an optional env file, and a fixture
// secrets file in one temp dir, wiring the fixture in via the env override.
type pullFixture struct {
	dir string
	cfg *config.Config
}

func newPullFixture(t *testing.T, configYAML string) *pullFixture {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "envit.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(configYAML), 0644))
	return &pullFixture{
		dir: dir,
		cfg: &config.Config{Path: configPath, Logger: logging.New(false, true)},
	}
}

const baseConfig = `version: 1
output:
  env_file: .env
  create_if_missing: true
provider:
  kind: azure.keyvault
  vault_url: https://example.vault.azure.net/
`

func (f *pullFixture) writeEnv(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, ".env"), []byte(content), 0600))
}

func (f *pullFixture) writeSecrets(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(f.dir, "secrets.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv(sources.FixtureEnvVar, path)
}

func (f *pullFixture) readEnv(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dir, ".env"))
	require.NoError(t, err)
	return string(data)
}

func (f *pullFixture) runPull(args ...string) (string, error) {
	cmd := NewPullCommand(f.cfg)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestPullUpdatesAndAddsWithoutDeletingLocalKeys(t *testing.T) {
	f := newPullFixture(t, baseConfig)
	f.writeEnv(t, "DATABASE_URL=old\nLOCAL_ONLY=keep\n")
	f.writeSecrets(t, "database-url=new\nredis=redis://localhost\n")

	out, err := f.runPull()
	require.NoError(t, err)
	assert.Contains(t, out, "Updated 2 keys")

	env := f.readEnv(t)
	assert.Contains(t, env, "DATABASE_URL=new")
	assert.Contains(t, env, "REDIS=redis://localhost")
	assert.Contains(t, env, "LOCAL_ONLY=keep")
}

func TestPullPreservesCommentsAndOrder(t *testing.T) {
	f := newPullFixture(t, baseConfig)
	f.writeEnv(t, "# header\nDATABASE_URL=old\n\nLOCAL_ONLY=keep")
	f.writeSecrets(t, "database-url=new\n")

	_, err := f.runPull()
	require.NoError(t, err)

	assert.Equal(t, "# header\nDATABASE_URL=new\n\nLOCAL_ONLY=keep\n", f.readEnv(t))
}

func TestPullDryRunShowsChangesButNotValues(t *testing.T) {
	f := newPullFixture(t, baseConfig)
	f.writeEnv(t, "DATABASE_URL=old\n")
	f.writeSecrets(t, "database-url=super-secret\nredis=redis://localhost\n")

	out, err := f.runPull("--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "UPDATE DATABASE_URL=********")
	assert.Contains(t, out, "ADD REDIS=********")
	assert.NotContains(t, out, "super-secret")
	assert.NotContains(t, out, "redis://localhost")

	// dry-run never writes
	assert.Equal(t, "DATABASE_URL=old\n", f.readEnv(t))
}

func TestPullAbortsWithoutWritingOnAnyFetchError(t *testing.T) {
	f := newPullFixture(t, baseConfig)
	initial := "DATABASE_URL=old\n"
	f.writeEnv(t, initial)
	f.writeSecrets(t, "database-url=new\n!error:broken-secret\n")

	_, err := f.runPull()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch secret broken-secret")

	assert.Equal(t, initial, f.readEnv(t))
}

func TestPullMissingSecretLeavesEntryUntouched(t *testing.T) {
	f := newPullFixture(t, baseConfig)
	f.writeEnv(t, "ABSENT_ONE=local-value\n")
	f.writeSecrets(t, "!missing:absent-one\nredis=redis://localhost\n")

	out, err := f.runPull()
	require.NoError(t, err)
	assert.Contains(t, out, "Updated 1 keys")

	env := f.readEnv(t)
	assert.Contains(t, env, "ABSENT_ONE=local-value")
	assert.Contains(t, env, "REDIS=redis://localhost")
	assert.NotContains(t, env, "ABSENT_ONE=\n")
}

func TestPullErrorsWhenEnvMissingAndCreateIfMissingFalse(t *testing.T) {
	f := newPullFixture(t, `version: 1
output:
  env_file: .env
  create_if_missing: false
provider:
  kind: azure.keyvault
  vault_url: https://example.vault.azure.net/
`)
	f.writeSecrets(t, "database-url=new\n")

	_, err := f.runPull()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "env file does not exist")
	assert.NoFileExists(t, filepath.Join(f.dir, ".env"))
}

func TestPullCreatesMissingEnvFileByDefault(t *testing.T) {
	f := newPullFixture(t, baseConfig)
	f.writeSecrets(t, "redis=redis://localhost\n")

	out, err := f.runPull()
	require.NoError(t, err)
	assert.Contains(t, out, "Updated 1 keys")
	assert.Equal(t, "REDIS=redis://localhost\n", f.readEnv(t))
}

func TestPullNoChangesMessage(t *testing.T) {
	f := newPullFixture(t, baseConfig)
	f.writeEnv(t, "REDIS=redis://localhost\n")
	f.writeSecrets(t, "redis=redis://localhost\n")

	out, err := f.runPull()
	require.NoError(t, err)
	assert.Contains(t, out, "No changes.")
	assert.Equal(t, "REDIS=redis://localhost\n", f.readEnv(t))
}

func TestPullDryRunNoChangesMessage(t *testing.T) {
	f := newPullFixture(t, baseConfig)
	f.writeEnv(t, "REDIS=redis://localhost\n")
	f.writeSecrets(t, "redis=redis://localhost\n")

	out, err := f.runPull("--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "No changes.")
}

func TestPullResuppliedValuesOnCRLFFileChangeNothing(t *testing.T) {
	f := newPullFixture(t, baseConfig)
	f.writeEnv(t, "DATABASE_URL=old\r\nLOCAL_ONLY=keep\r\n")
	f.writeSecrets(t, "database-url=old\n")

	out, err := f.runPull()
	require.NoError(t, err)
	assert.Contains(t, out, "No changes.")
}

func TestPullDebugLoggingNeverPrintsValues(t *testing.T) {
	f := newPullFixture(t, baseConfig)
	logBuf := &bytes.Buffer{}
	f.cfg.Logger = logging.NewWithWriter(logBuf, true, true)
	f.writeEnv(t, "DATABASE_URL=old\n")
	f.writeSecrets(t, "database-url=super-secret\nredis=redis://localhost\n")

	_, err := f.runPull()
	require.NoError(t, err)

	logs := logBuf.String()
	assert.Contains(t, logs, "[REDACTED]")
	assert.NotContains(t, logs, "super-secret")
	assert.NotContains(t, logs, "redis://localhost")
}

func TestPullOverrideMapWins(t *testing.T) {
	f := newPullFixture(t, baseConfig+`map:
  PRIMARY_DB: database-url
`)
	f.writeSecrets(t, "database-url=postgres://db\n")

	_, err := f.runPull()
	require.NoError(t, err)

	env := f.readEnv(t)
	assert.Contains(t, env, "PRIMARY_DB=postgres://db")
	assert.NotContains(t, env, "DATABASE_URL=")
}

func TestPullFailsOnConflictBeforeWriting(t *testing.T) {
	f := newPullFixture(t, baseConfig+`map:
  FIRST: shared-secret
  SECOND: shared-secret
`)
	initial := "DATABASE_URL=old\n"
	f.writeEnv(t, initial)
	f.writeSecrets(t, "shared-secret=value\n")

	_, err := f.runPull()
	require.Error(t, err)

	var conflict resolve.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, initial, f.readEnv(t))
}
