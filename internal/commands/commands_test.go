package commands_test

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/sepadd/internal/commands"
	"github.com/cleared-dev/sepadd/internal/model"
)

const batchYAML = `id: B-1
sequence_type: FRST
transfers:
  - reference: M-001
    amount: "12.50"
    name: Jörg Müller
    iban: DE89 3704 0044 0532 0130 00
    remittance: Beitrag Februar
  - amount: "7.49"
    name: John Roe
    iban: NL91ABNA0417164300
`

func runSepadd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runSepaddStderr(t, args...)
	return out, err
}

func runSepaddStderr(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// initProject runs init in a fresh directory and returns it with the
// --config flag pointing at its sepadd.yaml.
func initProject(t *testing.T, extra ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	args := append([]string{
		"init", dir,
		"--collection-date", "2025-02-01",
		"--creditor-id", "DE98ZZZ09999999999",
		"--creditor-name", "Acme Club e.V.",
		"--creditor-iban", "GB29 NWBK 6016 1331 9268 19",
	}, extra...)
	_, err := runSepadd(t, args...)
	require.NoError(t, err)
	return dir, []string{"--config", filepath.Join(dir, "sepadd.yaml")}
}

func writeBatch(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := runSepadd(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev (commit: none")
}

func TestInit_CreatesStructure(t *testing.T) {
	dir, _ := initProject(t)

	for _, d := range []string{filepath.Join("var", "sepa"), filepath.Join("var", "inbox")} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	data, err := os.ReadFile(filepath.Join(dir, "sepadd.yaml"))
	require.NoError(t, err)
	contents := string(data)
	assert.Contains(t, contents, "requested_collection_date: \"2025-02-01\"")
	assert.Contains(t, contents, "name: Acme Club e.V.")
}

func TestInit_Twice(t *testing.T) {
	dir, _ := initProject(t)
	_, err := runSepadd(t, "init", dir, "--collection-date", "2025-02-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInit_RejectsBadDefaults(t *testing.T) {
	dir := t.TempDir()
	_, err := runSepadd(t, "init", dir, "--collection-date", "2025-13-01")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = runSepadd(t, "init", dir, "--collection-date", "2025-02-01", "--creditor-iban", "DE00000000000000000000")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	assert.NoFileExists(t, filepath.Join(dir, "sepadd.yaml"))
}

func TestInit_RequiresCollectionDate(t *testing.T) {
	_, err := runSepadd(t, "init", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection-date")
}

func TestSaveShowListRemove(t *testing.T) {
	dir, cfg := initProject(t)
	batch := writeBatch(t, dir, batchYAML)

	out, err := runSepadd(t, append(cfg, "save", batch)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved B-1: 2 transactions, 19.99 EUR")
	assert.FileExists(t, filepath.Join(dir, "var", "sepa", "B-1.xml"))

	out, err = runSepadd(t, append(cfg, "show", "B-1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Sequence:    FRST")
	assert.Contains(t, out, "Collection:  2025-02-01")
	assert.Contains(t, out, "GB29 NWBK 6016 1331 9268 19")
	assert.Contains(t, out, "19.99 EUR in 2 transactions")
	assert.Contains(t, out, "Jorg Muller")
	assert.Contains(t, out, "DE89 3704 0044 0532 0130 00")

	out, err = runSepadd(t, append(cfg, "show", "--xml", "B-1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "urn:iso:std:iso:20022:tech:xsd:pain.008.001.02")
	assert.Contains(t, out, "<PmtInfId>B-1-FRST</PmtInfId>")

	out, err = runSepadd(t, append(cfg, "show", "--csv", "B-1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "reference,mandate_id,mandate_date,amount,name,iban,remittance\n")
	assert.Contains(t, out, "M-001,M-001,")
	assert.Contains(t, out, ",12.50,Jorg Muller,DE89370400440532013000,Beitrag Februar\n")

	out, err = runSepadd(t, append(cfg, "list")...)
	require.NoError(t, err)
	assert.Equal(t, "B-1\n", out)

	out, err = runSepadd(t, append(cfg, "remove", "B-1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed B-1")

	_, err = runSepadd(t, append(cfg, "remove", "B-1")...)
	assert.ErrorIs(t, err, model.ErrIDNotFound)
	_, err = runSepadd(t, append(cfg, "show", "B-1")...)
	assert.ErrorIs(t, err, model.ErrIDNotFound)

	out, err = runSepadd(t, append(cfg, "list")...)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = runSepadd(t, append(cfg, "history")...)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "save")
	assert.Contains(t, lines[0], "2 transactions, 19.99 EUR")
	assert.Contains(t, lines[1], "remove")
	assert.Contains(t, lines[1], "B-1")
}

func TestSave_DuplicateAndReplace(t *testing.T) {
	dir, cfg := initProject(t)
	batch := writeBatch(t, dir, batchYAML)

	_, err := runSepadd(t, append(cfg, "save", batch)...)
	require.NoError(t, err)

	_, err = runSepadd(t, append(cfg, "save", batch)...)
	assert.ErrorIs(t, err, model.ErrDuplicateID)

	replacement := writeBatch(t, dir, strings.Replace(batchYAML, `"7.49"`, `"17.49"`, 1))
	out, err := runSepadd(t, append(cfg, "save", "--replace", replacement)...)
	require.NoError(t, err)
	assert.Contains(t, out, "29.99 EUR")
}

func TestSave_GenerateID(t *testing.T) {
	dir, cfg := initProject(t)
	batch := writeBatch(t, dir, batchYAML)

	_, err := runSepadd(t, append(cfg, "save", "--generate-id", batch)...)
	require.NoError(t, err)
	_, err = runSepadd(t, append(cfg, "save", "--generate-id", batch)...)
	require.NoError(t, err)

	out, err := runSepadd(t, append(cfg, "list")...)
	require.NoError(t, err)
	ids := strings.Fields(out)
	assert.Len(t, ids, 2)
	assert.NotContains(t, ids, "B-1")
}

func TestSave_InvalidBatch(t *testing.T) {
	dir, cfg := initProject(t)
	batch := writeBatch(t, dir, strings.Replace(batchYAML, "NL91ABNA0417164300", "DE00000000000000000000", 1))

	_, err := runSepadd(t, append(cfg, "save", batch)...)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	out, err := runSepadd(t, append(cfg, "list")...)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestParse(t *testing.T) {
	dir, cfg := initProject(t)
	_, err := runSepadd(t, append(cfg, "save", writeBatch(t, dir, batchYAML))...)
	require.NoError(t, err)

	out, err := runSepadd(t, append(cfg, "parse", filepath.Join(dir, "var", "sepa", "B-1.xml"))...)
	require.NoError(t, err)
	assert.Contains(t, out, "Batch:       B-1")

	_, err = runSepadd(t, append(cfg, "parse", filepath.Join(dir, "nope.xml"))...)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestImport(t *testing.T) {
	dir, cfg := initProject(t)
	_, err := runSepadd(t, append(cfg, "save", writeBatch(t, dir, batchYAML))...)
	require.NoError(t, err)

	// Move the stored document into the inbox under a new name.
	inbox := filepath.Join(dir, "var", "inbox")
	doc, err := os.ReadFile(filepath.Join(dir, "var", "sepa", "B-1.xml"))
	require.NoError(t, err)
	_, err = runSepadd(t, append(cfg, "remove", "B-1")...)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "from-bank.xml"), doc, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "broken.xml"), []byte("<Document/>"), 0o644))

	out, err := runSepadd(t, append(cfg, "import")...)
	require.Error(t, err, "a failed document fails the command")
	assert.ErrorIs(t, err, model.ErrUnsupportedVersion)
	assert.Contains(t, out, "imported from-bank.xml -> B-1")
	assert.Contains(t, out, "FAILED   broken.xml")

	assert.FileExists(t, filepath.Join(inbox, "processed", "from-bank.xml"))
	assert.FileExists(t, filepath.Join(inbox, "broken.xml"))

	out, err = runSepadd(t, append(cfg, "list")...)
	require.NoError(t, err)
	assert.Equal(t, "B-1\n", out)
}

func TestConfigErrorsSurfaceBeforeStore(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sepadd.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("requested_collection_date: 2025-02-30\n"), 0o644))

	_, err := runSepadd(t, "--config", cfgPath, "list")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	assert.NoDirExists(t, filepath.Join(dir, "var", "sepa"))
}

func TestUnknownAdapter(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sepadd.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("requested_collection_date: 2025-02-01\nadapter: ftp\n"), 0o644))

	_, err := runSepadd(t, "--config", cfgPath, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown adapter")
}

func TestAutoCommit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir, cfg := initProject(t, "--git")
	_, err := runSepadd(t, append(cfg, "save", writeBatch(t, dir, batchYAML))...)
	require.NoError(t, err)
	_, err = runSepadd(t, append(cfg, "remove", "B-1")...)
	require.NoError(t, err)

	log := exec.Command("git", "log", "--format=%s")
	log.Dir = dir
	out, err := log.Output()
	require.NoError(t, err)
	assert.Equal(t, []string{"remove: B-1", "save: B-1", "init: sepadd project"}, strings.Split(strings.TrimSpace(string(out)), "\n"))
}

func TestDebugMode_WritesStoreMetrics(t *testing.T) {
	dir, cfgArgs := initProject(t)
	cfgPath := filepath.Join(dir, "sepadd.yaml")
	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "debug: false")
	require.NoError(t, os.WriteFile(cfgPath, []byte(strings.Replace(string(data), "debug: false", "debug: true", 1)), 0o644))

	batch := writeBatch(t, dir, batchYAML)
	_, stderr, err := runSepaddStderr(t, append(cfgArgs, "save", batch)...)
	require.NoError(t, err)
	assert.Contains(t, stderr, `sepadd_store_operations_total{op="save",result="ok"} 1`)
	assert.Contains(t, stderr, "sepadd_store_cache_entries 1")
}

func TestMetricsNotWrittenOutsideDebugMode(t *testing.T) {
	dir, cfgArgs := initProject(t)
	batch := writeBatch(t, dir, batchYAML)
	_, stderr, err := runSepaddStderr(t, append(cfgArgs, "save", batch)...)
	require.NoError(t, err)
	assert.NotContains(t, stderr, "sepadd_store_operations_total")
}
