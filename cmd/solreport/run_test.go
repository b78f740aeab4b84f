package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/docker/docker/pkg/reexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solreport/internal/cmdtest"
)

func init() {
	// Run the app if we've been exec'd as "solreport-test" in runSolreport.
	reexec.Register("solreport-test", func() {
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	})
}

func TestMain(m *testing.M) {
	// check if we have been reexec'd
	if reexec.Init() {
		return
	}
	os.Exit(m.Run())
}

func runSolreport(t *testing.T, dir string, args ...string) *cmdtest.TestCmd {
	tt := cmdtest.NewTestCmd(t)
	tt.Dir = dir
	tt.Run("solreport-test", args...)
	return tt
}

// fakeSolc writes a shell script standing in for the compiler binary.
func fakeSolc(t *testing.T, dir, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler is a shell script")
	}
	path := filepath.Join(dir, "solc")
	script := "#!/bin/sh\ncat > \"$0.input\"\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

const cannedOutput = `{"contracts": {"C.sol": {"C": {"evm": {"bytecode": {"object": "600a"}}, "metadata": "{meta}"}}}}`

func setupSources(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"A.sol", "B.sol"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("contract C {}\n"), 0644))
	}
	return dir
}

func TestReportGeneration(t *testing.T) {
	dir := setupSources(t)
	solc := fakeSolc(t, dir, "echo '"+cannedOutput+"'")

	tt := runSolreport(t, dir, solc)
	tt.ExpectExit()
	require.NoError(t, tt.Err)

	content, err := os.ReadFile(filepath.Join(dir, "report.txt"))
	require.NoError(t, err)

	// Two optimizer settings, two files each, two lines per contract.
	want := strings.Join([]string{
		"A.sol:C 600a",
		"A.sol:C {meta}",
		"B.sol:C 600a",
		"B.sol:C {meta}",
		"A.sol:C 600a",
		"A.sol:C {meta}",
		"B.sol:C 600a",
		"B.sol:C {meta}",
		"",
	}, "\n")
	assert.Equal(t, want, string(content))
}

func TestReportDeterminism(t *testing.T) {
	dir := setupSources(t)
	solc := fakeSolc(t, dir, "echo '"+cannedOutput+"'")

	var runs [2][]byte
	for i := range runs {
		name := fmt.Sprintf("report-%d.txt", i)
		tt := runSolreport(t, dir, "--report-file", name, solc)
		tt.ExpectExit()
		require.NoError(t, tt.Err)

		content, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		runs[i] = content
	}
	assert.Equal(t, runs[0], runs[1])
}

func TestReportFileFlag(t *testing.T) {
	dir := setupSources(t)
	solc := fakeSolc(t, dir, "echo '"+cannedOutput+"'")

	tt := runSolreport(t, dir, "--report-file", "other.txt", solc)
	tt.ExpectExit()
	require.NoError(t, tt.Err)

	_, err := os.Stat(filepath.Join(dir, "other.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "report.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestCompileFailureEntries(t *testing.T) {
	dir := setupSources(t)
	solc := fakeSolc(t, dir, `echo '{"errors": []}'`)

	tt := runSolreport(t, dir, solc)
	tt.ExpectExit()
	require.NoError(t, tt.Err)

	content, err := os.ReadFile(filepath.Join(dir, "report.txt"))
	require.NoError(t, err)
	want := strings.Join([]string{
		"A.sol: <ERROR>",
		"B.sol: <ERROR>",
		"A.sol: <ERROR>",
		"B.sol: <ERROR>",
		"",
	}, "\n")
	assert.Equal(t, want, string(content))
}

func TestUndecodableOutputFailsRun(t *testing.T) {
	dir := setupSources(t)
	solc := fakeSolc(t, dir, "echo 'Segmentation fault'")

	tt := runSolreport(t, dir, solc)
	tt.ExpectExit()
	assert.NotEqual(t, 0, tt.ExitStatus())
	assert.Contains(t, tt.StderrText(), "A.sol")
}

func TestSMTUseFlagValidation(t *testing.T) {
	dir := setupSources(t)
	solc := fakeSolc(t, dir, "echo '"+cannedOutput+"'")

	tt := runSolreport(t, dir, "--smt-use", "bogus", solc)
	tt.ExpectExit()
	assert.NotEqual(t, 0, tt.ExitStatus())
	assert.Contains(t, tt.StderrText(), "unknown smt-use mode")
}

func TestMissingCompilerArgument(t *testing.T) {
	tt := runSolreport(t, t.TempDir())
	tt.ExpectExit()
	assert.NotEqual(t, 0, tt.ExitStatus())
	assert.Contains(t, tt.StderrText(), "compiler executable")
}

func TestNonexistentCompiler(t *testing.T) {
	dir := setupSources(t)

	tt := runSolreport(t, dir, filepath.Join(dir, "no-such-solc"))
	tt.ExpectExit()
	assert.NotEqual(t, 0, tt.ExitStatus())
}
