// Package compiler drives the Solidity compiler executable (solc) over its
// Standard JSON protocol and normalizes the output into per-file reports.
package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// LoadSource reads a source file as UTF-8 text. Under StripSMTPragmas every
// exact occurrence of the SMT checker opt-in pragma is removed from the
// returned text; the other modes return the content unmodified.
func LoadSource(path string, smt SMTUse) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if smt == StripSMTPragmas {
		return strings.ReplaceAll(string(content), smtPragma, ""), nil
	}
	return string(content), nil
}

// standardInput mirrors the request side of solc's Standard JSON protocol.
type standardInput struct {
	Language string                   `json:"language"`
	Sources  map[string]sourceContent `json:"sources"`
	Settings settings                 `json:"settings"`
}

type sourceContent struct {
	Content string `json:"content"`
}

type settings struct {
	Optimizer       optimizer                      `json:"optimizer"`
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
	ModelChecker    *modelChecker                  `json:"modelChecker,omitempty"`
}

type optimizer struct {
	Enabled bool `json:"enabled"`
}

type modelChecker struct {
	Engine string `json:"engine"`
}

// StandardInput builds the command line and Standard JSON payload for a
// single compilation: one source entry, the optimizer toggled per optimize,
// and a wildcard output selection requesting the bytecode object and the
// metadata blob of every contract. Under DisableSMT the model checker engine
// is additionally set to "none".
//
// The source is keyed by its base name only, so the compiler's response may
// group contracts under a key that differs from the caller's path. The
// builder performs no I/O.
func StandardInput(compilerPath, sourceName, content string, optimize bool, smt SMTUse) ([]string, []byte, error) {
	input := standardInput{
		Language: "Solidity",
		Sources: map[string]sourceContent{
			filepath.Base(sourceName): {Content: content},
		},
		Settings: settings{
			Optimizer: optimizer{Enabled: optimize},
			OutputSelection: map[string]map[string][]string{
				"*": {"*": {"evm.bytecode.object", "metadata"}},
			},
		},
	}
	if smt == DisableSMT {
		input.Settings.ModelChecker = &modelChecker{Engine: "none"}
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, nil, err
	}
	return []string{compilerPath, "--standard-json"}, payload, nil
}

// ExecError is returned when the compiler process cannot be run to
// completion. Both captured output streams ride along for diagnosis.
type ExecError struct {
	Cmd    []string
	Stdout []byte
	Stderr []byte
	Err    error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("exec %s: %v", strings.Join(e.Cmd, " "), e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Invoke runs the compiler subprocess with payload on its standard input,
// waits for it to exit and returns both captured output streams. A non-zero
// exit status is not an error here: whether the compilation succeeded is
// decided from the output content by ParseStandardOutput. Only spawn-level
// failures (missing binary, cancelled context) produce an ExecError.
func Invoke(ctx context.Context, cmdline []string, payload []byte) (stdout, stderr []byte, err error) {
	cmd := exec.CommandContext(ctx, cmdline[0], cmdline[1:]...)
	cmd.Stdin = bytes.NewReader(payload)

	var outbuf, errbuf bytes.Buffer
	cmd.Stdout = &outbuf
	cmd.Stderr = &errbuf

	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		// The process was killed by the context; surface the deadline or
		// cancellation instead of the resulting "signal: killed".
		err = ctxErr
	}
	if _, exited := err.(*exec.ExitError); err != nil && !exited {
		return nil, nil, &ExecError{Cmd: cmdline, Stdout: outbuf.Bytes(), Stderr: errbuf.Bytes(), Err: err}
	}
	return outbuf.Bytes(), errbuf.Bytes(), nil
}
