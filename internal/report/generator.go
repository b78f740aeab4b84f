// Package report turns compiler runs over a fixed source set into a single
// deterministic, diff-friendly text artifact.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"golang.org/x/crypto/sha3"

	"solreport/internal/compiler"
	"solreport/log"
)

// Generator compiles every source file under both optimizer settings and
// streams the rendered file reports into a single artifact.
type Generator struct {
	CompilerPath string
	SMTUse       compiler.SMTUse
	Timeout      time.Duration // per invocation; zero means none
	ReportFile   string
}

// Generate processes the configuration matrix in a fixed order: optimizer
// off then on and, within each setting, source files sorted by name. Report
// lines are written incrementally, so partial progress survives a later
// fatal error; such a partial artifact is left on disk for postmortem but is
// explicitly incomplete. The first fatal error aborts the run.
func (g *Generator) Generate(ctx context.Context, sources []string) error {
	out, err := os.Create(g.ReportFile)
	if err != nil {
		return err
	}
	defer out.Close()

	sorted := make([]string, len(sources))
	copy(sorted, sources)
	sort.Strings(sorted)

	// The report is hashed as it is written. The digest is purely
	// informational: it lets two runs be compared at a glance before anyone
	// reaches for diff.
	digest := sha3.NewLegacyKeccak256()
	w := io.MultiWriter(out, digest)

	start := time.Now()
	for _, optimize := range []bool{false, true} {
		for _, source := range sorted {
			if err := g.run(ctx, w, source, optimize); err != nil {
				log.Error("Report generation aborted", "file", source, "optimize", optimize, "err", err)
				return fmt.Errorf("%s (optimize=%v): %w", source, optimize, err)
			}
		}
	}
	log.Info("Report written", "file", g.ReportFile, "sources", len(sorted),
		"digest", fmt.Sprintf("%#x", digest.Sum(nil)), "elapsed", time.Since(start))
	return nil
}

// run performs one build, invoke, parse, render cycle and appends the result
// to the report.
func (g *Generator) run(ctx context.Context, w io.Writer, source string, optimize bool) error {
	content, err := compiler.LoadSource(source, g.SMTUse)
	if err != nil {
		return err
	}
	cmdline, payload, err := compiler.StandardInput(g.CompilerPath, source, content, optimize, g.SMTUse)
	if err != nil {
		return err
	}

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if g.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, g.Timeout)
	}
	stdout, stderr, err := compiler.Invoke(runCtx, cmdline, payload)
	cancel()
	if err != nil {
		var execErr *compiler.ExecError
		if errors.As(err, &execErr) {
			log.Error("Compiler invocation failed", "file", source, "optimize", optimize)
			log.Error("Compiler stdout", "output", string(execErr.Stdout))
			log.Error("Compiler stderr", "output", string(execErr.Stderr))
		}
		return err
	}
	if len(stderr) > 0 {
		log.Debug("Compiler stderr", "file", source, "optimize", optimize, "output", string(stderr))
	}

	fileReport, err := compiler.ParseStandardOutput(source, stdout)
	if err != nil {
		// Undecodable output aborts the whole run. A well-formed response
		// without contracts is handled by the parser and rendered as an
		// <ERROR> entry instead.
		log.Error("Undecodable compiler output", "file", source, "optimize", optimize)
		log.Error("Compiler stdout", "output", string(stdout))
		log.Error("Compiler stderr", "output", string(stderr))
		return err
	}
	log.Debug("Compiled", "file", source, "optimize", optimize, "contracts", len(fileReport.ContractReports))

	_, err = io.WriteString(w, fileReport.Format())
	return err
}
