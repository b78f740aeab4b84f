// solreport compiles every *.sol file in the current directory with a given
// Solidity compiler binary and writes a deterministic report of the resulting
// bytecode and metadata. Two reports produced from different compiler builds
// can then be compared with an ordinary diff to spot codegen regressions.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"solreport/internal/compiler"
	"solreport/internal/report"
	"solreport/log"
)

var (
	smtUseFlag = &cli.StringFlag{
		Name:  "smt-use",
		Usage: `what to do about contracts that use the experimental SMT checker ("preserve", "disable" or "strip-pragmas")`,
		Value: compiler.DisableSMT.String(),
	}
	reportFileFlag = &cli.StringFlag{
		Name:  "report-file",
		Usage: "file the report is written to",
		Value: "report.txt",
	}
	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "maximum duration of a single compiler invocation (0 = no limit)",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "logging verbosity: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: int(log.LvlInfo),
	}
)

var app = &cli.App{
	Name:      "solreport",
	Usage:     "generate a bytecode and metadata report for all *.sol files in the current directory",
	ArgsUsage: "<compiler-path>",
	Flags:     []cli.Flag{smtUseFlag, reportFileFlag, timeoutFlag, verbosityFlag},
	Action:    run,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return fmt.Errorf("expected exactly one argument, the compiler executable")
	}
	compilerPath := ctx.Args().First()
	if _, err := os.Stat(compilerPath); err != nil {
		return fmt.Errorf("compiler executable: %w", err)
	}
	smtUse, err := compiler.SMTUseFromString(ctx.String(smtUseFlag.Name))
	if err != nil {
		return err
	}
	sources, err := filepath.Glob("*.sol")
	if err != nil {
		return err
	}
	log.Info("Generating report", "compiler", compilerPath, "sources", len(sources), "smt-use", smtUse)

	generator := &report.Generator{
		CompilerPath: compilerPath,
		SMTUse:       smtUse,
		Timeout:      ctx.Duration(timeoutFlag.Name),
		ReportFile:   ctx.String(reportFileFlag.Name),
	}
	return generator.Generate(context.Background(), sources)
}

func setupLogging(ctx *cli.Context) {
	lvl := log.Lvl(ctx.Int(verbosityFlag.Name))
	usecolor := isatty.IsTerminal(os.Stderr.Fd())
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(os.Stderr, log.TerminalFormat(usecolor))))
	if lvl >= log.LvlDebug {
		log.PrintOrigins(true)
	}
}
