package compiler

import "fmt"

// SMTUse selects how contracts that opt into the experimental SMT checker
// are handled during compilation. Exactly one mode is active per run.
type SMTUse int

const (
	// PreserveSMT compiles sources exactly as written.
	PreserveSMT SMTUse = iota

	// DisableSMT turns the compiler's model checker engine off via a
	// Standard JSON setting.
	DisableSMT

	// StripSMTPragmas removes the model checker opt-in pragma from the
	// source text before compiling.
	StripSMTPragmas
)

// smtPragma is the exact directive contracts use to opt into the SMT checker.
const smtPragma = "pragma experimental SMTChecker;"

// SMTUseFromString returns the SMTUse named by its wire-string form.
// Useful for parsing command line args.
func SMTUseFromString(s string) (SMTUse, error) {
	switch s {
	case "preserve":
		return PreserveSMT, nil
	case "disable":
		return DisableSMT, nil
	case "strip-pragmas":
		return StripSMTPragmas, nil
	default:
		return DisableSMT, fmt.Errorf("unknown smt-use mode: %q", s)
	}
}

// String returns the wire-string form of an SMTUse.
func (u SMTUse) String() string {
	switch u {
	case PreserveSMT:
		return "preserve"
	case DisableSMT:
		return "disable"
	case StripSMTPragmas:
		return "strip-pragmas"
	default:
		panic("bad smt-use mode")
	}
}
