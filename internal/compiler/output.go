package compiler

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Sentinels used in rendered reports for artifacts the compiler did not emit.
const (
	noBytecode = "<NO BYTECODE>"
	noMetadata = "<NO METADATA>"
	errorEntry = "<ERROR>"
)

// ContractReport records the output artifacts of one compiled contract.
// Bytecode and Metadata are nil when the compiler omitted them, which is
// distinct from present-but-empty.
type ContractReport struct {
	ContractName string
	FileName     string
	Bytecode     *string
	Metadata     *string
}

// FileReport collects the contract reports of one (source file, optimizer
// setting) invocation. A nil ContractReports slice means the compiler output
// had no "contracts" section at all, i.e. the compilation produced no usable
// output. That is an explicit state, not an empty list.
type FileReport struct {
	FileName        string
	ContractReports []ContractReport
}

// Format renders the report in its diff-stable text form. An errored report
// renders as a single "<file>: <ERROR>" line. Otherwise every contract
// renders as two lines, bytecode then metadata, each prefixed with
// "<file>:<contract>" and falling back to a sentinel for absent artifacts.
// Lines are always "\n"-terminated regardless of host platform.
func (r *FileReport) Format() string {
	if r.ContractReports == nil {
		return fmt.Sprintf("%s: %s\n", r.FileName, errorEntry)
	}

	var b strings.Builder
	for _, contract := range r.ContractReports {
		bytecode, metadata := noBytecode, noMetadata
		if contract.Bytecode != nil {
			bytecode = *contract.Bytecode
		}
		if contract.Metadata != nil {
			metadata = *contract.Metadata
		}
		// The contract's own file name is ignored here: for Standard JSON it
		// is always the source key the input builder chose.
		fmt.Fprintf(&b, "%s:%s %s\n", r.FileName, contract.ContractName, bytecode)
		fmt.Fprintf(&b, "%s:%s %s\n", r.FileName, contract.ContractName, metadata)
	}
	return b.String()
}

// ParseStandardOutput decodes the compiler's Standard JSON response into a
// FileReport. Contracts are visited in lexicographic order of the response's
// file keys, then contract names, so that formatting the result is byte
// stable across runs given identical compiler output. Each contract entry
// keeps the file name the compiler grouped it under, which need not equal
// fileName.
//
// A response without a "contracts" section yields a FileReport with nil
// ContractReports. Output that is not valid JSON at all is an error.
func ParseStandardOutput(fileName string, output []byte) (*FileReport, error) {
	trimmed := bytes.TrimSpace(output)
	if !gjson.ValidBytes(trimmed) {
		return nil, fmt.Errorf("compiler output is not valid JSON")
	}
	contracts := gjson.GetBytes(trimmed, "contracts")
	if !contracts.Exists() {
		return &FileReport{FileName: fileName}, nil
	}

	report := &FileReport{FileName: fileName, ContractReports: []ContractReport{}}
	files := contracts.Map()
	for _, innerFile := range sortedKeys(files) {
		contractResults := files[innerFile].Map()
		for _, name := range sortedKeys(contractResults) {
			result := contractResults[name]
			report.ContractReports = append(report.ContractReports, ContractReport{
				ContractName: name,
				FileName:     innerFile,
				Bytecode:     optional(result.Get("evm.bytecode.object")),
				Metadata:     optional(result.Get("metadata")),
			})
		}
	}
	return report, nil
}

// optional turns a JSON lookup into an absent-aware string: nil when any key
// along the path was missing (or explicitly null), the value otherwise.
func optional(result gjson.Result) *string {
	if !result.Exists() || result.Type == gjson.Null {
		return nil
	}
	s := result.String()
	return &s
}

func sortedKeys(m map[string]gjson.Result) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
