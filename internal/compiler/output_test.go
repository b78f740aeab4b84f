package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestParseStandardOutputSortsContracts(t *testing.T) {
	// Keys are deliberately out of order in the document; the parsed report
	// must come back sorted by inner file key, then contract name.
	output := `
	{
		"contracts": {
			"b.sol": {
				"D": {"evm": {"bytecode": {"object": "dddd"}}, "metadata": "{d}"},
				"C": {"evm": {"bytecode": {"object": "cccc"}}, "metadata": "{c}"}
			},
			"a.sol": {
				"C2": {"evm": {"bytecode": {"object": "2222"}}, "metadata": "{2}"},
				"C1": {"evm": {"bytecode": {"object": "1111"}}, "metadata": "{1}"}
			}
		}
	}`

	report, err := ParseStandardOutput("a.sol", []byte(output))
	require.NoError(t, err)
	require.Len(t, report.ContractReports, 4)

	var order []string
	for _, contract := range report.ContractReports {
		order = append(order, contract.FileName+":"+contract.ContractName)
	}
	assert.Equal(t, []string{"a.sol:C1", "a.sol:C2", "b.sol:C", "b.sol:D"}, order)
	assert.Equal(t, "1111", *report.ContractReports[0].Bytecode)
	assert.Equal(t, "{1}", *report.ContractReports[0].Metadata)
}

func TestParseStandardOutputNoContracts(t *testing.T) {
	report, err := ParseStandardOutput("a.sol", []byte(`{"errors": [{"severity": "error"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "a.sol", report.FileName)
	// nil, not empty: the compiler produced no usable output at all.
	assert.Nil(t, report.ContractReports)
}

func TestParseStandardOutputEmptyContracts(t *testing.T) {
	report, err := ParseStandardOutput("a.sol", []byte(`{"contracts": {}}`))
	require.NoError(t, err)
	require.NotNil(t, report.ContractReports)
	assert.Empty(t, report.ContractReports)
}

func TestParseStandardOutputMissingArtifacts(t *testing.T) {
	tests := []struct {
		name     string
		contract string
	}{
		{"no evm", `{"metadata": "{m}"}`},
		{"no bytecode", `{"evm": {}, "metadata": "{m}"}`},
		{"no object", `{"evm": {"bytecode": {}}, "metadata": "{m}"}`},
		{"null object", `{"evm": {"bytecode": {"object": null}}, "metadata": "{m}"}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			output := `{"contracts": {"a.sol": {"C": ` + test.contract + `}}}`
			report, err := ParseStandardOutput("a.sol", []byte(output))
			require.NoError(t, err)
			require.Len(t, report.ContractReports, 1)
			assert.Nil(t, report.ContractReports[0].Bytecode)
			require.NotNil(t, report.ContractReports[0].Metadata)
			assert.Equal(t, "{m}", *report.ContractReports[0].Metadata)
		})
	}
}

func TestParseStandardOutputMissingMetadata(t *testing.T) {
	output := `{"contracts": {"a.sol": {"C": {"evm": {"bytecode": {"object": ""}}}}}}`
	report, err := ParseStandardOutput("a.sol", []byte(output))
	require.NoError(t, err)
	require.Len(t, report.ContractReports, 1)
	// Present-but-empty bytecode is not absent.
	require.NotNil(t, report.ContractReports[0].Bytecode)
	assert.Equal(t, "", *report.ContractReports[0].Bytecode)
	assert.Nil(t, report.ContractReports[0].Metadata)
}

func TestParseStandardOutputKeepsInnerFileName(t *testing.T) {
	output := `{"contracts": {"Token.sol": {"Token": {"metadata": "{m}"}}}}`
	report, err := ParseStandardOutput("contracts/Token.sol", []byte(output))
	require.NoError(t, err)
	require.Len(t, report.ContractReports, 1)
	assert.Equal(t, "contracts/Token.sol", report.FileName)
	assert.Equal(t, "Token.sol", report.ContractReports[0].FileName)
}

func TestParseStandardOutputInvalidJSON(t *testing.T) {
	for _, output := range []string{"", "Segmentation fault", `{"contracts":`} {
		_, err := ParseStandardOutput("a.sol", []byte(output))
		assert.Error(t, err, "output %q", output)
	}
}

func TestParseStandardOutputTrimsWhitespace(t *testing.T) {
	report, err := ParseStandardOutput("a.sol", []byte("\n  {\"contracts\": {}}  \n"))
	require.NoError(t, err)
	assert.NotNil(t, report.ContractReports)
}

func TestFormatError(t *testing.T) {
	report := &FileReport{FileName: "a.sol"}
	assert.Equal(t, "a.sol: <ERROR>\n", report.Format())
}

func TestFormatEmpty(t *testing.T) {
	report := &FileReport{FileName: "a.sol", ContractReports: []ContractReport{}}
	assert.Equal(t, "", report.Format())
}

func TestFormatContracts(t *testing.T) {
	report := &FileReport{
		FileName: "a.sol",
		ContractReports: []ContractReport{
			{ContractName: "C1", FileName: "a.sol", Bytecode: strptr("6001"), Metadata: strptr(`{"x":1}`)},
			{ContractName: "C2", FileName: "a.sol"},
		},
	}
	want := strings.Join([]string{
		"a.sol:C1 6001",
		`a.sol:C1 {"x":1}`,
		"a.sol:C2 <NO BYTECODE>",
		"a.sol:C2 <NO METADATA>",
		"",
	}, "\n")
	assert.Equal(t, want, report.Format())
}

func TestFormatEmptyStringArtifacts(t *testing.T) {
	// Empty strings are rendered verbatim, not as sentinels.
	report := &FileReport{
		FileName: "a.sol",
		ContractReports: []ContractReport{
			{ContractName: "C", FileName: "a.sol", Bytecode: strptr(""), Metadata: strptr("")},
		},
	}
	assert.Equal(t, "a.sol:C \na.sol:C \n", report.Format())
}
