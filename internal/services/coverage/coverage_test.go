package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func warningTypes(warnings []Warning) []string {
	types := make([]string, 0, len(warnings))
	for _, w := range warnings {
		types = append(types, w.Type)
	}
	return types
}

func TestClassifyNoWarnings(t *testing.T) {
	probe := Probe{AnoMin: 2019, AnoMax: 2021, LinhasAno: 42, LinhasAnoAnterior: 40}

	warnings := Classify(probe, 2020, false)
	assert.Empty(t, warnings)
}

func TestClassifyYearWithoutRowsInsideCoverage(t *testing.T) {
	probe := Probe{AnoMin: 2019, AnoMax: 2021, LinhasAno: 0, LinhasAnoAnterior: 10}

	warnings := Classify(probe, 2020, false)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnSemDadosAno, warnings[0].Type)
}

func TestClassifyYearBeforeCoverage(t *testing.T) {
	probe := Probe{AnoMin: 2019, AnoMax: 2021, LinhasAno: 0, LinhasAnoAnterior: 0}

	warnings := Classify(probe, 2015, false)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnAnoAntesCobertura, warnings[0].Type)
}

func TestClassifyYearAfterCoverage(t *testing.T) {
	probe := Probe{AnoMin: 2019, AnoMax: 2021, LinhasAno: 0, LinhasAnoAnterior: 5}

	warnings := Classify(probe, 2022, false)
	require.Len(t, warnings, 1)
	assert.Contains(t, []string{WarnSemDadosAno, WarnAnoAposCobertura}, warnings[0].Type)
}

func TestClassifyVariationWithoutHistory(t *testing.T) {
	probe := Probe{AnoMin: 2019, AnoMax: 2022, LinhasAno: 12, LinhasAnoAnterior: 0}

	warnings := Classify(probe, 2022, true)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnHistoricoInsuficiente, warnings[0].Type)
	assert.Contains(t, warnings[0].Message, "2021")
}

func TestClassifyMultipleConditionsCoOccur(t *testing.T) {
	// Year after coverage and no prior-year history for a variation indicator:
	// both warnings must be emitted, not just the first match.
	probe := Probe{AnoMin: 2019, AnoMax: 2021, LinhasAno: 0, LinhasAnoAnterior: 0}

	warnings := Classify(probe, 2023, true)
	types := warningTypes(warnings)
	assert.Contains(t, types, WarnAnoAposCobertura)
	assert.Contains(t, types, WarnHistoricoInsuficiente)
	assert.Len(t, warnings, 2)
}
