package coverage

import "fmt"

// Warning types attached to indicator responses when the warehouse has gaps for
// the requested period.
const (
	WarnSemDadosAno           = "sem_dados_ano"
	WarnAnoAntesCobertura     = "ano_antes_cobertura"
	WarnAnoAposCobertura      = "ano_apos_cobertura"
	WarnHistoricoInsuficiente = "historico_insuficiente"
)

// Probe is the aggregate coverage snapshot for one indicator table and tenant.
type Probe struct {
	AnoMin            int    `json:"ano_min"`
	AnoMax            int    `json:"ano_max"`
	LinhasAno         uint64 `json:"linhas_ano"`
	LinhasAnoAnterior uint64 `json:"linhas_ano_anterior"`
}

// Warning annotates a response without altering the row payload.
type Warning struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Classify inspects the probe for the requested year and returns every
// applicable warning, not just the first match. A variation indicator
// additionally requires prior-year history.
func Classify(probe Probe, ano int, variation bool) []Warning {
	var warnings []Warning

	if probe.LinhasAno == 0 && ano >= probe.AnoMin && ano <= probe.AnoMax {
		warnings = append(warnings, Warning{
			Type:    WarnSemDadosAno,
			Message: fmt.Sprintf("não há dados para o ano %d dentro da cobertura [%d, %d]", ano, probe.AnoMin, probe.AnoMax),
		})
	}

	if ano < probe.AnoMin {
		warnings = append(warnings, Warning{
			Type:    WarnAnoAntesCobertura,
			Message: fmt.Sprintf("o ano %d é anterior à cobertura observada (mínimo %d)", ano, probe.AnoMin),
		})
	}

	if ano > probe.AnoMax {
		warnings = append(warnings, Warning{
			Type:    WarnAnoAposCobertura,
			Message: fmt.Sprintf("o ano %d é posterior à cobertura observada (máximo %d)", ano, probe.AnoMax),
		})
	}

	if variation && probe.LinhasAnoAnterior == 0 {
		warnings = append(warnings, Warning{
			Type:    WarnHistoricoInsuficiente,
			Message: fmt.Sprintf("indicador de variação requer dados do ano anterior (%d), nenhum encontrado", ano-1),
		})
	}

	return warnings
}
