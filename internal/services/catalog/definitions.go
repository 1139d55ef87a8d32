package catalog

// Warehouse modules:
//
//	1 ship operations      (atracacoes)
//	2 cargo operations     (movimentacao_carga)
//	3 human resources      (rh_portuario)
//	4 foreign trade        (comercio_exterior)
//	5 economic impact      (impacto_economico)
//	6 public finance       (financas_publicas)
//	7 synthetic indices    (indices_sinteticos)
var definitions = []IndicatorDefinition{
	{
		Code:           "IND-1.01",
		Module:         1,
		Name:           "Atracações por porto",
		RequiredParams: []string{"ano", "porto"},
		QueryTemplate: `
			SELECT porto, ano, count() AS atracacoes, avg(tempo_atracado_horas) AS tempo_medio
			FROM atracacoes
			WHERE tenant_id = ? AND ano = ? AND porto = ?
			GROUP BY porto, ano`,
		ProbeTemplate: probeFor("atracacoes"),
	},
	{
		Code:           "IND-1.04",
		Module:         1,
		Name:           "Tempo médio de espera para atracação",
		RequiredParams: []string{"ano"},
		QueryTemplate: `
			SELECT porto, ano, avg(tempo_espera_horas) AS espera_media
			FROM atracacoes
			WHERE tenant_id = ? AND ano = ?
			GROUP BY porto, ano`,
		ProbeTemplate: probeFor("atracacoes"),
	},
	{
		Code:           "IND-2.03",
		Module:         2,
		Name:           "Movimentação de carga por natureza",
		RequiredParams: []string{"ano", "mercadoria"},
		QueryTemplate: `
			SELECT mercadoria, ano, sum(toneladas) AS toneladas
			FROM movimentacao_carga
			WHERE tenant_id = ? AND ano = ? AND mercadoria = ?
			GROUP BY mercadoria, ano`,
		ProbeTemplate: probeFor("movimentacao_carga"),
	},
	{
		Code:           "IND-2.07",
		Module:         2,
		Name:           "Variação anual da movimentação de carga",
		RequiredParams: []string{"ano"},
		Variation:      true,
		QueryTemplate: `
			SELECT porto, ano, sum(toneladas) AS toneladas
			FROM movimentacao_carga
			WHERE tenant_id = ? AND ano IN (?, ? - 1)
			GROUP BY porto, ano
			ORDER BY porto, ano`,
		ProbeTemplate: probeFor("movimentacao_carga"),
	},
	{
		Code:           "IND-3.02",
		Module:         3,
		Name:           "Empregos portuários diretos",
		RequiredParams: []string{"ano"},
		QueryTemplate: `
			SELECT porto, ano, sum(vinculos) AS vinculos
			FROM rh_portuario
			WHERE tenant_id = ? AND ano = ?
			GROUP BY porto, ano`,
		ProbeTemplate: probeFor("rh_portuario"),
	},
	{
		Code:           "IND-3.05",
		Module:         3,
		Name:           "Variação anual da massa salarial portuária",
		RequiredParams: []string{"ano"},
		Variation:      true,
		QueryTemplate: `
			SELECT porto, ano, sum(massa_salarial) AS massa_salarial
			FROM rh_portuario
			WHERE tenant_id = ? AND ano IN (?, ? - 1)
			GROUP BY porto, ano
			ORDER BY porto, ano`,
		ProbeTemplate: probeFor("rh_portuario"),
	},
	{
		Code:           "IND-4.01",
		Module:         4,
		Name:           "Corrente de comércio por UF",
		RequiredParams: []string{"ano", "uf"},
		QueryTemplate: `
			SELECT uf, ano, sum(valor_fob_exp) AS exportacoes, sum(valor_fob_imp) AS importacoes
			FROM comercio_exterior
			WHERE tenant_id = ? AND ano = ? AND uf = ?
			GROUP BY uf, ano`,
		ProbeTemplate: probeFor("comercio_exterior"),
	},
	{
		Code:           "IND-4.06",
		Module:         4,
		Name:           "Variação anual da balança comercial portuária",
		RequiredParams: []string{"ano"},
		Variation:      true,
		QueryTemplate: `
			SELECT ano, sum(valor_fob_exp) - sum(valor_fob_imp) AS saldo
			FROM comercio_exterior
			WHERE tenant_id = ? AND ano IN (?, ? - 1)
			GROUP BY ano
			ORDER BY ano`,
		ProbeTemplate: probeFor("comercio_exterior"),
	},
	{
		Code:           "IND-5.09",
		Module:         5,
		Name:           "Valor adicionado do setor portuário",
		RequiredParams: []string{"ano"},
		QueryTemplate: `
			SELECT ano, sum(valor_adicionado) AS valor_adicionado
			FROM impacto_economico
			WHERE tenant_id = ? AND ano = ?
			GROUP BY ano`,
		ProbeTemplate: probeFor("impacto_economico"),
	},
	{
		Code:           "IND-5.14",
		Module:         5,
		Name:           "Variação anual do PIB portuário municipal",
		RequiredParams: []string{"ano"},
		Variation:      true,
		QueryTemplate: `
			SELECT municipio, ano, sum(pib_portuario) AS pib_portuario
			FROM impacto_economico
			WHERE tenant_id = ? AND ano IN (?, ? - 1)
			GROUP BY municipio, ano
			ORDER BY municipio, ano`,
		ProbeTemplate: probeFor("impacto_economico"),
	},
	{
		Code:           "IND-6.02",
		Module:         6,
		Name:           "Arrecadação municipal em municípios portuários",
		RequiredParams: []string{"ano"},
		QueryTemplate: `
			SELECT municipio, ano, sum(receita_corrente) AS receita_corrente
			FROM financas_publicas
			WHERE tenant_id = ? AND ano = ?
			GROUP BY municipio, ano`,
		ProbeTemplate: probeFor("financas_publicas"),
	},
	{
		Code:           "IND-6.04",
		Module:         6,
		Name:           "Variação anual da receita tributária municipal",
		RequiredParams: []string{"ano"},
		Variation:      true,
		QueryTemplate: `
			SELECT municipio, ano, sum(receita_tributaria) AS receita_tributaria
			FROM financas_publicas
			WHERE tenant_id = ? AND ano IN (?, ? - 1)
			GROUP BY municipio, ano
			ORDER BY municipio, ano`,
		ProbeTemplate: probeFor("financas_publicas"),
	},
	{
		Code:           "IND-7.01",
		Module:         7,
		Name:           "Índice sintético de desempenho portuário",
		RequiredParams: []string{"ano"},
		QueryTemplate: `
			SELECT porto, ano, indice_desempenho
			FROM indices_sinteticos
			WHERE tenant_id = ? AND ano = ?
			ORDER BY indice_desempenho DESC`,
		ProbeTemplate: probeFor("indices_sinteticos"),
	},
	{
		Code:           "IND-7.03",
		Module:         7,
		Name:           "Índice sintético via controle sintético",
		RequiredParams: []string{"ano"},
		FeatureFlag:    "scm",
		QueryTemplate: `
			SELECT porto, ano, indice_scm
			FROM indices_sinteticos
			WHERE tenant_id = ? AND ano = ?
			ORDER BY indice_scm DESC`,
		ProbeTemplate: probeFor("indices_sinteticos"),
	},
}

// probeFor builds the coverage probe for a warehouse table. Binds the requested
// year twice, then tenant_id.
func probeFor(table string) string {
	return `
		SELECT
			min(ano) AS ano_min,
			max(ano) AS ano_max,
			countIf(ano = ?) AS linhas_ano,
			countIf(ano = ? - 1) AS linhas_ano_anterior
		FROM ` + table + `
		WHERE tenant_id = ?` + "\n\t"
}
