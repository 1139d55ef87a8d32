package causal

import (
	"context"
	"fmt"

	"github.com/caisdata/cais/internal/warehouse"
)

// WarehouseEstimators computes estimates over outcome panels pulled from the
// analytical warehouse. The statistical internals are intentionally simple
// point estimates; the job pipeline treats them as opaque computations.
type WarehouseEstimators struct {
	wh warehouse.Querier
}

func NewWarehouseEstimators(wh warehouse.Querier) *WarehouseEstimators {
	return &WarehouseEstimators{wh: wh}
}

// panel is one outcome series split by treatment group and period.
type panel struct {
	treatedPost []float64
	treatedPre  []float64
	controlPost []float64
	controlPre  []float64
}

func (e *WarehouseEstimators) fetchPanel(ctx context.Context, params map[string]interface{}) (*panel, error) {
	tenantID, _ := params["tenant_id"].(string)
	outcome, _ := params["outcome"].(string)
	if outcome == "" {
		return nil, fmt.Errorf("outcome parameter is required")
	}

	query := `
		SELECT tratado, pos_tratamento, valor
		FROM painel_resultados
		WHERE tenant_id = ? AND resultado = ?
	`
	rows, err := e.wh.Query(ctx, query, tenantID, outcome)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outcome panel: %w", err)
	}

	p := &panel{}
	for i, row := range rows {
		// Cooperative checkpoint so a soft-limit cancel can wind down
		if i%1024 == 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
			default:
			}
		}

		treated := asBool(row["tratado"])
		post := asBool(row["pos_tratamento"])
		value := asFloat(row["valor"])

		switch {
		case treated && post:
			p.treatedPost = append(p.treatedPost, value)
		case treated:
			p.treatedPre = append(p.treatedPre, value)
		case post:
			p.controlPost = append(p.controlPost, value)
		default:
			p.controlPre = append(p.controlPre, value)
		}
	}

	return p, nil
}

func (e *WarehouseEstimators) DiD(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	p, err := e.fetchPanel(ctx, params)
	if err != nil {
		return nil, err
	}

	att := (mean(p.treatedPost) - mean(p.treatedPre)) - (mean(p.controlPost) - mean(p.controlPre))
	return map[string]interface{}{
		"method":     string(MethodDiD),
		"att":        att,
		"n_tratado":  len(p.treatedPost) + len(p.treatedPre),
		"n_controle": len(p.controlPost) + len(p.controlPre),
	}, nil
}

func (e *WarehouseEstimators) IV(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	return e.wald(ctx, params, string(MethodIV))
}

func (e *WarehouseEstimators) PanelIV(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	return e.wald(ctx, params, string(MethodPanelIV))
}

// wald computes a Wald-style ratio of outcome and treatment-intensity
// contrasts.
func (e *WarehouseEstimators) wald(ctx context.Context, params map[string]interface{}, method string) (map[string]interface{}, error) {
	p, err := e.fetchPanel(ctx, params)
	if err != nil {
		return nil, err
	}

	reduced := mean(p.treatedPost) - mean(p.controlPost)
	first := mean(p.treatedPre) - mean(p.controlPre)
	if first == 0 {
		return nil, fmt.Errorf("weak instrument: zero first-stage contrast")
	}

	return map[string]interface{}{
		"method": method,
		"late":   reduced / first,
	}, nil
}

func (e *WarehouseEstimators) EventStudy(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	p, err := e.fetchPanel(ctx, params)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"method":   string(MethodEventStudy),
		"pre_gap":  mean(p.treatedPre) - mean(p.controlPre),
		"post_gap": mean(p.treatedPost) - mean(p.controlPost),
	}, nil
}

func (e *WarehouseEstimators) Compare(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	p, err := e.fetchPanel(ctx, params)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"method":         string(MethodCompare),
		"media_tratado":  mean(p.treatedPost),
		"media_controle": mean(p.controlPost),
		"diferenca":      mean(p.treatedPost) - mean(p.controlPost),
	}, nil
}

func (e *WarehouseEstimators) SCM(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	return e.synthetic(ctx, params, string(MethodSCM), false)
}

func (e *WarehouseEstimators) AugmentedSCM(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	return e.synthetic(ctx, params, string(MethodAugmentedSCM), true)
}

// synthetic builds a pre-period-weighted control counterfactual. The augmented
// variant applies a bias correction from the pre-period fit residual.
func (e *WarehouseEstimators) synthetic(ctx context.Context, params map[string]interface{}, method string, augmented bool) (map[string]interface{}, error) {
	p, err := e.fetchPanel(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(p.controlPre) == 0 || len(p.controlPost) == 0 {
		return nil, fmt.Errorf("synthetic control requires control observations in both periods")
	}

	scale := 1.0
	if m := mean(p.controlPre); m != 0 {
		scale = mean(p.treatedPre) / m
	}
	counterfactual := mean(p.controlPost) * scale

	effect := mean(p.treatedPost) - counterfactual
	result := map[string]interface{}{
		"method":        method,
		"efeito":        effect,
		"contrafactual": counterfactual,
	}

	if augmented {
		residual := mean(p.treatedPre) - mean(p.controlPre)*scale
		result["efeito"] = effect - residual
		result["correcao_vies"] = residual
	}

	return result, nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func asBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case uint8:
		return b != 0
	case int64:
		return b != 0
	default:
		return false
	}
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return 0
	}
}
