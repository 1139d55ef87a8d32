package indicator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/caisdata/cais/internal/services/catalog"
	"github.com/caisdata/cais/internal/services/coverage"
	"github.com/caisdata/cais/internal/services/querycache"
	"github.com/caisdata/cais/internal/warehouse"
)

// resultCache is the advisory cache surface; querycache.Cache satisfies it.
type resultCache interface {
	Get(ctx context.Context, key string) ([]map[string]interface{}, bool)
	Set(ctx context.Context, key string, rows []map[string]interface{})
}

// IndicatorService is the query dispatcher: validates a request against the
// catalog, merges the cache, executes warehouse queries with the tenant
// isolation filter, and annotates results with coverage diagnostics.
type IndicatorService struct {
	catalog   *catalog.Catalog
	cache     resultCache
	warehouse warehouse.Querier
	tracer    trace.Tracer
}

func NewIndicatorService(cat *catalog.Catalog, cache resultCache, wh warehouse.Querier) *IndicatorService {
	return &IndicatorService{
		catalog:   cat,
		cache:     cache,
		warehouse: wh,
		tracer:    otel.Tracer("indicator"),
	}
}

// Execute runs one indicator query for a tenant.
func (s *IndicatorService) Execute(ctx context.Context, tenantID uuid.UUID, req *QueryRequest) (*QueryResult, error) {
	ctx, span := s.tracer.Start(ctx, "indicator.Execute",
		trace.WithAttributes(
			attribute.String("indicator.code", req.Code),
			attribute.String("tenant.id", tenantID.String()),
		))
	defer span.End()

	def, err := s.catalog.Definition(req.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrIndicatorNotFound, req.Code)
	}

	ano, err := validateParams(def, req.Params)
	if err != nil {
		return nil, err
	}

	key, err := querycache.Key(def.Module, def.Code, tenantID.String(), req.Params)
	if err != nil {
		// Key failures are a cache concern, never a query failure.
		slog.Warn("Failed to build cache key, bypassing cache", slog.String("code", def.Code), slog.Any("error", err))
		key = ""
	}

	if key != "" {
		if rows, ok := s.cache.Get(ctx, key); ok {
			warnings, err := s.diagnose(ctx, def, tenantID, ano)
			if err != nil {
				return nil, err
			}
			return &QueryResult{Code: def.Code, Rows: rows, Warnings: warnings, FromCache: true}, nil
		}
	}

	rows, err := s.warehouse.Query(ctx, def.QueryTemplate, bindArgs(def, tenantID, req.Params, ano)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if key != "" {
		s.cache.Set(ctx, key, rows)
	}

	warnings, err := s.diagnose(ctx, def, tenantID, ano)
	if err != nil {
		return nil, err
	}

	return &QueryResult{Code: def.Code, Rows: rows, Warnings: warnings}, nil
}

// diagnose runs the coverage probe and classifies completeness gaps.
func (s *IndicatorService) diagnose(ctx context.Context, def *catalog.IndicatorDefinition, tenantID uuid.UUID, ano int) ([]coverage.Warning, error) {
	rows, err := s.warehouse.Query(ctx, def.ProbeTemplate, ano, ano, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	probe := coverage.Probe{
		AnoMin:            toInt(rows[0]["ano_min"]),
		AnoMax:            toInt(rows[0]["ano_max"]),
		LinhasAno:         toUint64(rows[0]["linhas_ano"]),
		LinhasAnoAnterior: toUint64(rows[0]["linhas_ano_anterior"]),
	}

	return coverage.Classify(probe, ano, def.Variation), nil
}

// validateParams checks required parameters and normalizes the requested year.
func validateParams(def *catalog.IndicatorDefinition, params map[string]interface{}) (int, error) {
	var missing []string
	for _, p := range def.RequiredParams {
		if _, ok := params[p]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return 0, fmt.Errorf("%w: missing %v", ErrInvalidParams, missing)
	}

	ano := toInt(params["ano"])
	if ano <= 0 {
		return 0, fmt.Errorf("%w: ano must be a positive year", ErrInvalidParams)
	}

	return ano, nil
}

// bindArgs binds tenant_id first, then the required parameters in declaration
// order. Variation templates compare against the prior year and consume the
// requested year twice.
func bindArgs(def *catalog.IndicatorDefinition, tenantID uuid.UUID, params map[string]interface{}, ano int) []interface{} {
	args := []interface{}{tenantID.String()}
	for _, p := range def.RequiredParams {
		if p == "ano" {
			args = append(args, ano)
			if def.Variation {
				args = append(args, ano)
			}
			continue
		}
		args = append(args, params[p])
	}
	return args
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		return int(n)
	case uint64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case uint32:
		return uint64(n)
	case int:
		if n < 0 {
			return 0
		}
		return uint64(n)
	case int64:
		if n < 0 {
			return 0
		}
		return uint64(n)
	case float64:
		if n < 0 {
			return 0
		}
		return uint64(n)
	default:
		return 0
	}
}
