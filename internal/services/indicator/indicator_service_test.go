package indicator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caisdata/cais/internal/services/catalog"
	"github.com/caisdata/cais/internal/services/coverage"
)

type fakeWarehouse struct {
	rows     []map[string]interface{}
	probe    map[string]interface{}
	err      error
	queries  []string
	lastArgs []interface{}
}

func (f *fakeWarehouse) Query(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.queries = append(f.queries, query)
	f.lastArgs = args
	if strings.Contains(query, "ano_min") {
		return []map[string]interface{}{f.probe}, nil
	}
	return f.rows, nil
}

type fakeCache struct {
	entries map[string][]map[string]interface{}
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]map[string]interface{})}
}

func (f *fakeCache) Get(ctx context.Context, key string) ([]map[string]interface{}, bool) {
	rows, ok := f.entries[key]
	return rows, ok
}

func (f *fakeCache) Set(ctx context.Context, key string, rows []map[string]interface{}) {
	f.entries[key] = rows
	f.sets++
}

func healthyProbe() map[string]interface{} {
	return map[string]interface{}{
		"ano_min":             int32(2019),
		"ano_max":             int32(2022),
		"linhas_ano":          uint64(12),
		"linhas_ano_anterior": uint64(10),
	}
}

func TestExecuteUnknownIndicator(t *testing.T) {
	svc := NewIndicatorService(catalog.New(), newFakeCache(), &fakeWarehouse{})

	_, err := svc.Execute(context.Background(), uuid.New(), &QueryRequest{
		Code:   "IND-9.99",
		Params: map[string]interface{}{"ano": 2021},
	})
	assert.ErrorIs(t, err, ErrIndicatorNotFound)
}

func TestExecuteMissingParams(t *testing.T) {
	svc := NewIndicatorService(catalog.New(), newFakeCache(), &fakeWarehouse{})

	// IND-1.01 requires ano and porto
	_, err := svc.Execute(context.Background(), uuid.New(), &QueryRequest{
		Code:   "IND-1.01",
		Params: map[string]interface{}{"ano": 2021},
	})
	require.ErrorIs(t, err, ErrInvalidParams)
	assert.Contains(t, err.Error(), "porto")
}

func TestExecuteQueriesWarehouseAndCaches(t *testing.T) {
	wh := &fakeWarehouse{
		rows:  []map[string]interface{}{{"porto": "Santos", "ano": int32(2021), "atracacoes": uint64(820)}},
		probe: healthyProbe(),
	}
	cache := newFakeCache()
	svc := NewIndicatorService(catalog.New(), cache, wh)

	tenantID := uuid.New()
	res, err := svc.Execute(context.Background(), tenantID, &QueryRequest{
		Code:   "IND-1.01",
		Params: map[string]interface{}{"ano": 2021, "porto": "Santos"},
	})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
	assert.Empty(t, res.Warnings)
	assert.False(t, res.FromCache)
	assert.Equal(t, 1, cache.sets)

	// The tenant isolation filter is always bound first.
	require.NotEmpty(t, wh.queries)
	assert.Contains(t, wh.queries[0], "tenant_id = ?")

	// Second identical request is served from the cache.
	res2, err := svc.Execute(context.Background(), tenantID, &QueryRequest{
		Code:   "IND-1.01",
		Params: map[string]interface{}{"porto": "Santos", "ano": 2021},
	})
	require.NoError(t, err)
	assert.True(t, res2.FromCache)
	assert.Equal(t, res.Rows, res2.Rows)
	assert.Equal(t, 1, cache.sets)
}

func TestExecuteUpstreamFailurePropagates(t *testing.T) {
	wh := &fakeWarehouse{err: errors.New("connection refused")}
	svc := NewIndicatorService(catalog.New(), newFakeCache(), wh)

	_, err := svc.Execute(context.Background(), uuid.New(), &QueryRequest{
		Code:   "IND-3.02",
		Params: map[string]interface{}{"ano": 2021},
	})
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestExecuteVariationIndicatorWithoutHistoryWarns(t *testing.T) {
	wh := &fakeWarehouse{
		rows: []map[string]interface{}{{"municipio": "Santos", "ano": int32(2022), "pib_portuario": 1.25}},
		probe: map[string]interface{}{
			"ano_min":             int32(2019),
			"ano_max":             int32(2022),
			"linhas_ano":          uint64(12),
			"linhas_ano_anterior": uint64(0),
		},
	}
	svc := NewIndicatorService(catalog.New(), newFakeCache(), wh)

	res, err := svc.Execute(context.Background(), uuid.New(), &QueryRequest{
		Code:   "IND-5.14",
		Params: map[string]interface{}{"ano": 2022},
	})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, coverage.WarnHistoricoInsuficiente, res.Warnings[0].Type)
	assert.Contains(t, res.Warnings[0].Message, "2021")
}

func TestExecuteYearAfterCoverageWarns(t *testing.T) {
	wh := &fakeWarehouse{
		rows: nil,
		probe: map[string]interface{}{
			"ano_min":             int32(2019),
			"ano_max":             int32(2021),
			"linhas_ano":          uint64(0),
			"linhas_ano_anterior": uint64(9),
		},
	}
	svc := NewIndicatorService(catalog.New(), newFakeCache(), wh)

	res, err := svc.Execute(context.Background(), uuid.New(), &QueryRequest{
		Code:   "IND-3.02",
		Params: map[string]interface{}{"ano": 2022},
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, []string{coverage.WarnSemDadosAno, coverage.WarnAnoAposCobertura}, res.Warnings[0].Type)
}
