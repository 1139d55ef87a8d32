package warehouse

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Querier is the narrow warehouse surface the dispatcher depends on.
type Querier interface {
	Query(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error)
}

// Warehouse wraps a ClickHouse connection and scans result sets into generic
// row maps keyed by column name.
type Warehouse struct {
	conn driver.Conn
}

func New(conn driver.Conn) *Warehouse {
	return &Warehouse{conn: conn}
}

func (w *Warehouse) Query(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := w.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("warehouse query failed: %w", err)
	}
	defer rows.Close()

	columns := rows.Columns()
	types := rows.ColumnTypes()

	var result []map[string]interface{}
	for rows.Next() {
		dest := make([]interface{}, len(columns))
		for i, ct := range types {
			dest[i] = reflect.New(ct.ScanType()).Interface()
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan warehouse row: %w", err)
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = reflect.ValueOf(dest[i]).Elem().Interface()
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("warehouse row iteration failed: %w", err)
	}

	return result, nil
}
