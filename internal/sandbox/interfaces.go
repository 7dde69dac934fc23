package sandbox

import (
	"context"

	"sqlbadlands/internal/dataset"
)

type Runner interface {
	Query(ctx context.Context, query string) (QueryResult, error)
	Exec(ctx context.Context, query string) (QueryResult, error)
}

type Cataloger interface {
	Catalog(ctx context.Context) ([]dataset.Table, error)
}
