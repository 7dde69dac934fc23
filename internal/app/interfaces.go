package app

import (
	"context"

	"sqlbadlands/internal/curriculum"
	"sqlbadlands/internal/dataset"
	"sqlbadlands/internal/sandbox"
)

type Engine interface {
	Open(ctx context.Context) error
	Detect(ctx context.Context) (sandbox.EngineInfo, error)
	Query(ctx context.Context, query string) (sandbox.QueryResult, error)
	Exec(ctx context.Context, query string) (sandbox.QueryResult, error)
	Catalog(ctx context.Context) ([]dataset.Table, error)
	Close() error
}

var (
	_ Engine            = (*sandbox.Manager)(nil)
	_ curriculum.Loader = (*curriculum.FSLoader)(nil)
)
