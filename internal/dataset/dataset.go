// Package dataset holds the fixture schema and rows every query engine is
// seeded with.
package dataset

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sort"
)

//go:embed schema.sql
var schemaSQL string

//go:embed seed.sql
var seedSQL string

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	PrimaryKey bool   `json:"primaryKey,omitempty"`
}

// Tables lists the seeded tables in dependency order.
var Tables = []string{
	"Characters",
	"Episodes",
	"Locations",
	"Drugs",
	"Events",
	"CharacterEpisode",
	"CharacterLocation",
	"CharacterDrug",
	"EventAssociation",
}

func Schema() string { return schemaSQL }

func Seed() string { return seedSQL }

// Apply creates the schema and inserts the literal rows.
func Apply(ctx context.Context, db Execer) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, seedSQL); err != nil {
		return fmt.Errorf("insert seed rows: %w", err)
	}
	return nil
}

// Reset drops every fixture table and applies the dataset again.
func Reset(ctx context.Context, db Execer) error {
	for i := len(Tables) - 1; i >= 0; i-- {
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS `+Tables[i]); err != nil {
			return fmt.Errorf("drop %s: %w", Tables[i], err)
		}
	}
	return Apply(ctx, db)
}

// Catalog reads table and column metadata back from the engine so that it
// reflects whatever a player may have created or dropped.
func Catalog(ctx context.Context, db Queryer) ([]Table, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
	`)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	order := map[string]int{}
	for i, name := range Tables {
		order[name] = i
	}
	sort.SliceStable(names, func(i, j int) bool {
		oi, iok := order[names[i]]
		oj, jok := order[names[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return names[i] < names[j]
		}
	})

	out := make([]Table, 0, len(names))
	for _, name := range names {
		cols, err := tableColumns(ctx, db, name)
		if err != nil {
			return nil, fmt.Errorf("columns of %s: %w", name, err)
		}
		out = append(out, Table{Name: name, Columns: cols})
	}
	return out, nil
}

func tableColumns(ctx context.Context, db Queryer, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, type, pk FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols := []Column{}
	for rows.Next() {
		var (
			c  Column
			pk int
		)
		if err := rows.Scan(&c.Name, &c.Type, &pk); err != nil {
			return nil, err
		}
		c.PrimaryKey = pk > 0
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}
