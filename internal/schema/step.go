package schema

import (
	"context"
	"fmt"
	"slices"

	"bar-bartender/internal/db"
)

// Outcome es el resultado etiquetado de un paso de reconciliacion.
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeAlreadyApplied Outcome = "already_applied"
	OutcomeSkipped        Outcome = "skipped"
	OutcomeFailed         Outcome = "failed"
)

// Step es una correccion aditiva e idempotente. Run recibe la transaccion
// propia del paso: un fallo nunca contamina a los pasos siguientes.
type Step struct {
	Name string
	Run  func(ctx context.Context, tx db.DBTX, dialect db.Dialect) (Outcome, error)
}

// AddColumn agrega table.column con la definicion dada si aun no existe.
// Si la tabla no existe el paso se omite.
func AddColumn(table, column, definition string) Step {
	return Step{
		Name: fmt.Sprintf("add column %s.%s", table, column),
		Run: func(ctx context.Context, tx db.DBTX, dialect db.Dialect) (Outcome, error) {
			cols, err := dialect.ListColumns(ctx, tx, table)
			if err != nil {
				return OutcomeFailed, err
			}
			if len(cols) == 0 {
				return OutcomeSkipped, nil
			}
			if slices.Contains(cols, column) {
				return OutcomeAlreadyApplied, nil
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return OutcomeFailed, err
			}
			return OutcomeApplied, nil
		},
	}
}

// Backfill copia datos de columnas heredadas. Solo corre cuando todas las
// columnas de requires existen; statement debe filtrar por destino NULL.
func Backfill(table, name string, requires []string, statement string) Step {
	return Step{
		Name: fmt.Sprintf("backfill %s.%s", table, name),
		Run: func(ctx context.Context, tx db.DBTX, dialect db.Dialect) (Outcome, error) {
			cols, err := dialect.ListColumns(ctx, tx, table)
			if err != nil {
				return OutcomeFailed, err
			}
			for _, c := range requires {
				if !slices.Contains(cols, c) {
					return OutcomeSkipped, nil
				}
			}
			res, err := tx.ExecContext(ctx, statement)
			if err != nil {
				return OutcomeFailed, err
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return OutcomeAlreadyApplied, nil
			}
			return OutcomeApplied, nil
		},
	}
}

// TenantUnique describe el reemplazo de una unicidad global heredada por una
// unicidad por cuenta sobre (user_id, Column).
type TenantUnique struct {
	Table  string
	Column string
	// Legacy son los nombres con los que versiones anteriores materializaron
	// la regla global, como restriccion o como indice unico.
	Legacy []string
	Index  string
}

// ReplaceGlobalUnique elimina la unicidad global y crea el indice parcial por
// cuenta. Mientras user_id no exista el paso se omite.
func ReplaceGlobalUnique(u TenantUnique) Step {
	return Step{
		Name: fmt.Sprintf("tenant unique %s.%s", u.Table, u.Column),
		Run: func(ctx context.Context, tx db.DBTX, dialect db.Dialect) (Outcome, error) {
			cols, err := dialect.ListColumns(ctx, tx, u.Table)
			if err != nil {
				return OutcomeFailed, err
			}
			if !slices.Contains(cols, "user_id") || !slices.Contains(cols, u.Column) {
				return OutcomeSkipped, nil
			}

			changed := false
			for _, name := range u.Legacy {
				dropped, err := dropLegacyUnique(ctx, tx, dialect, u.Table, name)
				if err != nil {
					return OutcomeFailed, err
				}
				changed = changed || dropped
			}

			exists, err := dialect.HasUniqueIndex(ctx, tx, u.Table, u.Index)
			if err != nil {
				return OutcomeFailed, err
			}
			if !exists {
				stmt := fmt.Sprintf(
					"CREATE UNIQUE INDEX %s ON %s (user_id, %s) WHERE %s IS NOT NULL",
					u.Index, u.Table, u.Column, u.Column,
				)
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return OutcomeFailed, err
				}
				changed = true
			}

			if changed {
				return OutcomeApplied, nil
			}
			return OutcomeAlreadyApplied, nil
		},
	}
}

func dropLegacyUnique(ctx context.Context, tx db.DBTX, dialect db.Dialect, table, name string) (bool, error) {
	hasConstraint, err := dialect.HasConstraint(ctx, tx, table, name)
	if err != nil {
		return false, err
	}
	if hasConstraint {
		stmt, err := dialect.DropConstraintSQL(table, name)
		if err != nil {
			return false, err
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return false, err
		}
		return true, nil
	}

	hasIndex, err := dialect.HasUniqueIndex(ctx, tx, table, name)
	if err != nil {
		return false, err
	}
	if !hasIndex {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, "DROP INDEX "+name); err != nil {
		return false, err
	}
	return true, nil
}
