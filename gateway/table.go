package gateway

import (
	"context"
	"errors"
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// CodeNoRows is the text code of the error returned when a single-row select matches
// zero rows.
const CodeNoRows = "NO_ROWS"

// IsNoRows reports whether err is the zero-rows error of a single-row select.
func IsNoRows(err error) bool {
	var e *goerrors.Error
	return errors.As(err, &e) && e.TextCode == CodeNoRows
}

// NoRows returns the zero-rows error of a single-row select on table.
func NoRows(table string) error {
	return goerrors.New(fmt.Sprintf("%s: zero rows returned for single-row query", table), goerrors.CategoryNotFound).
		WithTextCode(CodeNoRows)
}

// Table is a table-scoped view over a go-repository-bun repository.
type Table[T any] struct {
	name string
	repo repository.Repository[T]
}

// NewTable creates a Table backed by a go-repository-bun repository.
func NewTable[T any](db *bun.DB, name string, handlers repository.ModelHandlers[T]) *Table[T] {
	return &Table[T]{
		name: name,
		repo: repository.NewRepository[T](db, handlers),
	}
}

// Insert inserts record and returns the stored row.
func (t *Table[T]) Insert(ctx context.Context, record T) (T, error) {
	created, err := t.repo.Create(ctx, record)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("insert into %s: %w", t.name, err)
	}
	return created, nil
}

// Single returns the first row matching criteria, or a NO_ROWS error.
func (t *Table[T]) Single(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	var zero T

	all := make([]repository.SelectCriteria, 0, len(criteria)+1)
	all = append(all, criteria...)
	all = append(all, limit(1))

	records, _, err := t.repo.List(ctx, all...)
	if err != nil {
		return zero, fmt.Errorf("select from %s: %w", t.name, err)
	}
	if len(records) == 0 {
		return zero, NoRows(t.name)
	}
	return records[0], nil
}

// Select returns one page of rows matching criteria together with the total number of
// matching rows.
func (t *Table[T]) Select(ctx context.Context, page Page, criteria ...repository.SelectCriteria) ([]T, int, error) {
	all := make([]repository.SelectCriteria, 0, len(criteria)+1)
	all = append(all, criteria...)
	all = append(all, paginate(page))

	records, total, err := t.repo.List(ctx, all...)
	if err != nil {
		return nil, 0, fmt.Errorf("select from %s: %w", t.name, err)
	}
	return records, total, nil
}

// Update writes the given columns of record, matched by primary key.
func (t *Table[T]) Update(ctx context.Context, record T, columns ...string) (T, error) {
	updated, err := t.repo.Update(ctx, record, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		if len(columns) > 0 {
			q = q.Column(columns...)
		}
		return q.WherePK()
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("update %s: %w", t.name, err)
	}
	return updated, nil
}

// Delete removes every row matching criteria. Deleting zero rows is not an error.
func (t *Table[T]) Delete(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	if err := t.repo.DeleteWhere(ctx, criteria...); err != nil {
		return fmt.Errorf("delete from %s: %w", t.name, err)
	}
	return nil
}

// DeleteTx is Delete run on tx.
func (t *Table[T]) DeleteTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	if err := t.repo.DeleteWhereTx(ctx, tx, criteria...); err != nil {
		return fmt.Errorf("delete from %s: %w", t.name, err)
	}
	return nil
}

func where(column string, value any) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? = ?", bun.Ident(column), value)
	}
}

func orderBy(orders ...string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Order(orders...)
	}
}

func limit(n int) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Limit(n)
	}
}

func paginate(page Page) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Limit(page.Limit).Offset(page.Offset)
	}
}

func deleteWhere(column string, value any) repository.DeleteCriteria {
	return func(q *bun.DeleteQuery) *bun.DeleteQuery {
		return q.Where("? = ?", bun.Ident(column), value)
	}
}
