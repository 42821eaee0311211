package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// mapErr translates driver errors into repository sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// updateSet accumulates "col = $n" assignments for a partial UPDATE.
type updateSet struct {
	cols []string
	args []any
}

func (u *updateSet) set(col string, v any) {
	u.args = append(u.args, v)
	u.cols = append(u.cols, fmt.Sprintf("%s = $%d", col, len(u.args)))
}

// setExpr adds a raw assignment whose expression references the next placeholder
// through %d, e.g. "answers = answers || $%d::jsonb".
func (u *updateSet) setExpr(format string, v any) {
	u.args = append(u.args, v)
	u.cols = append(u.cols, fmt.Sprintf(format, len(u.args)))
}

func (u *updateSet) empty() bool { return len(u.cols) == 0 }

// build returns the UPDATE statement for table with updated_at re-stamped, keyed on id,
// followed by returning.
func (u *updateSet) build(table string, id any, returning string) (string, []any) {
	cols := append(u.cols, "updated_at = NOW()")
	args := append(u.args, id)
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		table, strings.Join(cols, ", "), len(args), returning), args
}

// whereClause accumulates AND-ed filters.
type whereClause struct {
	conds []string
	args  []any
}

func (w *whereClause) add(format string, v any) {
	w.args = append(w.args, v)
	w.conds = append(w.conds, fmt.Sprintf(format, len(w.args)))
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (w *whereClause) addRaw(cond string) {
	w.conds = append(w.conds, cond)
}

// limitOffset returns a LIMIT/OFFSET clause for the two placeholders after n.
func limitOffset(n int) string {
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2)
}
