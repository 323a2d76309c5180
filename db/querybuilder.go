package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/HiveCTF/cyberhive"
)

// filterBuilder accumulates WHERE constraints with correctly numbered
// positional parameters. Builders are request-scoped and not safe for
// concurrent use.
type filterBuilder struct {
	prefix string
	where  []string
	args   []any
	pos    int
}

func newFilterBuilder() *filterBuilder {
	return &filterBuilder{pos: 1}
}

func (q *filterBuilder) Where() string {
	if len(q.where) == 0 {
		return "1 = 1"
	}
	return strings.Join(q.where, " AND ")
}

// WithUpdate returns the final string with the builder's prefix, which
// is usually an UPDATE ... SET clause.
func (q *filterBuilder) WithUpdate() string {
	return q.prefix + " WHERE " + q.Where()
}

func (q *filterBuilder) Args() []any {
	return q.args
}

// AddConstraint appends a constraint. The string MUST contain a `%s`
// for every argument, replaced by the next positional parameter.
func (q *filterBuilder) AddConstraint(wh string, args ...any) {
	if len(args) == 0 {
		q.where = append(q.where, strings.TrimSpace(wh))
		return
	}

	positionals := make([]any, 0, len(args))
	for range args {
		positionals = append(positionals, "$"+strconv.Itoa(q.pos))
		q.pos++
	}
	q.where = append(q.where, strings.TrimSpace(fmt.Sprintf(wh, positionals...)))
	q.args = append(q.args, args...)
}

type updateBuilder struct {
	toUpd []string
	args  []any
	pos   int
}

func newUpdateBuilder() *updateBuilder {
	return &updateBuilder{pos: 1}
}

// AddUpdate appends a SET clause, same parameter contract as
// filterBuilder.AddConstraint.
func (upd *updateBuilder) AddUpdate(wh string, args ...any) {
	if len(args) == 0 {
		upd.toUpd = append(upd.toUpd, wh)
		return
	}

	positionals := make([]any, 0, len(args))
	for range args {
		positionals = append(positionals, "$"+strconv.Itoa(upd.pos))
		upd.pos++
	}
	upd.toUpd = append(upd.toUpd, fmt.Sprintf(wh, positionals...))
	upd.args = append(upd.args, args...)
}

func (upd *updateBuilder) CheckUpdates() error {
	if len(upd.toUpd) == 0 {
		return cyberhive.ErrNoUpdates
	}
	return nil
}

// MakeFilter continues the builder as a WHERE clause on top of the
// accumulated SET clauses.
func (upd *updateBuilder) MakeFilter() *filterBuilder {
	return &filterBuilder{
		prefix: strings.Join(upd.toUpd, ", "),
		args:   upd.args,
		pos:    upd.pos,
	}
}
