package backend

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Filter ops understood by both record store implementations.
const (
	OpEq = "eq"
	OpIn = "in"
)

type Filter struct {
	Column string
	Op     string
	Value  any
}

type Order struct {
	Column string
	Desc   bool
}

// Query describes a record selection: equality/IN filters, ordering, limit
// and offset. Methods return a modified copy, so queries compose fluently.
type Query struct {
	Filters    []Filter
	Ordering   []Order
	LimitRows  int
	OffsetRows int
}

func NewQuery() Query { return Query{} }

func (q Query) Eq(column string, value any) Query {
	q.Filters = append(q.Filters[:len(q.Filters):len(q.Filters)], Filter{Column: column, Op: OpEq, Value: value})
	return q
}

func (q Query) In(column string, values []string) Query {
	q.Filters = append(q.Filters[:len(q.Filters):len(q.Filters)], Filter{Column: column, Op: OpIn, Value: values})
	return q
}

func (q Query) OrderBy(column string, desc bool) Query {
	q.Ordering = append(q.Ordering[:len(q.Ordering):len(q.Ordering)], Order{Column: column, Desc: desc})
	return q
}

func (q Query) Limit(n int) Query {
	q.LimitRows = n
	return q
}

func (q Query) Offset(n int) Query {
	q.OffsetRows = n
	return q
}

// Encode renders the query as PostgREST-style URL parameters.
func (q Query) Encode() url.Values {
	v := url.Values{}
	for _, f := range q.Filters {
		switch f.Op {
		case OpIn:
			vals, _ := f.Value.([]string)
			v.Add(f.Column, "in.("+strings.Join(vals, ",")+")")
		default:
			v.Add(f.Column, "eq."+fmt.Sprint(f.Value))
		}
	}
	if len(q.Ordering) > 0 {
		parts := make([]string, 0, len(q.Ordering))
		for _, o := range q.Ordering {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			parts = append(parts, o.Column+"."+dir)
		}
		v.Set("order", strings.Join(parts, ","))
	}
	if q.LimitRows > 0 {
		v.Set("limit", strconv.Itoa(q.LimitRows))
	}
	if q.OffsetRows > 0 {
		v.Set("offset", strconv.Itoa(q.OffsetRows))
	}
	return v
}
