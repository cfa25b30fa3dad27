package was

import (
	"net/url"
	"strconv"
	"strings"
)

// QueryParams captures the listing controls the scanning service accepts:
// offset pagination, sorting, field projection, and per-field filters.
type QueryParams struct {
	// Limit is the page size. Zero lets the service pick its default.
	Limit int

	// Offset is the index of the first item to return.
	Offset int

	// Sort names the sort field, prefixed with '-' for descending order.
	Sort string

	// Fields restricts the attributes returned for each item.
	Fields []string

	// Filters holds per-field match values, comma-joined on the wire.
	Filters map[string][]string
}

// NewQueryParams creates an empty QueryParams.
func NewQueryParams() *QueryParams {
	return &QueryParams{
		Fields:  make([]string, 0),
		Filters: make(map[string][]string),
	}
}

// ToValues converts the params to url.Values for the request query string.
func (p *QueryParams) ToValues() url.Values {
	values := url.Values{}

	if p == nil {
		return values
	}

	if p.Limit > 0 {
		values.Set("limit", strconv.Itoa(p.Limit))
	}

	if p.Offset > 0 {
		values.Set("offset", strconv.Itoa(p.Offset))
	}

	if p.Sort != "" {
		values.Set("sort", p.Sort)
	}

	if len(p.Fields) > 0 {
		values.Set("fields", strings.Join(p.Fields, ","))
	}

	for field, filterValues := range p.Filters {
		if len(filterValues) > 0 {
			values.Set(field, strings.Join(filterValues, ","))
		}
	}

	return values
}

// WithLimit sets the page size.
func (p *QueryParams) WithLimit(limit int) *QueryParams {
	p.Limit = limit

	return p
}

// WithOffset sets the start index.
func (p *QueryParams) WithOffset(offset int) *QueryParams {
	p.Offset = offset

	return p
}

// WithSort sets the sort field. Prefix with '-' for descending order.
func (p *QueryParams) WithSort(sort string) *QueryParams {
	p.Sort = sort

	return p
}

// WithFields replaces the projected attribute list.
func (p *QueryParams) WithFields(fields ...string) *QueryParams {
	p.Fields = fields

	return p
}

// WithFilter appends match values for a field.
func (p *QueryParams) WithFilter(field string, values ...string) *QueryParams {
	if p.Filters == nil {
		p.Filters = make(map[string][]string)
	}

	p.Filters[field] = append(p.Filters[field], values...)

	return p
}

// Clone returns an independent copy so iterators can advance offsets without
// mutating the caller's params.
func (p *QueryParams) Clone() *QueryParams {
	if p == nil {
		return NewQueryParams()
	}

	clone := &QueryParams{
		Limit:   p.Limit,
		Offset:  p.Offset,
		Sort:    p.Sort,
		Fields:  append([]string(nil), p.Fields...),
		Filters: make(map[string][]string, len(p.Filters)),
	}

	for field, values := range p.Filters {
		clone.Filters[field] = append([]string(nil), values...)
	}

	return clone
}
