package inputs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	appctx "github.com/corridor-intl/rail-go/libs/context"
	errorutils "github.com/corridor-intl/rail-go/libs/errors"
	"github.com/corridor-intl/rail-go/libs/handlers"
)

// OrderDirection - the directionality type
type OrderDirection string

const (
	// Ascending - ASC
	Ascending OrderDirection = "ASC"
	// Descending - DESC
	Descending = "DESC"
)

// maxPageItems caps a single page, listing surfaces refuse anything larger
const maxPageItems = 1000

// PageOrder - one ordering clause, attribute plus direction
type PageOrder struct {
	Direction OrderDirection
	Attribute string
}

// Pagination - the common paging parameters of listing endpoints,
// page=0&items=50&order=created_at.desc. Items left at zero means the
// endpoint's own default page size applies.
type Pagination struct {
	Order    []PageOrder
	RawOrder []string
	Page     int
	Items    int
}

// GetOrderBy builds the order by expression from the allowed attribute to
// column mapping on the context. Attributes outside the mapping were
// already rejected by Validate.
func (p *Pagination) GetOrderBy(ctx context.Context) string {
	var statement string

	okOrder, ok := ctx.Value(appctx.PaginationOrderOptionsCTXKey).(map[string]string)
	if !ok {
		return statement
	}
	for _, po := range p.Order {
		column := okOrder[po.Attribute]
		if column == "" {
			continue
		}
		if statement != "" {
			statement += ", "
		}
		statement += column
		switch po.Direction {
		case Ascending:
			statement += " ASC"
		case Descending:
			statement += " DESC"
		}
	}
	return statement
}

// Validate - implementation of validatable interface
func (p *Pagination) Validate(ctx context.Context) error {
	var errs = new(errorutils.MultiError)
	if p.Page < 0 {
		errs.Append(errors.New("page value must be greater than or equal to 0"))
	}
	if p.Items < 0 {
		errs.Append(errors.New("items value must be greater than or equal to 0"))
	}
	if p.Items > maxPageItems {
		errs.Append(fmt.Errorf("items value must not exceed %d", maxPageItems))
	}

	if okOrder, ok := ctx.Value(appctx.PaginationOrderOptionsCTXKey).(map[string]string); ok {
		for _, o := range p.Order {
			if _, ok := okOrder[o.Attribute]; !ok {
				errs.Append(fmt.Errorf("order parameter '%s' is not allowed", o.Attribute))
			}
		}
	}

	if errs.Count() > 0 {
		return errs
	}
	return nil
}

// Decode - implementation of decodable interface, parses the paging query
// parameters off a request url
func (p *Pagination) Decode(ctx context.Context, v []byte) error {
	u, err := url.Parse(string(v))
	if err != nil {
		return fmt.Errorf("failed to parse pagination parameters: %w", err)
	}
	q := u.Query()

	if raw := q.Get("page"); raw != "" {
		if p.Page, err = strconv.Atoi(raw); err != nil {
			return fmt.Errorf("failed to parse pagination page parameter: %w", err)
		}
	}
	if raw := q.Get("items"); raw != "" {
		if p.Items, err = strconv.Atoi(raw); err != nil {
			return fmt.Errorf("failed to parse pagination items parameter: %w", err)
		}
	}

	for _, v := range q["order"] {
		parts := strings.Split(v, ".")
		po := PageOrder{}
		if parts[0] != "" {
			po.Attribute = parts[0]
		}
		if len(parts) > 1 && parts[1] != "" {
			switch strings.ToUpper(parts[1]) {
			case string(Ascending):
				po.Direction = Ascending
			case string(Descending):
				po.Direction = Descending
			default:
				return fmt.Errorf("failed to parse order direction: %s", strings.ToUpper(parts[1]))
			}
		}
		p.Order = append(p.Order, po)
	}
	p.RawOrder = q["order"]

	return nil
}

var (
	jsonTagRE = regexp.MustCompile(`json:"(.*?)"`)
	dbTagRE   = regexp.MustCompile(`db:"(.*?)"`)
)

// NewPagination parses and validates paging parameters from a request url.
// The struct v supplies the orderable attributes, json tag names map to db
// columns through the struct tags.
func NewPagination(ctx context.Context, url string, v interface{}) (context.Context, *Pagination, error) {
	var (
		pagination = new(Pagination)
		order      = map[string]string{}
	)

	for i := 0; i < reflect.TypeOf(v).Elem().NumField(); i++ {
		tag := string(reflect.TypeOf(v).Elem().Field(i).Tag)
		if tag == "" {
			continue
		}

		var attribute, column string
		if jsonMatch := jsonTagRE.FindStringSubmatch(tag); len(jsonMatch) > 1 {
			attribute = strings.Split(jsonMatch[1], ",")[0]
		}
		if dbMatch := dbTagRE.FindStringSubmatch(tag); len(dbMatch) > 1 {
			column = strings.Split(dbMatch[1], ",")[0]
		}
		if attribute != "" && column != "" {
			order[attribute] = column
		}
	}

	ctx = context.WithValue(ctx, appctx.PaginationOrderOptionsCTXKey, order)

	if err := DecodeAndValidate(ctx, pagination, []byte(url)); err != nil {
		var (
			veParam = map[string]interface{}{}
			message = err.Error()
			me      *errorutils.MultiError
		)
		if errors.As(err, &me) {
			veParam["pagination"] = me.Errs
		}
		return ctx, nil, handlers.ValidationError(message, veParam)
	}
	return ctx, pagination, nil
}
