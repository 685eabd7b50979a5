package sqlstore

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/movingbox/inventory-archive/internal/codec"
	"github.com/movingbox/inventory-archive/internal/inventory"
)

type dialect struct {
	name       string
	dollarArgs bool // $1, $2 instead of ?
}

var (
	sqliteDialect   = dialect{name: DriverSQLite}
	postgresDialect = dialect{name: DriverPostgres, dollarArgs: true}
)

// rebind rewrites ? placeholders for the dialect. Queries never contain a
// literal question mark.
func (d dialect) rebind(query string) string {
	if !d.dollarArgs {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// inList returns "(?, ?, ...)" and the ids as arguments. An empty list
// renders as (NULL), which matches nothing.
func inList(ids []uuid.UUID) (string, []any) {
	if len(ids) == 0 {
		return "(NULL)", nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ") + ")", args
}

// scopeFilter returns the WHERE condition restricting kind to scope, using
// the table aliases of the list queries. "" means no restriction.
func scopeFilter(kind inventory.Kind, scope inventory.Scope) (string, []any) {
	if !scope.Filtered() {
		return "", nil
	}
	in, args := inList(scope.HomeIDs())
	switch kind {
	case inventory.KindHome:
		return "h.id IN " + in, args
	case inventory.KindLocation:
		return "l.home_id IN " + in, args
	case inventory.KindItem:
		cond := "(i.home_id IN " + in +
			" OR (i.home_id IS NULL AND i.location_id IN (SELECT id FROM locations WHERE home_id IN " + in + ")))"
		return cond, append(args, args...)
	case inventory.KindPolicy:
		cond := "(NOT EXISTS (SELECT 1 FROM policy_homes ph WHERE ph.policy_id = p.id)" +
			" OR EXISTS (SELECT 1 FROM policy_homes ph WHERE ph.policy_id = p.id AND ph.home_id IN " + in + "))"
		return cond, args
	default:
		return "", nil
	}
}

// page appends LIMIT and OFFSET for opts.
func page(query string, args []any, opts inventory.ListOptions) (string, []any) {
	if opts.Limit <= 0 && opts.Offset <= 0 {
		return query, args
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 1<<31 - 1
	}
	return query + " LIMIT ? OFFSET ?", append(args, limit, opts.Offset)
}

func where(cond string) string {
	if cond == "" {
		return ""
	}
	return " WHERE " + cond
}

// timeArg stores t as RFC 3339 text; the zero time is NULL.
func timeArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func refArg(r *inventory.Ref) any {
	if r == nil {
		return nil
	}
	return r.ID.String()
}

// textTime scans timeArg's text back into a time.
type textTime struct{ t *time.Time }

func (tt textTime) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*tt.t = time.Time{}
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	case time.Time:
		*tt.t = v.UTC()
		return nil
	default:
		return fmt.Errorf("scan time: unsupported type %T", src)
	}
	if s == "" {
		*tt.t = time.Time{}
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("scan time %q: %w", s, err)
	}
	*tt.t = t
	return nil
}

// attachments stores an item's attachments as JSON text.
type attachments struct{ list *[]inventory.Attachment }

func (a attachments) Value() (driver.Value, error) {
	return codec.EncodeAttachments(*a.list), nil
}

func (a attachments) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("scan attachments: unsupported type %T", src)
	}
	list, err := codec.DecodeAttachments(s)
	if err != nil {
		return fmt.Errorf("scan attachments: %w", err)
	}
	*a.list = list
	return nil
}
