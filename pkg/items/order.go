package items

import (
	"fmt"
	"strings"
)

// Columns that may be used for sorting and equality filters.
var (
	SortableColumns = []string{"priority", "created_at", "updated_at", "title", "publish_at", "expire_at", "id"}
	FilterColumns   = []string{"status", "user_id", "priority", "category_id", "root_id", "language", "type", "source_id"}
)

// ParseOrder parses an ORDER BY list such as "priority ASC, created_at DESC".
func ParseOrder(order string) ([]OrderTerm, error) {
	var terms []OrderTerm
	for _, part := range strings.Split(order, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		if len(fields) > 2 {
			return nil, fmt.Errorf("invalid order term %q", strings.TrimSpace(part))
		}
		term, err := NewOrderTerm(fields[0], strings.Join(fields[1:], ""))
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, nil
}

// NewOrderTerm builds a term from a column and an "asc"/"desc" direction.
func NewOrderTerm(column, direction string) (OrderTerm, error) {
	column = strings.ToLower(column)
	if !isColumn(SortableColumns, column) {
		return OrderTerm{}, fmt.Errorf("column %q is not sortable", column)
	}
	switch strings.ToLower(direction) {
	case "", "asc":
		return OrderTerm{Column: column}, nil
	case "desc":
		return OrderTerm{Column: column, Desc: true}, nil
	}
	return OrderTerm{}, fmt.Errorf("invalid sort direction %q", direction)
}

// IsFilterColumn reports whether column may be used in an equality filter.
func IsFilterColumn(column string) bool {
	return isColumn(FilterColumns, column)
}

func isColumn(allowed []string, column string) bool {
	for _, c := range allowed {
		if c == column {
			return true
		}
	}
	return false
}

func (t OrderTerm) String() string {
	if t.Desc {
		return t.Column + " DESC"
	}
	return t.Column + " ASC"
}
