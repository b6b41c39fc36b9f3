package staging

import (
	"strings"

	"github.com/Veraticus/cashflow/internal/common"
)

// Field is one of the editable columns of a staged row.
type Field int

// Editable fields. Anything else is rejected with common.UnknownFieldError.
const (
	FieldDescription Field = iota + 1
	FieldAmount
	FieldKind
	FieldCategory
	FieldCompetenceDate
	FieldCashDate
	FieldPeriodicity
	FieldOccurrenceCount
)

var fieldNames = map[Field]string{
	FieldDescription:     "description",
	FieldAmount:          "amount",
	FieldKind:            "kind",
	FieldCategory:        "category",
	FieldCompetenceDate:  "competence_date",
	FieldCashDate:        "cash_date",
	FieldPeriodicity:     "periodicity",
	FieldOccurrenceCount: "occurrence_count",
}

var fieldAliases = map[string]Field{
	"category_id": FieldCategory,
	"count":       FieldOccurrenceCount,
}

// Fields lists the editable fields in display order.
func Fields() []Field {
	return []Field{
		FieldDescription, FieldAmount, FieldKind, FieldCategory,
		FieldCompetenceDate, FieldCashDate, FieldPeriodicity, FieldOccurrenceCount,
	}
}

// ParseField maps a field name to its Field.
func ParseField(name string) (Field, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "_")
	for f, n := range fieldNames {
		if n == key {
			return f, nil
		}
	}
	if f, ok := fieldAliases[key]; ok {
		return f, nil
	}
	return 0, &common.UnknownFieldError{Field: name}
}

// Valid reports whether f is a known field.
func (f Field) Valid() bool {
	_, ok := fieldNames[f]
	return ok
}

func (f Field) String() string {
	if n, ok := fieldNames[f]; ok {
		return n
	}
	return "unknown"
}
