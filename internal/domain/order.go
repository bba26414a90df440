package domain

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Target schema field labels. The labels double as the keys of transformed
// records and as the header row of generated purchase orders.
const (
	FieldSeq       = "NO"
	FieldProduct   = "상품명"
	FieldQuantity  = "수량"
	FieldUnitPrice = "단가"
	FieldAmount    = "금액"
	FieldCustomer  = "고객명"
	FieldContact   = "연락처"
	FieldAddress   = "주소"
)

// StandardSchemaID identifies the only target schema variant.
const StandardSchemaID = "standard"

// TargetSchema is the fixed column order of a generated purchase order.
var TargetSchema = []string{
	FieldSeq,
	FieldProduct,
	FieldQuantity,
	FieldUnitPrice,
	FieldAmount,
	FieldCustomer,
	FieldContact,
	FieldAddress,
}

// MappableFields are the target fields a user (or the fallback heuristic)
// can bind to a source column. Sequence number and amount are derived.
var MappableFields = []string{
	FieldProduct,
	FieldQuantity,
	FieldUnitPrice,
	FieldCustomer,
	FieldContact,
	FieldAddress,
}

func IsMappableField(name string) bool {
	for _, f := range MappableFields {
		if f == name {
			return true
		}
	}
	return false
}

// Mapping binds target field names to source header names.
type Mapping map[string]string

type MappingRule struct {
	TargetField string `json:"target_field"`
	SourceField string `json:"source_field"`
}

// Rules lists the mapping sorted by target field.
func (m Mapping) Rules() []MappingRule {
	rules := make([]MappingRule, 0, len(m))
	for target, source := range m {
		rules = append(rules, MappingRule{TargetField: target, SourceField: source})
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].TargetField < rules[j].TargetField })
	return rules
}

// MappingDefinition is the persisted form of a user-authored mapping.
type MappingDefinition struct {
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	SourceFields []string  `json:"sourceFields"`
	TargetFields []string  `json:"targetFields"`
	Rules        Mapping   `json:"rules"`
}

// OrderLine is a transformed record narrowed to the target schema.
type OrderLine struct {
	Seq          int
	ProductName  string
	Quantity     *int
	UnitPrice    *float64
	Amount       *float64
	CustomerName string
	Contact      string
	Address      string

	Source Record
}

// NewOrderLine narrows a transformed record. Numeric fields that do not
// coerce are left nil.
func NewOrderLine(seq int, rec Record) OrderLine {
	line := OrderLine{
		Seq:          seq,
		ProductName:  rec.Value(FieldProduct),
		CustomerName: rec.Value(FieldCustomer),
		Contact:      rec.Value(FieldContact),
		Address:      rec.Value(FieldAddress),
		Source:       rec,
	}
	if q, ok := ParseQuantity(rec.Value(FieldQuantity)); ok {
		line.Quantity = &q
	}
	if p, ok := ParseDecimal(rec.Value(FieldUnitPrice)); ok {
		line.UnitPrice = &p
	}
	if a, ok := ParseDecimal(rec.Value(FieldAmount)); ok {
		line.Amount = &a
	}
	return line
}

// ParseDecimal coerces a cell value to a number. Surrounding whitespace and
// thousands separators are ignored; anything else that does not parse is
// rejected.
func ParseDecimal(raw string) (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseQuantity coerces a cell value to an integer quantity, truncating any
// fractional part.
func ParseQuantity(raw string) (int, bool) {
	v, ok := ParseDecimal(raw)
	if !ok || math.Abs(v) > math.MaxInt32 {
		return 0, false
	}
	return int(math.Trunc(v)), true
}

// FormatNumber renders a number without trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
