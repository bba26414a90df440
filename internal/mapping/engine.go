// Package mapping turns source rows into target-schema rows.
package mapping

import (
	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
)

// Mode controls how a rule whose source column is absent from a row is
// handled.
type Mode int

const (
	// ModeLenient skips the target field silently.
	ModeLenient Mode = iota
	// ModeStrict skips the target field and reports a Gap for it.
	ModeStrict
)

// DefaultCandidates lists, per mappable target field, the source headers
// tried in order when no explicit mapping is supplied. Matching is exact.
var DefaultCandidates = []Candidate{
	{Target: domain.FieldProduct, Sources: []string{"상품명", "품목명", "제품명", "product"}},
	{Target: domain.FieldQuantity, Sources: []string{"수량", "주문수량", "quantity", "qty"}},
	{Target: domain.FieldUnitPrice, Sources: []string{"단가", "가격", "price", "unit_price"}},
	{Target: domain.FieldCustomer, Sources: []string{"고객명", "주문자", "배송받는분", "customer"}},
	{Target: domain.FieldContact, Sources: []string{"연락처", "전화번호", "phone", "tel"}},
	{Target: domain.FieldAddress, Sources: []string{"주소", "배송지", "address"}},
}

type Candidate struct {
	Target  string
	Sources []string
}

// Gap is a rule whose source column was missing from a row. Row is the
// 1-based position of the row in the input.
type Gap struct {
	Row         int    `json:"row"`
	TargetField string `json:"targetField"`
	SourceField string `json:"sourceField"`
}

type Engine struct {
	mode       Mode
	candidates []Candidate
}

func NewEngine(mode Mode) *Engine {
	return &Engine{mode: mode, candidates: DefaultCandidates}
}

// WithCandidates returns a copy of the engine using a different fallback
// table.
func (e *Engine) WithCandidates(candidates []Candidate) *Engine {
	clone := *e
	clone.candidates = candidates
	return &clone
}

// Apply transforms every row of the table. The output has one record per
// input row, in input order. Gaps are only reported in ModeStrict.
func (e *Engine) Apply(table *domain.Table, m domain.Mapping) ([]domain.Record, []Gap) {
	if table == nil {
		return []domain.Record{}, nil
	}

	var gaps []Gap
	out := make([]domain.Record, 0, len(table.Rows))
	for idx, row := range table.Rows {
		var rec domain.Record
		if len(m) == 0 {
			rec = e.applyCandidates(row)
		} else {
			var rowGaps []Gap
			rec, rowGaps = e.applyRules(idx+1, row, m)
			gaps = append(gaps, rowGaps...)
		}
		attachAmount(&rec)
		out = append(out, rec)
	}
	return out, gaps
}

func (e *Engine) applyRules(position int, row domain.Record, m domain.Mapping) (domain.Record, []Gap) {
	var gaps []Gap
	rec := domain.NewRecord()
	for _, rule := range m.Rules() {
		if rule.SourceField == "" {
			continue
		}
		value, ok := row.Get(rule.SourceField)
		if !ok {
			if e.mode == ModeStrict {
				gaps = append(gaps, Gap{Row: position, TargetField: rule.TargetField, SourceField: rule.SourceField})
			}
			continue
		}
		rec.Set(rule.TargetField, value)
	}
	return rec, gaps
}

func (e *Engine) applyCandidates(row domain.Record) domain.Record {
	rec := domain.NewRecord()
	for _, c := range e.candidates {
		for _, source := range c.Sources {
			if value, ok := row.Get(source); ok {
				rec.Set(c.Target, value)
				break
			}
		}
	}
	return rec
}

// attachAmount derives the amount field when both quantity and unit price
// are present and numeric.
func attachAmount(rec *domain.Record) {
	rawQty := rec.Value(domain.FieldQuantity)
	rawPrice := rec.Value(domain.FieldUnitPrice)
	if rawQty == "" || rawPrice == "" {
		return
	}
	qty, ok := domain.ParseQuantity(rawQty)
	if !ok {
		return
	}
	price, ok := domain.ParseDecimal(rawPrice)
	if !ok {
		return
	}
	rec.Set(domain.FieldAmount, domain.FormatNumber(float64(qty)*price))
}
