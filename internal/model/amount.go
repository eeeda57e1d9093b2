package model

import (
	"encoding/json"

	"github.com/fandance/rebalance-api/utils"
	"github.com/shopspring/decimal"
)

// Amount is a decimal that tolerates whatever a browser form sends:
// numbers, numeric strings (with comma separators), null, empty strings or
// plain garbage. Unparsable input decodes as zero instead of failing the
// request.
type Amount struct {
	decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		a.Decimal = decimal.Zero
		return nil
	}
	a.Decimal = utils.ToDecimal(raw)
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}
