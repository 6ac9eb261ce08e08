package web

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// The order form is loosely typed: the browser cart may send any JSON scalar for a
// field. These types keep what was sent instead of rejecting the body.

var jsonNull = []byte("null")

// looseString takes a JSON string as is and any other value as its JSON text,
// so a phone sent as 5551111 is stored as "5551111".
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, jsonNull) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	*s = looseString(b)
	return nil
}

// looseDecimal accepts a number or a numeric string. Anything else is zero.
type looseDecimal decimal.Decimal

func (d *looseDecimal) UnmarshalJSON(b []byte) error {
	var text looseString
	if err := text.UnmarshalJSON(b); err != nil {
		return err
	}
	v, err := decimal.NewFromString(strings.TrimSpace(string(text)))
	if err != nil {
		v = decimal.Zero
	}
	*d = looseDecimal(v)
	return nil
}

func (d looseDecimal) Decimal() decimal.Decimal { return decimal.Decimal(d) }

// looseInt accepts a number or a numeric string; fractions are truncated.
type looseInt int

func (n *looseInt) UnmarshalJSON(b []byte) error {
	var d looseDecimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*n = looseInt(d.Decimal().IntPart())
	return nil
}
