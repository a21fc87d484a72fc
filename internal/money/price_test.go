package money

import (
	"encoding/json"
	"testing"
)

func TestPriceJSONRoundTrip(t *testing.T) {
	p := NewFromFloat(101.25)

	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != "101.25" {
		t.Fatalf("expected a plain JSON number, got %s", raw)
	}

	var decoded Price
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.Equal(p) {
		t.Fatalf("round-tripped price %s != original %s", decoded, p)
	}
}

func TestPriceJSONInStruct(t *testing.T) {
	type quote struct {
		Price Price `json:"price"`
	}
	q := quote{Price: NewFromFloat(42)}

	raw, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"price":42}` {
		t.Fatalf("expected a numeric price field, got %s", raw)
	}
}
