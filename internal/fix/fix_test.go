package fix

import (
	"errors"
	"testing"
	"time"

	"github.com/exsim/clob-exchange/internal/money"
)

func TestNewOrderSingleRoundTrip(t *testing.T) {
	c := NewCodec("MY_COMPANY", "EXCHANGE")
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)

	raw, err := c.EncodeNewOrderSingle("CL-1", "IBM", SideBuy, money.NewFromFloat(101.5), 25, "competitor1", now)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	msg, err := parseRaw(raw)
	if err != nil {
		t.Fatalf("parseRaw: %v", err)
	}
	if msg.Type != MsgTypeNewOrderSingle {
		t.Fatalf("type = %q, want %q", msg.Type, MsgTypeNewOrderSingle)
	}

	got, err := ToNewOrderSingle(msg)
	if err != nil {
		t.Fatalf("ToNewOrderSingle: %v", err)
	}
	if got.ClOrdID != "CL-1" || got.Symbol != "IBM" || got.Side != SideBuy || got.OrderQty != 25 || got.Source != "competitor1" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.Price.Equal(money.NewFromFloat(101.5)) {
		t.Fatalf("price round trip: got %s, want 101.5", got.Price)
	}
	if !got.SendingTime.Equal(now) {
		t.Fatalf("sending time round trip: got %v, want %v", got.SendingTime, now)
	}
}

func TestNewOrderSinglePriceWireFormat(t *testing.T) {
	c := NewCodec("MY_COMPANY", "EXCHANGE")
	raw, err := c.EncodeNewOrderSingle("CL-2", "IBM", SideBuy, money.NewFromInt(100), 1, "mm", time.Now())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	rendered := Render(raw)
	if !contains(rendered, "44=100.00000000|") {
		t.Fatalf("expected 8 fractional digits in rendered message, got %s", rendered)
	}
}

func TestNewOrderSingleValidation(t *testing.T) {
	c := NewCodec("MY_COMPANY", "EXCHANGE")
	now := time.Now()

	cases := []struct {
		name    string
		clOrdID string
		symbol  string
		side    string
		price   money.Price
		qty     int
		wantTag int
	}{
		{"empty clordid", "", "IBM", SideBuy, money.NewFromFloat(1), 1, TagClOrdID},
		{"empty symbol", "C", "", SideBuy, money.NewFromFloat(1), 1, TagSymbol},
		{"symbol too long", "C", "TOOLONGTICK", SideBuy, money.NewFromFloat(1), 1, TagSymbol},
		{"bad side", "C", "IBM", "3", money.NewFromFloat(1), 1, TagSide},
		{"price below floor", "C", "IBM", SideBuy, money.NewFromFloat(0.001), 1, TagPrice},
		{"price above ceiling", "C", "IBM", SideBuy, money.NewFromFloat(2_000_000), 1, TagPrice},
		{"qty zero", "C", "IBM", SideBuy, money.NewFromFloat(1), 0, TagOrderQty},
		{"qty too large", "C", "IBM", SideBuy, money.NewFromFloat(1), 10_001, TagOrderQty},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.EncodeNewOrderSingle(tc.clOrdID, tc.symbol, tc.side, tc.price, tc.qty, "src", now)
			var invalid *InvalidFieldError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidFieldError, got %v", err)
			}
			if invalid.Tag != tc.wantTag {
				t.Fatalf("tag = %d, want %d", invalid.Tag, tc.wantTag)
			}
		})
	}
}

func TestNewOrderSinglePriceBoundariesAccept(t *testing.T) {
	c := NewCodec("MY_COMPANY", "EXCHANGE")
	now := time.Now()
	if _, err := c.EncodeNewOrderSingle("C", "IBM", SideBuy, money.NewFromFloat(0.01), 1, "src", now); err != nil {
		t.Fatalf("price at floor should be accepted: %v", err)
	}
	if _, err := c.EncodeNewOrderSingle("C", "IBM", SideBuy, money.NewFromFloat(1_000_000), 10_000, "src", now); err != nil {
		t.Fatalf("price/qty at ceiling should be accepted: %v", err)
	}
}

func TestHeartbeatDue(t *testing.T) {
	c := NewCodec("MY_COMPANY", "EXCHANGE")
	t0 := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	if !c.IsHeartbeatDue(t0) {
		t.Fatal("heartbeat should be due before any has been sent")
	}
	c.EncodeHeartbeat(t0)
	if c.IsHeartbeatDue(t0.Add(10 * time.Second)) {
		t.Fatal("heartbeat should not be due 10s after last send")
	}
	if !c.IsHeartbeatDue(t0.Add(31 * time.Second)) {
		t.Fatal("heartbeat should be due after the 30s interval elapses")
	}
}

func TestExecutionReportRoundTrip(t *testing.T) {
	c := NewCodec("EXCHANGE", "MY_COMPANY")
	lastQty := 10
	lastPx := money.NewFromFloat(101.25)
	leaves := 0
	cum := 25
	price := money.NewFromFloat(101.25)

	raw := c.EncodeExecutionReport(ExecutionReportParams{
		ClOrdID:   "CL-1",
		OrderID:   "ORD-1",
		ExecID:    "EXEC-1",
		OrdStatus: "2",
		ExecType:  "F",
		Symbol:    "IBM",
		Side:      SideBuy,
		OrderQty:  25,
		LastQty:   &lastQty,
		LastPx:    &lastPx,
		LeavesQty: &leaves,
		CumQty:    &cum,
		Price:     &price,
		Source:    "competitor1",
	})

	msg, err := parseRaw(raw)
	if err != nil {
		t.Fatalf("parseRaw: %v", err)
	}
	got, err := ToExecutionReport(msg)
	if err != nil {
		t.Fatalf("ToExecutionReport: %v", err)
	}
	if got.ClOrdID != "CL-1" || got.OrderID != "ORD-1" || got.ExecID != "EXEC-1" {
		t.Fatalf("identity fields mismatch: %+v", got)
	}
	if got.LastQty == nil || *got.LastQty != 10 {
		t.Fatalf("LastQty mismatch: %+v", got.LastQty)
	}
	if got.LeavesQty == nil || *got.LeavesQty != 0 {
		t.Fatalf("LeavesQty mismatch: %+v", got.LeavesQty)
	}
	if got.LastPx == nil || !got.LastPx.Equal(lastPx) {
		t.Fatalf("LastPx mismatch: %+v", got.LastPx)
	}
}

func TestSequenceResync(t *testing.T) {
	c := NewCodec("MY_COMPANY", "EXCHANGE")
	other := NewCodec("EXCHANGE", "MY_COMPANY")
	raw := other.EncodeExecutionReport(ExecutionReportParams{ClOrdID: "C", OrderID: "O", ExecID: "E", OrdStatus: "0", ExecType: "0", Symbol: "IBM", Side: SideBuy, OrderQty: 1, Source: "x"})

	if _, err := c.Decode(raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.ExpectedInboundSeq() != 2 {
		t.Fatalf("expected inbound seq = %d, want 2", c.ExpectedInboundSeq())
	}
}

func TestParserIncompleteFrame(t *testing.T) {
	c := NewCodec("MY_COMPANY", "EXCHANGE")
	raw, err := c.EncodeNewOrderSingle("C", "IBM", SideBuy, money.NewFromFloat(1), 1, "src", time.Now())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var p Parser
	p.Append(raw[:len(raw)-5])
	msg, err := p.Next()
	if err != nil {
		t.Fatalf("Next should not error on a partial frame: %v", err)
	}
	if msg != nil {
		t.Fatal("Next should return nil for an incomplete frame")
	}

	p.Append(raw[len(raw)-5:])
	msg, err = p.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if msg == nil {
		t.Fatal("Next should return the completed frame")
	}
}

func TestParseMalformedField(t *testing.T) {
	_, err := parseRaw([]byte("8=FIX.4.4\x019=5\x01garbage\x0110=000\x01"))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestRender(t *testing.T) {
	raw := []byte("8=FIX.4.4\x0135=0\x01")
	if got := Render(raw); got != "8=FIX.4.4|35=0|" {
		t.Fatalf("Render = %q", got)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
