package fix

import (
	"time"

	"github.com/exsim/clob-exchange/internal/money"
)

var (
	minPrice = money.NewFromFloat(0.01)
	maxPrice = money.NewFromFloat(1_000_000)
)

// NewOrderSingle is a 35=D application message.
type NewOrderSingle struct {
	SenderCompID string
	TargetCompID string
	MsgSeqNum    int
	SendingTime  time.Time
	ClOrdID      string
	Symbol       string
	Side         string // SideBuy/SideSell
	Price        money.Price
	OrderQty     int
	Source       string
}

// Validate applies the encode-time field checks required before a
// NewOrderSingle may be sent.
func (m *NewOrderSingle) Validate() error {
	if m.ClOrdID == "" {
		return &InvalidFieldError{Tag: TagClOrdID, Reason: "ClOrdID must not be empty"}
	}
	if m.Symbol == "" || len(m.Symbol) > 8 {
		return &InvalidFieldError{Tag: TagSymbol, Reason: "Symbol must be non-empty and at most 8 characters"}
	}
	if m.Side != SideBuy && m.Side != SideSell {
		return &InvalidFieldError{Tag: TagSide, Reason: "Side must be \"1\" or \"2\""}
	}
	if m.Price.LessThan(minPrice) || m.Price.GreaterThan(maxPrice) {
		return &InvalidFieldError{Tag: TagPrice, Reason: "Price must be between 0.01 and 1,000,000"}
	}
	if m.OrderQty < 1 || m.OrderQty > 10_000 {
		return &InvalidFieldError{Tag: TagOrderQty, Reason: "OrderQty must be between 1 and 10,000"}
	}
	return nil
}

// Heartbeat is a 35=0 session message; it carries no application fields.
type Heartbeat struct {
	SenderCompID string
	TargetCompID string
	MsgSeqNum    int
}

// ExecutionReport is a 35=8 application message.
type ExecutionReport struct {
	SenderCompID string
	TargetCompID string
	MsgSeqNum    int
	ClOrdID      string
	OrderID      string
	ExecID       string
	OrdStatus    string
	ExecType     string
	Symbol       string
	Side         string
	OrderQty     int
	LastQty      *int
	LastPx       *money.Price
	LeavesQty    *int
	CumQty       *int
	Price        *money.Price
	Text         *string
	Source       string
}

// Codec owns one side of a FIX conversation: an outgoing sequence counter,
// an expected incoming sequence number, and heartbeat timing. A codec is owned
// exclusively by one strategy — never shared across strategies.
type Codec struct {
	SenderCompID string
	TargetCompID string

	outSeq int
	inSeq  int

	heartbeatInterval time.Duration
	lastHeartbeat     time.Time
}

// NewCodec creates a Codec with sequence numbers starting at 1.
func NewCodec(sender, target string) *Codec {
	return &Codec{
		SenderCompID:      sender,
		TargetCompID:      target,
		outSeq:            1,
		heartbeatInterval: 30 * time.Second,
	}
}

func (c *Codec) nextSeq() int {
	n := c.outSeq
	c.outSeq++
	return n
}

// EncodeNewOrderSingle validates and encodes a 35=D message, advancing the
// outgoing sequence counter only on success.
func (c *Codec) EncodeNewOrderSingle(clOrdID, symbol, side string, price money.Price, qty int, source string, now time.Time) ([]byte, error) {
	msg := NewOrderSingle{
		SenderCompID: c.SenderCompID,
		TargetCompID: c.TargetCompID,
		ClOrdID:      clOrdID,
		Symbol:       symbol,
		Side:         side,
		Price:        price,
		OrderQty:     qty,
		Source:       source,
		SendingTime:  now,
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	seq := c.nextSeq()
	msg.MsgSeqNum = seq

	body := []field{
		fs(TagClOrdID, msg.ClOrdID),
		fs(TagSymbol, msg.Symbol),
		fs(TagSide, msg.Side),
		fs(TagPrice, msg.Price.WireString()),
		fi(TagOrderQty, msg.OrderQty),
		fs(TagSendingTime, now.UTC().Format(SendingTimeLayout)),
		fs(TagSource, msg.Source),
	}
	return assemble(MsgTypeNewOrderSingle, c.SenderCompID, c.TargetCompID, seq, body), nil
}

// EncodeHeartbeat encodes a 35=0 message (standard header only) and updates
// the last-heartbeat timestamp.
func (c *Codec) EncodeHeartbeat(now time.Time) []byte {
	seq := c.nextSeq()
	c.lastHeartbeat = now
	return assemble(MsgTypeHeartbeat, c.SenderCompID, c.TargetCompID, seq, nil)
}

// IsHeartbeatDue reports whether a heartbeat should be sent given now.
func (c *Codec) IsHeartbeatDue(now time.Time) bool {
	if c.lastHeartbeat.IsZero() {
		return true
	}
	return now.Sub(c.lastHeartbeat) >= c.heartbeatInterval
}

// ExecutionReportParams groups the fields needed to encode a 35=8 message.
// Optional tags are only emitted when the corresponding pointer is non-nil.
type ExecutionReportParams struct {
	ClOrdID   string
	OrderID   string
	ExecID    string
	OrdStatus string
	ExecType  string
	Symbol    string
	Side      string
	OrderQty  int
	LastQty   *int
	LastPx    *money.Price
	LeavesQty *int
	CumQty    *int
	Price     *money.Price
	Text      *string
	Source    string
}

// EncodeExecutionReport encodes a 35=8 message. Side swap (Sender=EXCHANGE,
// Target=MY_COMPANY) is the caller's responsibility via the Codec's
// configured SenderCompID/TargetCompID — an exchange-direction codec is
// constructed with those roles reversed from a client-direction one.
func (c *Codec) EncodeExecutionReport(p ExecutionReportParams) []byte {
	seq := c.nextSeq()

	body := []field{
		fs(TagClOrdID, p.ClOrdID),
		fs(TagOrderID, p.OrderID),
		fs(TagExecID, p.ExecID),
		fs(TagOrdStatus, p.OrdStatus),
		fs(TagExecType, p.ExecType),
		fs(TagSymbol, p.Symbol),
		fs(TagSide, p.Side),
		fi(TagOrderQty, p.OrderQty),
	}
	if p.LastQty != nil {
		body = append(body, fi(TagLastQty, *p.LastQty))
	}
	if p.LastPx != nil {
		body = append(body, fs(TagLastPx, p.LastPx.WireString()))
	}
	if p.LeavesQty != nil {
		body = append(body, fi(TagLeavesQty, *p.LeavesQty))
	}
	if p.CumQty != nil {
		body = append(body, fi(TagCumQty, *p.CumQty))
	}
	if p.Price != nil {
		body = append(body, fs(TagPrice, p.Price.WireString()))
	}
	if p.Text != nil {
		body = append(body, fs(TagText, *p.Text))
	}
	body = append(body, fs(TagSource, p.Source))

	return assemble(MsgTypeExecutionReport, c.SenderCompID, c.TargetCompID, seq, body)
}
