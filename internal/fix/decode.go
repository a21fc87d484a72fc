package fix

import (
	"strconv"
	"time"

	"github.com/exsim/clob-exchange/internal/money"
)

// Message is a decoded FIX message as a tag -> value map, plus the raw
// bytes it was parsed from (used for re-checksumming and logging).
type Message struct {
	Type   MsgType
	Fields map[int]string
	Raw    []byte
}

// Get returns a field's raw string value.
func (m *Message) Get(tag int) (string, bool) {
	v, ok := m.Fields[tag]
	return v, ok
}

// Parser accumulates bytes from a stream and yields complete FIX messages.
// Mirrors simplefix's append_buffer/get_message split: callers feed bytes
// as they arrive and call Next repeatedly until it returns (nil, nil),
// meaning no complete frame is buffered yet.
type Parser struct {
	buf []byte
}

// Append feeds additional bytes into the parser's internal buffer.
func (p *Parser) Append(b []byte) {
	p.buf = append(p.buf, b...)
}

// Next extracts the next complete message from the buffer, if any. It
// returns (nil, nil) when the buffer holds no complete frame yet — this is
// not an error, just "no message yet". It returns a non-nil error only for
// buffered bytes that cannot possibly form a valid frame.
func (p *Parser) Next() (*Message, error) {
	// A complete frame ends at the SOH following "10=NNN".
	idx := findChecksumEnd(p.buf)
	if idx < 0 {
		return nil, nil
	}
	raw := p.buf[:idx]
	p.buf = p.buf[idx:]

	msg, err := parseRaw(raw)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// findChecksumEnd scans buf for a field boundary starting "10=" followed by
// exactly 3 digits and a trailing SOH, returning the index just past that
// SOH, or -1 if no such frame is buffered yet. Tag 10 never appears at
// buf[0] in a well-formed message (it always follows "8=FIX.4.4<SOH>"), so
// only SOH-prefixed occurrences are checked.
func findChecksumEnd(buf []byte) int {
	for i := 0; i < len(buf); i++ {
		if buf[i] != SOH {
			continue
		}
		start := i + 1
		if start+3 > len(buf) || buf[start] != '1' || buf[start+1] != '0' || buf[start+2] != '=' {
			continue
		}
		end := start + 3
		for end < len(buf) && buf[end] != SOH {
			end++
		}
		if end >= len(buf) {
			continue
		}
		if end-(start+3) == 3 {
			return end + 1
		}
	}
	return -1
}

// parseRaw splits a complete raw FIX message into its tag=value fields.
func parseRaw(raw []byte) (*Message, error) {
	if len(raw) == 0 {
		return nil, &ParseError{Reason: "empty message"}
	}
	fields := make(map[int]string)
	start := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] != SOH {
			continue
		}
		pair := raw[start:i]
		start = i + 1
		eq := indexByte(pair, '=')
		if eq < 0 {
			return nil, &ParseError{Reason: "malformed field, missing '='"}
		}
		tag, err := strconv.Atoi(string(pair[:eq]))
		if err != nil {
			return nil, &ParseError{Reason: "non-numeric tag"}
		}
		fields[tag] = string(pair[eq+1:])
	}

	mt, ok := fields[TagMsgType]
	if !ok {
		return nil, &ParseError{Reason: "missing MsgType (tag 35)"}
	}

	return &Message{Type: MsgType(mt), Fields: fields, Raw: raw}, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// Decode parses one complete message and, based on tag 35, resynchronises
// the codec's incoming sequence expectation from tag 34 (expected next =
// N+1) before returning the typed application message.
func (c *Codec) Decode(raw []byte) (*Message, error) {
	msg, err := parseRaw(raw)
	if err != nil {
		return nil, err
	}
	if seqStr, ok := msg.Get(TagMsgSeqNum); ok {
		if n, err := strconv.Atoi(seqStr); err == nil {
			c.inSeq = n + 1
		}
	}
	return msg, nil
}

// ExpectedInboundSeq returns the next MsgSeqNum this codec expects to see.
func (c *Codec) ExpectedInboundSeq() int { return c.inSeq }

// ToNewOrderSingle extracts a typed NewOrderSingle from a decoded Message.
func ToNewOrderSingle(msg *Message) (*NewOrderSingle, error) {
	if msg.Type != MsgTypeNewOrderSingle {
		return nil, &ParseError{Reason: "not a NewOrderSingle (35=D)"}
	}
	out := &NewOrderSingle{SenderCompID: msg.Fields[TagSenderCompID], TargetCompID: msg.Fields[TagTargetCompID]}
	if v, ok := msg.Get(TagMsgSeqNum); ok {
		out.MsgSeqNum, _ = strconv.Atoi(v)
	}
	out.ClOrdID = msg.Fields[TagClOrdID]
	out.Symbol = msg.Fields[TagSymbol]
	out.Side = msg.Fields[TagSide]
	out.Source = msg.Fields[TagSource]
	if v, ok := msg.Get(TagPrice); ok {
		p, err := money.Parse(v)
		if err != nil {
			return nil, &InvalidFieldError{Tag: TagPrice, Reason: "unparseable price"}
		}
		out.Price = p
	}
	if v, ok := msg.Get(TagOrderQty); ok {
		out.OrderQty, _ = strconv.Atoi(v)
	}
	if v, ok := msg.Get(TagSendingTime); ok {
		if ts, err := time.Parse(SendingTimeLayout, v); err == nil {
			out.SendingTime = ts
		}
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// ToExecutionReport extracts a typed ExecutionReport from a decoded Message.
func ToExecutionReport(msg *Message) (*ExecutionReport, error) {
	if msg.Type != MsgTypeExecutionReport {
		return nil, &ParseError{Reason: "not an ExecutionReport (35=8)"}
	}
	out := &ExecutionReport{
		SenderCompID: msg.Fields[TagSenderCompID],
		TargetCompID: msg.Fields[TagTargetCompID],
		ClOrdID:      msg.Fields[TagClOrdID],
		OrderID:      msg.Fields[TagOrderID],
		ExecID:       msg.Fields[TagExecID],
		OrdStatus:    msg.Fields[TagOrdStatus],
		ExecType:     msg.Fields[TagExecType],
		Symbol:       msg.Fields[TagSymbol],
		Side:         msg.Fields[TagSide],
		Source:       msg.Fields[TagSource],
	}
	if v, ok := msg.Get(TagMsgSeqNum); ok {
		out.MsgSeqNum, _ = strconv.Atoi(v)
	}
	if v, ok := msg.Get(TagOrderQty); ok {
		out.OrderQty, _ = strconv.Atoi(v)
	}
	if v, ok := msg.Get(TagLastQty); ok {
		n, _ := strconv.Atoi(v)
		out.LastQty = &n
	}
	if v, ok := msg.Get(TagLastPx); ok {
		if p, err := money.Parse(v); err == nil {
			out.LastPx = &p
		}
	}
	if v, ok := msg.Get(TagLeavesQty); ok {
		n, _ := strconv.Atoi(v)
		out.LeavesQty = &n
	}
	if v, ok := msg.Get(TagCumQty); ok {
		n, _ := strconv.Atoi(v)
		out.CumQty = &n
	}
	if v, ok := msg.Get(TagPrice); ok {
		if p, err := money.Parse(v); err == nil {
			out.Price = &p
		}
	}
	if v, ok := msg.Get(TagText); ok {
		out.Text = &v
	}
	return out, nil
}

// ToHeartbeat extracts a typed Heartbeat from a decoded Message.
func ToHeartbeat(msg *Message) (*Heartbeat, error) {
	if msg.Type != MsgTypeHeartbeat {
		return nil, &ParseError{Reason: "not a Heartbeat (35=0)"}
	}
	out := &Heartbeat{SenderCompID: msg.Fields[TagSenderCompID], TargetCompID: msg.Fields[TagTargetCompID]}
	if v, ok := msg.Get(TagMsgSeqNum); ok {
		out.MsgSeqNum, _ = strconv.Atoi(v)
	}
	return out, nil
}
