// Package fix implements a FIX-4.4 tag-value codec for the subset of the
// protocol this exchange models: NewOrderSingle, Heartbeat, and
// ExecutionReport application messages. Session-level concerns (logon,
// logout, gap fill, resend request) are out of scope — only the
// heartbeat timer and sequence-number bookkeeping are modeled.
//
// Grounded on original_source/app/fix_engine.py (simplefix-based: field
// order, checksum/bodylength computation, SOH framing, sequence
// resynchronisation on decode) and on go-feed's from-scratch binary
// framing for its ITCH feed (fixed field layout, hand-rolled encode, no
// third-party protocol library) — adapted from ITCH's binary big-endian
// fields to FIX's SOH-delimited tag=value text fields.
package fix

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/exsim/clob-exchange/internal/money"
)

// SOH is the FIX field delimiter on the wire.
const SOH = byte(0x01)

// BeginString is the fixed FIX.4.4 protocol identifier (tag 8).
const BeginString = "FIX.4.4"

// MsgType identifies the application message (tag 35).
type MsgType string

const (
	MsgTypeNewOrderSingle  MsgType = "D"
	MsgTypeHeartbeat       MsgType = "0"
	MsgTypeExecutionReport MsgType = "8"
)

// Tag numbers used by this codec.
const (
	TagBeginString  = 8
	TagBodyLength   = 9
	TagMsgType      = 35
	TagSenderCompID = 49
	TagTargetCompID = 56
	TagMsgSeqNum    = 34
	TagSendingTime  = 52
	TagCheckSum     = 10
	TagClOrdID      = 11
	TagSymbol       = 55
	TagSide         = 54
	TagOrderQty     = 38
	TagPrice        = 44
	TagOrderID      = 37
	TagExecID       = 17
	TagOrdStatus    = 39
	TagExecType     = 150
	TagLastQty      = 32
	TagLastPx       = 31
	TagLeavesQty    = 151
	TagCumQty       = 14
	TagText         = 58
	TagSource       = 6007 // vendor tag: originating strategy/source name
)

// Side codes (tag 54).
const (
	SideBuy  = "1"
	SideSell = "2"
)

// SendingTimeLayout is the FIX UTC timestamp format (tag 52, no
// milliseconds — the exchange doesn't need sub-second session granularity).
const SendingTimeLayout = "20060102-15:04:05"

// InvalidFieldError reports a field that failed encode-time validation.
type InvalidFieldError struct {
	Tag    int
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid field tag=%d: %s", e.Tag, e.Reason)
}

// ParseError reports malformed input that could not be decoded.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("fix parse error: %s", e.Reason)
}

// field is an ordered tag=value pair prior to SOH-joining.
type field struct {
	tag int
	val string
}

func fi(tag, v int) field    { return field{tag, strconv.Itoa(v)} }
func fs(tag int, v string) field { return field{tag, v} }

// renderBody joins fields with a trailing SOH after each one.
func renderBody(fields []field) []byte {
	var buf bytes.Buffer
	for _, f := range fields {
		buf.WriteString(strconv.Itoa(f.tag))
		buf.WriteByte('=')
		buf.WriteString(f.val)
		buf.WriteByte(SOH)
	}
	return buf.Bytes()
}

// checksum computes tag 10's value: sum of all bytes up to and including
// the SOH preceding tag 10, modulo 256, zero-padded to 3 digits.
func checksum(b []byte) string {
	var sum int
	for _, c := range b {
		sum += int(c)
	}
	return fmt.Sprintf("%03d", sum%256)
}

// assemble builds the full wire message: header (8, 9) + body + checksum (10).
func assemble(msgType MsgType, sender, target string, seqNum int, bodyFields []field) []byte {
	header := []field{fs(TagMsgType, string(msgType)), fs(TagSenderCompID, sender), fs(TagTargetCompID, target), fi(TagMsgSeqNum, seqNum)}
	all := append(header, bodyFields...)
	body := renderBody(all)

	bodyLen := len(body)

	var out bytes.Buffer
	out.WriteString(fmt.Sprintf("%d=%s", TagBeginString, BeginString))
	out.WriteByte(SOH)
	out.WriteString(fmt.Sprintf("%d=%d", TagBodyLength, bodyLen))
	out.WriteByte(SOH)
	out.Write(body)

	cs := checksum(out.Bytes())
	out.WriteString(fmt.Sprintf("%d=%s", TagCheckSum, cs))
	out.WriteByte(SOH)
	return out.Bytes()
}

// Render renders a raw wire message for logging, substituting "|" for SOH.
func Render(raw []byte) string {
	return string(bytes.ReplaceAll(raw, []byte{SOH}, []byte("|")))
}
