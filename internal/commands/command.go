package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Type string

const (
	TypeGoto  Type = "goto"
	TypeSpan  Type = "span"
	TypeToday Type = "today"
	TypeNext  Type = "next"
	TypePrev  Type = "prev"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Span is how many days the agenda shows at once.
type Span string

const (
	SpanDay   Span = "day"
	SpanWeek  Span = "week"
	SpanMonth Span = "month"
)

func (s Span) IsValid() bool {
	switch s {
	case SpanDay, SpanWeek, SpanMonth:
		return true
	default:
		return false
	}
}

type GotoArgs struct {
	// Date is a calendar date in UTC; only year, month and day matter.
	Date time.Time
}

type SpanArgs struct {
	Span Span
}

type MoveArgs struct {
	// Steps is how many spans to move; negative moves back.
	Steps int
}

type Command struct {
	Type Type
	Raw  string
	Goto *GotoArgs
	Span *SpanArgs
	Move *MoveArgs
}

var aliases = map[string]Type{
	"g":        TypeGoto,
	"n":        TypeNext,
	"p":        TypePrev,
	"previous": TypePrev,
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, ":") || strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(raw[1:])
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]
	typ := Type(head)
	if alias, ok := aliases[head]; ok {
		typ = alias
	}

	switch typ {
	case TypeGoto:
		return parseGoto(input, args)
	case TypeSpan:
		return parseSpan(input, args)
	case TypeToday:
		return Command{Type: TypeToday, Raw: input}, nil
	case TypeNext, TypePrev:
		return parseMove(input, typ, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseGoto(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "goto requires a date (YYYY-MM-DD)"}
	}
	date, err := time.Parse(time.DateOnly, args[0])
	if err != nil {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid date %q, use YYYY-MM-DD", args[0])}
	}
	return Command{Type: TypeGoto, Raw: raw, Goto: &GotoArgs{Date: date}}, nil
}

func parseSpan(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "span requires day, week or month"}
	}
	span := Span(strings.ToLower(args[0]))
	if !span.IsValid() {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown span %q", args[0])}
	}
	return Command{Type: TypeSpan, Raw: raw, Span: &SpanArgs{Span: span}}, nil
}

func parseMove(raw string, typ Type, args []string) (Command, error) {
	steps := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s takes a positive count", typ)}
		}
		steps = n
	}
	if typ == TypePrev {
		steps = -steps
	}
	return Command{Type: typ, Raw: raw, Move: &MoveArgs{Steps: steps}}, nil
}
