package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Goto  func(GotoArgs) (Result, error)
	Span  func(SpanArgs) (Result, error)
	Today func() (Result, error)
	// Move serves both next and prev.
	Move func(MoveArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeGoto:
		if handlers.Goto == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "goto handler not configured"}
		}
		return handlers.Goto(*cmd.Goto)
	case TypeSpan:
		if handlers.Span == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "span handler not configured"}
		}
		return handlers.Span(*cmd.Span)
	case TypeToday:
		if handlers.Today == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: "today handler not configured"}
		}
		return handlers.Today()
	case TypeNext, TypePrev:
		if handlers.Move == nil {
			return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", cmd.Type)}
		}
		return handlers.Move(*cmd.Move)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
