// Package api holds the Bot API entities and requests, and the contract
// for executing a request against a Transport.
package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/jdelaire/tgbot/core/schema"
)

// Transport performs a single Bot API call and returns the raw response
// envelope. Errors are returned to callers unmodified.
type Transport interface {
	Call(ctx context.Context, method string, payload schema.Object) (schema.Object, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, method string, payload schema.Object) (schema.Object, error)

// Call calls f.
func (f TransportFunc) Call(ctx context.Context, method string, payload schema.Object) (schema.Object, error) {
	return f(ctx, method, payload)
}

// Request is an outbound entity addressed to a Bot API method.
type Request interface {
	Method() string
}

// Envelope is the wrapper around every Bot API response.
type Envelope struct {
	OK          bool                `tg:"ok"`
	Result      any                 `tg:"result,optional"`
	Description *string             `tg:"description,optional"`
	ErrorCode   *int                `tg:"error_code,optional"`
	Parameters  *ResponseParameters `tg:"parameters,optional"`
}

// ResponseParameters explains why a request failed.
type ResponseParameters struct {
	MigrateToChatID *int64 `tg:"migrate_to_chat_id,optional"`
	RetryAfter      *int   `tg:"retry_after,optional"`
}

// ErrUnexpectedResult is returned when a successful envelope carries a
// result that does not fit the request's declared result.
var ErrUnexpectedResult = errors.New("unexpected result")

const unknownError = "unknown error"

// APIError is returned when the server answers ok=false.
type APIError struct {
	Method          string
	Code            int
	Description     string
	RetryAfter      int
	MigrateToChatID int64
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("telegram: %s failed (%d): %s", e.Method, e.Code, e.Description)
	}
	return fmt.Sprintf("telegram: %s failed: %s", e.Method, e.Description)
}

// IsAPIError reports whether err is an *APIError with the given code.
func IsAPIError(err error, code int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

func (env *Envelope) apiError(method string) *APIError {
	e := &APIError{Method: method, Description: unknownError}
	if env.Description != nil && *env.Description != "" {
		e.Description = *env.Description
	}
	if env.ErrorCode != nil {
		e.Code = *env.ErrorCode
	}
	if p := env.Parameters; p != nil {
		if p.RetryAfter != nil {
			e.RetryAfter = *p.RetryAfter
		}
		if p.MigrateToChatID != nil {
			e.MigrateToChatID = *p.MigrateToChatID
		}
	}
	return e
}

// Do serializes req, calls the transport and checks the envelope. It
// returns the raw result of a successful call.
func Do(ctx context.Context, t Transport, req Request) (any, error) {
	method := req.Method()
	payload, err := schema.Encode(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}

	raw, err := t.Call(ctx, method, payload)
	if err != nil {
		return nil, err
	}

	env, err := schema.Decode[Envelope](raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	if !env.OK {
		return nil, env.apiError(method)
	}
	return env.Result, nil
}

func executeTrue(ctx context.Context, t Transport, req Request) (bool, error) {
	res, err := Do(ctx, t, req)
	if err != nil {
		return false, err
	}
	if ok, isBool := res.(bool); !isBool || !ok {
		return false, fmt.Errorf("%s: %w: %T", req.Method(), ErrUnexpectedResult, res)
	}
	return true, nil
}

func executeEntity[R any](ctx context.Context, t Transport, req Request) (*R, error) {
	res, err := Do(ctx, t, req)
	if err != nil {
		return nil, err
	}
	return decodeResult[R](req.Method(), res)
}

// executeEntityOrTrue handles methods that answer a literal true instead
// of the entity, e.g. edits of inline messages. It returns nil in that case.
func executeEntityOrTrue[R any](ctx context.Context, t Transport, req Request) (*R, error) {
	res, err := Do(ctx, t, req)
	if err != nil {
		return nil, err
	}
	if ok, isBool := res.(bool); isBool && ok {
		return nil, nil
	}
	return decodeResult[R](req.Method(), res)
}

func executeList[R any](ctx context.Context, t Transport, req Request) ([]R, []any, error) {
	res, err := Do(ctx, t, req)
	if err != nil {
		return nil, nil, err
	}
	raw, ok := res.([]any)
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w: %T", req.Method(), ErrUnexpectedResult, res)
	}
	list, err := schema.DecodeList[R](raw)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s result: %w", req.Method(), err)
	}
	return list, raw, nil
}

func decodeResult[R any](method string, res any) (*R, error) {
	obj, ok := res.(schema.Object)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %T", method, ErrUnexpectedResult, res)
	}
	r, err := schema.Decode[R](obj)
	if err != nil {
		return nil, fmt.Errorf("decode %s result: %w", method, err)
	}
	return r, nil
}
