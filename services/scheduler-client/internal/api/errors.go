package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrServer       = errors.New("server error")
	ErrInvalidID    = errors.New("invalid id")
)

const (
	MsgServerError   = "Server error. Please try again later"
	MsgNotAuthorized = "Not authorized to perform this action"
)

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Status int
	Detail string
	Body   []byte
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("api status %d", e.Status)
}

// Error is what services hand to callers: Message is ready for display.
// Status is zero for failures that never produced a response.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := sentinel(e.Status); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func sentinel(status int) error {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrBadRequest
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status >= http.StatusInternalServerError:
		return ErrServer
	default:
		return nil
	}
}

// Mapper turns transport and status errors into *Error for one resource.
type Mapper struct {
	// Messages holds fixed texts by status code.
	Messages map[int]string
	// BadRequest is used for a 400 without a server detail.
	BadRequest string
}

func (m Mapper) Map(err error) error {
	if err == nil {
		return nil
	}
	var mapped *Error
	if errors.As(err, &mapped) {
		return err
	}

	var se *StatusError
	if !errors.As(err, &se) {
		return &Error{Message: err.Error(), Err: err}
	}

	var msg string
	switch fixed, ok := m.Messages[se.Status]; {
	case se.Status == http.StatusBadRequest:
		msg = se.Detail
		if msg == "" {
			msg = m.BadRequest
		}
	case ok:
		msg = fixed
	case se.Detail != "":
		msg = se.Detail
	default:
		msg = fmt.Sprintf("Error Code: %d", se.Status)
	}
	return &Error{Status: se.Status, Message: msg, Err: se}
}
