package world

import (
	"errors"

	"railgrid.dev/internal/protocol"
)

// CmdError is a typed, user-displayable command failure. Code is one of
// the protocol error codes; drag helpers branch on it.
type CmdError struct {
	Code    string
	Message string
}

func (e *CmdError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

func errCode(code, message string) error {
	if !protocol.IsKnownCode(code) {
		code = protocol.ErrInternal
	}
	return &CmdError{Code: code, Message: message}
}

// CodeOf extracts the protocol code from an error, defaulting to
// E_INTERNAL for untyped errors.
func CodeOf(err error) string {
	var ce *CmdError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return protocol.ErrInternal
}

// IsCode reports whether err carries the given protocol code.
func IsCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

func errBadTile() error {
	return errCode(protocol.ErrBadRequest, "tile out of bounds")
}

func errAlreadyBuilt() error {
	return errCode(protocol.ErrAlreadyBuilt, "already built")
}

func errImpossibleCombination() error {
	return errCode(protocol.ErrImpossibleCombination, "impossible track combination")
}

func errTrainInWay() error {
	return errCode(protocol.ErrTrainInWay, "train in the way")
}

func errOwnedByOther() error {
	return errCode(protocol.ErrOwnedByOther, "tile owned by another company")
}

func errNoTrack() error {
	return errCode(protocol.ErrNoTrack, "no suitable railroad track")
}
