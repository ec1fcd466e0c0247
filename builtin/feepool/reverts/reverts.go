// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was rejected.
type Kind uint8

const (
	KindOverflow Kind = iota + 1
	KindAlreadyInitialized
	KindNotInitialized
	KindInsufficientStake
	KindInsufficientAllowanceOrBalance
	KindInvariant
	KindNotAuthorized
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindOverflow:
		return "overflow"
	case KindAlreadyInitialized:
		return "already initialized"
	case KindNotInitialized:
		return "not initialized"
	case KindInsufficientStake:
		return "insufficient stake"
	case KindInsufficientAllowanceOrBalance:
		return "insufficient allowance or balance"
	case KindInvariant:
		return "invariant violated"
	case KindNotAuthorized:
		return "not authorized"
	case KindInvalidArgument:
		return "invalid argument"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Sentinels to match with errors.Is.
var (
	ErrOverflow                       = &ErrRevert{kind: KindOverflow}
	ErrAlreadyInitialized             = &ErrRevert{kind: KindAlreadyInitialized}
	ErrNotInitialized                 = &ErrRevert{kind: KindNotInitialized}
	ErrInsufficientStake              = &ErrRevert{kind: KindInsufficientStake}
	ErrInsufficientAllowanceOrBalance = &ErrRevert{kind: KindInsufficientAllowanceOrBalance}
	ErrInvariant                      = &ErrRevert{kind: KindInvariant}
	ErrNotAuthorized                  = &ErrRevert{kind: KindNotAuthorized}
	ErrInvalidArgument                = &ErrRevert{kind: KindInvalidArgument}
)

// ErrRevert rejects an operation. The pool state is left untouched.
type ErrRevert struct {
	kind    Kind
	message string
}

// New creates a revert of the given kind.
func New(kind Kind, message string) *ErrRevert {
	return &ErrRevert{
		kind:    kind,
		message: message,
	}
}

// Newf creates a revert with a formatted message.
func Newf(kind Kind, format string, args ...any) *ErrRevert {
	return New(kind, fmt.Sprintf(format, args...))
}

func (e *ErrRevert) Kind() Kind {
	return e.kind
}

func (e *ErrRevert) Error() string {
	if e.message == "" {
		return e.kind.String()
	}
	return e.kind.String() + ": " + e.message
}

// Is matches any revert of the same kind.
func (e *ErrRevert) Is(target error) bool {
	t, ok := target.(*ErrRevert)
	return ok && t.kind == e.kind
}

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// KindOf returns the kind of the revert wrapped in err, or 0.
func KindOf(err error) Kind {
	var ve *ErrRevert
	if errors.As(err, &ve) {
		return ve.kind
	}
	return 0
}
