// SPDX-License-Identifier: MIT
package lexer

import (
	"fmt"
	"strconv"
)

type (
	// TokenID int identifying the kind of a scanned Token.
	TokenID int

	// Token holds the kind & payload of one scanned lexical unit.
	Token struct {
		Err error   // Scan failure; TokenError only.
		Val []byte  // Identifier bytes; TokenText only.
		Num int32   // Parsed value; TokenNumber only.
		ID  TokenID // The kind of this Token.
	}

	// Tokens is a type wrapper for []Token.
	Tokens []Token
)

// iota is used to define an incrementing number sequence for const
// declarations
const (
	_           TokenID = iota // Consume 0 to start actual numbering at 1.
	TokenError                 // Notify occurrence of an `error`.
	TokenEOF                   // End of the source input.
	TokenText                  // Identifier-like byte run.
	TokenNumber                // Signed 32-bit integer literal.
	TokenLParen                // '('.
	TokenRParen                // ')'.
	TokenDollar                // '$'.
	TokenHash                  // '#'.
	TokenEquals                // '='.
	TokenComma                 // ','.

	// TokenEOL is reserved for dialects requiring explicit line terminators.
	//
	// The Scanner never produces it; CR LF pairs are consumed as whitespace.
	TokenEOL
)

// newText creates a TokenText Token, taking ownership of buf.
func newText(buf []byte) Token { return Token{ID: TokenText, Val: buf} }

// newNumber creates a TokenNumber Token from an ASCII digit run with an
// optional leading '-'.
//
// The buffer content is restricted upstream, leaving the signed 32-bit range
// as the only parse failure.
func newNumber(buf []byte) (t Token, err error) {
	val, err := strconv.ParseInt(string(buf), 10, 32)
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrNumericOverflow, buf)
		return
	}

	t = Token{ID: TokenNumber, Num: int32(val)}

	return
}

// IDs collects the TokenID of every Token in the Tokens.
func (ts Tokens) IDs() (ids []TokenID) {
	ids = make([]TokenID, len(ts))
	for index := range ts {
		ids[index] = ts[index].ID
	}

	return
}

// Locate the first index holding a Token of the given TokenID.
func (ts Tokens) Locate(id TokenID) (resl int) {
	resl = -1

	for index := range ts {
		if ts[index].ID == id {
			resl = index
			return
		}
	}

	return
}
