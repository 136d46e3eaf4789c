// SPDX-License-Identifier: MIT
package cblia

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/fennekki/cblia/lexer"
)

type (
	// Stream is a pull-based Token reader with a single Token of pushback.
	//
	// A Stream owns its Scanner the way the Scanner owns its byte source;
	// reading the Scanner directly while a Stream wraps it corrupts the
	// pushback slot.
	Stream struct {
		scanner *lexer.Scanner

		// held is the pushed-back Token awaiting re-delivery, valid while
		// hasHeld.
		held    lexer.Token
		hasHeld bool
	}
)

// Streaming errors.
var (
	ErrUnexpectedToken  = errors.New("unexpected token")
	ErrPushbackOccupied = errors.New("pushback slot is occupied")
)

// NewStream wraps a Scanner.
func NewStream(scanner *lexer.Scanner) *Stream {
	return &Stream{scanner: scanner}
}

// Next returns the next Token, draining the pushback slot first.
//
// Errors are the Scanner's: io.EOF on clean exhaustion, fatal otherwise.
func (st *Stream) Next(ctx context.Context) (t lexer.Token, err error) {
	if st.hasHeld {
		t = st.held
		st.held, st.hasHeld = lexer.Token{}, false
		return
	}

	return st.scanner.Next(ctx)
}

// Peek returns the next Token without consuming it.
func (st *Stream) Peek(ctx context.Context) (t lexer.Token, err error) {
	if st.hasHeld {
		t = st.held
		return
	}

	if t, err = st.scanner.Next(ctx); err != nil {
		return
	}
	st.held, st.hasHeld = t, true

	return
}

// Unread pushes a Token back onto the Stream for re-delivery by the next
// Next or Peek call.
func (st *Stream) Unread(t lexer.Token) (err error) {
	if st.hasHeld {
		err = ErrPushbackOccupied
		return
	}
	st.held, st.hasHeld = t, true

	return
}

// Expect consumes & returns the next Token only if its TokenID is among ids;
// otherwise the Token stays on the Stream.
func (st *Stream) Expect(ctx context.Context, ids ...lexer.TokenID) (t lexer.Token, err error) {
	if t, err = st.Peek(ctx); err != nil {
		return
	}

	if !slices.Contains(ids, t.ID) {
		err = fmt.Errorf("%w: got %d, want one of %v", ErrUnexpectedToken, t.ID, ids)
		t = lexer.Token{}
		return
	}

	return st.Next(ctx)
}
