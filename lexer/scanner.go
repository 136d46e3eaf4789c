// SPDX-License-Identifier: MIT
package lexer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

type (
	// mode is the Scanner's transient classification state while assembling
	// one Token; it is local to a single Next call & never persists across
	// Tokens.
	mode int

	// Scanner pulls bytes off a source & assembles them into Tokens.
	//
	// The Scanner owns its source & the single byte of lookahead for its
	// entire lifetime; token production is strictly sequential.
	Scanner struct {
		Debug bool

		logger logrus.FieldLogger

		// source is the byte source being scanned.
		source io.ByteReader

		// peeked is the single byte of lookahead, valid while hasPeeked.
		//
		// peekErr defers a lookahead failure until the byte is consumed, so a
		// finished Token is still delivered before the failure surfaces.
		peeked    byte
		peekErr   error
		hasPeeked bool

		// err holds the first fatal error; once set the Scanner is dead.
		err error
	}

	// Option defines the Scanner functional option type.
	Option func(*Scanner)
)

const (
	idle mode = iota
	afterCR
	inText
	inNumber
)

// Scanning errors.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNumericOverflow = errors.New("numeric literal out of range")
	ErrSourceRead      = errors.New("source read failure")
)

// Byte classification tables indexed by the raw byte value.
var (
	letter [256]bool
	digit  [256]bool

	punctuation = [256]TokenID{
		'(': TokenLParen,
		')': TokenRParen,
		'$': TokenDollar,
		'#': TokenHash,
		'=': TokenEquals,
		',': TokenComma,
	}
)

func init() {
	letter['_'] = true
	for b := 'A'; b <= 'Z'; b++ {
		letter[b], letter[b+'a'-'A'] = true, true
	}
	// Legacy single-byte accented characters: 0xC0-0xFF excluding the
	// multiplication & division signs.
	for b := 0xC0; b <= 0xFF; b++ {
		letter[b] = b != 0xD7 && b != 0xF7
	}

	for b := '0'; b <= '9'; b++ {
		digit[b] = true
	}
}

// New creates a new Scanner for a byte source.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		logger: logrus.New(),
		source: strings.NewReader(""),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithDebug configures the debug option.
func WithDebug(debug bool) Option { return func(s *Scanner) { s.Debug = debug } }

// WithLogger configures the logger option.
func WithLogger(logger logrus.FieldLogger) Option { return func(s *Scanner) { s.logger = logger } }

// WithSource configures the byte source option.
func WithSource(source io.Reader) Option {
	return func(s *Scanner) {
		if br, ok := source.(io.ByteReader); ok {
			s.source = br
			return
		}
		s.source = bufio.NewReader(source)
	}
}

// Logger obtains the logger.
func (s *Scanner) Logger() logrus.FieldLogger { return s.logger }

// Next assembles & returns the next Token off the source.
//
// Clean exhaustion of the source yields a TokenEOF Token & io.EOF. Any other
// error is fatal for the whole scan: the Scanner is dead & subsequent calls
// return the same error.
func (s *Scanner) Next(ctx context.Context) (t Token, err error) {
	if s.err != nil {
		err = s.err
		return
	}

	select {
	case <-ctx.Done():
		err = s.fatal(ctx.Err())
		return
	default:
	}

	m := idle
	var buf []byte

	for {
		var b byte
		if b, err = s.readByte(); err != nil {
			if err == io.EOF {
				// Exhaustion terminates iteration regardless of mode; a
				// trailing unmatched CR is dropped, not diagnosed.
				t.ID = TokenEOF
				return
			}

			err = s.fatal(fmt.Errorf("%w: %v", ErrSourceRead, err))
			return
		}

		switch m {
		case idle:
			switch {
			case b == '\r':
				m = afterCR
			case letter[b]:
				buf = append(buf, b)
				if pb, ok := s.peek(); ok && isIdent(pb) {
					m = inText
					continue
				}

				return s.emit(newText(buf))
			case digit[b]:
				buf = append(buf, b)
				if pb, ok := s.peek(); ok && digit[pb] {
					m = inNumber
					continue
				}

				return s.emitNumber(buf)
			case b == '-':
				buf = append(buf, b)
				if pb, ok := s.peek(); !ok || !digit[pb] {
					// A faulted lookahead is a read failure, not a dangling
					// minus.
					if s.peekErr != nil && s.peekErr != io.EOF {
						err = s.fatal(fmt.Errorf("%w: %v", ErrSourceRead, s.peekErr))
						return
					}

					err = s.fatal(fmt.Errorf("%w: minus without a following digit", ErrInvalidInput))
					return
				}

				m = inNumber
			case punctuation[b] != 0:
				return s.emit(Token{ID: punctuation[b]})
			case b == ' ':
				// Skipped.
			default:
				err = s.fatal(fmt.Errorf("%w: unexpected byte %#x", ErrInvalidInput, b))
				return
			}
		case afterCR:
			if b != '\n' {
				err = s.fatal(fmt.Errorf("%w: CR without corresponding LF", ErrInvalidInput))
				return
			}
			m = idle
		case inText:
			buf = append(buf, b)
			if pb, ok := s.peek(); !ok || !isIdent(pb) {
				return s.emit(newText(buf))
			}
		case inNumber:
			buf = append(buf, b)
			if pb, ok := s.peek(); !ok || !digit[pb] {
				return s.emitNumber(buf)
			}
		}
	}
}

// Drain runs the Scanner to exhaustion, collecting every Token.
//
// The first fatal error stops collection & is returned alongside the Tokens
// scanned up to that point.
func (s *Scanner) Drain(ctx context.Context) (ts Tokens, err error) {
	for {
		var t Token
		if t, err = s.Next(ctx); err != nil {
			if err == io.EOF {
				err = nil
			}
			return
		}

		ts = append(ts, t)
	}
}

// readByte consumes the next byte off the source, draining the lookahead
// slot first.
func (s *Scanner) readByte() (b byte, err error) {
	if s.hasPeeked {
		b, err = s.peeked, s.peekErr
		s.hasPeeked, s.peekErr = false, nil
		return
	}

	return s.source.ReadByte()
}

// peek returns the next unconsumed byte without advancing the cursor.
//
// Exhaustion & read failure both yield !ok; a failure is not lost, it
// resurfaces on the following readByte.
func (s *Scanner) peek() (b byte, ok bool) {
	if !s.hasPeeked {
		s.peeked, s.peekErr = s.source.ReadByte()
		s.hasPeeked = true
	}

	return s.peeked, s.peekErr == nil
}

// emit a finished Token.
func (s *Scanner) emit(t Token) (Token, error) {
	if s.Debug {
		// Debug operation makes this operation un-inlinable.
		s.logger.Debug("scanner emit: ", t.ID, " ", string(t.Val))
	}

	return t, nil
}

// emitNumber parses & emits an accumulated digit run.
func (s *Scanner) emitNumber(buf []byte) (t Token, err error) {
	if t, err = newNumber(buf); err != nil {
		t = Token{}
		err = s.fatal(err)
		return
	}

	return s.emit(t)
}

// fatal marks the Scanner dead; every later Next call returns the same error.
func (s *Scanner) fatal(err error) error {
	s.err = err
	return err
}

// isIdent return true for identifier continuation bytes.
func isIdent(b byte) bool { return letter[b] || digit[b] }
