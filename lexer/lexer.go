// Package lexer tokenizes riff source text: multi-character operator
// disambiguation, decimal/hex/binary numeric literals, and
// escape-aware string literals.
package lexer

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/rootbeersoup/riff/token"
)

// Error is a fatal lexical error, reported as "line <N>: <message>".
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return "line " + strconv.Itoa(e.Line) + ": " + e.Msg
}

func lexErr(line int, msg string) error {
	return errors.WithStack(&Error{Line: line, Msg: msg})
}

// Lexer tokenizes a source buffer with one-token lookahead, mirroring
// the original x_init/x_adv/x_peek contract: Advance frees (in Go,
// simply discards) the previous owned lexeme and makes the next token
// current, while Peek populates a lookahead slot without disturbing the
// current token.
type Lexer struct {
	src  []byte
	pos  int
	line int

	cur  token.Token
	la   token.Token
	laOk bool
}

// New returns a Lexer positioned at the start of src, with the first
// token already scanned into Cur.
func New(src string) (*Lexer, error) {
	l := &Lexer{src: []byte(src), line: 1}
	if err := l.Advance(); err != nil {
		return nil, err
	}
	return l, nil
}

// Cur returns the current token.
func (l *Lexer) Cur() token.Token { return l.cur }

// Advance discards the current token and scans the next one (or
// consumes an already-populated lookahead) into Cur. At end-of-input
// Cur becomes a token.EOI token. Only a lexical error is returned.
func (l *Lexer) Advance() error {
	if l.laOk {
		l.cur = l.la
		l.laOk = false
		return nil
	}
	tok, err := l.scan()
	if err != nil {
		return err
	}
	l.cur = tok
	return nil
}

// Peek populates the lookahead token without disturbing Cur, returning
// it. Calling Peek twice in a row without an intervening Advance
// returns the same lookahead token.
func (l *Lexer) Peek() (token.Token, error) {
	if l.laOk {
		return l.la, nil
	}
	tok, err := l.scan()
	if err != nil {
		return token.Token{}, err
	}
	l.la = tok
	l.laOk = true
	return l.la, nil
}

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlphaNum(c byte) bool { return isAlpha(c) || isDigit(c) }

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// peekByte returns the byte at l.pos, or 0 at end of input.
func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peekByte2 returns the byte at l.pos+1, or 0 at end of input.
func (l *Lexer) peekByte2() byte {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *Lexer) scan() (token.Token, error) {
	for {
		c := l.peekByte()
		switch {
		case c == 0:
			return token.Token{Kind: token.EOI, Line: l.line}, nil
		case c == '\n' || c == '\r':
			l.line++
			l.pos++
			continue
		case c == ' ' || c == '\t':
			l.pos++
			continue
		case c == '/' && l.peekByte2() == '/':
			l.skipLineComment()
			continue
		case c == '/' && l.peekByte2() == '*':
			if err := l.skipBlockComment(); err != nil {
				return token.Token{}, err
			}
			continue
		}
		break
	}

	startLine := l.line
	c := l.src[l.pos]

	switch {
	case c == '"' || c == '\'':
		return l.readString(c)
	case isDigit(c):
		return l.readNumber()
	case c == '.' && isDigit(l.peekByte2()):
		return l.readNumber()
	case isAlpha(c):
		return l.readIdent()
	}

	l.pos++
	switch c {
	case '!':
		return l.test2('=', token.NE, token.Kind('!'), startLine), nil
	case '%':
		return l.test2('=', token.MODX, token.Kind('%'), startLine), nil
	case '^':
		return l.test2('=', token.XORX, token.Kind('^'), startLine), nil
	case '~':
		return token.Token{Kind: token.Kind('~'), Line: startLine}, nil
	case '#':
		return token.Token{Kind: token.Kind('#'), Line: startLine}, nil
	case '(', ')', ',', ';', '?', '[', ']', '{', '}':
		return token.Token{Kind: token.Kind(c), Line: startLine}, nil
	case '&':
		return l.test3('&', token.AND, '=', token.ANDX, token.Kind('&'), startLine), nil
	case '|':
		return l.test3('|', token.OR, '=', token.ORX, token.Kind('|'), startLine), nil
	case '+':
		return l.test3('+', token.INC, '=', token.ADDX, token.Kind('+'), startLine), nil
	case '-':
		return l.test3('-', token.DEC, '=', token.SUBX, token.Kind('-'), startLine), nil
	case '*':
		return l.readStar(startLine), nil
	case '<':
		return l.readShift('<', token.SHL, token.SHLX, startLine), nil
	case '>':
		return l.readAngle(startLine), nil
	case '/':
		return l.test2('=', token.DIVX, token.Kind('/'), startLine), nil
	case '=':
		return l.test2('=', token.EQ, token.Kind('='), startLine), nil
	case ':':
		return l.readColon(startLine), nil
	default:
		return token.Token{}, lexErr(startLine, "invalid token")
	}
}

// test2 is the 2-way lookahead: a single continuation character c
// selects t1, otherwise the fallback single-char token is produced.
func (l *Lexer) test2(c byte, t1 token.Kind, fallback token.Kind, line int) token.Token {
	if l.peekByte() == c {
		l.pos++
		return token.Token{Kind: t1, Line: line}
	}
	return token.Token{Kind: fallback, Line: line}
}

// test3 is the 3-way lookahead used for operators like '+' (++, +=, +).
func (l *Lexer) test3(c1 byte, t1 token.Kind, c2 byte, t2 token.Kind, fallback token.Kind, line int) token.Token {
	switch l.peekByte() {
	case c1:
		l.pos++
		return token.Token{Kind: t1, Line: line}
	case c2:
		l.pos++
		return token.Token{Kind: t2, Line: line}
	default:
		return token.Token{Kind: fallback, Line: line}
	}
}

// readStar handles '*', "**", "*=", "**=".
func (l *Lexer) readStar(line int) token.Token {
	if l.peekByte() == '*' {
		l.pos++
		if l.peekByte() == '=' {
			l.pos++
			return token.Token{Kind: token.POWX, Line: line}
		}
		return token.Token{Kind: token.POW, Line: line}
	}
	if l.peekByte() == '=' {
		l.pos++
		return token.Token{Kind: token.MULX, Line: line}
	}
	return token.Token{Kind: token.Kind('*'), Line: line}
}

// readShift handles '<', "<<", "<<=", "<=".
func (l *Lexer) readShift(c byte, shl, shlx token.Kind, line int) token.Token {
	if l.peekByte() == '=' {
		l.pos++
		return token.Token{Kind: token.LE, Line: line}
	}
	if l.peekByte() == c {
		l.pos++
		if l.peekByte() == '=' {
			l.pos++
			return token.Token{Kind: shlx, Line: line}
		}
		return token.Token{Kind: shl, Line: line}
	}
	return token.Token{Kind: token.Kind('<'), Line: line}
}

// readAngle handles '>', ">>", ">>=", ">=".
func (l *Lexer) readAngle(line int) token.Token {
	if l.peekByte() == '=' {
		l.pos++
		return token.Token{Kind: token.GE, Line: line}
	}
	if l.peekByte() == '>' {
		l.pos++
		if l.peekByte() == '=' {
			l.pos++
			return token.Token{Kind: token.SHRX, Line: line}
		}
		return token.Token{Kind: token.SHR, Line: line}
	}
	return token.Token{Kind: token.Kind('>'), Line: line}
}

// readColon handles ':', "::", "::=".
func (l *Lexer) readColon(line int) token.Token {
	if l.peekByte() == ':' {
		l.pos++
		if l.peekByte() == '=' {
			l.pos++
			return token.Token{Kind: token.CATX, Line: line}
		}
		return token.Token{Kind: token.CAT, Line: line}
	}
	return token.Token{Kind: token.Kind(':'), Line: line}
}

func (l *Lexer) skipLineComment() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.pos++
	}
}

func (l *Lexer) skipBlockComment() error {
	startLine := l.line
	l.pos += 2 // consume "/*"
	for {
		if l.pos >= len(l.src) {
			return lexErr(startLine, "reached end of input with unterminated block comment")
		}
		c := l.src[l.pos]
		if c == '\n' {
			l.line++
		}
		if c == '*' && l.peekByte2() == '/' {
			l.pos += 2
			return nil
		}
		l.pos++
	}
}

func (l *Lexer) readIdent() (token.Token, error) {
	start := l.pos
	line := l.line
	for l.pos < len(l.src) && isAlphaNum(l.src[l.pos]) {
		l.pos++
	}
	text := string(l.src[start:l.pos])
	kind := token.Lookup(text)
	if kind == token.ID {
		return token.Token{Kind: token.ID, Str: text, Line: line}, nil
	}
	return token.Token{Kind: kind, Line: line}, nil
}

// readNumber scans an INT or FLT literal: a leading "0x"/"0X" selects
// base 16, "0b"/"0B" selects base 2, otherwise base 10. A '.' followed
// by a digit reparses as a float (invalid in base 2). Base-10 overflow
// of int64, or a parse overflow in any base, reparses as a float.
func (l *Lexer) readNumber() (token.Token, error) {
	line := l.line

	if l.src[l.pos] == '.' {
		return l.readDotFloat(line)
	}

	base := 10
	if l.src[l.pos] == '0' && l.pos+1 < len(l.src) {
		switch l.src[l.pos+1] {
		case 'x', 'X':
			base = 16
			l.pos += 2
		case 'b', 'B':
			base = 2
			l.pos += 2
		}
	}
	digitsStart := l.pos

	for l.pos < len(l.src) && digitOf(base, l.src[l.pos]) {
		l.pos++
	}
	intText := string(l.src[digitsStart:l.pos])

	if l.pos < len(l.src) && l.src[l.pos] == '.' && isDigit(l.peekByte2()) {
		if base == 2 {
			return token.Token{}, lexErr(line, "invalid numeral")
		}
		return l.readNumFloat(line, base, intText)
	}

	if intText == "" {
		return token.Token{}, lexErr(line, "invalid numeral")
	}
	n, err := strconv.ParseUint(intText, base, 64)
	if err != nil {
		// Base-10/16 parse overflow: fall back to float, matching the
		// original's strtoull + ERANGE handling.
		return l.readNumFloat(line, base, intText)
	}
	if base == 10 && n > uint64(1<<63-1) {
		return l.readNumFloat(line, base, intText)
	}
	return token.Token{Kind: token.INT, Int: int64(n), Line: line}, nil
}

func digitOf(base int, c byte) bool {
	switch base {
	case 16:
		return isHex(c)
	case 2:
		return c == '0' || c == '1'
	default:
		return isDigit(c)
	}
}

// readDotFloat handles a literal that starts with '.', e.g. ".12".
func (l *Lexer) readDotFloat(line int) (token.Token, error) {
	l.pos++ // consume '.'
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	f, err := strconv.ParseFloat("0."+string(l.src[start:l.pos]), 64)
	if err != nil {
		return token.Token{}, lexErr(line, "invalid numeral")
	}
	return token.Token{Kind: token.FLT, Flt: f, Line: line}, nil
}

// readNumFloat finishes a float literal whose integer part (intText, in
// the given base) has already been scanned, consuming an optional '.'
// and fractional digits in the same base. Bases other than 10 are
// computed manually (integer + fraction/base^n) since Go's strconv only
// parses hex floats with a mandatory exponent.
func (l *Lexer) readNumFloat(line, base int, intText string) (token.Token, error) {
	var fracText string
	hasDot := false
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		hasDot = true
		l.pos++
		start := l.pos
		for l.pos < len(l.src) && digitOf(base, l.src[l.pos]) {
			l.pos++
		}
		fracText = string(l.src[start:l.pos])
	}
	if base == 10 {
		text := intText
		if hasDot {
			text += "." + fracText
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token.Token{}, lexErr(line, "invalid numeral")
		}
		return token.Token{Kind: token.FLT, Flt: f, Line: line}, nil
	}

	f := 0.0
	if intText != "" {
		if n, err := strconv.ParseUint(intText, base, 64); err == nil {
			f = float64(n)
		} else {
			// Integer part overflows uint64: accumulate it as a float.
			for k := 0; k < len(intText); k++ {
				f = f*float64(base) + float64(hexVal(intText[k]))
			}
		}
	}
	if fracText != "" {
		frac, err := strconv.ParseUint(fracText, base, 64)
		if err != nil {
			return token.Token{}, lexErr(line, "invalid numeral")
		}
		f += float64(frac) / math.Pow(float64(base), float64(len(fracText)))
	}
	return token.Token{Kind: token.FLT, Flt: f, Line: line}, nil
}

// readString scans a string literal opened and closed by delim ('\''
// or '"'), processing escape sequences as it goes.
func (l *Lexer) readString(delim byte) (token.Token, error) {
	line := l.line
	l.pos++ // consume opening quote
	var buf strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token.Token{}, lexErr(line, "reached end of input with unterminated string")
		}
		c := l.src[l.pos]
		switch {
		case c == delim:
			l.pos++
			return token.Token{Kind: token.STR, Str: buf.String(), Line: line}, nil
		case c == '\\':
			l.pos++
			b, err := l.readEscape()
			if err != nil {
				return token.Token{}, err
			}
			buf.WriteByte(b)
		case c == '\n' || c == '\r':
			l.line++
			l.pos++
			buf.WriteByte('\n')
		case c == 0:
			return token.Token{}, lexErr(line, "reached end of input with unterminated string")
		default:
			buf.WriteByte(c)
			l.pos++
		}
	}
}

func (l *Lexer) readEscape() (byte, error) {
	if l.pos >= len(l.src) {
		return 0, lexErr(l.line, "reached end of input with unterminated string")
	}
	c := l.src[l.pos]
	switch c {
	case 'a':
		l.pos++
		return '\a', nil
	case 'b':
		l.pos++
		return '\b', nil
	case 'e':
		l.pos++
		return 0x1b, nil
	case 'f':
		l.pos++
		return '\f', nil
	case 'n':
		l.pos++
		return '\n', nil
	case 'r':
		l.pos++
		return '\r', nil
	case 't':
		l.pos++
		return '\t', nil
	case 'v':
		l.pos++
		return '\v', nil
	case 'x':
		l.pos++
		return l.readHexEscape()
	case '\n', '\r':
		l.line++
		l.pos++
		return '\n', nil
	case '\\', '\'', '"':
		l.pos++
		return c, nil
	default:
		return l.readDecEscape()
	}
}

func (l *Lexer) readHexEscape() (byte, error) {
	if l.pos >= len(l.src) || !isHex(l.src[l.pos]) {
		return 0, lexErr(l.line, "expected hexadecimal digit")
	}
	v := hexVal(l.src[l.pos])
	l.pos++
	if l.pos < len(l.src) && isHex(l.src[l.pos]) {
		v = v<<4 + hexVal(l.src[l.pos])
		l.pos++
	}
	return byte(v), nil
}

func hexVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}

func (l *Lexer) readDecEscape() (byte, error) {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos == start {
		return 0, lexErr(l.line, "invalid escape sequence")
	}
	n, err := strconv.Atoi(string(l.src[start:l.pos]))
	if err != nil || n > 255 {
		return 0, lexErr(l.line, "invalid decimal escape")
	}
	return byte(n), nil
}

// Line returns the current source line, for diagnostics outside the
// lexer's own error messages.
func (l *Lexer) Line() int { return l.line }
