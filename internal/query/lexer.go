package query

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenOperator
	tokenComma
	tokenStar
	tokenLParen
	tokenRParen
	tokenSemicolon
)

func (k tokenKind) String() string {
	switch k {
	case tokenEOF:
		return "end of query"
	case tokenIdent:
		return "identifier"
	case tokenNumber:
		return "number"
	case tokenString:
		return "string"
	case tokenOperator:
		return "operator"
	case tokenComma:
		return "','"
	case tokenStar:
		return "'*'"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenSemicolon:
		return "';'"
	default:
		return "unknown"
	}
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

// is reports whether the token is the given keyword, ignoring case.
func (t token) is(keyword string) bool {
	return t.kind == tokenIdent && strings.EqualFold(t.text, keyword)
}

type lexer struct {
	input []rune
	pos   int
}

func tokenize(input string) ([]token, error) {
	l := &lexer{input: []rune(input)}
	tokens := make([]token, 0, 16)
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokenEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.input) {
		return token{kind: tokenEOF, pos: start}, nil
	}

	ch := l.input[l.pos]
	switch {
	case ch == ',':
		l.pos++
		return token{kind: tokenComma, text: ",", pos: start}, nil
	case ch == '*':
		l.pos++
		return token{kind: tokenStar, text: "*", pos: start}, nil
	case ch == '(':
		l.pos++
		return token{kind: tokenLParen, text: "(", pos: start}, nil
	case ch == ')':
		l.pos++
		return token{kind: tokenRParen, text: ")", pos: start}, nil
	case ch == ';':
		l.pos++
		return token{kind: tokenSemicolon, text: ";", pos: start}, nil
	case ch == '\'' || ch == '"':
		return l.readString(ch)
	case ch == '=' || ch == '!' || ch == '<' || ch == '>':
		return l.readOperator()
	case unicode.IsDigit(ch) || (ch == '-' && l.peekDigit()) || (ch == '.' && l.peekDigit()):
		return l.readNumber(), nil
	case unicode.IsLetter(ch) || ch == '_':
		return l.readIdentifier(), nil
	default:
		return token{}, fmt.Errorf("unexpected character %q at position %d", ch, start)
	}
}

func (l *lexer) peekDigit() bool {
	return l.pos+1 < len(l.input) && unicode.IsDigit(l.input[l.pos+1])
}

func (l *lexer) readString(quote rune) (token, error) {
	start := l.pos
	l.pos++
	var b strings.Builder
	for l.pos < len(l.input) && l.input[l.pos] != quote {
		b.WriteRune(l.input[l.pos])
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{}, fmt.Errorf("unterminated string starting at position %d", start)
	}
	l.pos++
	return token{kind: tokenString, text: b.String(), pos: start}, nil
}

func (l *lexer) readOperator() (token, error) {
	start := l.pos
	ch := l.input[l.pos]
	l.pos++
	if l.pos < len(l.input) {
		two := string([]rune{ch, l.input[l.pos]})
		switch two {
		case ">=", "<=", "!=", "<>":
			l.pos++
			if two == "<>" {
				two = "!="
			}
			return token{kind: tokenOperator, text: two, pos: start}, nil
		}
	}
	if ch == '!' {
		return token{}, fmt.Errorf("unexpected character '!' at position %d", start)
	}
	return token{kind: tokenOperator, text: string(ch), pos: start}, nil
}

func (l *lexer) readNumber() token {
	start := l.pos
	if l.input[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.input) && (unicode.IsDigit(l.input[l.pos]) || l.input[l.pos] == '.') {
		l.pos++
	}
	return token{kind: tokenNumber, text: string(l.input[start:l.pos]), pos: start}
}

func (l *lexer) readIdentifier() token {
	start := l.pos
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && !strings.ContainsRune("_.@-", ch) {
			break
		}
		l.pos++
	}
	return token{kind: tokenIdent, text: string(l.input[start:l.pos]), pos: start}
}
