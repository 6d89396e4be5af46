package query

import (
	"fmt"
	"regexp"
	"strings"

	appErrors "github.com/noah-isme/student-records/pkg/errors"
)

// Direction is an ORDER BY direction.
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// Combinator joins the conditions of a WHERE clause. A clause uses exactly one kind.
type Combinator string

const (
	CombinatorNone Combinator = ""
	CombinatorAnd  Combinator = "AND"
	CombinatorOr   Combinator = "OR"
)

// Operator is a comparison operator.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpLike         Operator = "LIKE"
	OpIn           Operator = "IN"
)

// Condition compares one field against a literal or, for IN, a literal set.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value,omitempty"`
	Values   []string `json:"values,omitempty"`
}

// WhereClause is a flat list of conditions joined by a single combinator.
type WhereClause struct {
	Combinator Combinator  `json:"combinator,omitempty"`
	Conditions []Condition `json:"conditions"`
}

// OrderBy names the sort field and direction.
type OrderBy struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// ParsedQuery is the structured form of a query string.
type ParsedQuery struct {
	Wildcard bool         `json:"wildcard"`
	Fields   []string     `json:"fields,omitempty"`
	Table    string       `json:"table,omitempty"`
	Where    *WhereClause `json:"where,omitempty"`
	OrderBy  *OrderBy     `json:"order_by,omitempty"`
	GroupBy  string       `json:"group_by,omitempty"`
	// Limit keeps the raw literal; it is converted during evaluation.
	Limit string `json:"limit,omitempty"`
}

var forbiddenStatement = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE)\b`)

var unsupportedKeywords = map[string]string{
	"JOIN":      "joins are not supported",
	"UNION":     "UNION is not supported",
	"INTERSECT": "INTERSECT is not supported",
	"EXCEPT":    "EXCEPT is not supported",
	"HAVING":    "HAVING is not supported",
	"OFFSET":    "OFFSET is not supported",
	"DISTINCT":  "DISTINCT is not supported",
	"NOT":       "NOT is not supported",
	"BETWEEN":   "BETWEEN is not supported",
}

// reserved words cannot be used as field names or bare values.
var reserved = map[string]struct{}{
	"SELECT": {}, "FROM": {}, "WHERE": {}, "ORDER": {}, "GROUP": {}, "BY": {},
	"LIMIT": {}, "ASC": {}, "DESC": {}, "AND": {}, "OR": {}, "LIKE": {}, "IN": {},
}

func isReserved(t token) bool {
	if t.kind != tokenIdent {
		return false
	}
	_, ok := reserved[strings.ToUpper(t.text)]
	return ok
}

func syntaxError(format string, args ...interface{}) error {
	return appErrors.Clone(appErrors.ErrSyntax, fmt.Sprintf(format, args...))
}

func unsupported(format string, args ...interface{}) error {
	return appErrors.Clone(appErrors.ErrUnsupportedQuery, fmt.Sprintf(format, args...))
}

// Parse turns query text into a ParsedQuery. Statements other than SELECT are always rejected,
// matching the write keywords as whole words anywhere in the text, quoted literals included.
// GROUP BY and ORDER BY are accepted in either order, each at most once, between WHERE and LIMIT.
func Parse(text string) (*ParsedQuery, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, syntaxError("empty query")
	}
	if m := forbiddenStatement.FindString(trimmed); m != "" {
		return nil, unsupported("unsupported operation: %s", strings.ToUpper(m))
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrSyntax, err, "")
	}
	if !tokens[0].is("SELECT") {
		return nil, syntaxError("missing SELECT")
	}
	tokens, err = screen(tokens)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	return p.parse()
}

// screen rejects constructs the grammar deliberately does not cover.
func screen(tokens []token) ([]token, error) {
	// A single trailing semicolon terminates the statement.
	if n := len(tokens); n >= 2 && tokens[n-2].kind == tokenSemicolon {
		tokens = append(tokens[:n-2:n-2], tokens[n-1])
	}
	for i, t := range tokens {
		switch {
		case t.kind == tokenSemicolon:
			return nil, unsupported("multiple statements are not supported")
		case t.is("SELECT") && i > 0:
			return nil, unsupported("sub-queries are not supported")
		case t.kind == tokenIdent:
			if msg, ok := unsupportedKeywords[strings.ToUpper(t.text)]; ok {
				return nil, unsupported("%s", msg)
			}
		}
	}
	return tokens, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	t := p.tokens[p.pos]
	if t.kind != tokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) parse() (*ParsedQuery, error) {
	q := &ParsedQuery{}
	p.advance() // SELECT

	if err := p.parseProjection(q); err != nil {
		return nil, err
	}
	if p.peek().is("FROM") {
		p.advance()
		table := p.advance()
		if table.kind != tokenIdent || isReserved(table) {
			return nil, syntaxError("FROM requires a table name")
		}
		q.Table = strings.ToLower(table.text)
	}
	if p.peek().is("WHERE") {
		p.advance()
		where, err := p.parseWhere()
		if err != nil {
			return nil, err
		}
		q.Where = where
	}
	for {
		switch {
		case p.peek().is("GROUP") && q.GroupBy == "":
			field, err := p.parseBy("GROUP")
			if err != nil {
				return nil, err
			}
			if p.peek().kind == tokenComma {
				return nil, unsupported("grouping by multiple fields is not supported")
			}
			q.GroupBy = field
			continue
		case p.peek().is("ORDER") && q.OrderBy == nil:
			order, err := p.parseOrderBy()
			if err != nil {
				return nil, err
			}
			q.OrderBy = order
			continue
		}
		break
	}
	if p.peek().is("LIMIT") {
		p.advance()
		value := p.advance()
		switch value.kind {
		case tokenNumber, tokenIdent, tokenString:
			q.Limit = value.text
		default:
			return nil, syntaxError("LIMIT requires a value")
		}
	}
	if t := p.peek(); t.kind != tokenEOF {
		return nil, syntaxError("unexpected %s %q at position %d", t.kind, t.text, t.pos)
	}
	return q, nil
}

func (p *parser) parseProjection(q *ParsedQuery) error {
	if p.peek().kind == tokenStar {
		p.advance()
		q.Wildcard = true
		return nil
	}
	for {
		field, err := p.parseField("SELECT")
		if err != nil {
			return err
		}
		q.Fields = append(q.Fields, field)
		if p.peek().kind != tokenComma {
			return nil
		}
		p.advance()
	}
}

func (p *parser) parseField(clause string) (string, error) {
	t := p.advance()
	switch {
	case t.kind == tokenString:
		return "", unsupported("quoted field names are not supported")
	case t.kind == tokenLParen:
		return "", unsupported("nested parentheses are not supported")
	case t.kind == tokenStar:
		return "", syntaxError("'*' cannot be combined with other fields")
	case t.kind != tokenIdent || isReserved(t):
		return "", syntaxError("%s expects a field name, got %s", clause, t.kind)
	}
	return strings.ToLower(t.text), nil
}

func (p *parser) parseBy(keyword string) (string, error) {
	p.advance()
	if !p.peek().is("BY") {
		return "", syntaxError("%s must be followed by BY", keyword)
	}
	p.advance()
	return p.parseField(keyword + " BY")
}

func (p *parser) parseOrderBy() (*OrderBy, error) {
	field, err := p.parseBy("ORDER")
	if err != nil {
		return nil, err
	}
	order := &OrderBy{Field: field, Direction: Ascending}
	switch {
	case p.peek().is("ASC"):
		p.advance()
	case p.peek().is("DESC"):
		p.advance()
		order.Direction = Descending
	}
	if p.peek().kind == tokenComma {
		return nil, unsupported("ordering by multiple fields is not supported")
	}
	return order, nil
}

func (p *parser) parseWhere() (*WhereClause, error) {
	where := &WhereClause{}
	for {
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		where.Conditions = append(where.Conditions, cond)

		var next Combinator
		switch {
		case p.peek().is("AND"):
			next = CombinatorAnd
		case p.peek().is("OR"):
			next = CombinatorOr
		default:
			return where, nil
		}
		if where.Combinator != CombinatorNone && where.Combinator != next {
			return nil, unsupported("mixing AND and OR in one WHERE clause is not supported")
		}
		where.Combinator = next
		p.advance()
	}
}

func (p *parser) parseCondition() (Condition, error) {
	field, err := p.parseField("WHERE")
	if err != nil {
		return Condition{}, err
	}
	cond := Condition{Field: field}

	op := p.advance()
	switch {
	case op.kind == tokenOperator:
		cond.Operator = Operator(op.text)
	case op.is("LIKE"):
		cond.Operator = OpLike
	case op.is("IN"):
		cond.Operator = OpIn
		values, err := p.parseValueList()
		if err != nil {
			return Condition{}, err
		}
		cond.Values = values
		return cond, nil
	default:
		return Condition{}, syntaxError("expected an operator after %q", field)
	}

	value, err := p.parseValue()
	if err != nil {
		return Condition{}, err
	}
	if cond.Operator == OpLike {
		value = strings.Trim(value, "%")
	}
	cond.Value = value
	return cond, nil
}

// parseValue reads a quoted string or a run of bare words and numbers.
func (p *parser) parseValue() (string, error) {
	t := p.peek()
	switch {
	case t.kind == tokenString:
		p.advance()
		return t.text, nil
	case t.kind == tokenLParen:
		return "", unsupported("nested parentheses are not supported")
	case (t.kind != tokenIdent && t.kind != tokenNumber) || isReserved(t):
		return "", syntaxError("expected a value, got %s", t.kind)
	}
	words := make([]string, 0, 2)
	for {
		t = p.peek()
		if (t.kind != tokenIdent && t.kind != tokenNumber) || isReserved(t) {
			break
		}
		words = append(words, p.advance().text)
	}
	return strings.Join(words, " "), nil
}

// parseValueList reads an IN set, either bare or wrapped in one pair of parentheses.
func (p *parser) parseValueList() ([]string, error) {
	wrapped := false
	if p.peek().kind == tokenLParen {
		p.advance()
		wrapped = true
	}
	values := make([]string, 0, 4)
	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if p.peek().kind != tokenComma {
			break
		}
		p.advance()
	}
	if wrapped {
		if p.advance().kind != tokenRParen {
			return nil, syntaxError("IN list is missing ')'")
		}
	}
	return values, nil
}
