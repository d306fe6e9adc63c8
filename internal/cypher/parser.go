package cypher

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser parses a token stream into a Query AST.
type Parser struct {
	tokens []Token
	pos    int
}

// Parse lexes and parses a complete openCypher query string.
func Parse(src string) (*Query, error) {
	lexer := NewLexer(src)
	tokens, err := lexer.Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens}
	return p.parseQuery()
}

func (p *Parser) cur() Token {
	return p.tokens[p.pos]
}

func (p *Parser) at(kind TokenKind) bool {
	return p.cur().Kind == kind
}

func (p *Parser) atKeyword(kw string) bool {
	return p.at(TokenIdent) && strings.EqualFold(p.cur().Text, kw)
}

func (p *Parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(kind TokenKind, what string) (Token, error) {
	if !p.at(kind) {
		return Token{}, p.errorf("expected %s, found %q", what, p.cur().Text)
	}
	return p.advance(), nil
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return p.errorf("expected keyword %q, found %q", kw, p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return &ParseError{Message: fmt.Sprintf(format, args...), Location: Location{Offset: p.cur().Pos}}
}

func (p *Parser) parseQuery() (*Query, error) {
	q := &Query{}
	for {
		clause, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		if clause != nil {
			q.Clauses = append(q.Clauses, clause)
		}
		if p.atKeyword("UNION") {
			p.advance()
			all := false
			if p.atKeyword("ALL") {
				p.advance()
				all = true
			}
			q.Clauses = append(q.Clauses, &UnionClause{All: all})
			continue
		}
		if p.at(TokenEOF) {
			break
		}
	}
	if !p.at(TokenEOF) {
		return nil, p.errorf("unexpected trailing token %q", p.cur().Text)
	}
	return q, nil
}

func (p *Parser) parseClause() (Clause, error) {
	switch {
	case p.atKeyword("OPTIONAL"):
		p.advance()
		if err := p.expectKeyword("MATCH"); err != nil {
			return nil, err
		}
		return p.parseMatch(true)
	case p.atKeyword("MATCH"):
		p.advance()
		return p.parseMatch(false)
	case p.atKeyword("WITH"):
		p.advance()
		return p.parseWith()
	case p.atKeyword("RETURN"):
		p.advance()
		return p.parseReturn()
	case p.atKeyword("CALL"):
		p.advance()
		return p.parseCall()
	case p.atKeyword("WHERE"):
		// WHERE is consumed by the MATCH and WITH parsers; one that reaches
		// clause level has no clause to attach to.
		return nil, p.errorf("WHERE without preceding MATCH/WITH")
	default:
		return nil, p.errorf("unexpected clause start %q", p.cur().Text)
	}
}

func (p *Parser) parseMatch(optional bool) (Clause, error) {
	c := &MatchClause{Optional: optional}
	for {
		pp, err := p.parsePathPattern()
		if err != nil {
			return nil, err
		}
		c.Patterns = append(c.Patterns, pp)
		if p.at(TokenComma) {
			p.advance()
			continue
		}
		break
	}
	if p.atKeyword("WHERE") {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		c.Where = &WhereClause{Expr: expr}
	}
	return c, nil
}

func (p *Parser) parseProjectionItems() ([]ProjectionItem, bool, error) {
	var items []ProjectionItem
	star := false
	if p.at(TokenStar) {
		p.advance()
		star = true
		if !p.at(TokenComma) {
			return items, star, nil
		}
		p.advance()
	}
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, false, err
		}
		item := ProjectionItem{Expr: expr}
		if p.atKeyword("AS") {
			p.advance()
			name, err := p.expect(TokenIdent, "alias identifier")
			if err != nil {
				return nil, false, err
			}
			item.Alias = name.Text
		}
		items = append(items, item)
		if p.at(TokenComma) {
			p.advance()
			continue
		}
		break
	}
	return items, star, nil
}

func (p *Parser) parseOrderSkipLimit() ([]OrderItem, Expression, Expression, error) {
	var order []OrderItem
	var skip, limit Expression
	if p.atKeyword("ORDER") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, nil, nil, err
		}
		for {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, nil, nil, err
			}
			desc := false
			if p.atKeyword("DESC") || p.atKeyword("DESCENDING") {
				p.advance()
				desc = true
			} else if p.atKeyword("ASC") || p.atKeyword("ASCENDING") {
				p.advance()
			}
			order = append(order, OrderItem{Expr: expr, Descending: desc})
			if p.at(TokenComma) {
				p.advance()
				continue
			}
			break
		}
	}
	if p.atKeyword("SKIP") {
		p.advance()
		e, err := p.parseExpression()
		if err != nil {
			return nil, nil, nil, err
		}
		skip = e
	}
	if p.atKeyword("LIMIT") {
		p.advance()
		e, err := p.parseExpression()
		if err != nil {
			return nil, nil, nil, err
		}
		limit = e
	}
	return order, skip, limit, nil
}

func (p *Parser) parseWith() (Clause, error) {
	c := &WithClause{}
	if p.atKeyword("DISTINCT") {
		p.advance()
		c.Distinct = true
	}
	items, star, err := p.parseProjectionItems()
	if err != nil {
		return nil, err
	}
	c.Items, c.Star = items, star
	if p.atKeyword("WHERE") {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		c.Where = &WhereClause{Expr: expr}
	}
	order, skip, limit, err := p.parseOrderSkipLimit()
	if err != nil {
		return nil, err
	}
	c.OrderBy, c.Skip, c.Limit = order, skip, limit
	return c, nil
}

func (p *Parser) parseReturn() (Clause, error) {
	c := &ReturnClause{}
	if p.atKeyword("DISTINCT") {
		p.advance()
		c.Distinct = true
	}
	items, star, err := p.parseProjectionItems()
	if err != nil {
		return nil, err
	}
	c.Items, c.Star = items, star
	order, skip, limit, err := p.parseOrderSkipLimit()
	if err != nil {
		return nil, err
	}
	c.OrderBy, c.Skip, c.Limit = order, skip, limit
	return c, nil
}

// parseCall parses both standalone procedure calls (spec.md §4.6) -
// `CALL db.labels() YIELD label` - and, in principle, the procedure-name
// grammar shared with apoc.* namespaces.
func (p *Parser) parseCall() (Clause, error) {
	c := &CallClause{}
	first, err := p.expect(TokenIdent, "procedure name segment")
	if err != nil {
		return nil, err
	}
	c.Namespace = append(c.Namespace, first.Text)
	for p.at(TokenDot) {
		p.advance()
		seg, err := p.expect(TokenIdent, "procedure name segment")
		if err != nil {
			return nil, err
		}
		c.Namespace = append(c.Namespace, seg.Text)
	}
	c.Name = c.Namespace[len(c.Namespace)-1]
	c.Namespace = c.Namespace[:len(c.Namespace)-1]

	if _, err := p.expect(TokenLParen, "'('"); err != nil {
		return nil, err
	}
	if !p.at(TokenRParen) {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			c.Args = append(c.Args, arg)
			if p.at(TokenComma) {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(TokenRParen, "')'"); err != nil {
		return nil, err
	}

	if p.atKeyword("YIELD") {
		p.advance()
		for {
			name, err := p.expect(TokenIdent, "yield identifier")
			if err != nil {
				return nil, err
			}
			c.Yield = append(c.Yield, name.Text)
			if p.at(TokenComma) {
				p.advance()
				continue
			}
			break
		}
	}
	return c, nil
}

func parseIntLiteral(text string) int64 {
	v, _ := strconv.ParseInt(text, 10, 64)
	return v
}
