package cypher

import "strings"

// parsePathPattern parses one comma-separated pattern, including the
// optional `p = ` path-variable binding and shortestPath()/allShortestPaths()
// wrapper (spec.md §4.2).
func (p *Parser) parsePathPattern() (PathPattern, error) {
	var pp PathPattern

	if p.at(TokenIdent) && p.peekIsAssignArrow() {
		v := p.advance()
		pp.Variable = v.Text
		p.advance() // consume '='
	}

	if p.atKeyword("shortestPath") || p.atKeyword("allShortestPaths") {
		all := p.atKeyword("allShortestPaths")
		p.advance()
		if _, err := p.expect(TokenLParen, "'('"); err != nil {
			return pp, err
		}
		inner, err := p.parseConnectedChain()
		if err != nil {
			return pp, err
		}
		if _, err := p.expect(TokenRParen, "')'"); err != nil {
			return pp, err
		}
		inner.Variable = pp.Variable
		if all {
			inner.ShortestPath = ShortestPathAll
		} else {
			inner.ShortestPath = ShortestPathSingle
		}
		return inner, nil
	}

	return p.parseConnectedChain()
}

// peekIsAssignArrow reports whether the current identifier is immediately
// followed by a bare '=' (path-variable binding), without consuming tokens.
func (p *Parser) peekIsAssignArrow() bool {
	return p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].Kind == TokenEq
}

func (p *Parser) parseConnectedChain() (PathPattern, error) {
	var pp PathPattern
	node, err := p.parseNodePattern()
	if err != nil {
		return pp, err
	}
	pp.Nodes = append(pp.Nodes, node)
	for p.at(TokenDash) || p.at(TokenArrowLeft) {
		edge, err := p.parseEdgePattern()
		if err != nil {
			return pp, err
		}
		nextNode, err := p.parseNodePattern()
		if err != nil {
			return pp, err
		}
		pp.Edges = append(pp.Edges, edge)
		pp.Nodes = append(pp.Nodes, nextNode)
	}
	return pp, nil
}

func (p *Parser) parseNodePattern() (*NodePattern, error) {
	if _, err := p.expect(TokenLParen, "'('"); err != nil {
		return nil, err
	}
	n := &NodePattern{}
	if p.at(TokenIdent) && !p.atKeyword("WHERE") {
		v := p.advance()
		n.Variable = v.Text
	}
	for p.at(TokenColon) {
		p.advance()
		label, err := p.expect(TokenIdent, "label")
		if err != nil {
			return nil, err
		}
		n.Labels = append(n.Labels, label.Text)
	}
	if p.at(TokenLBrace) {
		props, err := p.parsePropertyMap()
		if err != nil {
			return nil, err
		}
		n.Properties = props
	}
	if _, err := p.expect(TokenRParen, "')'"); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) parsePropertyMap() (map[string]Expression, error) {
	p.advance() // '{'
	props := map[string]Expression{}
	if p.at(TokenRBrace) {
		p.advance()
		return props, nil
	}
	for {
		key, err := p.expect(TokenIdent, "property key")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenColon, "':'"); err != nil {
			return nil, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		props[key.Text] = val
		if p.at(TokenComma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(TokenRBrace, "'}'"); err != nil {
		return nil, err
	}
	return props, nil
}

// parseEdgePattern parses one of: `-[...]->`, `<-[...]-`, `-[...]-`.
//
// Direction normalization (SPEC_FULL.md §5): the returned Direction always
// reflects the arrow as written; the planner later decides which endpoint is
// FROM/TO by consulting this field together with pattern order.
func (p *Parser) parseEdgePattern() (*EdgePattern, error) {
	e := &EdgePattern{Direction: DirectionEither}
	leftArrow := false
	if p.at(TokenArrowLeft) {
		p.advance()
		leftArrow = true
	} else {
		if _, err := p.expect(TokenDash, "'-'"); err != nil {
			return nil, err
		}
	}

	if p.at(TokenLBracket) {
		p.advance()
		if p.at(TokenIdent) && !p.atKeyword("WHERE") {
			v := p.advance()
			e.Variable = v.Text
		}
		if p.at(TokenColon) {
			p.advance()
			typ, err := p.expect(TokenIdent, "relationship type")
			if err != nil {
				return nil, err
			}
			e.Types = append(e.Types, typ.Text)
			for p.at(TokenPipe) {
				p.advance()
				if p.at(TokenColon) {
					p.advance()
				}
				t2, err := p.expect(TokenIdent, "relationship type")
				if err != nil {
					return nil, err
				}
				e.Types = append(e.Types, t2.Text)
			}
		}
		if p.at(TokenStar) {
			p.advance()
			spec := &VarLengthSpec{Min: -1, Max: -1, Set: true}
			if p.at(TokenInt) {
				spec.Min = int(parseIntLiteral(p.advance().Text))
			}
			if p.at(TokenDotDot) {
				p.advance()
				if p.at(TokenInt) {
					spec.Max = int(parseIntLiteral(p.advance().Text))
				}
			} else if spec.Min >= 0 {
				spec.Max = spec.Min
			}
			if spec.Min < 0 {
				spec.Min = 1
			}
			e.VarLength = spec
		}
		if p.at(TokenLBrace) {
			props, err := p.parsePropertyMap()
			if err != nil {
				return nil, err
			}
			e.Properties = props
		}
		if _, err := p.expect(TokenRBracket, "']'"); err != nil {
			return nil, err
		}
	}

	if leftArrow {
		if _, err := p.expect(TokenDash, "'-'"); err != nil {
			return nil, err
		}
		e.Direction = DirectionIncoming
		return e, nil
	}

	if p.at(TokenArrowRight) {
		p.advance()
		e.Direction = DirectionOutgoing
		return e, nil
	}
	if _, err := p.expect(TokenDash, "'-'"); err != nil {
		return nil, err
	}
	e.Direction = DirectionEither
	return e, nil
}

func normalizeTypeList(types []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(types))
	for _, t := range types {
		key := strings.ToUpper(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
