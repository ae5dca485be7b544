package depparse

import (
	"regexp"
	"strings"

	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/name"
)

// LeafKind selects what a bare, non-structural token parses into — the
// grammar shares its group/conditional/label/block structure across
// contexts, but leaves differ: a DEPEND string's leaves are package atoms,
// a LICENSE string's are License nodes, a SRC_URI string's are
// URI/FetchableURI nodes.
type LeafKind int

// The four leaf contexts spec.md §4.3 names.
const (
	LeafPackage LeafKind = iota
	LeafLicense
	LeafURI
	LeafPlainText
)

var (
	conditionalRE = regexp.MustCompile(`^(!)?([A-Za-z_][A-Za-z0-9_]*)\?$`)
	labelRE       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(:[A-Za-z_][A-Za-z0-9_]*)*:$`)
)

// Parse tokenizes s and builds a depspec.Node tree, per spec.md §4.3. The
// parser is pure: it performs no I/O and no environment lookups, and does
// not validate that any named category, package, or flag actually exists.
func Parse(s string, leaf LeafKind, d depspec.Dialect) (depspec.Node, error) {
	toks := strings.Fields(s)
	p := &parser{toks: toks, leaf: leaf, dialect: d}
	root, err := p.parseGroupBody()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, &DepSpecParseError{Location: p.pos, Reason: "unbalanced parentheses: unexpected ')'"}
	}
	return root, nil
}

type parser struct {
	toks    []string
	pos     int
	leaf    LeafKind
	dialect depspec.Dialect
}

func (p *parser) peek() (string, bool) {
	if p.pos >= len(p.toks) {
		return "", false
	}
	return p.toks[p.pos], true
}

func (p *parser) advance() string {
	t := p.toks[p.pos]
	p.pos++
	return t
}

// parseGroupBody parses elements up to (but not consuming) a closing ')' or
// end of input, returning them wrapped in an AllOf.
func (p *parser) parseGroupBody() (*depspec.AllOf, error) {
	var children []depspec.Node
	for {
		tok, ok := p.peek()
		if !ok || tok == ")" {
			break
		}
		n, err := p.parseElement()
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
	return &depspec.AllOf{Children: children}, nil
}

// expectParenGroup consumes a '(' at the current position, parses its body,
// then consumes the matching ')'.
func (p *parser) expectParenGroup() ([]depspec.Node, error) {
	tok, ok := p.peek()
	if !ok || tok != "(" {
		return nil, &DepSpecParseError{Location: p.pos, Reason: "expected '(' to open a group"}
	}
	p.advance()
	body, err := p.parseGroupBody()
	if err != nil {
		return nil, err
	}
	if tok, ok := p.peek(); !ok || tok != ")" {
		return nil, &DepSpecParseError{Location: p.pos, Reason: "unbalanced parentheses: missing ')'"}
	}
	p.advance()
	return body.Children, nil
}

func (p *parser) parseElement() (depspec.Node, error) {
	tok, _ := p.peek()
	loc := p.pos

	switch {
	case tok == "(":
		// A bare group with no prefix token is an AllOf.
		children, err := p.expectParenGroup()
		if err != nil {
			return nil, err
		}
		return &depspec.AllOf{Children: children}, nil

	case tok == ")":
		return nil, &DepSpecParseError{Location: loc, Reason: "unexpected ')'"}

	case tok == "||":
		p.advance()
		children, err := p.expectParenGroup()
		if err != nil {
			return nil, err
		}
		return &depspec.AnyOf{Children: children}, nil

	case conditionalRE.MatchString(tok):
		m := conditionalRE.FindStringSubmatch(tok)
		p.advance()
		flag, err := name.NewUseFlagName(m[2])
		if err != nil {
			return nil, &DepSpecParseError{Location: loc, Reason: "bad use flag in conditional: " + err.Error()}
		}
		children, err := p.expectParenGroup()
		if err != nil {
			return nil, err
		}
		return &depspec.Conditional{Flag: flag, Inverted: m[1] == "!", Children: children}, nil

	case labelRE.MatchString(tok):
		p.advance()
		values := strings.Split(strings.TrimSuffix(tok, ":"), ":")
		return &depspec.Labels{Values: values}, nil

	case strings.HasPrefix(tok, "@"):
		p.advance()
		sn, err := name.NewSetName(tok[1:])
		if err != nil {
			return nil, &DepSpecParseError{Location: loc, Reason: "bad set name: " + err.Error()}
		}
		return &depspec.NamedSet{Name: sn}, nil

	default:
		return p.parseLeaf(loc)
	}
}

func (p *parser) parseLeaf(loc int) (depspec.Node, error) {
	tok := p.advance()

	switch p.leaf {
	case LeafPackage:
		n, err := parsePackageElement(tok, p.dialect)
		if err != nil {
			if pe, ok := err.(*PackageDepSpecError); ok {
				return nil, &DepSpecParseError{Location: loc, Reason: pe.Error()}
			}
			return nil, err
		}
		return n, nil

	case LeafLicense:
		return &depspec.License{Text: tok}, nil

	case LeafURI:
		if next, ok := p.peek(); ok && next == "->" {
			if !p.dialect.AllowRenamedURI {
				return nil, &DepSpecParseError{Location: loc, Reason: "dialect does not allow renamed fetchables"}
			}
			p.advance()
			rhsTok, ok := p.peek()
			if !ok {
				return nil, &DepSpecParseError{Location: p.pos, Reason: "expected a filename after '->'"}
			}
			p.advance()
			return &depspec.FetchableURI{LHS: tok, RHS: rhsTok}, nil
		}
		return &depspec.SimpleURI{URI: tok}, nil

	case LeafPlainText:
		return &depspec.PlainText{Text: tok}, nil

	default:
		return nil, &DepSpecParseError{Location: loc, Reason: "unknown leaf kind"}
	}
}
