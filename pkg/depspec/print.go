package depspec

import "strings"

// Print renders tree back to the dialect grammar in spec.md §4.3. It is the
// parser's dual: Parse(Print(tree, d), d) reproduces tree node-for-node for
// any tree d admits (spec.md §6.1/§8.2).
//
// The root AllOf is implicit in the grammar (a recipe string has no
// enclosing "( )"), so it alone prints as bare space-separated children;
// any other AllOf is a nested, explicitly parenthesized group.
func Print(tree Node, d Dialect) string {
	var b strings.Builder
	if root, ok := tree.(*AllOf); ok {
		for i, c := range root.Children {
			if i > 0 {
				b.WriteByte(' ')
			}
			printNode(&b, c, d)
		}
	} else {
		printNode(&b, tree, d)
	}
	return b.String()
}

func printNode(b *strings.Builder, n Node, d Dialect) {
	switch t := n.(type) {
	case *AllOf:
		printGroup(b, t.Children, d)
	case *AnyOf:
		b.WriteString("|| ")
		printGroup(b, t.Children, d)
	case *Conditional:
		if t.Inverted {
			b.WriteByte('!')
		}
		b.WriteString(t.Flag.String())
		b.WriteString("? ")
		printGroup(b, t.Children, d)
	case *Labels:
		b.WriteString(strings.Join(t.Values, ":"))
		b.WriteByte(':')
	case *PackageDepSpec:
		printPackage(b, t, d)
	case *BlockDepSpec:
		if t.Strength == BlockStrong {
			b.WriteString("!!")
		} else {
			b.WriteByte('!')
		}
		printPackage(b, t.Inner, d)
	case *PlainText:
		b.WriteString(t.Text)
	case *License:
		b.WriteString(t.Text)
	case *SimpleURI:
		b.WriteString(t.URI)
	case *FetchableURI:
		b.WriteString(t.LHS)
		if t.RHS != "" {
			b.WriteString(" -> ")
			b.WriteString(t.RHS)
		}
	case *NamedSet:
		b.WriteByte('@')
		b.WriteString(t.Name.String())
	default:
		panic("depspec: Print: unhandled node type")
	}
}

func printGroup(b *strings.Builder, children []Node, d Dialect) {
	b.WriteString("( ")
	for _, c := range children {
		printNode(b, c, d)
		b.WriteByte(' ')
	}
	b.WriteString(")")
}

func printPackage(b *strings.Builder, p *PackageDepSpec, d Dialect) {
	if d.AllowVersionRequirementLists && len(p.VersionRequirements) > 0 {
		// A requirement-list atom carries its operators inside "[...]"
		// rather than as an atom-leading prefix.
		printBareName(b, p)
	} else {
		// OpEqualStar's "*" is a version-prefix-wildcard marker that trails
		// the version, not part of the leading operator (VersionOp.String()
		// renders it as "=*" for diagnostic purposes only).
		if p.VersionOp == OpEqualStar {
			b.WriteByte('=')
		} else {
			b.WriteString(p.VersionOp.String())
		}
		printBareName(b, p)
		if p.VersionOp != OpNone {
			b.WriteByte('-')
			b.WriteString(p.Version.String())
			if p.VersionOp == OpEqualStar {
				b.WriteByte('*')
			}
		}
	}

	if p.Slot != nil {
		b.WriteByte(':')
		b.WriteString(p.Slot.String())
	}
	if p.Repository != nil {
		b.WriteString("::")
		b.WriteString(p.Repository.String())
	}

	// Version-requirement and use-requirement terms share a single
	// trailing "[...]" bracket: the version terms (if any) come first,
	// joined by "and"/"or", then the use-requirement terms, comma-joined.
	var terms []string
	if d.AllowVersionRequirementLists && len(p.VersionRequirements) > 0 {
		var vparts []string
		for _, r := range p.VersionRequirements {
			vparts = append(vparts, r.Op.String()+r.Version.String())
		}
		sep := " and "
		if p.RequirementJoin == JoinOr {
			sep = " or "
		}
		terms = append(terms, strings.Join(vparts, sep))
	}
	for _, u := range p.UseRequirements {
		terms = append(terms, printUseRequirement(u, d))
	}
	if len(terms) > 0 {
		b.WriteByte('[')
		b.WriteString(strings.Join(terms, ","))
		b.WriteByte(']')
	}
}

func printBareName(b *strings.Builder, p *PackageDepSpec) {
	if p.Category != nil {
		b.WriteString(p.Category.String())
	} else {
		b.WriteByte('*')
	}
	b.WriteByte('/')
	if p.Package != nil {
		b.WriteString(p.Package.String())
	} else {
		b.WriteByte('*')
	}
}

// printUseRequirement renders one use_requirements term. The base grammar
// (spec.md §4.3) has four surface forms: "flag", "-flag", "flag=", "flag?".
// A leading "!" additionally negates the "=" and "?" forms in dialects that
// allow them (Paludis-style use_requirements); it cannot combine with the
// "-flag" disabled form, which is already its own negative.
func printUseRequirement(u UseRequirement, d Dialect) string {
	var b strings.Builder
	if u.Kind == UseReqDisabled {
		b.WriteByte('-')
		b.WriteString(u.Flag.String())
		return b.String()
	}
	if u.Negated {
		b.WriteByte('!')
	}
	b.WriteString(u.Flag.String())
	switch u.Kind {
	case UseReqEqual:
		if d.AllowUseEqualForms {
			b.WriteByte('=')
		}
	case UseReqIfParentEnabled:
		if d.AllowUseEqualForms {
			b.WriteByte('?')
		}
	}
	return b.String()
}
