package depspec

// Clone deep-copies n. Cloning is performed on demand (spec.md §4.2); the
// tree is otherwise treated as an immutable value once built.
func Clone(n Node) Node {
	switch t := n.(type) {
	case nil:
		return nil
	case *AllOf:
		return &AllOf{Children: cloneChildren(t.Children)}
	case *AnyOf:
		return &AnyOf{Children: cloneChildren(t.Children)}
	case *Conditional:
		return &Conditional{Flag: t.Flag, Inverted: t.Inverted, Children: cloneChildren(t.Children)}
	case *Labels:
		vs := make([]string, len(t.Values))
		copy(vs, t.Values)
		return &Labels{Values: vs}
	case *PackageDepSpec:
		return clonePackage(t)
	case *BlockDepSpec:
		return &BlockDepSpec{Inner: clonePackage(t.Inner), Strength: t.Strength}
	case *PlainText:
		return &PlainText{Text: t.Text}
	case *License:
		return &License{Text: t.Text}
	case *SimpleURI:
		return &SimpleURI{URI: t.URI}
	case *FetchableURI:
		return &FetchableURI{LHS: t.LHS, RHS: t.RHS}
	case *NamedSet:
		return &NamedSet{Name: t.Name}
	default:
		panic("depspec: Clone: unhandled node type")
	}
}

func cloneChildren(children []Node) []Node {
	if children == nil {
		return nil
	}
	out := make([]Node, len(children))
	for i, c := range children {
		out[i] = Clone(c)
	}
	return out
}

func clonePackage(p *PackageDepSpec) *PackageDepSpec {
	if p == nil {
		return nil
	}
	p2 := *p
	if p.Category != nil {
		c := *p.Category
		p2.Category = &c
	}
	if p.Package != nil {
		pk := *p.Package
		p2.Package = &pk
	}
	if p.Slot != nil {
		s := *p.Slot
		p2.Slot = &s
	}
	if p.Repository != nil {
		r := *p.Repository
		p2.Repository = &r
	}
	if p.VersionRequirements != nil {
		p2.VersionRequirements = make([]VersionRequirement, len(p.VersionRequirements))
		copy(p2.VersionRequirements, p.VersionRequirements)
	}
	if p.UseRequirements != nil {
		p2.UseRequirements = make([]UseRequirement, len(p.UseRequirements))
		copy(p2.UseRequirements, p.UseRequirements)
	}
	return &p2
}
