package depspec

import "github.com/crucible-pm/crucible/pkg/name"

// UseStateFunc reports the tri-state value a USE flag holds for the package
// view a tree is being reduced against.
type UseStateFunc func(name.UseFlagName) name.UseState

// Flatten reduces tree under useState into the list of PackageDepSpec and
// BlockDepSpec leaves that remain reachable: Conditional branches whose
// guard flag disagrees with useState are dropped, every AllOf child is kept,
// and every AnyOf child is kept too — Flatten answers "could this package
// possibly be required here", the question Match & Query's virtual-package
// check (spec.md §4.2) needs, not "is this atom unconditionally required".
// Leaves that are not package atoms (Labels, PlainText, License, URIs,
// NamedSet) are dropped.
func Flatten(tree Node, useState UseStateFunc) []Node {
	var out []Node
	flattenInto(tree, useState, &out)
	return out
}

func flattenInto(n Node, useState UseStateFunc, out *[]Node) {
	switch t := n.(type) {
	case nil:
		return
	case *AllOf:
		for _, c := range t.Children {
			flattenInto(c, useState, out)
		}
	case *AnyOf:
		for _, c := range t.Children {
			flattenInto(c, useState, out)
		}
	case *Conditional:
		// An unspecified flag could still resolve either way, so Flatten
		// takes the permissive branch and keeps descending — it answers
		// "could this be required", not "is this required now".
		state := useState(t.Flag)
		blocked := state == name.UseEnabled && t.Inverted
		blocked = blocked || (state == name.UseDisabled && !t.Inverted)
		if blocked {
			return
		}
		for _, c := range t.Children {
			flattenInto(c, useState, out)
		}
	case *PackageDepSpec:
		*out = append(*out, t)
	case *BlockDepSpec:
		*out = append(*out, t)
	default:
		// Labels, PlainText, License, SimpleURI, FetchableURI, NamedSet
		// carry no package constraint and are dropped.
	}
}
