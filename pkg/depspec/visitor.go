package depspec

import "fmt"

// Visitor receives one callback per DepSpec node kind. The three container
// kinds (AllOf, AnyOf, Conditional) return a descend flag: when false, Walk
// does not recurse into that node's children.
//
// Embed NoopVisitor to implement only the methods a particular consumer
// cares about — pkg/mask's LICENSE walker overrides only a handful of
// these. Print and Flatten do not go through Visitor; they use their own
// type switches.
type Visitor interface {
	VisitAllOf(*AllOf) (descend bool, err error)
	VisitAnyOf(*AnyOf) (descend bool, err error)
	VisitConditional(*Conditional) (descend bool, err error)
	VisitLabels(*Labels) (descend bool, err error)
	VisitPackage(*PackageDepSpec) error
	VisitBlock(*BlockDepSpec) error
	VisitPlainText(*PlainText) error
	VisitLicense(*License) error
	VisitURI(*SimpleURI) error
	VisitFetchableURI(*FetchableURI) error
	VisitNamedSet(*NamedSet) error
}

// NoopVisitor is a Visitor whose every method descends (for containers) and
// does nothing (for leaves). Embed it and override only what you need.
type NoopVisitor struct{}

func (NoopVisitor) VisitAllOf(*AllOf) (bool, error)             { return true, nil }
func (NoopVisitor) VisitAnyOf(*AnyOf) (bool, error)             { return true, nil }
func (NoopVisitor) VisitConditional(*Conditional) (bool, error) { return true, nil }
func (NoopVisitor) VisitLabels(*Labels) (bool, error)           { return true, nil }
func (NoopVisitor) VisitPackage(*PackageDepSpec) error          { return nil }
func (NoopVisitor) VisitBlock(*BlockDepSpec) error              { return nil }
func (NoopVisitor) VisitPlainText(*PlainText) error             { return nil }
func (NoopVisitor) VisitLicense(*License) error                 { return nil }
func (NoopVisitor) VisitURI(*SimpleURI) error                   { return nil }
func (NoopVisitor) VisitFetchableURI(*FetchableURI) error       { return nil }
func (NoopVisitor) VisitNamedSet(*NamedSet) error                { return nil }

// Walk performs a stable, left-to-right traversal of n, invoking the
// corresponding Visitor method for each node encountered (spec.md §5:
// "traversal order of a DepSpec tree is stable and left-to-right").
func Walk(n Node, v Visitor) error {
	switch t := n.(type) {
	case *AllOf:
		descend, err := v.VisitAllOf(t)
		if err != nil || !descend {
			return err
		}
		for _, c := range t.Children {
			if err := Walk(c, v); err != nil {
				return err
			}
		}
		return nil
	case *AnyOf:
		descend, err := v.VisitAnyOf(t)
		if err != nil || !descend {
			return err
		}
		for _, c := range t.Children {
			if err := Walk(c, v); err != nil {
				return err
			}
		}
		return nil
	case *Conditional:
		descend, err := v.VisitConditional(t)
		if err != nil || !descend {
			return err
		}
		for _, c := range t.Children {
			if err := Walk(c, v); err != nil {
				return err
			}
		}
		return nil
	case *Labels:
		descend, err := v.VisitLabels(t)
		if err != nil || !descend {
			return err
		}
		return nil
	case *PackageDepSpec:
		return v.VisitPackage(t)
	case *BlockDepSpec:
		return v.VisitBlock(t)
	case *PlainText:
		return v.VisitPlainText(t)
	case *License:
		return v.VisitLicense(t)
	case *SimpleURI:
		return v.VisitURI(t)
	case *FetchableURI:
		return v.VisitFetchableURI(t)
	case *NamedSet:
		return v.VisitNamedSet(t)
	default:
		return fmt.Errorf("depspec: Walk: unhandled node type %T", n)
	}
}
