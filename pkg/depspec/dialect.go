package depspec

// Dialect is a small capability struct describing which extended grammar
// forms a parser/printer pair should accept, per spec.md §4.3. Dialects are
// not a parser subclass tree: a table of booleans is enough to express the
// differences between the recipe-format variants in the wild, mirroring how
// the teacher keys EAPI-specific behavior off a capability table rather than
// a type hierarchy.
type Dialect struct {
	Name string

	// AllowBumpWildcard enables the "~>" bounded bump-wildcard version
	// operator.
	AllowBumpWildcard bool

	// AllowRenamedURI enables the "lhs -> rhs" fetchable URI renaming form.
	AllowRenamedURI bool

	// AllowVersionRequirementLists enables a PackageDepSpec's extended
	// multi-requirement "[op1 v1, op2 v2]" version_requirements list joined
	// by and/or, instead of a single VersionOp/Version pair.
	AllowVersionRequirementLists bool

	// AllowUseEqualForms enables the "flag=" and "flag?" use_requirements
	// forms, in addition to the baseline "flag" / "-flag" forms.
	AllowUseEqualForms bool
}

// DialectPMS0 is the baseline EAPI-0-equivalent grammar: no compound version
// operators, no renamed fetchables, no extended use_requirements forms.
var DialectPMS0 = Dialect{Name: "pms-0"}

// DialectPaludis1 adds per-atom use_requirements states ("flag=", "flag?")
// and version_requirements and/or lists on top of DialectPMS0.
var DialectPaludis1 = Dialect{
	Name:                         "paludis-1",
	AllowVersionRequirementLists: true,
	AllowUseEqualForms:           true,
}

// DialectExheres0 adds the "~>" bump-wildcard operator and "lhs -> rhs"
// fetchable renaming on top of DialectPaludis1.
var DialectExheres0 = Dialect{
	Name:                         "exheres-0",
	AllowBumpWildcard:            true,
	AllowRenamedURI:              true,
	AllowVersionRequirementLists: true,
	AllowUseEqualForms:           true,
}
