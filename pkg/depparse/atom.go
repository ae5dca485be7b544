package depparse

import (
	"regexp"
	"strings"

	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/name"
)

var versionTailRE = regexp.MustCompile(`-[0-9][A-Za-z0-9._-]*$`)

// operator lists the version-comparison prefixes in longest-match-first
// order, per spec.md §4.3.
var operators = []struct {
	text string
	op   depspec.VersionOp
}{
	{"~>", depspec.OpTildeGreater},
	{"<=", depspec.OpLessEqual},
	{">=", depspec.OpGreaterEqual},
	{"=", depspec.OpEqual},
	{"<", depspec.OpLess},
	{">", depspec.OpGreater},
	{"~", depspec.OpTilde},
}

// parsePackageElement parses one package-atom token, including any leading
// block marker ("!" / "!!"), into a depspec.Node.
func parsePackageElement(tok string, d depspec.Dialect) (depspec.Node, error) {
	strength := depspec.BlockWeak
	blocked := false
	rest := tok
	switch {
	case strings.HasPrefix(rest, "!!"):
		blocked = true
		strength = depspec.BlockStrong
		rest = rest[2:]
	case strings.HasPrefix(rest, "!"):
		blocked = true
		rest = rest[1:]
	}
	spec, err := parseAtom(rest, d)
	if err != nil {
		return nil, err
	}
	if blocked {
		return &depspec.BlockDepSpec{Inner: spec, Strength: strength}, nil
	}
	return spec, nil
}

// parseAtom parses the body of a package atom, per spec.md §4.3:
//
//	[<op>]<category>/<package>[-<version>][*][:<slot>][::<repo>][[<reqs>]]
func parseAtom(body string, d depspec.Dialect) (*depspec.PackageDepSpec, error) {
	spec := &depspec.PackageDepSpec{}

	var bracket string
	if i := strings.IndexByte(body, '['); i >= 0 {
		if !strings.HasSuffix(body, "]") {
			return nil, &PackageDepSpecError{Atom: body, Reason: "unterminated [...] requirement list"}
		}
		bracket = body[i+1 : len(body)-1]
		body = body[:i]
	}

	if i := strings.LastIndex(body, "::"); i >= 0 {
		repo, err := name.NewRepositoryName(body[i+2:])
		if err != nil {
			return nil, &PackageDepSpecError{Atom: body, Reason: "bad repository name: " + err.Error()}
		}
		spec.Repository = &repo
		body = body[:i]
	}

	if i := strings.LastIndexByte(body, ':'); i >= 0 {
		slot, err := name.NewSlotName(body[i+1:])
		if err != nil {
			return nil, &PackageDepSpecError{Atom: body, Reason: "bad slot name: " + err.Error()}
		}
		spec.Slot = &slot
		body = body[:i]
	}

	wildcard := false
	if strings.HasSuffix(body, "*") {
		wildcard = true
		body = body[:len(body)-1]
	}

	op := depspec.OpNone
	for _, cand := range operators {
		if cand.op == depspec.OpTildeGreater && !d.AllowBumpWildcard {
			continue
		}
		if strings.HasPrefix(body, cand.text) {
			op = cand.op
			body = body[len(cand.text):]
			break
		}
	}

	if wildcard {
		if op != depspec.OpEqual {
			return nil, &PackageDepSpecError{Atom: body, Reason: "'*' wildcard requires the '=' operator"}
		}
		op = depspec.OpEqualStar
	}

	namepart := body
	if loc := versionTailRE.FindStringIndex(body); loc != nil {
		if op == depspec.OpNone {
			return nil, &PackageDepSpecError{Atom: body, Reason: "version given without a comparison operator"}
		}
		v, err := name.ParseVersionSpec(body[loc[0]+1:])
		if err != nil {
			return nil, &PackageDepSpecError{Atom: body, Reason: "bad version: " + err.Error()}
		}
		spec.Version = v
		namepart = body[:loc[0]]
	} else if op != depspec.OpNone {
		return nil, &PackageDepSpecError{Atom: body, Reason: "comparison operator given without a version"}
	}
	spec.VersionOp = op

	slash := strings.IndexByte(namepart, '/')
	if slash < 0 {
		return nil, &PackageDepSpecError{Atom: body, Reason: "missing category/package separator"}
	}
	catStr, pkgStr := namepart[:slash], namepart[slash+1:]
	if strings.IndexByte(pkgStr, '/') >= 0 {
		return nil, &PackageDepSpecError{Atom: body, Reason: "too many '/' separators"}
	}

	if catStr != "*" {
		cat, err := name.NewCategoryName(catStr)
		if err != nil {
			return nil, &PackageDepSpecError{Atom: body, Reason: "bad category: " + err.Error()}
		}
		spec.Category = &cat
	}
	if pkgStr != "*" {
		pn, err := name.NewPackageName(pkgStr)
		if err != nil {
			return nil, &PackageDepSpecError{Atom: body, Reason: "bad package name: " + err.Error()}
		}
		spec.Package = &pn
	}

	if bracket != "" {
		if err := parseRequirementBracket(bracket, d, spec); err != nil {
			return nil, err
		}
	}

	return spec, nil
}

// parseRequirementBracket fills spec's VersionRequirements and
// UseRequirements from the "[...]" trailing group, a comma-separated list
// whose first element may itself be an and/or-joined chain of version
// terms (detected by a leading comparison-operator character).
func parseRequirementBracket(s string, d depspec.Dialect, spec *depspec.PackageDepSpec) error {
	for i, term := range strings.Split(s, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			return &PackageDepSpecError{Atom: s, Reason: "empty requirement term"}
		}
		if i == 0 && startsWithVersionOp(term) {
			join := depspec.JoinAnd
			sep := " and "
			if strings.Contains(term, " or ") {
				sep = " or "
				join = depspec.JoinOr
			}
			for _, vt := range strings.Split(term, sep) {
				vt = strings.TrimSpace(vt)
				req, err := parseVersionRequirement(vt, d)
				if err != nil {
					return err
				}
				spec.VersionRequirements = append(spec.VersionRequirements, req)
			}
			spec.RequirementJoin = join
			continue
		}
		req, err := parseUseRequirement(term, d)
		if err != nil {
			return err
		}
		spec.UseRequirements = append(spec.UseRequirements, req)
	}
	return nil
}

func startsWithVersionOp(term string) bool {
	if term == "" {
		return false
	}
	switch term[0] {
	case '=', '<', '>', '~':
		return true
	}
	return false
}

func parseVersionRequirement(term string, d depspec.Dialect) (depspec.VersionRequirement, error) {
	if !d.AllowVersionRequirementLists {
		return depspec.VersionRequirement{}, &PackageDepSpecError{Atom: term, Reason: "dialect does not allow version_requirements lists"}
	}
	for _, cand := range operators {
		if cand.op == depspec.OpTildeGreater && !d.AllowBumpWildcard {
			continue
		}
		if strings.HasPrefix(term, cand.text) {
			v, err := name.ParseVersionSpec(term[len(cand.text):])
			if err != nil {
				return depspec.VersionRequirement{}, &PackageDepSpecError{Atom: term, Reason: "bad version: " + err.Error()}
			}
			return depspec.VersionRequirement{Op: cand.op, Version: v}, nil
		}
	}
	return depspec.VersionRequirement{}, &PackageDepSpecError{Atom: term, Reason: "missing comparison operator"}
}

func parseUseRequirement(term string, d depspec.Dialect) (depspec.UseRequirement, error) {
	if strings.HasPrefix(term, "-") {
		fn, err := name.NewUseFlagName(term[1:])
		if err != nil {
			return depspec.UseRequirement{}, &PackageDepSpecError{Atom: term, Reason: "bad use flag: " + err.Error()}
		}
		return depspec.UseRequirement{Flag: fn, Kind: depspec.UseReqDisabled}, nil
	}

	negated := false
	if strings.HasPrefix(term, "!") {
		negated = true
		term = term[1:]
	}
	kind := depspec.UseReqEnabled
	switch {
	case strings.HasSuffix(term, "="):
		kind = depspec.UseReqEqual
		term = term[:len(term)-1]
	case strings.HasSuffix(term, "?"):
		kind = depspec.UseReqIfParentEnabled
		term = term[:len(term)-1]
	}
	if (kind == depspec.UseReqEqual || kind == depspec.UseReqIfParentEnabled) && !d.AllowUseEqualForms {
		return depspec.UseRequirement{}, &PackageDepSpecError{Atom: term, Reason: "dialect does not allow '=' / '?' use_requirements forms"}
	}
	fn, err := name.NewUseFlagName(term)
	if err != nil {
		return depspec.UseRequirement{}, &PackageDepSpecError{Atom: term, Reason: "bad use flag: " + err.Error()}
	}
	return depspec.UseRequirement{Flag: fn, Negated: negated, Kind: kind}, nil
}
