package name

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	scmSuffix   = "-scm"
	revisionRE  = regexp.MustCompile(`-r([0-9]+)$`)
	versionBody = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)*)([a-z])?((?:_(?:alpha|beta|pre|rc|p)[0-9]*)*)$`)
	suffixPart  = regexp.MustCompile(`_(alpha|beta|pre|rc|p)([0-9]*)`)
)

// suffixKind ranks the release-suffix vocabulary. The zero value (suffixNone)
// sits between rc and p, matching the order spec.md §3 prescribes:
// alpha < beta < pre < rc < (none) < p.
type suffixKind int

const (
	suffixAlpha suffixKind = iota
	suffixBeta
	suffixPre
	suffixRC
	suffixNone
	suffixP
)

var suffixNames = map[string]suffixKind{
	"alpha": suffixAlpha,
	"beta":  suffixBeta,
	"pre":   suffixPre,
	"rc":    suffixRC,
	"p":     suffixP,
}

var suffixStrings = map[suffixKind]string{
	suffixAlpha: "alpha",
	suffixBeta:  "beta",
	suffixPre:   "pre",
	suffixRC:    "rc",
	suffixP:     "p",
}

type versionSuffix struct {
	kind  suffixKind
	index int
}

// VersionSpec is a parsed, ordered Gentoo-style package version, e.g.
// "1.2.3b_alpha4-r5".
type VersionSpec struct {
	raw      string
	numeric  []string // preserves leading zeros for fractional compare
	letter   byte     // 0 if absent
	suffixes []versionSuffix
	revision int
	scm      bool
}

// ParseVersionSpec parses s into a VersionSpec.
func ParseVersionSpec(s string) (VersionSpec, error) {
	if s == "" {
		return VersionSpec{}, &BadVersionSpec{Value: s, Reason: "empty version"}
	}
	raw := s
	rest := s

	scm := false
	if strings.HasSuffix(rest, scmSuffix) {
		scm = true
		rest = rest[:len(rest)-len(scmSuffix)]
	}

	revision := 0
	if m := revisionRE.FindStringSubmatch(rest); m != nil {
		var err error
		revision, err = strconv.Atoi(m[1])
		if err != nil {
			return VersionSpec{}, &BadVersionSpec{Value: s, Reason: "bad revision"}
		}
		rest = rest[:len(rest)-len(m[0])]
	}

	m := versionBody.FindStringSubmatch(rest)
	if m == nil {
		return VersionSpec{}, &BadVersionSpec{Value: s, Reason: "does not match version grammar"}
	}

	numeric := strings.Split(m[1], ".")

	var letter byte
	if m[2] != "" {
		letter = m[2][0]
	}

	var suffixes []versionSuffix
	for _, sm := range suffixPart.FindAllStringSubmatch(m[3], -1) {
		idx := 0
		if sm[2] != "" {
			var err error
			idx, err = strconv.Atoi(sm[2])
			if err != nil {
				return VersionSpec{}, &BadVersionSpec{Value: s, Reason: "bad suffix index"}
			}
		}
		suffixes = append(suffixes, versionSuffix{kind: suffixNames[sm[1]], index: idx})
	}

	return VersionSpec{
		raw:      raw,
		numeric:  numeric,
		letter:   letter,
		suffixes: suffixes,
		revision: revision,
		scm:      scm,
	}, nil
}

// MustParseVersionSpec is ParseVersionSpec, panicking on error.
func MustParseVersionSpec(s string) VersionSpec {
	v, err := ParseVersionSpec(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the version back to its original textual form.
func (v VersionSpec) String() string {
	return v.raw
}

// IsZero reports whether v is the zero VersionSpec (i.e. never parsed).
func (v VersionSpec) IsZero() bool {
	return v.raw == "" && v.numeric == nil
}

// compareNumericComponent implements spec.md §4.1's leading-zero fractional
// compare: if either side has a leading zero, the components are compared as
// fractional tails (right-padded with zeros and compared lexicographically);
// otherwise they're compared as plain integers.
func compareNumericComponent(a, b string) int {
	aFrac := len(a) > 1 && a[0] == '0'
	bFrac := len(b) > 1 && b[0] == '0'
	if aFrac || bFrac {
		n := len(a)
		if len(b) > n {
			n = len(b)
		}
		ap := a + strings.Repeat("0", n-len(a))
		bp := b + strings.Repeat("0", n-len(b))
		return strings.Compare(ap, bp)
	}

	ai, _ := strconv.Atoi(a)
	bi, _ := strconv.Atoi(b)
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	default:
		return 0
	}
}

func compareNumeric(a, b []string) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ac, bc := "0", "0"
		if i < len(a) {
			ac = a[i]
		}
		if i < len(b) {
			bc = b[i]
		}
		if c := compareNumericComponent(ac, bc); c != 0 {
			return c
		}
	}
	return 0
}

func compareLetter(a, b byte) int {
	switch {
	case a == b:
		return 0
	case a == 0:
		return -1
	case b == 0:
		return 1
	case a < b:
		return -1
	default:
		return 1
	}
}

func compareSuffixes(a, b []versionSuffix) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		as, bs := versionSuffix{kind: suffixNone}, versionSuffix{kind: suffixNone}
		if i < len(a) {
			as = a[i]
		}
		if i < len(b) {
			bs = b[i]
		}
		if as.kind != bs.kind {
			if as.kind < bs.kind {
				return -1
			}
			return 1
		}
		if as.index != bs.index {
			if as.index < bs.index {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Compare implements the total strict order spec.md §3 describes: numeric
// parts, then letter suffix, then suffix list, then revision — with -scm
// unconditionally greater than any non-scm counterpart (spec.md §9's
// resolution of the open question on -scm ordering).
func Compare(a, b VersionSpec) int {
	if a.scm != b.scm {
		if a.scm {
			return 1
		}
		return -1
	}
	if c := compareNumeric(a.numeric, b.numeric); c != 0 {
		return c
	}
	if c := compareLetter(a.letter, b.letter); c != 0 {
		return c
	}
	if c := compareSuffixes(a.suffixes, b.suffixes); c != 0 {
		return c
	}
	switch {
	case a.revision < b.revision:
		return -1
	case a.revision > b.revision:
		return 1
	}
	return 0
}

// Less reports whether v sorts strictly before o.
func (v VersionSpec) Less(o VersionSpec) bool { return Compare(v, o) < 0 }

// Equal reports whether v and o are equal under the normalized tuple (not
// textual equality).
func (v VersionSpec) Equal(o VersionSpec) bool { return Compare(v, o) == 0 }

// IgnoringRevisionEqual reports whether v and o are equal once revisions are
// stripped, used by the "~" (tilde, "same version ignoring revision")
// operator.
func (v VersionSpec) IgnoringRevisionEqual(o VersionSpec) bool {
	return v.WithoutRevision().Equal(o.WithoutRevision())
}

// WithoutRevision returns v with its revision (and only its revision)
// removed.
func (v VersionSpec) WithoutRevision() VersionSpec {
	v2 := v
	v2.revision = 0
	v2.raw = strings.TrimSuffix(v.raw, "-r"+strconv.Itoa(v.revision))
	return v2
}

// RevisionPart returns just the revision number (0 if absent).
func (v VersionSpec) RevisionPart() int {
	return v.revision
}

// SCM reports whether the version carries the "-scm" live marker.
func (v VersionSpec) SCM() bool {
	return v.scm
}

// Bump implements spec.md §3's bump(): drop everything after the
// second-to-last numeric component, and increment that component. Letter,
// suffixes, revision and the scm marker are all dropped.
func (v VersionSpec) Bump() VersionSpec {
	numeric := make([]string, len(v.numeric))
	copy(numeric, v.numeric)

	idx := len(numeric) - 2
	if idx < 0 {
		idx = len(numeric) - 1
	}
	if idx < 0 {
		idx = 0
	}

	n, _ := strconv.Atoi(numeric[idx])
	numeric = numeric[:idx+1]
	numeric[idx] = strconv.Itoa(n + 1)

	return VersionSpec{
		raw:     strings.Join(numeric, "."),
		numeric: numeric,
	}
}

// HasPrefix reports whether v's numeric components begin with prefix's,
// component-wise, the last prefix component being allowed to be a textual
// prefix of v's. prefix's letter is compared only when both have the same
// number of numeric components; suffixes, revision and -scm are not
// compared. This backs the "=*" (version prefix wildcard) match operator.
func (v VersionSpec) HasPrefix(prefix VersionSpec) bool {
	if len(prefix.numeric) > len(v.numeric) {
		return false
	}
	for i, p := range prefix.numeric {
		if i == len(prefix.numeric)-1 {
			// Last numeric component of the prefix may itself be a textual
			// prefix of the corresponding component in v (e.g. "1.2*"
			// matching "1.23").
			if !strings.HasPrefix(v.numeric[i], p) {
				return false
			}
			continue
		}
		if p != v.numeric[i] {
			return false
		}
	}
	if len(prefix.numeric) == len(v.numeric) && prefix.letter != 0 {
		return prefix.letter == v.letter
	}
	return true
}
