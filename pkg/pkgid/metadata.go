package pkgid

import (
	"context"

	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/name"
)

// Key identifies one metadata field carried by an ID, per spec.md §3's
// "Metadata keys" list.
type Key int

// The metadata keys spec.md §3 names.
const (
	KeyShortDescription Key = iota
	KeyLongDescription
	KeySlot
	KeyLicense
	KeySrcURI
	KeyHomepage
	KeyIUse
	KeyKeywords
	KeyDepend
	KeyRdepend
	KeyPdepend
	KeySdepend
	KeyEAPI

	numKeys
)

func (k Key) String() string {
	switch k {
	case KeyShortDescription:
		return "DESCRIPTION"
	case KeyLongDescription:
		return "LONG_DESCRIPTION"
	case KeySlot:
		return "SLOT"
	case KeyLicense:
		return "LICENSE"
	case KeySrcURI:
		return "SRC_URI"
	case KeyHomepage:
		return "HOMEPAGE"
	case KeyIUse:
		return "IUSE"
	case KeyKeywords:
		return "KEYWORDS"
	case KeyDepend:
		return "DEPEND"
	case KeyRdepend:
		return "RDEPEND"
	case KeyPdepend:
		return "PDEPEND"
	case KeySdepend:
		return "SDEPEND"
	case KeyEAPI:
		return "EAPI"
	default:
		return "UNKNOWN"
	}
}

// IUseFlag is one element of an IUSE declaration: a flag name plus its
// profile-supplied default state.
type IUseFlag struct {
	Flag    name.UseFlagName
	Default name.UseState
}

// Metadata is the value produced for a single Key. Exactly one field is
// meaningful for any given key; which one is determined by the Key the
// caller asked for.
type Metadata struct {
	Text    string           // short/long description, HOMEPAGE, EAPI
	Slot    name.SlotName    // SLOT
	Tree    depspec.Node     // LICENSE, SRC_URI, DEPEND/RDEPEND/PDEPEND/SDEPEND
	IUse    []IUseFlag       // IUSE
	Keywords []name.KeywordName // KEYWORDS
	EAPI    string           // EAPI dialect tag; MemRepository and env.Environment use Text instead
}

// Generator produces the value for one metadata key of id, consulting
// whatever out-of-scope recipe-parsing machinery backs a concrete
// repository (spec.md §4.4: "the repository invokes an external metadata
// generator"). pkgid only owns the cache-key construction and the
// initialize-once plumbing around a Generator, not the generator itself.
type Generator interface {
	Generate(ctx context.Context, id *ID, key Key) (Metadata, error)
}
