package repo

import (
	"context"

	"github.com/sdboyer/constext"

	"github.com/crucible-pm/crucible/pkg/pkgid"
)

// generatingRepository is embedded by both MemRepository and FSRepository to
// share the metadata-generation hook: a repository has its own lifetime
// context (canceled by Invalidate, or by the repository being torn down),
// and a caller supplies a request-scoped context for a single Get. Neither
// should have to wait on the other past whichever quits first, so the two
// are merged with constext.Cons rather than threading the repository's
// cancellation into pkgid's synchronous Get call.
type generatingRepository struct {
	gen pkgid.Generator

	lifetime context.Context
	cancel   context.CancelFunc
}

func newGeneratingRepository(gen pkgid.Generator) generatingRepository {
	ctx, cancel := context.WithCancel(context.Background())
	return generatingRepository{gen: gen, lifetime: ctx, cancel: cancel}
}

func (g *generatingRepository) get(ctx context.Context, id *pkgid.ID, key pkgid.Key) (pkgid.Metadata, error) {
	merged, cancel := constext.Cons(ctx, g.lifetime)
	defer cancel()
	return id.Get(merged, key, g.gen)
}

// invalidate cancels the repository's lifetime context, aborting any
// in-flight generation, and installs a fresh one for subsequent calls.
func (g *generatingRepository) invalidate() {
	g.cancel()
	g.lifetime, g.cancel = context.WithCancel(context.Background())
}
