package ranking

import "context"

// Source answers ranking queries from one of the upstream variants.
type Source interface {
	FetchRanking(ctx context.Context, kind SourceKind, variant Variant, query WindowQuery) (Response, error)
}
