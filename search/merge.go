package search

import (
	"github.com/hupe1980/quarry/internal/hitqueue"
	"github.com/hupe1980/quarry/model"
)

// MergeTopDocs combines independently collected results into the n best hits
// overall. Hits must already carry index-global DocIDs. TotalHits is summed.
func MergeTopDocs(n int, shards ...model.TopDocs) model.TopDocs {
	q := hitqueue.New(n)
	var total int64
	for _, shard := range shards {
		total += shard.TotalHits
		for _, h := range shard.ScoreDocs {
			q.Offer(h)
		}
	}
	return model.TopDocs{TotalHits: total, ScoreDocs: q.Drain()}
}
