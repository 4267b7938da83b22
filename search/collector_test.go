package search

import (
	"testing"
	"time"

	"github.com/hupe1980/quarry/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalHitCountCollector(t *testing.T) {
	c := NewTotalHitCountCollector()
	assert.ErrorIs(t, c.Collect(0), ErrNoScorer)

	collectAll(t, c, NewArrayScorer([]float32{1, -1, 2}))
	assert.Equal(t, int64(3), c.TotalHits())
}

func TestMultiCollector(t *testing.T) {
	top := NewTopScoreCollector(1)
	count := NewTotalHitCountCollector()
	m := NewMultiCollector(top, count)

	require.NoError(t, m.SetSegment(model.SegmentInfo{}, 10))
	collectAll(t, m, NewArrayScorer([]float32{1, 5, 2}))

	assert.Equal(t, int64(3), count.TotalHits())
	td := top.TopDocs()
	assert.Equal(t, []model.ScoreDoc{{Doc: 11, Score: 5}}, td.ScoreDocs)

	assert.ErrorIs(t, m.Collect(0), ErrFinalized)
}

func TestTimeLimitingCollector(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }

	top := NewTopScoreCollector(10)
	c := NewTimeLimitingCollector(top, time.Second).WithClock(clock)
	s := NewArrayScorer([]float32{1, 2, 3})

	require.NoError(t, c.SetScorer(s))
	s.Next()
	require.NoError(t, c.Collect(0))
	s.Next()
	now = now.Add(500 * time.Millisecond)
	require.NoError(t, c.Collect(1))

	s.Next()
	now = now.Add(time.Second)
	err := c.Collect(2)
	assert.ErrorIs(t, err, ErrTimeExceeded)

	td := top.TopDocs()
	assert.Equal(t, int64(2), td.TotalHits)
	assert.Len(t, td.ScoreDocs, 2)
}

func TestTimeLimitingCollector_ForwardsSegment(t *testing.T) {
	top := NewTopScoreCollector(1)
	c := NewTimeLimitingCollector(top, time.Hour)
	require.NoError(t, c.SetSegment(model.SegmentInfo{}, 3))
	collectAll(t, c, NewArrayScorer([]float32{1}))
	assert.Equal(t, model.DocID(3), top.TopDocs().ScoreDocs[0].Doc)
}

func TestMergeTopDocs(t *testing.T) {
	a := model.TopDocs{TotalHits: 10, ScoreDocs: []model.ScoreDoc{{Doc: 1, Score: 9}, {Doc: 4, Score: 2}}}
	b := model.TopDocs{TotalHits: 5, ScoreDocs: []model.ScoreDoc{{Doc: 20, Score: 9}, {Doc: 22, Score: 3}}}

	got := MergeTopDocs(3, a, b)
	assert.Equal(t, int64(15), got.TotalHits)
	assert.Equal(t, []model.ScoreDoc{{Doc: 1, Score: 9}, {Doc: 20, Score: 9}, {Doc: 22, Score: 3}}, got.ScoreDocs)

	empty := MergeTopDocs(0, a, b)
	assert.Empty(t, empty.ScoreDocs)
	assert.Equal(t, int64(15), empty.TotalHits)

	none := MergeTopDocs(5)
	assert.Empty(t, none.ScoreDocs)
	assert.Zero(t, none.TotalHits)
}
