package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	id       string
	key      float64
	eligible bool
	missing  bool
}

// memSource is a frozen candidate store ordered by (key, id).
type memSource struct {
	entries []entry
	order   Order
	queries []Cursor
	fail    error
}

func newMemSource(order Order, entries ...entry) *memSource {
	s := &memSource{entries: entries, order: order}
	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.before(s.entries[i].key, s.entries[i].id, s.entries[j].key, s.entries[j].id)
	})
	return s
}

// before reports whether (k1, id1) comes first in the source's direction.
func (s *memSource) before(k1 float64, id1 string, k2 float64, id2 string) bool {
	if k1 != k2 {
		if s.order == Ascending {
			return k1 < k2
		}
		return k1 > k2
	}
	if s.order == Ascending {
		return id1 < id2
	}
	return id1 > id2
}

// past reports whether e lies beyond the exclusive cursor bound.
func (s *memSource) past(e entry, cursor Cursor) bool {
	if e.key == cursor.Value() {
		return cursor.After() != "" && s.before(cursor.Value(), cursor.After(), e.key, e.id)
	}
	return s.before(cursor.Value(), "", e.key, e.id)
}

func (s *memSource) Query(_ context.Context, _ string, cursor Cursor, limit int) ([]Candidate, error) {
	s.queries = append(s.queries, cursor)
	if s.fail != nil {
		return nil, s.fail
	}
	out := []Candidate{}
	if cursor.IsPage() {
		for i := cursor.Offset(limit); i < len(s.entries) && len(out) < limit; i++ {
			out = append(out, Candidate{ID: s.entries[i].id, Key: s.entries[i].key})
		}
		return out, nil
	}
	for _, e := range s.entries {
		if len(out) == limit {
			break
		}
		if s.past(e, cursor) {
			out = append(out, Candidate{ID: e.id, Key: e.key})
		}
	}
	return out, nil
}

func (s *memSource) Get(_ context.Context, id string) (entry, bool, error) {
	for _, e := range s.entries {
		if e.id == id {
			return e, !e.missing, nil
		}
	}
	return entry{}, false, nil
}

func eligibleOnly(e entry) bool { return e.eligible }

func keyed(keys ...float64) []entry {
	out := make([]entry, len(keys))
	for i, k := range keys {
		out[i] = entry{id: fmt.Sprintf("v%v", k), key: k, eligible: true}
	}
	return out
}

func idsOf(items []Item[entry]) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func keysOf(items []Item[entry]) []float64 {
	out := make([]float64, len(items))
	for i, it := range items {
		out[i] = it.Key
	}
	return out
}

func TestFetch_BackfillsAfterFilteredRound(t *testing.T) {
	entries := keyed(100, 90, 80, 70, 60)
	entries[1].eligible = false
	src := newMemSource(Descending, entries...)

	page, err := Fetch[string, entry](context.Background(), Request[string]{PageSize: 3, Cursor: FromNow()},
		src, RepositoryFunc[entry](src.Get), eligibleOnly, WithOrigin(func() float64 { return 1e9 }))
	require.NoError(t, err)

	assert.Equal(t, []float64{100, 80, 70}, keysOf(page.Items))
	require.Len(t, src.queries, 2)
	assert.Equal(t, At(1e9), src.queries[0])
	assert.Equal(t, AtAfter(80, "v80"), src.queries[1])
	assert.Equal(t, 2, page.Stats.Rounds)
	assert.Equal(t, 5, page.Stats.Scanned)

	// 60 was eligible but did not fit; the cursor stops at the last item served.
	assert.False(t, page.EndOfData)
	assert.Equal(t, AtAfter(70, "v70"), page.NextCursor)

	next, err := Fetch[string, entry](context.Background(), Request[string]{PageSize: 3, Cursor: page.NextCursor},
		src, RepositoryFunc[entry](src.Get), eligibleOnly)
	require.NoError(t, err)
	assert.Equal(t, []float64{60}, keysOf(next.Items))
	assert.True(t, next.EndOfData)
	assert.Equal(t, AtAfter(60, "v60"), next.NextCursor)
}

func TestFetch_EmptySourceReturnsSentinel(t *testing.T) {
	src := newMemSource(Descending)

	page, err := Fetch[string, entry](context.Background(), Request[string]{PageSize: 10, Cursor: FromNow()},
		src, RepositoryFunc[entry](src.Get), eligibleOnly)
	require.NoError(t, err)

	assert.Empty(t, page.Items)
	assert.True(t, page.EndOfData)
	assert.Equal(t, At(TimeSentinel), page.NextCursor)
	assert.Equal(t, 1, page.Stats.Rounds)
}

func TestFetch_PageModeRunsOneRound(t *testing.T) {
	src := newMemSource(Descending, keyed(140, 130, 120, 110, 100, 90, 80, 70, 60, 50, 40, 30, 20, 10)...)

	page, err := Fetch[string, entry](context.Background(), Request[string]{PageSize: 10, Cursor: PageCursor(2)},
		src, RepositoryFunc[entry](src.Get), eligibleOnly)
	require.NoError(t, err)

	assert.Equal(t, []float64{40, 30, 20, 10}, keysOf(page.Items))
	assert.True(t, page.EndOfData)
	assert.Len(t, src.queries, 1)
	assert.Equal(t, PageCursor(3), page.NextCursor)
}

func TestFetch_PageModeDoesNotBackfill(t *testing.T) {
	entries := keyed(50, 40, 30, 20, 10)
	entries[0].eligible = false
	entries[2].eligible = false
	src := newMemSource(Descending, entries...)

	page, err := Fetch[string, entry](context.Background(), Request[string]{PageSize: 3, Cursor: PageCursor(1)},
		src, RepositoryFunc[entry](src.Get), eligibleOnly)
	require.NoError(t, err)

	assert.Equal(t, []float64{40}, keysOf(page.Items))
	assert.False(t, page.EndOfData)
	assert.Len(t, src.queries, 1)

	again, err := Fetch[string, entry](context.Background(), Request[string]{PageSize: 3, Cursor: PageCursor(1)},
		src, RepositoryFunc[entry](src.Get), eligibleOnly)
	require.NoError(t, err)
	assert.Equal(t, page.Items, again.Items)
}

func TestFetch_MissingObjectsAreSkipped(t *testing.T) {
	entries := keyed(30, 20, 10)
	entries[1].missing = true
	src := newMemSource(Descending, entries...)

	page, err := Fetch[string, entry](context.Background(), Request[string]{PageSize: 5, Cursor: At(100)},
		src, RepositoryFunc[entry](src.Get), nil)
	require.NoError(t, err)

	assert.Equal(t, []float64{30, 10}, keysOf(page.Items))
	assert.Equal(t, 3, page.Stats.Scanned)
	assert.Equal(t, 2, page.Stats.Resolved)
	assert.True(t, page.EndOfData)
}

func TestFetch_AscendingFeedKeepsCursorWhenDry(t *testing.T) {
	src := newMemSource(Ascending, keyed(10, 20, 30)...)
	fetcher := New[string, entry](src, RepositoryFunc[entry](src.Get), WithOrder(Ascending), WithoutSentinel())

	page, err := fetcher.Fetch(context.Background(), Request[string]{PageSize: 2, Cursor: At(5)}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20}, keysOf(page.Items))
	assert.False(t, page.EndOfData)
	assert.Equal(t, AtAfter(20, "v20"), page.NextCursor)

	page, err = fetcher.Fetch(context.Background(), Request[string]{PageSize: 2, Cursor: page.NextCursor}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{30}, keysOf(page.Items))
	assert.True(t, page.EndOfData)

	page, err = fetcher.Fetch(context.Background(), Request[string]{PageSize: 2, Cursor: page.NextCursor}, nil)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, AtAfter(30, "v30"), page.NextCursor)
}

func TestFetch_CountOrderedFeed(t *testing.T) {
	src := newMemSource(Descending, keyed(500, 300)...)
	fetcher := New[string, entry](src, RepositoryFunc[entry](src.Get), CountOrdered())

	page, err := fetcher.Fetch(context.Background(), Request[string]{PageSize: 5, Cursor: FromNow()}, nil)
	require.NoError(t, err)
	assert.Equal(t, At(CountOrigin), src.queries[0])
	assert.Equal(t, []float64{500, 300}, keysOf(page.Items))
	assert.Equal(t, AtAfter(300, "v300"), page.NextCursor)

	empty, err := fetcher.Fetch(context.Background(), Request[string]{PageSize: 5, Cursor: At(1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, At(CountSentinel), empty.NextCursor)

	// The sentinel it hands out is accepted back.
	_, err = fetcher.Fetch(context.Background(), Request[string]{PageSize: 5, Cursor: empty.NextCursor}, nil)
	require.NoError(t, err)
}

func TestFetch_RoundCap(t *testing.T) {
	entries := keyed(100, 90, 80, 70, 60, 50, 40, 30, 20, 10)
	for i := range entries {
		entries[i].eligible = entries[i].key == 10
	}
	src := newMemSource(Descending, entries...)

	page, err := Fetch[string, entry](context.Background(), Request[string]{PageSize: 2, Cursor: At(1000)},
		src, RepositoryFunc[entry](src.Get), eligibleOnly, WithMaxRounds(3))
	require.NoError(t, err)

	assert.Empty(t, page.Items)
	assert.Equal(t, 3, page.Stats.Rounds)
	assert.Equal(t, SafeguardMaxRounds, page.Stats.Safeguard)
	assert.False(t, page.EndOfData)
	assert.Equal(t, AtAfter(50, "v50"), page.NextCursor)

	// Resuming from the cap position loses nothing.
	rest, err := Fetch[string, entry](context.Background(), Request[string]{PageSize: 2, Cursor: page.NextCursor},
		src, RepositoryFunc[entry](src.Get), eligibleOnly)
	require.NoError(t, err)
	assert.Equal(t, []float64{10}, keysOf(rest.Items))
	assert.True(t, rest.EndOfData)
}

func TestFetch_ScanCap(t *testing.T) {
	entries := keyed(60, 50, 40, 30, 20, 10)
	for i := range entries {
		entries[i].eligible = false
	}
	src := newMemSource(Descending, entries...)

	page, err := Fetch[string, entry](context.Background(), Request[string]{PageSize: 2, Cursor: At(1000)},
		src, RepositoryFunc[entry](src.Get), eligibleOnly, WithMaxScanned(4))
	require.NoError(t, err)
	assert.Equal(t, 2, page.Stats.Rounds)
	assert.Equal(t, SafeguardMaxScanned, page.Stats.Safeguard)
	assert.False(t, page.EndOfData)
}

func TestFetch_InvalidRequest(t *testing.T) {
	src := newMemSource(Descending, keyed(1)...)
	repo := RepositoryFunc[entry](src.Get)

	cases := []Request[string]{
		{PageSize: 0, Cursor: FromNow()},
		{PageSize: 3, Cursor: PageCursor(0)},
		{PageSize: 3, Cursor: At(-5)},
		{PageSize: 3},
	}
	for _, req := range cases {
		_, err := Fetch[string, entry](context.Background(), req, src, repo, nil)
		assert.ErrorIs(t, err, ErrInvalidRequest, "request %+v", req)
	}
	assert.Empty(t, src.queries)
}

func TestFetch_SourceFailureReturnsNoPartialPage(t *testing.T) {
	boom := errors.New("connection reset")
	src := newMemSource(Descending, keyed(3, 2, 1)...)
	src.fail = boom

	page, err := Fetch[string, entry](context.Background(), Request[string]{PageSize: 2, Cursor: FromNow()},
		src, RepositoryFunc[entry](src.Get), nil)
	assert.Nil(t, page)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, boom)

	var se *SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "query", se.Stage)
	assert.Equal(t, 1, se.Round)
}

func TestFetch_RepositoryFailure(t *testing.T) {
	src := newMemSource(Descending, keyed(3, 2, 1)...)
	repo := RepositoryFunc[entry](func(ctx context.Context, id string) (entry, bool, error) {
		if id == "v2" {
			return entry{}, false, errors.New("timeout")
		}
		return src.Get(ctx, id)
	})

	_, err := Fetch[string, entry](context.Background(), Request[string]{PageSize: 3, Cursor: FromNow()}, src, repo, nil)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	var se *SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "resolve", se.Stage)
}

func TestFetch_PanickingFilterRejects(t *testing.T) {
	src := newMemSource(Descending, keyed(3, 2, 1)...)
	filter := func(e entry) bool {
		if e.key == 2 {
			panic("bad category")
		}
		return true
	}

	page, err := Fetch[string, entry](context.Background(), Request[string]{PageSize: 3, Cursor: FromNow()},
		src, RepositoryFunc[entry](src.Get), filter)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1}, keysOf(page.Items))
}

type batchRepo struct {
	*memSource
	calls atomic.Int32
}

func (b *batchRepo) GetMany(_ context.Context, ids []string) (map[string]entry, error) {
	b.calls.Add(1)
	out := make(map[string]entry)
	for _, id := range ids {
		for _, e := range b.entries {
			if e.id == id && !e.missing {
				out[id] = e
			}
		}
	}
	return out, nil
}

func TestFetch_UsesBatchRepository(t *testing.T) {
	src := newMemSource(Descending, keyed(5, 4, 3, 2, 1)...)
	repo := &batchRepo{memSource: src}

	page, err := Fetch[string, entry](context.Background(), Request[string]{PageSize: 5, Cursor: FromNow()}, src, repo, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 4, 3, 2, 1}, keysOf(page.Items))
	assert.Equal(t, int32(1), repo.calls.Load())
}

// walk follows NextCursor until EndOfData, failing on runaway loops.
func walk(t *testing.T, f *Fetcher[string, entry], size int, filter Filter[entry]) [][]Item[entry] {
	t.Helper()
	var pages [][]Item[entry]
	cursor := FromNow()
	for i := 0; i < 100; i++ {
		page, err := f.Fetch(context.Background(), Request[string]{PageSize: size, Cursor: cursor}, filter)
		require.NoError(t, err)
		assert.True(t, len(page.Items) == size || page.EndOfData, "short page must be the last one")
		if !cursor.IsFromNow() && len(page.Items) > 0 && page.NextCursor != At(TimeSentinel) {
			assert.LessOrEqual(t, page.NextCursor.Value(), cursor.Value())
		}
		pages = append(pages, page.Items)
		if page.EndOfData {
			return pages
		}
		cursor = page.NextCursor
	}
	t.Fatal("walk did not terminate")
	return nil
}

func TestFetch_SequentialWalkCoversEveryEligibleItemOnce(t *testing.T) {
	var entries []entry
	want := map[string]bool{}
	for i := 1; i <= 57; i++ {
		e := entry{id: fmt.Sprintf("v%d", i), key: float64(i * 10), eligible: i%3 != 0 && i%7 != 0}
		entries = append(entries, e)
		if e.eligible {
			want[e.id] = true
		}
	}
	src := newMemSource(Descending, entries...)

	for _, size := range []int{1, 2, 3, 5, 10, 100} {
		t.Run(fmt.Sprintf("size=%d", size), func(t *testing.T) {
			f := New[string, entry](src, RepositoryFunc[entry](src.Get))
			seen := map[string]bool{}
			for _, items := range walk(t, f, size, eligibleOnly) {
				for _, it := range items {
					assert.False(t, seen[it.ID], "duplicate %s", it.ID)
					seen[it.ID] = true
				}
			}
			assert.Equal(t, want, seen)
		})
	}
}

func TestFetch_TiedKeysResumeInsideTheRun(t *testing.T) {
	var entries []entry
	want := map[string]bool{}
	for i := 0; i < 7; i++ {
		id := fmt.Sprintf("v%d", i)
		entries = append(entries, entry{id: id, key: 5, eligible: i != 3})
		if i != 3 {
			want[id] = true
		}
	}
	entries = append(entries, entry{id: "w", key: 9, eligible: true}, entry{id: "z", key: 1, eligible: true})
	want["w"], want["z"] = true, true
	src := newMemSource(Descending, entries...)

	for _, size := range []int{1, 2, 3, 4} {
		t.Run(fmt.Sprintf("size=%d", size), func(t *testing.T) {
			f := New[string, entry](src, RepositoryFunc[entry](src.Get), CountOrdered())
			seen := map[string]bool{}
			cursor := FromNow()
			for i := 0; i < 50; i++ {
				page, err := f.Fetch(context.Background(), Request[string]{PageSize: size, Cursor: cursor}, eligibleOnly)
				require.NoError(t, err)
				for _, it := range page.Items {
					assert.False(t, seen[it.ID], "duplicate %s", it.ID)
					seen[it.ID] = true
				}
				if page.EndOfData {
					break
				}
				cursor = page.NextCursor
			}
			assert.Equal(t, want, seen)
		})
	}
}

func TestFetch_TruncatedTailKeepsTiebreaker(t *testing.T) {
	// Served in id order d, c, b, a. The second round overshoots by one.
	src := newMemSource(Descending,
		entry{id: "a", key: 5, eligible: true},
		entry{id: "b", key: 5, eligible: true},
		entry{id: "c", key: 5, eligible: true},
		entry{id: "d", key: 5, eligible: false},
	)

	page, err := Fetch[string, entry](context.Background(), Request[string]{PageSize: 2, Cursor: At(100)},
		src, RepositoryFunc[entry](src.Get), eligibleOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, idsOf(page.Items))
	assert.False(t, page.EndOfData)
	assert.Equal(t, AtAfter(5, "b"), page.NextCursor)

	rest, err := Fetch[string, entry](context.Background(), Request[string]{PageSize: 2, Cursor: page.NextCursor},
		src, RepositoryFunc[entry](src.Get), eligibleOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, idsOf(rest.Items))
	assert.True(t, rest.EndOfData)
}

func TestFetch_CustomSentinel(t *testing.T) {
	src := newMemSource(Descending)
	page, err := Fetch[string, entry](context.Background(), Request[string]{PageSize: 3, Cursor: At(50)},
		src, RepositoryFunc[entry](src.Get), nil, WithSentinel(7))
	require.NoError(t, err)
	assert.Equal(t, At(7), page.NextCursor)
}

func TestAll(t *testing.T) {
	even := Filter[int](func(n int) bool { return n%2 == 0 })
	positive := Filter[int](func(n int) bool { return n > 0 })

	assert.Nil(t, All[int]())
	assert.Nil(t, All[int](nil, nil))

	both := All(even, nil, positive)
	assert.True(t, both(4))
	assert.False(t, both(3))
	assert.False(t, both(-2))
}

func TestRuleFilter(t *testing.T) {
	env := func(e entry) map[string]any {
		return map[string]any{"key": e.key, "id": e.id}
	}
	rf, err := NewRuleFilter("test", `key >= 20 && id != "v30"`, env)
	require.NoError(t, err)

	assert.True(t, rf.Eligible(entry{id: "v20", key: 20}))
	assert.False(t, rf.Eligible(entry{id: "v30", key: 30}))
	assert.False(t, rf.Eligible(entry{id: "v10", key: 10}))

	notBool, err := NewRuleFilter("test", `key + 1`, env)
	require.NoError(t, err)
	assert.False(t, notBool.Eligible(entry{key: 1}))

	_, err = NewRuleFilter("test", `key >=`, env)
	assert.Error(t, err)

	var none *RuleFilter[entry]
	assert.Nil(t, none.Filter())
}
