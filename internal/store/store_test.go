package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/internal/chunk"
	"github.com/docdex/docdex/internal/embed"
)

// flakyEmbedder fails EmbedBatch on demand. Failures are plain errors,
// so the store's retry loop gives up immediately.
type flakyEmbedder struct {
	embed.Embedder

	mu   sync.Mutex
	fail bool
}

func (f *flakyEmbedder) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("embedder offline")
	}
	return f.Embedder.EmbedBatch(ctx, texts)
}

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir, embed.NewStaticEmbedder(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

func makeChunks(source string, texts ...string) []chunk.Chunk {
	chunks := make([]chunk.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = chunk.Chunk{
			Text:       text,
			SourceFile: source,
			Index:      i,
			Page:       1,
			TokenCount: len(text),
		}
	}
	return chunks
}

func TestUpsert_AssignsDeterministicIDs(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	chunks := makeChunks("/docs/a.md", "install the tool", "configure the tool")

	require.NoError(t, s.Upsert(ctx, CollectionGeneral, chunks))

	assert.Equal(t, chunk.ID("/docs/a.md", 0, CollectionGeneral), chunks[0].ID)
	assert.Equal(t, chunk.ID("/docs/a.md", 1, CollectionGeneral), chunks[1].ID)
}

func TestUpsert_RejectsUnknownCollection(t *testing.T) {
	s, _ := openTestStore(t)

	err := s.Upsert(context.Background(), "nope", makeChunks("/docs/a.md", "text"))

	assert.Error(t, err)
}

func TestUpsert_ReindexOverwritesInPlace(t *testing.T) {
	// Given: a file indexed once
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, CollectionGeneral,
		makeChunks("/docs/a.md", "original content here")))

	// When: the same file is indexed again with new content
	require.NoError(t, s.Upsert(ctx, CollectionGeneral,
		makeChunks("/docs/a.md", "replacement content here")))

	// Then: the chunk count does not grow
	infos, err := s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, infos[1].Count)

	doc, err := s.GetDocument(ctx, "/docs/a.md")
	require.NoError(t, err)
	require.Len(t, doc, 1)
	assert.Equal(t, "replacement content here", doc[0].Text)
}

func TestReplace_EmbedFailurePreservesCommittedChunks(t *testing.T) {
	// Given: a file committed while the embedder was healthy
	embedder := &flakyEmbedder{Embedder: embed.NewStaticEmbedder()}
	s, err := Open(t.TempDir(), embedder, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()
	require.NoError(t, s.Replace(ctx, CollectionGeneral, "a.md",
		makeChunks("a.md", "committed content stays")))

	// When: a replace runs with the embedder down
	embedder.setFail(true)
	err = s.Replace(ctx, CollectionGeneral, "a.md",
		makeChunks("a.md", "never embedded content"))
	require.Error(t, err)

	// Then: the old chunks are still there, untouched
	doc, err := s.GetDocument(ctx, "a.md")
	require.NoError(t, err)
	require.Len(t, doc, 1)
	assert.Equal(t, "committed content stays", doc[0].Text)

	results, err := s.Search(ctx, "committed content", nil, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a.md", results[0].SourceFile)
}

func TestReplace_MovesSourceBetweenCollections(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Replace(ctx, CollectionGeneral, "mover.md",
		makeChunks("mover.md", "starts out general")))

	require.NoError(t, s.Replace(ctx, CollectionPrimary, "mover.md",
		makeChunks("mover.md", "now promoted to primary")))

	doc, err := s.GetDocument(ctx, "mover.md")
	require.NoError(t, err)
	require.Len(t, doc, 1)
	assert.Equal(t, CollectionPrimary, doc[0].Collection)

	infos, err := s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, infos[0].Count)
	assert.Zero(t, infos[1].Count)
}

func TestReplace_NoChunksDeletes(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Replace(ctx, CollectionGeneral, "empty.md",
		makeChunks("empty.md", "content that goes away")))

	require.NoError(t, s.Replace(ctx, CollectionGeneral, "empty.md", nil))

	_, err := s.GetDocument(ctx, "empty.md")
	assert.Error(t, err)
}

func TestSearch_FindsRelevantChunk(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, CollectionGeneral, makeChunks("/docs/guide.md",
		"installation instructions for the indexing service",
		"troubleshooting network connection failures",
	)))

	results, err := s.Search(ctx, "installation instructions", nil, 2)

	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Text, "installation")
	assert.Equal(t, "/docs/guide.md", results[0].SourceFile)
	assert.Equal(t, CollectionGeneral, results[0].Collection)
	assert.Greater(t, results[0].Score, float32(0))
	assert.LessOrEqual(t, results[0].Score, float32(1))
}

func TestSearch_MergesCollectionsByScore(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, CollectionPrimary,
		makeChunks("/docs/primary/spec.md", "database schema migration guide")))
	require.NoError(t, s.Upsert(ctx, CollectionGeneral,
		makeChunks("/docs/notes.md", "weekly meeting notes about lunch")))

	results, err := s.Search(ctx, "database schema migration", nil, 5)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, CollectionPrimary, results[0].Collection)
	// Sorted descending by score.
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestSearch_SingleCollectionFilter(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, CollectionPrimary,
		makeChunks("/docs/primary/a.md", "shared words appear here")))
	require.NoError(t, s.Upsert(ctx, CollectionGeneral,
		makeChunks("/docs/b.md", "shared words appear here too")))

	results, err := s.Search(ctx, "shared words", []string{CollectionPrimary}, 5)

	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, CollectionPrimary, r.Collection)
	}
}

func TestSearch_Validation(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.Search(ctx, "query", nil, 0)
	assert.Error(t, err)

	_, err = s.Search(ctx, "query", []string{"bogus"}, 5)
	assert.Error(t, err)
}

func TestSearch_EmptyStoreReturnsNothing(t *testing.T) {
	s, _ := openTestStore(t)

	results, err := s.Search(context.Background(), "anything", nil, 5)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDeleteSource_RemovesFromSearchAndListing(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, CollectionGeneral,
		makeChunks("/docs/gone.md", "soon to be deleted text")))

	require.NoError(t, s.DeleteSource(ctx, "/docs/gone.md"))

	results, err := s.Search(ctx, "soon to be deleted", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = s.GetDocument(ctx, "/docs/gone.md")
	assert.Error(t, err)
}

func TestDeleteSource_UnknownPathNoOp(t *testing.T) {
	s, _ := openTestStore(t)
	assert.NoError(t, s.DeleteSource(context.Background(), "/docs/never.md"))
}

func TestListCollections_AlwaysListsBoth(t *testing.T) {
	s, _ := openTestStore(t)

	infos, err := s.ListCollections(context.Background())

	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, CollectionPrimary, infos[0].Name)
	assert.Equal(t, CollectionGeneral, infos[1].Name)
	assert.Zero(t, infos[0].Count)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	// Given: a store with indexed content, closed cleanly
	dir := t.TempDir()
	embedder := embed.NewStaticEmbedder()
	s, err := Open(dir, embedder, nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, CollectionGeneral,
		makeChunks("/docs/persist.md", "durable indexed content")))
	require.NoError(t, s.Close())

	// When: reopened from the same directory
	s2, err := Open(dir, embedder, nil)
	require.NoError(t, err)
	defer s2.Close()

	// Then: search still finds the chunk
	results, err := s2.Search(ctx, "durable indexed content", nil, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "/docs/persist.md", results[0].SourceFile)
}

func TestVectorIndex_LazyDelete(t *testing.T) {
	idx := NewVectorIndex(VectorStoreConfig{Dimensions: 4})
	require.NoError(t, idx.Add([]string{"a", "b"}, [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
	}))

	idx.Delete([]string{"a"})

	assert.False(t, idx.Contains("a"))
	assert.True(t, idx.Contains("b"))
	assert.Equal(t, 1, idx.Count())
	// The node stays in the graph as an orphan.
	assert.Equal(t, 1, idx.Orphans())

	results, err := idx.Search([]float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.ID)
	}
}

func TestVectorIndex_DimensionMismatch(t *testing.T) {
	idx := NewVectorIndex(VectorStoreConfig{Dimensions: 4})

	err := idx.Add([]string{"a"}, [][]float32{{1, 0}})
	assert.Error(t, err)

	_, err = idx.Search([]float32{1, 0}, 1)
	assert.Error(t, err)
}

func TestVectorIndex_IdenticalVectorScoresOne(t *testing.T) {
	idx := NewVectorIndex(VectorStoreConfig{Dimensions: 4})
	vec := []float32{0.5, 0.5, 0, 0}
	require.NoError(t, idx.Add([]string{"a"}, [][]float32{vec}))

	results, err := idx.Search(vec, 1)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, float64(results[0].Score), 0.001)
}
