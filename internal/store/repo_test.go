package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemshift/stampdag/internal/proof"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return repo
}

// sampleProof builds a proof with one pending branch and one bitcoin branch.
func sampleProof(t *testing.T, content string) *proof.DetachedTimestamp {
	t.Helper()
	dt, err := proof.NewDetachedFromReader(proof.SHA256(), strings.NewReader(content))
	require.NoError(t, err)
	root := dt.Timestamp
	root.AddOp(proof.Append([]byte{0x01})).AddOp(proof.SHA256()).
		AddAttestation(proof.Pending("https://alice.example"))
	root.AddOp(proof.Append([]byte{0x02})).AddOp(proof.SHA256()).
		AddAttestation(proof.Bitcoin(100))
	return dt
}

func TestOpen_CreatesLayout(t *testing.T) {
	dir := t.TempDir()
	repo, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DirName), repo.Dir())

	for _, p := range []string{"meta.json", "objects", "refs"} {
		_, err := os.Stat(filepath.Join(dir, DirName, p))
		assert.NoError(t, err, p)
	}

	// reopening keeps existing state
	_, _, err = repo.Save("doc", sampleProof(t, "a"))
	require.NoError(t, err)
	again, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)
	names, err := again.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"doc"}, names)
}

func TestSave_Load(t *testing.T) {
	repo := openTestRepo(t)
	dt := sampleProof(t, "hello")

	rev, saved, err := repo.Save("hello.txt", dt)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, "sha256", rev.FileHashOp)
	assert.Empty(t, rev.Prev)

	got, err := repo.Load("hello.txt")
	require.NoError(t, err)
	assert.Equal(t, dt.FileHashOp, got.FileHashOp)
	assert.True(t, proof.Equal(dt.Timestamp, got.Timestamp))
}

func TestSave_UnchangedIsNoop(t *testing.T) {
	repo := openTestRepo(t)
	first, saved, err := repo.Save("doc", sampleProof(t, "x"))
	require.NoError(t, err)
	require.True(t, saved)

	second, saved, err := repo.Save("doc", sampleProof(t, "x"))
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Equal(t, first.CID, second.CID)

	revs, err := repo.History("doc", 0)
	require.NoError(t, err)
	assert.Len(t, revs, 1)
}

func TestSave_RejectsBadName(t *testing.T) {
	repo := openTestRepo(t)
	for _, name := range []string{"", "../escape", "a/b", ".hidden", ".tmp-x"} {
		_, _, err := repo.Save(name, sampleProof(t, "x"))
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestLoad_Missing(t *testing.T) {
	repo := openTestRepo(t)
	_, err := repo.Load("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistory_PrevChain(t *testing.T) {
	repo := openTestRepo(t)
	dt := sampleProof(t, "v")
	_, _, err := repo.Save("doc", dt)
	require.NoError(t, err)

	dt.Timestamp.AddAttestation(proof.Pending("https://bob.example"))
	second, _, err := repo.Save("doc", dt)
	require.NoError(t, err)

	dt.Timestamp.AddAttestation(proof.Litecoin(7))
	third, _, err := repo.Save("doc", dt)
	require.NoError(t, err)

	revs, err := repo.History("doc", 0)
	require.NoError(t, err)
	require.Len(t, revs, 3)
	assert.Equal(t, third.CID, revs[0].CID)
	assert.Equal(t, second.CID, revs[1].CID)
	assert.Equal(t, FormatCID(second.CID), third.Prev)

	limited, err := repo.History("doc", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	old, err := revs[2].Detached()
	require.NoError(t, err)
	assert.False(t, old.Timestamp.HasAttestation(proof.Pending("https://bob.example")))
}

func TestDelete_Tombstone(t *testing.T) {
	repo := openTestRepo(t)
	_, _, err := repo.Save("doc", sampleProof(t, "bye"))
	require.NoError(t, err)
	_, _, err = repo.Save("keep", sampleProof(t, "stay"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete("doc"))

	_, err = repo.Load("doc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, repo.Refs.Has("doc"))

	names, err := repo.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, names)

	revs, err := repo.History("doc", 0)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.True(t, revs[0].Deleted)

	assert.ErrorIs(t, repo.Delete("doc"), ErrNotFound)

	// saving again resurrects the name on top of the tombstone
	_, saved, err := repo.Save("doc", sampleProof(t, "bye"))
	require.NoError(t, err)
	assert.True(t, saved)
	revs, err = repo.History("doc", 0)
	require.NoError(t, err)
	assert.Len(t, revs, 3)
}

func TestOptimize(t *testing.T) {
	repo := openTestRepo(t)
	_, _, err := repo.Save("doc", sampleProof(t, "opt"))
	require.NoError(t, err)

	_, changed, err := repo.Optimize("doc", OptimizeOptions{DiscardClasses: []proof.Kind{proof.KindPending}})
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := repo.Load("doc")
	require.NoError(t, err)
	kinds := got.Timestamp.Kinds()
	assert.True(t, kinds.Contains(proof.KindBitcoin))
	assert.False(t, kinds.Contains(proof.KindPending))
	assert.Len(t, got.Timestamp.Edges(), 1)

	// nothing left to remove
	_, changed, err = repo.Optimize("doc", OptimizeOptions{DiscardClasses: []proof.Kind{proof.KindPending}})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestMerge(t *testing.T) {
	repo := openTestRepo(t)
	_, _, err := repo.Save("doc", sampleProof(t, "m"))
	require.NoError(t, err)

	upgrade, err := proof.NewDetachedFromReader(proof.SHA256(), strings.NewReader("m"))
	require.NoError(t, err)
	upgrade.Timestamp.AddOp(proof.Append([]byte{0x01})).AddOp(proof.SHA256()).
		AddOp(proof.Prepend([]byte{0x09})).AddAttestation(proof.Bitcoin(90))

	_, changed, err := repo.Merge("doc", upgrade)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := repo.Load("doc")
	require.NoError(t, err)
	heights := 0
	for _, l := range got.Timestamp.AllAttestations() {
		if l.Attestation.Kind() == proof.KindBitcoin {
			heights++
		}
	}
	assert.Equal(t, 2, heights)

	other, err := proof.NewDetachedFromReader(proof.SHA256(), strings.NewReader("different"))
	require.NoError(t, err)
	_, _, err = repo.Merge("doc", other)
	assert.ErrorIs(t, err, ErrMismatch)

	// merging into a missing name creates it
	_, changed, err = repo.Merge("fresh", other)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestObjectStore_DetectsCorruption(t *testing.T) {
	repo := openTestRepo(t)
	rev, _, err := repo.Save("doc", sampleProof(t, "c"))
	require.NoError(t, err)

	path := filepath.Join(repo.Dir(), "objects", FormatCID(rev.CID))
	require.NoError(t, os.WriteFile(path, []byte(`{"v":1}`), 0644))

	_, err = repo.Load("doc")
	assert.ErrorIs(t, err, ErrCorrupt)
}
