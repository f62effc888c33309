package match

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldld/huebackup/hueerr"
)

type room struct {
	id   string
	name string
}

func roomName(r room) string { return r.name }

var rooms = []room{
	{"r1", "Living room"},
	{"r2", "Office"},
	{"r3", "Office upstairs"},
	{"r4", "Bedroom"},
}

func TestByNameExactWinsOverSubstring(t *testing.T) {
	got, err := ByName("room", "office", rooms, roomName)
	require.NoError(t, err)
	assert.Equal(t, "r2", got.id)
}

func TestByNameUniqueSubstring(t *testing.T) {
	got, err := ByName("room", "UPSTAIRS", rooms, roomName)
	require.NoError(t, err)
	assert.Equal(t, "r3", got.id)
}

func TestByNameAmbiguousListsCandidates(t *testing.T) {
	_, err := ByName("room", "room", rooms, roomName)
	require.Error(t, err)
	assert.True(t, errors.Is(err, hueerr.ErrAmbiguous))

	var amb *hueerr.AmbiguousError
	require.True(t, errors.As(err, &amb))
	assert.Equal(t, []string{"Living room", "Bedroom"}, amb.Candidates)
}

func TestByNameNotFoundSuggests(t *testing.T) {
	_, err := ByName("room", "Ofice", rooms, roomName)
	require.Error(t, err)
	assert.True(t, errors.Is(err, hueerr.ErrNotFound))

	var nf *hueerr.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Contains(t, nf.Suggestions, "Office")
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 100, Similarity("Relax", "relax"))
	assert.Equal(t, 80, Similarity("rel", "Relax"))
	assert.Equal(t, 60, Similarity("lax", "Relax"))
	assert.Equal(t, 0, Similarity("zzz", "Relax"))
	assert.Equal(t, 30, Similarity("Rlx", "Relax"))
}

func TestSimilarRanksAndLimits(t *testing.T) {
	got := Similar("read", []string{"Bright", "Read", "Reading", "Relax", "Reading"}, 2)
	assert.Equal(t, []string{"Read", "Reading"}, got)
}
