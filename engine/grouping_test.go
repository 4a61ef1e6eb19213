package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/models"
)

func ts(offsetMinutes int) *time.Time {
	t := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC).Add(time.Duration(offsetMinutes) * time.Minute)
	return &t
}

func TestGroupLatestPicksNewestRevision(t *testing.T) {
	drafts := []models.Draft{
		{ID: "d1", VersionGroupID: "g1", CreatedAt: ts(0)},
		{ID: "d2", VersionGroupID: "g1", CreatedAt: ts(10)},
		{ID: "d3", VersionGroupID: "g1", CreatedAt: ts(20)},
	}

	out := GroupLatest(drafts)

	require.Len(t, out, 1)
	assert.Equal(t, "d3", out[0].ID)
	assert.Equal(t, 3, out[0].VersionCount)
	assert.Equal(t, []string{"d3", "d2", "d1"}, out[0].AllVersionIDs)
}

func TestGroupLatestSingletonsKeepTheirOwnGroup(t *testing.T) {
	drafts := []models.Draft{
		{ID: "a", CreatedAt: ts(0)},
		{ID: "b", CreatedAt: ts(5)},
	}

	out := GroupLatest(drafts)

	require.Len(t, out, 2)
	// Newest first.
	assert.Equal(t, "b", out[0].ID)
	assert.Equal(t, "a", out[1].ID)
	for _, d := range out {
		assert.Equal(t, 1, d.VersionCount)
		assert.Equal(t, []string{d.ID}, d.AllVersionIDs)
	}
}

func TestGroupLatestMixedGroupsOrderedNewestFirst(t *testing.T) {
	drafts := []models.Draft{
		{ID: "g1-old", VersionGroupID: "g1", CreatedAt: ts(0)},
		{ID: "solo", CreatedAt: ts(30)},
		{ID: "g1-new", VersionGroupID: "g1", CreatedAt: ts(40)},
		{ID: "g2-only", VersionGroupID: "g2", CreatedAt: ts(20)},
	}

	out := GroupLatest(drafts)

	require.Len(t, out, 3)
	assert.Equal(t, "g1-new", out[0].ID)
	assert.Equal(t, "solo", out[1].ID)
	assert.Equal(t, "g2-only", out[2].ID)
	assert.Equal(t, 2, out[0].VersionCount)
}

func TestGroupLatestNilCreatedAtSortsOldest(t *testing.T) {
	drafts := []models.Draft{
		{ID: "unstamped", VersionGroupID: "g1"},
		{ID: "stamped", VersionGroupID: "g1", CreatedAt: ts(0)},
	}

	out := GroupLatest(drafts)

	require.Len(t, out, 1)
	assert.Equal(t, "stamped", out[0].ID)
	assert.Equal(t, []string{"stamped", "unstamped"}, out[0].AllVersionIDs)
}

func TestGroupLatestNilTiesKeepInputOrder(t *testing.T) {
	drafts := []models.Draft{
		{ID: "first", VersionGroupID: "g1"},
		{ID: "second", VersionGroupID: "g1"},
	}

	out := GroupLatest(drafts)

	require.Len(t, out, 1)
	assert.Equal(t, []string{"first", "second"}, out[0].AllVersionIDs)
}

func TestGroupLatestEmptyInput(t *testing.T) {
	assert.Empty(t, GroupLatest(nil))
}

func TestListGroupVersionsNumbersOldestFirst(t *testing.T) {
	target := models.Draft{ID: "d2", VersionGroupID: "g1", CreatedAt: ts(10)}
	siblings := []models.Draft{
		{ID: "d3", VersionGroupID: "g1", CreatedAt: ts(20)},
		{ID: "d1", VersionGroupID: "g1", CreatedAt: ts(0)},
		target,
	}

	out := ListGroupVersions(siblings, target)

	require.Len(t, out, 3)
	assert.Equal(t, "d1", out[0].ID)
	assert.Equal(t, "d2", out[1].ID)
	assert.Equal(t, "d3", out[2].ID)
	for i, v := range out {
		assert.Equal(t, i+1, v.VersionNumber)
		assert.Equal(t, v.ID == "d2", v.IsCurrent)
	}
}

func TestListGroupVersionsWithoutGroupIsSingleton(t *testing.T) {
	target := models.Draft{ID: "alone", CreatedAt: ts(0)}

	out := ListGroupVersions(nil, target)

	require.Len(t, out, 1)
	assert.Equal(t, "alone", out[0].ID)
	assert.Equal(t, 1, out[0].VersionNumber)
	assert.True(t, out[0].IsCurrent)
}
