package engine

import (
	"sort"
	"time"

	"prospector/models"
)

// Version grouping for the review queue. Regenerating or editing a draft
// creates a new document carrying the same version_group_id, so the
// pending list would otherwise show every revision of the same outreach
// attempt side by side.

// GroupLatest collapses pending drafts into one representative per
// version group: the newest revision, annotated with the group size and
// the ordered member ids (newest first). Drafts without a group id are
// their own singleton groups. The result is ordered newest first.
//
// A nil created_at sorts as the oldest possible value; ties between nil
// timestamps keep input order. That matches how the rest of the pipeline
// treats unstamped documents and is deliberate.
func GroupLatest(drafts []models.Draft) []models.Draft {
	groups := make(map[string][]models.Draft)
	var order []string

	for _, d := range drafts {
		key := d.GroupKey()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], d)
	}

	out := make([]models.Draft, 0, len(order))
	for _, key := range order {
		versions := groups[key]
		sortNewestFirst(versions)

		latest := versions[0]
		latest.VersionCount = len(versions)
		latest.AllVersionIDs = make([]string, len(versions))
		for i, v := range versions {
			latest.AllVersionIDs[i] = v.ID
		}
		out = append(out, latest)
	}

	sortNewestFirst(out)
	return out
}

// ListGroupVersions orders a draft's pending siblings oldest first and
// numbers them 1..N, marking the target. Oldest first is intentional:
// the detail view reads as "version 1, 2, 3...". When the target has no
// group or no siblings were found, the result is the target alone as
// version 1.
func ListGroupVersions(drafts []models.Draft, target models.Draft) []models.Draft {
	var versions []models.Draft
	if target.VersionGroupID != "" {
		versions = append(versions, drafts...)
	}

	if len(versions) == 0 {
		target.VersionNumber = 1
		target.IsCurrent = true
		return []models.Draft{target}
	}

	sort.SliceStable(versions, func(i, j int) bool {
		return earlierThan(versions[i].CreatedAt, versions[j].CreatedAt)
	})

	for i := range versions {
		versions[i].VersionNumber = i + 1
		versions[i].IsCurrent = versions[i].ID == target.ID
	}
	return versions
}

func sortNewestFirst(drafts []models.Draft) {
	sort.SliceStable(drafts, func(i, j int) bool {
		return earlierThan(drafts[j].CreatedAt, drafts[i].CreatedAt)
	})
}

// earlierThan orders ascending with nil as the oldest possible value.
// Equal (and nil/nil) pairs report false so stable sorts keep input
// order.
func earlierThan(a, b *time.Time) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	return a.Before(*b)
}
