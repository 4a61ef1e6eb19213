package engine

import "prospector/models"

// KanbanLimit caps how many recent drafts the board view pulls.
const KanbanLimit = 100

// KanbanBoard is the column layout of the board view. Columns keep the
// newest-first order of their input.
type KanbanBoard struct {
	Pending []models.Draft `json:"pending"`
	Sent    []models.Draft `json:"sent"`
	Replied []models.Draft `json:"replied"`
	Bounced []models.Draft `json:"bounced"`
}

// BuildKanban buckets drafts into board columns. Pending drafts fill the
// pending column; sent drafts land in bounced when a bounce was recorded,
// in replied when a reply came in, and in sent otherwise. A bounce wins
// over a reply. Drafts in any other status have no column.
func BuildKanban(drafts []models.Draft) KanbanBoard {
	board := KanbanBoard{
		Pending: []models.Draft{},
		Sent:    []models.Draft{},
		Replied: []models.Draft{},
		Bounced: []models.Draft{},
	}
	for _, d := range drafts {
		switch d.Status {
		case models.DraftStatusPending:
			board.Pending = append(board.Pending, d)
		case models.DraftStatusSent:
			switch {
			case d.HasBounce:
				board.Bounced = append(board.Bounced, d)
			case d.HasReply:
				board.Replied = append(board.Replied, d)
			default:
				board.Sent = append(board.Sent, d)
			}
		}
	}
	return board
}
