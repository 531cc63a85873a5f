package model

import "time"

type SettlementSource string

const (
	SourceTaskArchive SettlementSource = "task_archive"
	SourceGameScore   SettlementSource = "game_score"
)

// Settlement is one credit applied to an owner's rocks balance.
type Settlement struct {
	ID        string           `json:"id"`
	OwnerKind OwnerKind        `json:"ownerKind"`
	OwnerID   string           `json:"ownerId"`
	TaskID    *string          `json:"taskId"`
	Amount    int              `json:"amount"`
	Source    SettlementSource `json:"source"`
	CreatedAt time.Time        `json:"createdAt"`
}

type Balance struct {
	Owner OwnerRef `json:"owner"`
	Rocks int      `json:"rocks"`
}
