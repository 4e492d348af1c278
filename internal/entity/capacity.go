package entity

import (
	"time"
)

type ResourceType string

const (
	ResourceTypeTicket  ResourceType = "ticket"
	ResourceTypeSession ResourceType = "session"
)

// CapacityUpdate - исходящее событие об изменении счетчика или списка участников.
// Доставка best-effort: потребители обязаны уметь перечитать актуальное
// состояние через API, событие никогда не является источником истины.
type CapacityUpdate struct {
	ResourceType   ResourceType `json:"resource_type"`
	ResourceID     int64        `json:"resource_id"`
	EventID        int64        `json:"event_id"`
	Available      int          `json:"available"`
	WaitlistLength int          `json:"waitlist_length"`
	EmittedAt      time.Time    `json:"emitted_at"`
}
