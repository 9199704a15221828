// Package realtime carries typed change events from the write path to
// subscribed clients. Events name the entity, its id, and the operation,
// so consumers can patch state instead of blind-refetching everything.
package realtime

// EntityType names the kind of record a change event is about.
type EntityType string

const (
	EntityPlan        EntityType = "plan"
	EntityParticipant EntityType = "participant"
	EntityProfile     EntityType = "profile"
	EntityGroup       EntityType = "group"
)

// ValidEntity reports whether e is a subscribable entity type.
func ValidEntity(e EntityType) bool {
	switch e {
	case EntityPlan, EntityParticipant, EntityProfile, EntityGroup:
		return true
	}
	return false
}

// Operation names what happened to the entity.
type Operation string

const (
	OpCreated Operation = "created"
	OpUpdated Operation = "updated"
)

// ChangeEvent is one typed change notification. For participant events
// the ID is the owning plan's id, so one subscription covers a whole
// plan's rows.
type ChangeEvent struct {
	Entity EntityType `json:"entity"`
	ID     string     `json:"id"`
	Op     Operation  `json:"op"`
}
