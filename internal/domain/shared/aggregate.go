package shared

// AggregateRoot is an entity whose rows are guarded by an optimistic-lock
// version. Events are built by the services that change an aggregate and go
// straight to the outbox, so the root does not buffer them.
type AggregateRoot interface {
	Entity
	GetVersion() int
}

// BaseAggregateRoot embeds the version column next to the entity columns
type BaseAggregateRoot struct {
	BaseEntity
	Version int `gorm:"not null;default:1"`
}

// GetVersion returns the version the row was read at
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion records a state change: the version moves forward and
// UpdatedAt is refreshed.
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
	a.Touch()
}

// NewBaseAggregateRoot starts a new aggregate at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}
