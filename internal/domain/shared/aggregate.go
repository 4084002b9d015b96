package shared

// AggregateRoot is an Entity that carries an optimistic-lock version and
// buffers domain events until the application layer publishes them.
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot embeds BaseEntity and adds versioning plus an
// in-memory event buffer. The buffer is never persisted.
type BaseAggregateRoot struct {
	BaseEntity
	Version       int           `gorm:"not null;default:1"`
	pendingEvents []DomainEvent `gorm:"-"`
}

var _ AggregateRoot = (*BaseAggregateRoot)(nil)

// NewBaseAggregateRoot returns an aggregate at version 1 with an empty
// event buffer.
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:    NewBaseEntity(),
		Version:       1,
		pendingEvents: make([]DomainEvent, 0),
	}
}

// GetVersion returns the optimistic-lock version
func (a *BaseAggregateRoot) GetVersion() int { return a.Version }

// IncrementVersion bumps the version; call on every state mutation
func (a *BaseAggregateRoot) IncrementVersion() { a.Version++ }

// AddDomainEvent buffers an event for publication after persistence
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pendingEvents = append(a.pendingEvents, event)
}

// GetDomainEvents returns the buffered events in the order they were raised
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent { return a.pendingEvents }

// ClearDomainEvents drops the buffer, typically after publishing
func (a *BaseAggregateRoot) ClearDomainEvents() { a.pendingEvents = nil }
