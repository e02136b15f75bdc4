package core

// Engine is the contract of an eventdbx connection. The native bridge is the
// production implementation; typed views and the event poller depend only on
// this interface.
//
// Every method is a blocking call. Implementations are not required to be
// safe for concurrent use.
type Engine interface {
	ListAggregates(aggregateType string, opts *ListAggregatesOptions) (*Response, error)
	GetAggregate(aggregateType, aggregateID string) (*Response, error)
	// SelectAggregate projects the named fields; nil fields selects everything.
	SelectAggregate(aggregateType, aggregateID string, fields []string) (*Response, error)
	ListEvents(aggregateType, aggregateID string, opts *ListEventsOptions) (*Response, error)
	AppendEvent(aggregateType, aggregateID, eventType string, opts *PayloadOptions) (*Response, error)
	CreateAggregate(aggregateType, aggregateID, eventType string, opts *PayloadOptions) (*Response, error)
	// PatchEvent applies patch (typically an RFC 6902 document) to the
	// payload of the latest eventType event.
	PatchEvent(aggregateType, aggregateID, eventType string, patch any, opts *PayloadOptions) (*Response, error)
	SetArchive(aggregateType, aggregateID string, archived bool, opts *ArchiveOptions) (*Response, error)
	VerifyAggregate(aggregateType, aggregateID string) (*Response, error)
	CreateSnapshot(aggregateType, aggregateID string, opts SnapshotOptions) (*Response, error)
	ListSnapshots(opts SnapshotOptions) (*Response, error)
	GetSnapshot(snapshotID uint64, opts SnapshotOptions) (*Response, error)

	// Close releases the connection. It is safe to call more than once.
	Close() error
}
