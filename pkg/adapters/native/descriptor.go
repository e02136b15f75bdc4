package native

import "sort"

// ArgKind is how a host argument is lowered to a machine word.
type ArgKind int

const (
	// ArgText is a plain C string (aggregate type, id, event type).
	ArgText ArgKind = iota
	// ArgJSON is a value encoded by the codec and passed as a C string.
	// Absent values are sent as the literal null.
	ArgJSON
	// ArgBool is passed as 0 or 1.
	ArgBool
	// ArgUint64 is passed as a full 64-bit word.
	ArgUint64
)

func (k ArgKind) String() string {
	switch k {
	case ArgText:
		return "text"
	case ArgJSON:
		return "json"
	case ArgBool:
		return "bool"
	case ArgUint64:
		return "uint64"
	}
	return "unknown"
}

// Operation describes one native entry point. Every entry point takes the
// connection handle first and the error slot last; Args lists what sits in
// between, in order.
type Operation struct {
	Name   string
	Symbol string
	Args   []ArgKind
}

// Operation names, as reported in errors and logs.
const (
	OpListAggregates  = "list_aggregates"
	OpGetAggregate    = "get_aggregate"
	OpSelectAggregate = "select_aggregate"
	OpListEvents      = "list_events"
	OpAppendEvent     = "append_event"
	OpCreateAggregate = "create_aggregate"
	OpPatchEvent      = "patch_event"
	OpSetArchive      = "set_archive"
	OpVerifyAggregate = "verify_aggregate"
	OpCreateSnapshot  = "create_snapshot"
	OpListSnapshots   = "list_snapshots"
	OpGetSnapshot     = "get_snapshot"

	// OpClientNew names the constructor in errors.
	OpClientNew = "client_new"
)

// Lifecycle symbols every artifact must export.
const (
	symClientNew  = "dbx_client_new"
	symClientFree = "dbx_client_free"
	symStringFree = "dbx_string_free"
)

// operations is built once at package initialization and never mutated, so
// it is shared read-only by every client in the process.
var operations = map[string]Operation{
	OpListAggregates:  {OpListAggregates, "dbx_list_aggregates", []ArgKind{ArgText, ArgJSON}},
	OpGetAggregate:    {OpGetAggregate, "dbx_get_aggregate", []ArgKind{ArgText, ArgText}},
	OpSelectAggregate: {OpSelectAggregate, "dbx_select_aggregate", []ArgKind{ArgText, ArgText, ArgJSON}},
	OpListEvents:      {OpListEvents, "dbx_list_events", []ArgKind{ArgText, ArgText, ArgJSON}},
	OpAppendEvent:     {OpAppendEvent, "dbx_append_event", []ArgKind{ArgText, ArgText, ArgText, ArgJSON}},
	OpCreateAggregate: {OpCreateAggregate, "dbx_create_aggregate", []ArgKind{ArgText, ArgText, ArgText, ArgJSON}},
	OpPatchEvent:      {OpPatchEvent, "dbx_patch_event", []ArgKind{ArgText, ArgText, ArgText, ArgJSON, ArgJSON}},
	OpSetArchive:      {OpSetArchive, "dbx_set_archive", []ArgKind{ArgText, ArgText, ArgBool, ArgJSON}},
	OpVerifyAggregate: {OpVerifyAggregate, "dbx_verify_aggregate", []ArgKind{ArgText, ArgText}},
	OpCreateSnapshot:  {OpCreateSnapshot, "dbx_create_snapshot", []ArgKind{ArgText, ArgText, ArgJSON}},
	OpListSnapshots:   {OpListSnapshots, "dbx_list_snapshots", []ArgKind{ArgJSON}},
	OpGetSnapshot:     {OpGetSnapshot, "dbx_get_snapshot", []ArgKind{ArgUint64, ArgJSON}},
}

// Operations returns the descriptor table sorted by name.
func Operations() []Operation {
	ops := make([]Operation, 0, len(operations))
	for _, op := range operations {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops
}
