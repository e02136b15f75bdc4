// Package core holds the types shared by every layer of the bridge: the
// connection configuration, the option bags each operation accepts, the
// response envelope and the error taxonomy.
package core

import (
	"fmt"
	"strings"
)

// Config is handed to the native constructor as an opaque JSON object.
// The bridge never interprets these keys; the native library applies its own
// defaults (including environment fallbacks) for anything left empty.
type Config struct {
	Host             string `json:"host,omitempty"`
	IP               string `json:"ip,omitempty"`
	Port             uint16 `json:"port,omitempty"`
	Token            string `json:"token,omitempty"`
	TenantID         string `json:"tenantId,omitempty"`
	NoNoise          bool   `json:"noNoise,omitempty"`
	ConnectTimeoutMs uint64 `json:"connectTimeoutMs,omitempty"`
	RequestTimeoutMs uint64 `json:"requestTimeoutMs,omitempty"`
	ProtocolVersion  uint16 `json:"protocolVersion,omitempty"`
}

// PublishTarget routes an appended event to a native plugin.
type PublishTarget struct {
	Plugin   string `json:"plugin"`
	Mode     string `json:"mode,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// ListAggregatesOptions narrows a ListAggregates call.
type ListAggregatesOptions struct {
	Cursor          string `json:"cursor,omitempty"`
	Take            uint64 `json:"take,omitempty"`
	Filter          string `json:"filter,omitempty"`
	IncludeArchived bool   `json:"includeArchived,omitempty"`
	ArchivedOnly    bool   `json:"archivedOnly,omitempty"`
	Token           string `json:"token,omitempty"`
	// Sort is a comma separated list of field:direction pairs, see SortSpec.
	Sort string `json:"sort,omitempty"`
}

// ListEventsOptions narrows a ListEvents call.
type ListEventsOptions struct {
	Cursor string `json:"cursor,omitempty"`
	Take   uint64 `json:"take,omitempty"`
	Filter string `json:"filter,omitempty"`
	Token  string `json:"token,omitempty"`
}

// PayloadOptions carries the body of an append, create or patch call.
// Payload is ignored by PatchEvent, which takes its patch document separately.
type PayloadOptions struct {
	Payload        any             `json:"payload,omitempty"`
	Metadata       any             `json:"metadata,omitempty"`
	Note           string          `json:"note,omitempty"`
	Token          string          `json:"token,omitempty"`
	PublishTargets []PublishTarget `json:"publishTargets,omitempty"`
}

// ArchiveOptions annotates an archive or restore.
type ArchiveOptions struct {
	Note  string `json:"note,omitempty"`
	Token string `json:"token,omitempty"`
}

// SnapshotOptions is forwarded verbatim to the snapshot entry points.
type SnapshotOptions map[string]any

// SortField names a column the native side can order aggregates by.
type SortField string

const (
	SortAggregateType SortField = "aggregate_type"
	SortAggregateID   SortField = "aggregate_id"
	SortArchived      SortField = "archived"
	SortCreatedAt     SortField = "created_at"
	SortUpdatedAt     SortField = "updated_at"
)

// SortKey is a single ordering clause.
type SortKey struct {
	Field      SortField
	Descending bool
}

// SortSpec renders keys in the "field:asc,field:desc" form accepted by
// ListAggregatesOptions.Sort.
func SortSpec(keys ...SortKey) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		dir := "asc"
		if k.Descending {
			dir = "desc"
		}
		parts = append(parts, fmt.Sprintf("%s:%s", k.Field, dir))
	}
	return strings.Join(parts, ",")
}
