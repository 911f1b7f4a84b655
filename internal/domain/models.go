// Package domain defines the core domain models for the session backend.
package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// FlexID is an identifier that clients may send as either a JSON string or a
// JSON number. The front-end synthesizes numeric message ids when the source
// transcript carries none.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string { return string(f) }

// Message is a single entry in a session's conversation log.
type Message struct {
	ID        FlexID    `json:"id,omitempty"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Key returns the identity used for message diffing: the id when present,
// otherwise the (sender, text) pair.
func (m Message) Key() string {
	if m.ID != "" {
		return "id\x00" + string(m.ID)
	}
	return "st\x00" + m.Sender + "\x00" + m.Text
}

// Node is a single node in a graph snapshot, identified by id alone.
type Node struct {
	ID    string          `json:"id"`
	Type  string          `json:"type,omitempty"`
	Attrs json.RawMessage `json:"attrs,omitempty"`
}

// Link is a directed edge in a graph snapshot. Two links between the same
// node pair with different types are distinct edges.
type Link struct {
	SourceID string          `json:"source_id"`
	TargetID string          `json:"target_id"`
	Type     string          `json:"type,omitempty"`
	Attrs    json.RawMessage `json:"attrs,omitempty"`
}

// Key returns the identity tuple of a link.
func (l Link) Key() string {
	return l.SourceID + "\x00" + l.TargetID + "\x00" + l.Type
}

// GraphData is a snapshot of the graph associated with a session.
type GraphData struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Session is a persisted snapshot of a conversation log plus its graph.
// Within a lineage only the current version is mutable; prior versions are
// frozen once superseded.
type Session struct {
	SessionID      string    `json:"session_id"`
	LineageID      string    `json:"lineage_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
	TranscriptID   string    `json:"transcript_id,omitempty"`
	Messages       []Message `json:"messages"`
	GraphData      GraphData `json:"graph_data"`
	Version        int       `json:"version"`
	IsCurrent      bool      `json:"is_current"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SessionSummary is a listing row: session metadata without the message and
// graph payloads.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	LineageID    string    `json:"lineage_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Version      int       `json:"version"`
	IsCurrent    bool      `json:"is_current"`
	MessageCount int       `json:"message_count"`
	NodeCount    int       `json:"node_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionPatch carries the mutable fields of an update request. Nil fields
// are left unchanged.
type SessionPatch struct {
	Name           *string    `json:"name,omitempty"`
	Description    *string    `json:"description,omitempty"`
	ConversationID *string    `json:"conversation_id,omitempty"`
	TranscriptID   *string    `json:"transcript_id,omitempty"`
	Messages       *[]Message `json:"messages,omitempty"`
	GraphData      *GraphData `json:"graph_data,omitempty"`
}

// VersionInfo is one entry of a lineage's version history.
type VersionInfo struct {
	SessionID string    `json:"session_id"`
	Version   int       `json:"version"`
	IsCurrent bool      `json:"is_current"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRef is a light reference used in comparison results.
type SessionRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GraphDiff reports structural graph differences with the first graph as
// baseline: "added" means present only in the second graph.
type GraphDiff struct {
	NodesAdded   []Node `json:"nodes_added"`
	NodesRemoved []Node `json:"nodes_removed"`
	LinksAdded   []Link `json:"links_added"`
	LinksRemoved []Link `json:"links_removed"`
}

// Empty reports whether the diff contains no changes.
func (d GraphDiff) Empty() bool {
	return len(d.NodesAdded) == 0 && len(d.NodesRemoved) == 0 &&
		len(d.LinksAdded) == 0 && len(d.LinksRemoved) == 0
}

// ComparisonResult is the output of comparing two sessions. It is computed
// on demand and never persisted.
type ComparisonResult struct {
	Session1         SessionRef `json:"session1"`
	Session2         SessionRef `json:"session2"`
	SimilarityScore  float64    `json:"similarity_score"`
	MessagesOnlyIn1  []Message  `json:"messages_only_in_1"`
	MessagesOnlyIn2  []Message  `json:"messages_only_in_2"`
	GraphDifferences GraphDiff  `json:"graph_differences"`
}

// ViewType classifies a saved custom view.
type ViewType string

const (
	ViewTypeCustom         ViewType = "custom"
	ViewTypeStakeholder    ViewType = "stakeholder"
	ViewTypeDependency     ViewType = "dependency"
	ViewTypeFeatureCluster ViewType = "feature_cluster"
	ViewTypeTimeline       ViewType = "timeline"
)

// CustomView is a saved graph view configuration. The back-end treats it as
// opaque key-value data; layout and filtering semantics live in the client.
type CustomView struct {
	ViewID        string          `json:"view_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	ViewType      ViewType        `json:"view_type"`
	Filters       json.RawMessage `json:"filters,omitempty"`
	LayoutConfig  json.RawMessage `json:"layout_config,omitempty"`
	ActiveFilters map[string]bool `json:"active_filters,omitempty"`
	NodePositions json.RawMessage `json:"node_positions,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ExportFormat selects the serialization of a session export.
type ExportFormat string

const (
	ExportFormatJSON     ExportFormat = "json"
	ExportFormatMarkdown ExportFormat = "markdown"
)

// Export is the envelope returned by the export endpoint.
type Export struct {
	Format      ExportFormat `json:"format"`
	ContentType string       `json:"content_type"`
	Data        any          `json:"data"`
}

// FormatVersion renders a version number the way the UI displays it.
func FormatVersion(v int) string { return "v" + strconv.Itoa(v) }
