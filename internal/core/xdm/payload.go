package xdm

import (
	v1 "github.com/aevon-lab/profile-relay/internal/api/v1"
)

// ContentType identifies full XDM documents in schema references.
const ContentType = "application/vnd.adobe.xed-full+json;version=1"

type SchemaRef struct {
	ID          string `json:"id"`
	ContentType string `json:"contentType"`
}

// Header routes a message to its dataset and dataflow.
type Header struct {
	SchemaRef SchemaRef `json:"schemaRef"`
	ImsOrgID  string    `json:"imsOrgId"`
	DatasetID string    `json:"datasetId"`
	FlowID    string    `json:"flowId"`
}

type XdmMeta struct {
	SchemaRef SchemaRef `json:"schemaRef"`
}

type Body struct {
	XdmMeta   XdmMeta `json:"xdmMeta"`
	XdmEntity Entity  `json:"xdmEntity"`
}

// Message is one streaming ingestion message, the per-event unit of a batch.
type Message struct {
	Header Header `json:"header"`
	Body   Body   `json:"body"`
}

// Target identifies where messages land in the partner platform.
type Target struct {
	OrgID      string
	SchemaID   string
	DatasetID  string
	DataflowID string
}

// Builder turns input events into messages for one payload kind.
type Builder struct {
	kind     Kind
	strategy Strategy
	target   Target
}

// NewBuilder resolves the strategy for kind. It fails only when the kind is
// not registered.
func NewBuilder(reg *Registry, kind Kind, target Target) (*Builder, error) {
	s, err := reg.Lookup(kind)
	if err != nil {
		return nil, err
	}
	return &Builder{kind: kind, strategy: s, target: target}, nil
}

// Kind returns the payload kind this builder produces.
func (b *Builder) Kind() Kind { return b.kind }

// Entity maps, defaults and prunes the XDM entity for one event.
func (b *Builder) Entity(evt *v1.Event) Entity {
	e := b.strategy.Mapping.Build(Properties(evt.Properties))
	e = ApplyDefaults(e, b.strategy.Defaults)
	Prune(e)
	return e
}

// Build produces the full message for one event. Missing or malformed
// properties never fail the build.
func (b *Builder) Build(evt *v1.Event) Message {
	ref := SchemaRef{ID: b.target.SchemaID, ContentType: ContentType}
	return Message{
		Header: Header{
			SchemaRef: ref,
			ImsOrgID:  b.target.OrgID,
			DatasetID: b.target.DatasetID,
			FlowID:    b.target.DataflowID,
		},
		Body: Body{
			XdmMeta:   XdmMeta{SchemaRef: ref},
			XdmEntity: b.Entity(evt),
		},
	}
}

// BuildAll builds one message per event. messages[i] always corresponds to batch[i].
func (b *Builder) BuildAll(batch v1.Batch) []Message {
	messages := make([]Message, len(batch))
	for i := range batch {
		messages[i] = b.Build(&batch[i])
	}
	return messages
}
