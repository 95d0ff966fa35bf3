// Package stream reassembles a chat model's incremental output into
// final text and proposed tool calls. It is provider-agnostic: adapters
// map a vendor's wire events onto Chunk and the rest of the pipeline
// never sees vendor shapes.
package stream

// ContentBlock is one typed fragment inside a chunk. Only text blocks
// contribute to the reconstructed output; unknown types are ignored.
type ContentBlock struct {
	Type string
	Text string
}

// ToolCallDelta is a partial tool-call fragment tagged with the index
// of the call it belongs to. ID and Name may arrive on any fragment;
// ArgsFragment carries a raw slice of the arguments JSON, split at
// arbitrary byte boundaries.
type ToolCallDelta struct {
	Index        int
	ID           string
	Name         string
	ArgsFragment string
}

// Usage is the terminal metadata chunk.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Chunk is one increment of a model's streamed response. Any field may
// be zero; a single chunk can carry text and tool fragments at once.
type Chunk struct {
	Text       string
	Blocks     []ContentBlock
	ToolDeltas []ToolCallDelta
	Usage      *Usage
}
