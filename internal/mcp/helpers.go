package mcpserver

import "linkbio/internal/domain"

// blockSummary is the compact block view returned to agents.
type blockSummary struct {
	Position int              `json:"position"`
	ID       string           `json:"id"`
	Kind     domain.BlockKind `json:"kind"`
	Summary  string           `json:"summary"`
}

func summarizeBlocks(blocks []domain.Block) []blockSummary {
	out := make([]blockSummary, len(blocks))
	for i, b := range blocks {
		out[i] = blockSummary{Position: i, ID: b.ID, Kind: b.Kind, Summary: b.Summary()}
	}
	return out
}
