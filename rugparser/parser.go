package rugparser

import (
	"context"
	"fmt"

	"github.com/giygas/rug-formats/interfaces"
	"github.com/giygas/rug-formats/rugparser/entities"
)

// Compile-time check to ensure RUGParser implements Parser interface
var _ interfaces.Parser = (*RUGParser)(nil)

// RUGParser implements the Parser interface on top of a Downloader
type RUGParser struct {
	downloader *Downloader
}

// NewRUGParser creates a new RUGParser instance
func NewRUGParser(downloader *Downloader) *RUGParser {
	return &RUGParser{downloader: downloader}
}

// ParseAllRecords implements the Parser interface
func (p *RUGParser) ParseAllRecords(ctx context.Context) ([]entities.RUGRecord, error) {
	source, err := p.downloader.FetchRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch crosswalk: %w", err)
	}
	return ClassifyAll(source), nil
}
