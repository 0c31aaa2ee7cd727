package parser

import "github.com/maltedev/snowboard-monitor/internal/models"

func (p *ListingParser) extractCategory(name string) Field[string] {
	if category, ok := p.categories.Match(name); ok {
		return found(category)
	}
	return Field[string]{Value: models.DefaultCategory}
}
