package workbook

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// Registry memoizes workbook styles under string keys so each format is
// created at most once per workbook. Its lifetime is bound to one report
// build; all sheets share the one namespace.
type Registry struct {
	file   *excelize.File
	styles map[string]int
}

func NewRegistry(file *excelize.File) *Registry {
	return &Registry{
		file:   file,
		styles: make(map[string]int),
	}
}

// Get returns the style registered under key, creating it on first use. On a
// cache hit the style argument is ignored entirely. A miss with a nil style
// is a programming error: the caller asked for a format nobody defined.
func (r *Registry) Get(key string, style *excelize.Style) (int, error) {
	if id, ok := r.styles[key]; ok {
		return id, nil
	}
	if style == nil {
		return 0, fmt.Errorf("workbook: format %q is not registered and no attributes were given", key)
	}

	id, err := r.file.NewStyle(style)
	if err != nil {
		return 0, fmt.Errorf("workbook: format %q: %w", key, err)
	}
	log.Debug().Str("key", key).Msg("adding format")
	r.styles[key] = id
	return id, nil
}

// GetNumeric is Get with a synthesized number format: grouped integer part
// always, plus a decimal tail of precision zero-digits and right alignment
// when precision > 0. The pattern is merged into style before creation;
// like Get, everything is ignored on a cache hit.
func (r *Registry) GetNumeric(key string, style *excelize.Style, precision int) (int, error) {
	if id, ok := r.styles[key]; ok {
		return id, nil
	}
	if style == nil {
		style = &excelize.Style{}
	}

	pattern := "#,##0"
	if precision > 0 {
		pattern += "." + strings.Repeat("0", precision)
		style.Alignment = &excelize.Alignment{Horizontal: "right"}
	}
	style.CustomNumFmt = &pattern

	return r.Get(key, style)
}
