package pagination

const (
	// DefaultPage is the first page; pages are 1-indexed.
	DefaultPage = 1
	// DefaultSize is the standard page size when one is not provided.
	DefaultSize = 10
	// MaxSize caps how many rows any page query can request.
	MaxSize = 1000
)

// Params holds page/size pagination inputs from controllers or services.
type Params struct {
	Page int
	Size int
}

// Default returns the canonical first-page parameters.
func Default() Params {
	return Params{Page: DefaultPage, Size: DefaultSize}
}

// Offset converts the 1-indexed page into a row offset.
func (p Params) Offset() int {
	if p.Page < 1 || p.Size < 1 {
		return 0
	}
	return (p.Page - 1) * p.Size
}

// IsValid reports whether both inputs are positive.
func (p Params) IsValid() bool {
	return p.Page >= 1 && p.Size >= 1
}

// TotalPages returns ceil(totalCount/size); zero matches means zero pages.
func TotalPages(totalCount int64, size int) int {
	if size <= 0 {
		return 0
	}
	pages := totalCount / int64(size)
	if totalCount%int64(size) > 0 {
		pages++
	}
	return int(pages)
}
