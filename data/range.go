package data

import "fmt"

// BytesRange is a byte range in HTTP Range header semantics. Size zero or
// negative means "to the end of the entity".
type BytesRange struct {
	Offset int64
	Size   int64
}

// Header renders the range as an HTTP Range header value.
func (r BytesRange) Header() string {
	if r.Size <= 0 {
		return fmt.Sprintf("bytes=%d-", r.Offset)
	}
	return fmt.Sprintf("bytes=%d-%d", r.Offset, r.Offset+r.Size-1)
}

func (r BytesRange) String() string {
	return r.Header()
}
