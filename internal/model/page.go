package model

import "time"

// Page is the unit stored in a session: a PNG-encoded rectified page plus a
// small thumbnail. Pages are owned exclusively by the session manager and
// mutated only through its operations.
type Page struct {
	CapturedAt time.Time
	Profile    string
	Image      []byte
	Thumbnail  []byte
	SourceQuad Quadrilateral
	ID         int64
	Ordinal    int
}

// Clone returns a deep copy so snapshots never share byte slices with the
// live session.
func (p Page) Clone() Page {
	out := p
	out.Image = append([]byte(nil), p.Image...)
	out.Thumbnail = append([]byte(nil), p.Thumbnail...)
	return out
}
