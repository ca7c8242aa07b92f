// Package session owns the ordered, mutable collection of pages for the
// document currently being scanned. The Manager is the only shared mutable
// state in the pipeline: mutations are serialized behind a write lock while
// snapshots take a consistent point-in-time copy under a read lock.
package session

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/scanforge/scanforge/internal/common"
	"github.com/scanforge/scanforge/internal/model"
)

// ThumbnailWidth is the pixel width of generated page thumbnails.
const ThumbnailWidth = 160

// Manager is the single-writer/multi-reader aggregate for the active
// session.
type Manager struct {
	mu     sync.RWMutex
	meta   model.Session
	pages  []model.Page
	nextID int64
}

// New starts an empty session with the given defaults.
func New(profile string, format model.Format) *Manager {
	return &Manager{
		meta: model.Session{
			ID:        uuid.NewString(),
			CreatedAt: time.Now(),
			State:     model.SessionEmpty,
			Profile:   profile,
			Format:    format,
		},
		nextID: 1,
	}
}

// Load rehydrates a manager from persisted state. Page ids keep their
// stored values; new ids continue above the largest seen.
func Load(meta model.Session, pages []model.Page) *Manager {
	m := &Manager{meta: meta, nextID: 1}
	m.pages = make([]model.Page, len(pages))
	for i, p := range pages {
		m.pages[i] = p.Clone()
		if p.ID >= m.nextID {
			m.nextID = p.ID + 1
		}
	}
	sortByOrdinal(m.pages)
	renumber(m.pages)
	return m
}

// Meta returns a copy of the session metadata.
func (m *Manager) Meta() model.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meta
}

// Len returns the current page count.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pages)
}

// AddPage encodes the rectified page, assigns the next ordinal and a fresh
// stable id, and appends it to the session.
func (m *Manager) AddPage(page *model.RectifiedPage, profileName string) (model.Page, error) {
	encoded, thumb, err := encodePage(page.Pixels)
	if err != nil {
		return model.Page{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.meta.State == model.SessionExported {
		return model.Page{}, common.ErrSessionExported
	}

	p := model.Page{
		ID:         m.nextID,
		Ordinal:    len(m.pages),
		Image:      encoded,
		Thumbnail:  thumb,
		Profile:    profileName,
		SourceQuad: page.SourceQuad,
		CapturedAt: page.CapturedAt,
	}
	m.nextID++
	m.pages = append(m.pages, p)
	m.meta.State = model.SessionActive
	return p.Clone(), nil
}

// Retake replaces the raster of an existing page in place. Ordinal and id
// are unchanged.
func (m *Manager) Retake(pageID int64, page *model.RectifiedPage, profileName string) (model.Page, error) {
	encoded, thumb, err := encodePage(page.Pixels)
	if err != nil {
		return model.Page{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.meta.State == model.SessionExported {
		return model.Page{}, common.ErrSessionExported
	}
	i := m.indexOf(pageID)
	if i < 0 {
		return model.Page{}, fmt.Errorf("%w: %d", common.ErrUnknownPage, pageID)
	}
	m.pages[i].Image = encoded
	m.pages[i].Thumbnail = thumb
	m.pages[i].Profile = profileName
	m.pages[i].SourceQuad = page.SourceQuad
	m.pages[i].CapturedAt = page.CapturedAt
	return m.pages[i].Clone(), nil
}

// Reorder moves the page to the requested ordinal; every other ordinal
// shifts so the sequence stays a dense 0..N-1 permutation.
func (m *Manager) Reorder(pageID int64, newOrdinal int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.meta.State == model.SessionExported {
		return common.ErrSessionExported
	}
	if newOrdinal < 0 || newOrdinal >= len(m.pages) {
		return fmt.Errorf("%w: %d not in [0,%d]", common.ErrInvalidOrdinal, newOrdinal, len(m.pages)-1)
	}
	i := m.indexOf(pageID)
	if i < 0 {
		return fmt.Errorf("%w: %d", common.ErrUnknownPage, pageID)
	}

	moved := m.pages[i]
	m.pages = append(m.pages[:i], m.pages[i+1:]...)
	m.pages = append(m.pages[:newOrdinal], append([]model.Page{moved}, m.pages[newOrdinal:]...)...)
	renumber(m.pages)
	return nil
}

// Delete removes the page; subsequent ordinals compact to leave no gaps.
func (m *Manager) Delete(pageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.meta.State == model.SessionExported {
		return common.ErrSessionExported
	}
	i := m.indexOf(pageID)
	if i < 0 {
		return fmt.Errorf("%w: %d", common.ErrUnknownPage, pageID)
	}
	m.pages = append(m.pages[:i], m.pages[i+1:]...)
	renumber(m.pages)
	if len(m.pages) == 0 {
		m.meta.State = model.SessionEmpty
	}
	return nil
}

// Snapshot returns a deep, ordered copy of the pages. The copy never shares
// mutable state with the live session, so exports see a fixed view.
func (m *Manager) Snapshot() []model.Page {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Page, len(m.pages))
	for i, p := range m.pages {
		out[i] = p.Clone()
	}
	return out
}

// MarkExported moves the session to its terminal state.
func (m *Manager) MarkExported() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pages) == 0 {
		return common.ErrSessionEmpty
	}
	m.meta.State = model.SessionExported
	return nil
}

func (m *Manager) indexOf(pageID int64) int {
	for i, p := range m.pages {
		if p.ID == pageID {
			return i
		}
	}
	return -1
}

func renumber(pages []model.Page) {
	for i := range pages {
		pages[i].Ordinal = i
	}
}

func sortByOrdinal(pages []model.Page) {
	for i := 1; i < len(pages); i++ {
		for j := i; j > 0 && pages[j].Ordinal < pages[j-1].Ordinal; j-- {
			pages[j], pages[j-1] = pages[j-1], pages[j]
		}
	}
}

// encodePage produces the PNG bytes and thumbnail stored on a Page.
func encodePage(img *image.RGBA) (pageBytes, thumbBytes []byte, err error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, nil, fmt.Errorf("%w: page png: %v", common.ErrEncode, err)
	}

	b := img.Bounds()
	th := b.Dy() * ThumbnailWidth / max(b.Dx(), 1)
	th = max(th, 1)
	thumb := image.NewRGBA(image.Rect(0, 0, ThumbnailWidth, th))
	draw.ApproxBiLinear.Scale(thumb, thumb.Bounds(), img, b, draw.Src, nil)

	var tbuf bytes.Buffer
	if err := png.Encode(&tbuf, thumb); err != nil {
		return nil, nil, fmt.Errorf("%w: thumbnail png: %v", common.ErrEncode, err)
	}
	return buf.Bytes(), tbuf.Bytes(), nil
}
