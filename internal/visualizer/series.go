package visualizer

import (
	"fmt"
	"sync"
)

// Series holds fetched points plus the visible window [start, end).
// While the window's end sits at the newest point it follows new points,
// keeping its width; once moved away from the tail it stays put. Until a
// view is chosen the window grows up to the default width first.
// Only the newest keepFactor*width points are retained.
type Series struct {
	mu     sync.RWMutex
	points []Point
	width  int
	keep   int
	start  int
	end    int
	chosen bool
}

const keepFactor = 4

func NewSeries(width int) *Series {
	if width <= 0 {
		width = 1
	}
	return &Series{width: width, keep: keepFactor * width}
}

// Load replaces the points and shows the newest width of them.
func (s *Series) Load(points []Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = append(s.points[:0], points...)
	s.end = len(s.points)
	s.start = max(0, s.end-s.width)
	s.chosen = false
}

// Append adds p if it is newer than the last point. It reports whether p
// was added.
func (s *Series) Append(p Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.points); n > 0 && !p.Time.After(s.points[n-1].Time) {
		return false
	}
	pinned := s.end == len(s.points)
	w := s.end - s.start
	s.points = append(s.points, p)
	if pinned {
		if !s.chosen && w < s.width {
			w++
		}
		s.end = len(s.points)
		s.start = s.end - w
	}
	s.trim()
	return true
}

// trim drops the oldest points once more than keep are held, or more than
// the window if that is wider, shifting the window with them. A window that
// falls off the front is clamped to it.
func (s *Series) trim() {
	drop := len(s.points) - max(s.keep, s.end-s.start)
	if drop <= 0 {
		return
	}
	n := copy(s.points, s.points[drop:])
	clear(s.points[n:])
	s.points = s.points[:n]
	s.start = max(0, s.start-drop)
	s.end = max(s.start+1, s.end-drop)
}

// SetView moves the visible window. end == Len() pins it to the tail.
func (s *Series) SetView(start, end int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if start < 0 || end > len(s.points) || start >= end {
		return fmt.Errorf("view [%d, %d) outside [0, %d)", start, end, len(s.points))
	}
	s.start, s.end = start, end
	s.chosen = true
	return nil
}

// View is a copy of the visible points and the window bounds.
type View struct {
	Points []Point `json:"points"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Total  int     `json:"total"`
	Pinned bool    `json:"pinned"`
}

func (s *Series) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{
		Points: append([]Point(nil), s.points[s.start:s.end]...),
		Start:  s.start,
		End:    s.end,
		Total:  len(s.points),
		Pinned: s.end == len(s.points),
	}
}

func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

func (s *Series) Last() (Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.points) == 0 {
		return Point{}, false
	}
	return s.points[len(s.points)-1], true
}
