package mirror

import (
	"sort"
	"sync"
)

// Side tells which window a paired tab belongs to.
type Side int

const (
	SideUnknown Side = iota
	SideDesktop
	SideMobile
)

func (s Side) String() string {
	switch s {
	case SideDesktop:
		return "desktop"
	case SideMobile:
		return "mobile"
	default:
		return "unknown"
	}
}

// Pair is one desktop/mobile association.
type Pair struct {
	Desktop TabID
	Mobile  TabID
}

// PairStore is a 1:1 relation between desktop tabs and mobile tabs.
//
// The relation is kept as two indices so that both the partner and the side
// of an id are answered without scanning. It is safe for concurrent use.
type PairStore struct {
	mu        sync.RWMutex
	toMobile  map[TabID]TabID
	toDesktop map[TabID]TabID
}

// NewPairStore creates an empty store.
func NewPairStore() *PairStore {
	return &PairStore{
		toMobile:  make(map[TabID]TabID),
		toDesktop: make(map[TabID]TabID),
	}
}

// AddPair associates a desktop tab with a mobile tab. Existing pairs of
// either id are replaced. The store is left unchanged on error.
func (s *PairStore) AddPair(desktop, mobile TabID) error {
	if !desktop.Valid() {
		return &IdentifierError{Op: "add pair", ID: int(desktop)}
	}
	if !mobile.Valid() {
		return &IdentifierError{Op: "add pair", ID: int(mobile)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(desktop)
	s.removeLocked(mobile)

	s.toMobile[desktop] = mobile
	s.toDesktop[mobile] = desktop
	return nil
}

// CorrespondingTab returns the partner of id. It returns NoTab and
// ErrNoCorrespondingTab when id is not paired.
func (s *PairStore) CorrespondingTab(id TabID) (TabID, error) {
	if !id.Valid() {
		return NoTab, &IdentifierError{Op: "corresponding tab", ID: int(id)}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if peer, ok := s.toMobile[id]; ok {
		return peer, nil
	}
	if peer, ok := s.toDesktop[id]; ok {
		return peer, nil
	}
	return NoTab, ErrNoCorrespondingTab
}

// Contains reports whether id participates in a pair.
func (s *PairStore) Contains(id TabID) bool {
	return s.Side(id) != SideUnknown
}

// IsDesktopTab reports whether id is paired as the desktop side.
func (s *PairStore) IsDesktopTab(id TabID) bool {
	return s.Side(id) == SideDesktop
}

// Side returns which side id was registered on.
func (s *PairStore) Side(id TabID) Side {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.toMobile[id]; ok {
		return SideDesktop
	}
	if _, ok := s.toDesktop[id]; ok {
		return SideMobile
	}
	return SideUnknown
}

// RemoveTabPair drops the pair containing id. Unknown ids are ignored.
func (s *PairStore) RemoveTabPair(id TabID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

func (s *PairStore) removeLocked(id TabID) {
	if peer, ok := s.toMobile[id]; ok {
		delete(s.toMobile, id)
		delete(s.toDesktop, peer)
		return
	}
	if peer, ok := s.toDesktop[id]; ok {
		delete(s.toDesktop, id)
		delete(s.toMobile, peer)
	}
}

// ClearPairings removes every pair.
func (s *PairStore) ClearPairings() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toMobile = make(map[TabID]TabID)
	s.toDesktop = make(map[TabID]TabID)
}

// Len returns the number of pairs.
func (s *PairStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.toMobile)
}

// Pairs returns the current pairs ordered by desktop id.
func (s *PairStore) Pairs() []Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pairs := make([]Pair, 0, len(s.toMobile))
	for desktop, mobile := range s.toMobile {
		pairs = append(pairs, Pair{Desktop: desktop, Mobile: mobile})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Desktop < pairs[j].Desktop
	})
	return pairs
}
