package presenter

import (
	"errors"
	"sort"
	"sync"
)

var errStoreRequired = errors.New("presenter: store is required")

// MarkerList is a class-list-like marker surface: an unordered set
// that, unlike PageState, can hold any number of markers at once. The
// presenter is what imposes exclusivity on top of it.
type MarkerList struct {
	mu      sync.Mutex
	markers map[string]struct{}
}

func NewMarkerList() *MarkerList {
	return &MarkerList{markers: map[string]struct{}{}}
}

func (l *MarkerList) AddMarker(marker string) {
	if l == nil || marker == "" {
		return
	}
	l.mu.Lock()
	l.markers[marker] = struct{}{}
	l.mu.Unlock()
}

func (l *MarkerList) RemoveMarker(marker string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.markers, marker)
	l.mu.Unlock()
}

// Active returns the present markers in stable order.
func (l *MarkerList) Active() []string {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.markers))
	for marker := range l.markers {
		out = append(out, marker)
	}
	sort.Strings(out)
	return out
}
