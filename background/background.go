package background

import (
	"sync"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("background")

// Listener receives process lifecycle transitions. Calls are synchronous and
// must not block.
type Listener interface {
	WillEnterForeground()
	DidEnterBackground()
}

type Manager struct {
	lk           sync.Mutex
	listeners    map[uint64]Listener
	order        []uint64
	nextID       uint64
	inBackground bool
}

func NewManager() *Manager {
	return &Manager{
		listeners: make(map[uint64]Listener),
	}
}

// RegisterListener adds l and returns the function that removes it again.
func (m *Manager) RegisterListener(l Listener) func() {
	m.lk.Lock()
	defer m.lk.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.order = append(m.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { m.unregister(id) })
	}
}

// UnregisterListener removes every registration of l.
func (m *Manager) UnregisterListener(l Listener) {
	m.lk.Lock()
	defer m.lk.Unlock()

	for id, listener := range m.listeners {
		if listener == l {
			m.removeLocked(id)
		}
	}
}

func (m *Manager) unregister(id uint64) {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.removeLocked(id)
}

func (m *Manager) removeLocked(id uint64) {
	if _, ok := m.listeners[id]; !ok {
		return
	}
	delete(m.listeners, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Manager) WillEnterForeground() {
	listeners := m.transition(false)
	log.Infof("enter foreground, notify %d listeners", len(listeners))
	for _, l := range listeners {
		l.WillEnterForeground()
	}
}

func (m *Manager) DidEnterBackground() {
	listeners := m.transition(true)
	log.Infof("enter background, notify %d listeners", len(listeners))
	for _, l := range listeners {
		l.DidEnterBackground()
	}
}

func (m *Manager) InBackground() bool {
	m.lk.Lock()
	defer m.lk.Unlock()
	return m.inBackground
}

func (m *Manager) ListenerCount() int {
	m.lk.Lock()
	defer m.lk.Unlock()
	return len(m.listeners)
}

// transition records the new state and snapshots the listeners so callbacks
// run without the lock held.
func (m *Manager) transition(background bool) []Listener {
	m.lk.Lock()
	defer m.lk.Unlock()

	m.inBackground = background
	listeners := make([]Listener, 0, len(m.order))
	for _, id := range m.order {
		listeners = append(listeners, m.listeners[id])
	}
	return listeners
}
