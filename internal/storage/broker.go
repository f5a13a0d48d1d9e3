package storage

import (
	"sync"

	"studypack/internal/models"
)

// Broker verteilt Profiländerungen an Abonnenten pro Nutzer.
// Jeder Abonnent hält nur den neuesten Stand; ein langsamer Leser
// verliert Zwischenstände, blockiert aber nie den Schreiber.
type Broker struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan models.UserProfile
	nextID int
	closed bool
}

// NewBroker erstellt einen neuen Broker
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[int]chan models.UserProfile)}
}

// Subscribe registriert einen Abonnenten. Die zurückgegebene Funktion meldet ihn ab
// und schließt den Kanal.
func (b *Broker) Subscribe(userID string) (<-chan models.UserProfile, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan models.UserProfile, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[int]chan models.UserProfile)
	}
	b.subs[userID][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs, ok := b.subs[userID]; ok {
				if c, ok := subs[id]; ok {
					delete(subs, id)
					close(c)
				}
				if len(subs) == 0 {
					delete(b.subs, userID)
				}
			}
		})
	}
	return ch, cancel
}

// Publish schickt den neuen Stand an alle Abonnenten des Nutzers
func (b *Broker) Publish(p models.UserProfile) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs[p.UserID] {
		select {
		case ch <- p:
		default:
			// Veralteten Stand verwerfen
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- p:
			default:
			}
		}
	}
}

// Subscribers gibt die Anzahl der Abonnenten eines Nutzers zurück
func (b *Broker) Subscribers(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[userID])
}

// Close schließt alle Kanäle
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for userID, subs := range b.subs {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
		delete(b.subs, userID)
	}
}
