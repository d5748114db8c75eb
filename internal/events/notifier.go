package events

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// Event - notification "données modifiées" émise après une mutation
// réussie, pour l'invalidation de cache côté UI. Fire-and-forget : ne
// fait jamais partie de l'unité transactionnelle.
type Event struct {
	ID     string `json:"id"`
	Table  string `json:"table"`
	Action string `json:"action"` // create / update / delete
}

var (
	mu          sync.RWMutex
	subscribers []chan Event
)

// Subscribe retourne un canal recevant les notifications. Le canal est
// tamponné ; un abonné trop lent perd des événements plutôt que de
// bloquer les requêtes.
func Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	mu.Lock()
	subscribers = append(subscribers, ch)
	mu.Unlock()
	return ch
}

// Notify diffuse l'événement à tous les abonnés sans bloquer.
func Notify(table, action string) {
	ev := Event{ID: uuid.NewString(), Table: table, Action: action}
	mu.RLock()
	defer mu.RUnlock()
	for _, ch := range subscribers {
		select {
		case ch <- ev:
		default:
			log.Printf("Abonné saturé, événement %s perdu (%s/%s)", ev.ID, table, action)
		}
	}
}
