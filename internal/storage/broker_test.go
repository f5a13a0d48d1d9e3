package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"studypack/internal/models"
)

func TestBrokerKeepsLatestSnapshot(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch, cancel := b.Subscribe("anna")
	defer cancel()

	// Ohne Leser darf Publish nicht blockieren
	for xp := 1; xp <= 5; xp++ {
		b.Publish(models.UserProfile{UserID: "anna", XP: xp})
	}

	p := <-ch
	assert.Equal(t, 5, p.XP)
}

func TestBrokerCancelClosesChannel(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.Subscribe("ben")
	assert.Equal(t, 1, b.Subscribers("ben"))

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.Subscribers("ben"))

	b.Close()
	late, _ := b.Subscribe("ben")
	_, ok = <-late
	assert.False(t, ok, "nach Close ist der Kanal sofort geschlossen")
}
