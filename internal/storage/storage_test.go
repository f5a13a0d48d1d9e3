package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studypack/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEnsureProfileSeedsDefaults(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	_, err := store.GetProfile(ctx, "anna")
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := store.EnsureProfile(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, "anna", p.UserID)
	assert.Equal(t, 0, p.XP)
	assert.Equal(t, 0, p.Streak)
	assert.Equal(t, []string{}, p.Badges)
	assert.Nil(t, p.LastActive)

	// Zweiter Aufruf überschreibt nichts
	_, err = store.UpdateProfile(ctx, "anna", ProfileUpdate{XP: 10})
	require.NoError(t, err)
	p, err = store.EnsureProfile(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, 10, p.XP)
}

func TestUpdateProfileIncrements(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	streak := 3
	last := time.Date(2026, 10, 16, 8, 30, 0, 0, time.UTC)
	p, err := store.UpdateProfile(ctx, "ben", ProfileUpdate{
		XP:           50,
		QuizAttempts: 1,
		QuizScore:    4,
		AddBadges:    []string{"first_quiz"},
		Streak:       &streak,
		LastActive:   &last,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, p.XP)
	assert.Equal(t, 1, p.Analytics.QuizAttempts)
	assert.Equal(t, 4, p.Analytics.TotalQuizScore)
	assert.Equal(t, 3, p.Streak)
	require.NotNil(t, p.LastActive)
	assert.True(t, last.Equal(*p.LastActive))

	p, err = store.UpdateProfile(ctx, "ben", ProfileUpdate{
		XP:                20,
		FlashcardsLearned: 12,
		AddBadges:         []string{"first_quiz", "flashcard_master", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 70, p.XP)
	assert.Equal(t, 12, p.Analytics.FlashcardsLearned)
	assert.Equal(t, 1, p.Analytics.QuizAttempts)
	assert.Equal(t, 3, p.Streak, "streak bleibt ohne Angabe erhalten")
	assert.Equal(t, []string{"first_quiz", "flashcard_master"}, p.Badges)
	require.NotNil(t, p.LastActive)
	assert.True(t, last.Equal(*p.LastActive))
}

func TestUpdateProfilePublishes(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	updates, cancel := store.Subscribe("clara")
	defer cancel()
	other, cancelOther := store.Subscribe("dora")
	defer cancelOther()

	_, err := store.UpdateProfile(ctx, "clara", ProfileUpdate{XP: 5})
	require.NoError(t, err)

	select {
	case p := <-updates:
		assert.Equal(t, "clara", p.UserID)
		assert.Equal(t, 5, p.XP)
	case <-time.After(time.Second):
		t.Fatal("keine Benachrichtigung erhalten")
	}

	select {
	case p := <-other:
		t.Fatalf("unerwartete Benachrichtigung für %s", p.UserID)
	default:
	}
}

func TestActivePackReplacedWholesale(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	_, err := store.GetActivePack(ctx, "emil")
	assert.ErrorIs(t, err, ErrNotFound)

	first := &models.StudyPack{
		ID:         "p1",
		Title:      "Erstes",
		MindMap:    models.MindMapNode{Label: "A", Children: []models.MindMapNode{{Label: "B"}}},
		Flashcards: []models.Flashcard{{Front: "f", Back: "b"}},
		CreatedAt:  time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveActivePack(ctx, "emil", first))

	got, err := store.GetActivePack(ctx, "emil")
	require.NoError(t, err)
	assert.Equal(t, first, got)

	second := &models.StudyPack{ID: "p2", Title: "Zweites", CreatedAt: time.Date(2026, 10, 16, 11, 0, 0, 0, time.UTC)}
	require.NoError(t, store.SaveActivePack(ctx, "emil", second))

	got, err = store.GetActivePack(ctx, "emil")
	require.NoError(t, err)
	assert.Equal(t, "p2", got.ID)
	assert.Empty(t, got.Flashcards)
}
