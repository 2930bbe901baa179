package inmemorystore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/vegapanel/internal/panel"
	"github.com/vk/vegapanel/internal/store"
)

func TestStore_Panels(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.LoadPanel(ctx, "1")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SavePanel(ctx, "2", "Second", panel.SpecValue{Text: "{"}))
	require.NoError(t, s.SavePanel(ctx, "1", "First", panel.SpecValue{Text: "{}"}))
	rec, err := s.LoadPanel(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "First", rec.Title)
	assert.Equal(t, "{}", rec.Value.Text)

	all, err := s.ListPanels(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "1", all[0].ID)
}

func TestStore_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.SavePanel(ctx, fmt.Sprint(i), "", panel.SpecValue{})
			s.Event("info", "spec_saved", "Specification saved.", nil)
		}()
	}
	wg.Wait()
	all, err := s.ListPanels(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 50)
	events, err := s.Events(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, events, 50)
}

func TestStore_EventsNewestFirstAndBounded(t *testing.T) {
	s := New()
	for i := range maxEvents + 5 {
		s.Event("info", fmt.Sprint(i), "", nil)
	}
	events, err := s.Events(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, fmt.Sprint(maxEvents+4), events[0].Code)
	assert.Equal(t, fmt.Sprint(maxEvents+3), events[1].Code)

	all, err := s.Events(context.Background(), 10*maxEvents)
	require.NoError(t, err)
	assert.Len(t, all, maxEvents)
}
