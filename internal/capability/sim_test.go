package capability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozmogo/cozmogo/internal/events"
)

func newTestSim(t *testing.T) (*Sim, *events.Log) {
	t.Helper()
	log := events.NewLog()
	return NewSim(log), log
}

func call(t *testing.T, s *Sim, name string, args map[string]any) (string, error) {
	t.Helper()
	for _, a := range s.Actions() {
		if a.Spec.Name == name {
			return a.Handler(context.Background(), args)
		}
	}
	t.Fatalf("action %s not declared", name)
	return "", nil
}

func TestSimActionsValidate(t *testing.T) {
	s, _ := newTestSim(t)
	set, err := NewSet(s.Actions(), s)
	require.NoError(t, err)
	assert.True(t, set.Catalog().Has("cozmo_says"))
	assert.True(t, set.Catalog().Has("cozmo_searches_light_cube"))
	assert.Same(t, s, set.Images().(*Sim))
}

func TestDrives(t *testing.T) {
	s, _ := newTestSim(t)

	out, err := call(t, s, "cozmo_drives", map[string]any{"distance": 50.0, "speed": 25.0})
	require.NoError(t, err)
	assert.Equal(t, "Cozmo drove 50 mm at 25 mmps.", out)

	out, err = call(t, s, "cozmo_drives", map[string]any{"distance": -10.5, "speed": 25.0})
	require.NoError(t, err)
	assert.Equal(t, "Cozmo drove -10.5 mm at 25 mmps.", out)

	_, err = call(t, s, "cozmo_drives", map[string]any{"distance": 50.0, "speed": -1.0})
	assert.Error(t, err)
}

func TestCubeLifecycle(t *testing.T) {
	s, _ := newTestSim(t)

	out, err := call(t, s, "cozmo_searches_light_cube", nil)
	require.NoError(t, err)
	assert.Equal(t, "Found cube with ID: 1", out)

	out, err = call(t, s, "cozmo_picksup_object", map[string]any{"object_id": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, "Cozmo picked up object 1.", out)

	out, err = call(t, s, "cozmo_is_carrying_object", nil)
	require.NoError(t, err)
	assert.Equal(t, "Cozmo is carrying an object.", out)

	// A second pickup while carrying fails softly.
	out, err = call(t, s, "cozmo_picksup_object", map[string]any{"object_id": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, "Failed. Cozmo is already carrying an object.", out)

	out, err = call(t, s, "cozmo_places_object", map[string]any{"object_id": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, "Cozmo placed object 1.", out)

	out, err = call(t, s, "cozmo_is_carrying_object", nil)
	require.NoError(t, err)
	assert.Equal(t, "Cozmo is not carrying an object.", out)
}

func TestUnknownCubeID(t *testing.T) {
	s, _ := newTestSim(t)

	out, err := call(t, s, "cozmo_pops_a_wheelie", map[string]any{"object_id": int64(7)})
	require.NoError(t, err)
	assert.Equal(t, "Cube with ID 7 not seen.", out)
}

func TestPlaysSong(t *testing.T) {
	s, _ := newTestSim(t)

	out, err := call(t, s, "cozmo_plays_song", map[string]any{"song_notes": "C2, D2, E2"})
	require.NoError(t, err)
	assert.Equal(t, "Cozmo played the song.", out)

	// Space-separated notes without commas are tolerated.
	out, err = call(t, s, "cozmo_plays_song", map[string]any{"song_notes": "C2 D2 E2"})
	require.NoError(t, err)
	assert.Equal(t, "Cozmo played the song.", out)

	out, err = call(t, s, "cozmo_plays_song", map[string]any{"song_notes": "C2, H9"})
	require.NoError(t, err)
	assert.Contains(t, out, "Note 'H9' is not supported")
}

func TestBehaviors(t *testing.T) {
	s, _ := newTestSim(t)

	out, err := call(t, s, "cozmo_starts_behavior", map[string]any{"behavior_name": "FindFaces"})
	require.NoError(t, err)
	assert.Equal(t, "Cozmo started behavior: FindFaces", out)

	out, err = call(t, s, "cozmo_stops_behavior", map[string]any{"behavior_name": "RollBlock"})
	require.NoError(t, err)
	assert.Equal(t, "Behavior 'RollBlock' not running.", out)

	out, err = call(t, s, "cozmo_stops_behavior", map[string]any{"behavior_name": "FindFaces"})
	require.NoError(t, err)
	assert.Equal(t, "Cozmo stopped behavior: FindFaces", out)

	out, err = call(t, s, "cozmo_starts_behavior", map[string]any{"behavior_name": "Backflip"})
	require.NoError(t, err)
	assert.Equal(t, "Behavior 'Backflip' not found.", out)
}

func TestHeadlightAndVolume(t *testing.T) {
	s, _ := newTestSim(t)

	out, err := call(t, s, "cozmo_sets_headlight", map[string]any{"on_off": "on"})
	require.NoError(t, err)
	assert.Equal(t, "Cozmo's headlight turned on.", out)

	out, err = call(t, s, "cozmo_sets_headlight", map[string]any{"on_off": "sideways"})
	require.NoError(t, err)
	assert.Equal(t, "Invalid option: sideways", out)

	out, err = call(t, s, "cozmo_sets_volume", map[string]any{"volume": 0.5})
	require.NoError(t, err)
	assert.Equal(t, "Cozmo's volume set to 0.5.", out)

	_, err = call(t, s, "cozmo_sets_volume", map[string]any{"volume": 1.5})
	assert.Error(t, err)
}

func TestBackpackLights(t *testing.T) {
	s, _ := newTestSim(t)

	out, err := call(t, s, "cozmo_sets_backpack_lights", map[string]any{
		"r": int64(255), "g": int64(0), "b": int64(128),
	})
	require.NoError(t, err)
	assert.Equal(t, "Cozmo's backpack lights set to (255, 0, 128).", out)

	_, err = call(t, s, "cozmo_sets_backpack_lights", map[string]any{
		"r": int64(300), "g": int64(0), "b": int64(0),
	})
	assert.Error(t, err)
}

func TestSeesCapturesOneFrame(t *testing.T) {
	s, _ := newTestSim(t)

	s.ResetImage()
	assert.Nil(t, s.CapturedImage())

	out, err := call(t, s, "cozmo_sees", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NotNil(t, s.CapturedImage())

	s.ResetImage()
	assert.Nil(t, s.CapturedImage())
}

func TestListensWithoutVoiceSource(t *testing.T) {
	s, _ := newTestSim(t)

	out, err := call(t, s, "cozmo_listens", nil)
	require.NoError(t, err)
	assert.Equal(t, "User didn't say anything.", out)
}

func TestListensTriggersVoiceSource(t *testing.T) {
	s, _ := newTestSim(t)

	triggered := false
	s.SetListenFunc(func() { triggered = true })

	out, err := call(t, s, "cozmo_listens", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.True(t, triggered)
}

func TestObservationRateLimit(t *testing.T) {
	s, log := newTestSim(t)

	s.ObserveCube(3)
	s.ObserveCube(3)
	s.ObserveCube(3)

	evs := log.DrainAll()
	require.Len(t, evs, 1)
	assert.Equal(t, events.SystemMessage, evs[0].Kind)
	assert.Equal(t, "Cozmo saw a cube! object_id: 3.", evs[0].Text)

	// Distinct kinds are limited independently.
	s.ObserveFace(2, "Alan")
	evs = log.DrainAll()
	require.Len(t, evs, 1)
	assert.Equal(t, "Cozmo saw a person! face_id: 2, name: Alan.", evs[0].Text)
}

func TestObservationAfterWindowElapses(t *testing.T) {
	s, log := newTestSim(t)

	s.ObserveCube(3)
	s.mu.Lock()
	s.lastNotice["cube"] = time.Now().Add(-noticeInterval - time.Second)
	s.mu.Unlock()
	s.ObserveCube(3)

	assert.Len(t, log.DrainAll(), 2)
}

func TestListeningLightsObserver(t *testing.T) {
	s, log := newTestSim(t)

	log.Append(events.ListeningStarted, "")
	s.mu.Lock()
	saved := s.lightSaved
	s.mu.Unlock()
	assert.True(t, saved)

	log.Append(events.ListeningFinished, "")
	s.mu.Lock()
	saved = s.lightSaved
	s.mu.Unlock()
	assert.False(t, saved)
}
