package capability

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cozmogo/cozmogo/internal/events"
	"github.com/cozmogo/cozmogo/internal/logger"
	"github.com/cozmogo/cozmogo/internal/schema"
)

// Song notes the robot speaker supports.
var validNotes = map[string]bool{
	"C2": true, "C2_Sharp": true, "D2": true, "D2_Sharp": true, "E2": true,
	"F2": true, "F2_Sharp": true, "G2": true, "G2_Sharp": true, "A2": true,
	"A2_Sharp": true, "B2": true, "C3": true, "C3_Sharp": true, "Rest": true,
}

// Behaviors the robot can run autonomously.
var validBehaviors = map[string]bool{
	"FindFaces": true, "KnockOverCubes": true, "LookAroundInPlace": true,
	"PounceOnMotion": true, "RollBlock": true, "StackBlocks": true,
	"EnrollFace": true,
}

// noticeInterval rate-limits repeated world observations of the same kind.
const noticeInterval = 5 * time.Second

// Sim is the simulated actuator: it implements the full action surface
// against a small in-memory world model, so the command loop runs
// identically with or without a robot attached.
//
// World state is guarded by mu; actions within one dispatch batch run
// sequentially, but observers and the web console read concurrently.
type Sim struct {
	mu sync.Mutex

	log      *events.Log
	listenFn func()

	carrying   bool
	freeplay   bool
	behavior   string
	backpack   [3]int64
	lightSaved bool
	headlight  bool
	volume     float64
	liftHeight float64
	headAngle  float64
	cubeID     int64

	image []byte

	lastNotice map[string]time.Time
}

// NewSim creates a simulated actuator wired to the event log. It registers
// an observer that mirrors the listening state onto the backpack lights,
// the way the robot signals it is capturing speech.
func NewSim(log *events.Log) *Sim {
	s := &Sim{
		log:        log,
		volume:     1.0,
		cubeID:     1,
		lastNotice: make(map[string]time.Time),
	}
	log.RegisterObserver(func(ev events.Event) {
		switch ev.Kind {
		case events.ListeningStarted:
			s.setListeningLights(true)
		case events.ListeningFinished:
			s.setListeningLights(false)
		}
	})
	return s
}

// SetListenFunc wires the voice source trigger used by cozmo_listens. The
// callback must not block: it requests a capture whose transcription
// arrives later as a UserMessage event.
func (s *Sim) SetListenFunc(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listenFn = fn
}

func (s *Sim) setListeningLights(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.lightSaved = true
		logger.Debug("backpack lights: listening blue")
	} else if s.lightSaved {
		s.lightSaved = false
		logger.Debug("backpack lights: restored (%d, %d, %d)", s.backpack[0], s.backpack[1], s.backpack[2])
	}
}

// ResetImage clears the captured frame buffer at the start of a batch.
func (s *Sim) ResetImage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = nil
}

// CapturedImage returns the frame captured during the current batch.
func (s *Sim) CapturedImage() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.image
}

// ObserveCube records a spontaneous cube sighting as a system notice.
func (s *Sim) ObserveCube(objectID int64) {
	s.notice("cube", fmt.Sprintf("Cozmo saw a cube! object_id: %d.", objectID))
}

// ObserveFace records a spontaneous face sighting as a system notice.
func (s *Sim) ObserveFace(faceID int64, name string) {
	text := fmt.Sprintf("Cozmo saw a person! face_id: %d", faceID)
	if name != "" {
		text += ", name: " + name
	}
	s.notice("face", text+".")
}

// ObserveTap records a cube tap as a system notice.
func (s *Sim) ObserveTap(objectID int64, intensity int64) {
	s.notice("tap", fmt.Sprintf("Cube was tapped! object_id: %d, intensity: %d.", objectID, intensity))
}

// notice appends a SystemMessage unless the same notice kind fired within
// the rate-limit window.
func (s *Sim) notice(kind, text string) {
	s.mu.Lock()
	now := time.Now()
	last, seen := s.lastNotice[kind]
	if seen && now.Sub(last) <= noticeInterval {
		s.mu.Unlock()
		return
	}
	s.lastNotice[kind] = now
	s.mu.Unlock()

	s.log.Append(events.SystemMessage, text)
}

// Actions returns the declared action table. Timeouts mirror the physical
// robot's action classes: quick state queries keep the default, motion
// waits longer, multi-stage manipulations longest.
func (s *Sim) Actions() []Action {
	return []Action{
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_listens",
				Description: "Listens to the user for 10 seconds. A possibly imperfect transcription of what the user said will be provided as system message.",
			},
			Handler: s.listens,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_says",
				Description: "Makes Cozmo say the provided text.",
				Params: []schema.Param{
					{Name: "text", Type: schema.TypeString, Description: "The text for Cozmo to speak.", Required: true},
				},
				Timeout: 30 * time.Second,
			},
			Handler: s.says,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_drives",
				Description: "Makes Cozmo drive straight for a specified distance at a specific speed.",
				Params: []schema.Param{
					{Name: "distance", Type: schema.TypeNumber, Description: "The distance to drive in millimeters (positive for forward, negative for backward).", Required: true},
					{Name: "speed", Type: schema.TypeNumber, Description: "The speed to drive in millimeters per second (positive value).", Required: true},
				},
			},
			Handler: s.drives,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_turns",
				Description: "Makes Cozmo turn in place by a specific angle.",
				Params: []schema.Param{
					{Name: "angle", Type: schema.TypeNumber, Description: "The angle to turn in degrees (positive for left, negative for right).", Required: true},
				},
			},
			Handler: s.turns,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_lifts",
				Description: "Makes Cozmo raise or lower his lift to a specific height.",
				Params: []schema.Param{
					{Name: "height", Type: schema.TypeNumber, Description: "The desired lift height as a ratio (0.0 for bottom, 1.0 for top).", Required: true},
				},
			},
			Handler: s.lifts,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_head",
				Description: "Makes Cozmo move his head to a specific angle.",
				Params: []schema.Param{
					{Name: "angle", Type: schema.TypeNumber, Description: "The desired head angle in degrees (within Cozmo's head movement range).", Required: true},
				},
			},
			Handler: s.head,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_pops_a_wheelie",
				Description: "Makes Cozmo attempt to pop a wheelie using a specific cube. Cozmo needs to find a cube first, using cozmo_searches_light_cube() which returns the object_id.",
				Params: []schema.Param{
					{Name: "object_id", Type: schema.TypeInteger, Description: "The ID of the LightCube to use for the wheelie.", Required: true},
				},
				Timeout: 45 * time.Second,
			},
			Handler: s.popsAWheelie,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_plays_animation",
				Description: "Makes Cozmo play a specific animation, e.g. anim_greeting_happy_03, anim_majorwin, anim_majorfail, anim_peekaboo_idle_01, anim_neutral_eyes_01.",
				Params: []schema.Param{
					{Name: "animation_name", Type: schema.TypeString, Description: "The name of the animation to play.", Required: true},
				},
			},
			Handler: s.playsAnimation,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_plays_song",
				Description: "Makes Cozmo play a song composed of provided notes. All notes are played with a fixed duration. Available notes: C2, C2_Sharp, D2, D2_Sharp, E2, F2, F2_Sharp, G2, G2_Sharp, A2, A2_Sharp, B2, C3, C3_Sharp, Rest.",
				Params: []schema.Param{
					{Name: "song_notes", Type: schema.TypeString, Description: `String containing song notes, e.g. "C2, D2, E2, F2, G2, A2".`, Required: true},
				},
			},
			Handler: s.playsSong,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_searches_light_cube",
				Description: "Makes Cozmo search for a light cube and returns an object_id that can be used for other actions such as pop a wheelie, pick up, roll, etc.",
				Timeout:     60 * time.Second,
			},
			Handler: s.searchesLightCube,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_goes_to_object",
				Description: "Makes Cozmo drive to a specific object and stop at a specific distance from its center. Cozmo needs to find a cube first, using cozmo_searches_light_cube() which returns the object_id.",
				Params: []schema.Param{
					{Name: "object_id", Type: schema.TypeInteger, Description: "The ID of the object to approach.", Required: true},
					{Name: "distance", Type: schema.TypeNumber, Description: "The distance from the object to stop (in millimeters).", Required: true},
				},
				Timeout: 30 * time.Second,
			},
			Handler: s.goesToObject,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_picksup_object",
				Description: "Makes Cozmo pick up a specific object. Cozmo needs to find a cube first, using cozmo_searches_light_cube() which returns the object_id.",
				Params: []schema.Param{
					{Name: "object_id", Type: schema.TypeInteger, Description: "The ID of the LightCube to pick up.", Required: true},
				},
				Timeout: 45 * time.Second,
			},
			Handler: s.picksupObject,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_places_object",
				Description: "Makes Cozmo place the object he is carrying on top of the cube indicated by object_id. Cozmo needs to be carrying an object.",
				Params: []schema.Param{
					{Name: "object_id", Type: schema.TypeInteger, Description: "The ID of the object to place on (currently only supports LightCubes).", Required: true},
				},
				Timeout: 45 * time.Second,
			},
			Handler: s.placesObject,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_docks_with_cube",
				Description: "Makes Cozmo dock with a specific cube. Cozmo needs to find a cube first, using cozmo_searches_light_cube() which returns the object_id of the cube to dock with.",
				Params: []schema.Param{
					{Name: "object_id", Type: schema.TypeInteger, Description: "The ID of the LightCube to dock with.", Required: true},
				},
				Timeout: 30 * time.Second,
			},
			Handler: s.docksWithCube,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_rolls_cube",
				Description: "Makes Cozmo roll a specific cube. Cozmo needs to find a cube first, using cozmo_searches_light_cube() which returns the object_id of the cube to roll.",
				Params: []schema.Param{
					{Name: "object_id", Type: schema.TypeInteger, Description: "The ID of the LightCube to roll.", Required: true},
				},
				Timeout: 45 * time.Second,
			},
			Handler: s.rollsCube,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_starts_behavior",
				Description: "Starts a specific behavior for Cozmo to perform autonomously. Stop it with cozmo_stops_behavior() before using any other API calls. Behaviors: FindFaces, KnockOverCubes, LookAroundInPlace, PounceOnMotion, RollBlock, StackBlocks, EnrollFace.",
				Params: []schema.Param{
					{Name: "behavior_name", Type: schema.TypeString, Description: "The name of the behavior to start.", Required: true},
				},
			},
			Handler: s.startsBehavior,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_stops_behavior",
				Description: "Stops a specific behavior that Cozmo is currently performing.",
				Params: []schema.Param{
					{Name: "behavior_name", Type: schema.TypeString, Description: "The name of the behavior to stop.", Required: true},
				},
			},
			Handler: s.stopsBehavior,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_starts_freeplay",
				Description: "Starts Cozmo's freeplay mode where he explores and interacts autonomously. Use cozmo_stops_freeplay() before using other functions.",
			},
			Handler: s.startsFreeplay,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_stops_freeplay",
				Description: "Stops Cozmo's freeplay mode.",
			},
			Handler: s.stopsFreeplay,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_battery_level",
				Description: "Returns Cozmo's current battery level.",
			},
			Handler: s.batteryLevel,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_is_charging",
				Description: "Checks if Cozmo is currently charging.",
			},
			Handler: s.isCharging,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_is_carrying_object",
				Description: "Checks if Cozmo is currently carrying an object.",
			},
			Handler: s.isCarryingObject,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_is_localized",
				Description: "Checks if Cozmo knows his location in the environment.",
			},
			Handler: s.isLocalized,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_sets_backpack_lights",
				Description: "Sets the color of Cozmo's backpack lights. Set all channels to 0 to turn them off.",
				Params: []schema.Param{
					{Name: "r", Type: schema.TypeInteger, Description: "Red channel from 0-255.", Required: true},
					{Name: "g", Type: schema.TypeInteger, Description: "Green channel from 0-255.", Required: true},
					{Name: "b", Type: schema.TypeInteger, Description: "Blue channel from 0-255.", Required: true},
				},
			},
			Handler: s.setsBackpackLights,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_sets_headlight",
				Description: "Turns Cozmo's headlight on or off.",
				Params: []schema.Param{
					{Name: "on_off", Type: schema.TypeString, Description: `String "on" to turn the headlight on, "off" to turn it off.`, Required: true},
				},
			},
			Handler: s.setsHeadlight,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_sets_volume",
				Description: "Sets Cozmo's speaker volume.",
				Params: []schema.Param{
					{Name: "volume", Type: schema.TypeNumber, Description: "The desired volume (0.0 = mute, 1.0 = max).", Required: true},
				},
			},
			Handler: s.setsVolume,
		},
		{
			Spec: schema.ActionSpec{
				Name:        "cozmo_sees",
				Description: "Makes Cozmo take a picture from his front camera and describe what he sees in the image. A description of the image will be provided in the system messages.",
			},
			Handler: s.sees,
		},
	}
}

func (s *Sim) listens(ctx context.Context, args map[string]any) (string, error) {
	s.mu.Lock()
	fn := s.listenFn
	s.mu.Unlock()

	if fn == nil {
		return "User didn't say anything.", nil
	}
	fn()
	return "", nil
}

func (s *Sim) says(ctx context.Context, args map[string]any) (string, error) {
	text, _ := args["text"].(string)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("nothing to say")
	}
	logger.Info("cozmo says: %s", text)
	return "", nil
}

func (s *Sim) drives(ctx context.Context, args map[string]any) (string, error) {
	distance := args["distance"].(float64)
	speed := args["speed"].(float64)
	if speed <= 0 {
		return "", fmt.Errorf("speed must be positive")
	}
	return fmt.Sprintf("Cozmo drove %v mm at %v mmps.", trimFloat(distance), trimFloat(speed)), nil
}

func (s *Sim) turns(ctx context.Context, args map[string]any) (string, error) {
	angle := args["angle"].(float64)
	return fmt.Sprintf("Cozmo turned %v degrees.", trimFloat(angle)), nil
}

func (s *Sim) lifts(ctx context.Context, args map[string]any) (string, error) {
	height := args["height"].(float64)
	if height < 0 || height > 1 {
		return "", fmt.Errorf("height must be between 0.0 and 1.0")
	}
	s.mu.Lock()
	s.liftHeight = height
	s.mu.Unlock()
	return fmt.Sprintf("Cozmo's lift is now at %v ratio.", trimFloat(height)), nil
}

func (s *Sim) head(ctx context.Context, args map[string]any) (string, error) {
	angle := args["angle"].(float64)
	s.mu.Lock()
	s.headAngle = angle
	s.mu.Unlock()
	return fmt.Sprintf("Cozmo's head is now at %v degrees.", trimFloat(angle)), nil
}

func (s *Sim) popsAWheelie(ctx context.Context, args map[string]any) (string, error) {
	objectID := args["object_id"].(int64)
	if !s.cubeSeen(objectID) {
		return fmt.Sprintf("Cube with ID %d not seen.", objectID), nil
	}
	return "Cozmo has performed a wheel stand!", nil
}

func (s *Sim) playsAnimation(ctx context.Context, args map[string]any) (string, error) {
	name, _ := args["animation_name"].(string)
	if !strings.HasPrefix(name, "anim_") {
		return fmt.Sprintf("Animation '%s' not found.", name), nil
	}
	return fmt.Sprintf("Cozmo played animation: %s", name), nil
}

func (s *Sim) playsSong(ctx context.Context, args map[string]any) (string, error) {
	raw, _ := args["song_notes"].(string)
	notes := strings.NewReplacer(`"`, "", "'", "").Replace(raw)
	if !strings.Contains(notes, ",") {
		notes = strings.ReplaceAll(notes, " ", ",")
	}

	for _, note := range strings.Split(notes, ",") {
		note = strings.TrimSpace(note)
		if note == "" {
			continue
		}
		if !validNotes[note] {
			return fmt.Sprintf("Failed: Note '%s' is not supported! Use only: C2, C2_Sharp, D2, D2_Sharp, E2, F2, F2_Sharp, G2, G2_Sharp, A2, A2_Sharp, B2, C3, C3_Sharp, Rest.", note), nil
		}
	}
	return "Cozmo played the song.", nil
}

func (s *Sim) searchesLightCube(ctx context.Context, args map[string]any) (string, error) {
	s.mu.Lock()
	id := s.cubeID
	s.mu.Unlock()
	return fmt.Sprintf("Found cube with ID: %d", id), nil
}

func (s *Sim) goesToObject(ctx context.Context, args map[string]any) (string, error) {
	objectID := args["object_id"].(int64)
	if !s.cubeSeen(objectID) {
		return fmt.Sprintf("Object with ID %d not found.", objectID), nil
	}
	return fmt.Sprintf("Cozmo went to object %d.", objectID), nil
}

func (s *Sim) picksupObject(ctx context.Context, args map[string]any) (string, error) {
	objectID := args["object_id"].(int64)

	s.mu.Lock()
	carrying := s.carrying
	s.mu.Unlock()
	if carrying {
		return "Failed. Cozmo is already carrying an object.", nil
	}
	if !s.cubeSeen(objectID) {
		return fmt.Sprintf("Cube with ID %d not found.", objectID), nil
	}

	s.mu.Lock()
	s.carrying = true
	s.mu.Unlock()
	return fmt.Sprintf("Cozmo picked up object %d.", objectID), nil
}

func (s *Sim) placesObject(ctx context.Context, args map[string]any) (string, error) {
	objectID := args["object_id"].(int64)

	s.mu.Lock()
	carrying := s.carrying
	s.mu.Unlock()
	if !carrying {
		return "Failed. Cozmo is not carrying an object.", nil
	}
	if !s.cubeSeen(objectID) {
		return fmt.Sprintf("Cube with ID %d not seen.", objectID), nil
	}

	s.mu.Lock()
	s.carrying = false
	s.mu.Unlock()
	return fmt.Sprintf("Cozmo placed object %d.", objectID), nil
}

func (s *Sim) docksWithCube(ctx context.Context, args map[string]any) (string, error) {
	objectID := args["object_id"].(int64)
	if !s.cubeSeen(objectID) {
		return fmt.Sprintf("Cube with ID %d not seen.", objectID), nil
	}
	return fmt.Sprintf("Cozmo docked with cube %d.", objectID), nil
}

func (s *Sim) rollsCube(ctx context.Context, args map[string]any) (string, error) {
	objectID := args["object_id"].(int64)
	if !s.cubeSeen(objectID) {
		return fmt.Sprintf("Cube with ID %d not seen.", objectID), nil
	}
	return fmt.Sprintf("Cozmo rolled cube %d.", objectID), nil
}

func (s *Sim) startsBehavior(ctx context.Context, args map[string]any) (string, error) {
	name, _ := args["behavior_name"].(string)
	if !validBehaviors[name] {
		return fmt.Sprintf("Behavior '%s' not found.", name), nil
	}
	s.mu.Lock()
	s.behavior = name
	s.mu.Unlock()
	return fmt.Sprintf("Cozmo started behavior: %s", name), nil
}

func (s *Sim) stopsBehavior(ctx context.Context, args map[string]any) (string, error) {
	name, _ := args["behavior_name"].(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.behavior != name || name == "" {
		return fmt.Sprintf("Behavior '%s' not running.", name), nil
	}
	s.behavior = ""
	return fmt.Sprintf("Cozmo stopped behavior: %s", name), nil
}

func (s *Sim) startsFreeplay(ctx context.Context, args map[string]any) (string, error) {
	s.mu.Lock()
	s.freeplay = true
	s.mu.Unlock()
	return "Cozmo entered freeplay mode.", nil
}

func (s *Sim) stopsFreeplay(ctx context.Context, args map[string]any) (string, error) {
	s.mu.Lock()
	s.freeplay = false
	s.mu.Unlock()
	return "Cozmo exited freeplay mode.", nil
}

func (s *Sim) batteryLevel(ctx context.Context, args map[string]any) (string, error) {
	return "Cozmo's battery level is 3.20 out of 3.7 volts.", nil
}

func (s *Sim) isCharging(ctx context.Context, args map[string]any) (string, error) {
	return "Cozmo is not charging.", nil
}

func (s *Sim) isCarryingObject(ctx context.Context, args map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carrying {
		return "Cozmo is carrying an object.", nil
	}
	return "Cozmo is not carrying an object.", nil
}

func (s *Sim) isLocalized(ctx context.Context, args map[string]any) (string, error) {
	return "Cozmo is localized.", nil
}

func (s *Sim) setsBackpackLights(ctx context.Context, args map[string]any) (string, error) {
	r := args["r"].(int64)
	g := args["g"].(int64)
	b := args["b"].(int64)
	for _, ch := range []int64{r, g, b} {
		if ch < 0 || ch > 255 {
			return "", fmt.Errorf("channel value %d out of range 0-255", ch)
		}
	}
	s.mu.Lock()
	s.backpack = [3]int64{r, g, b}
	s.mu.Unlock()
	return fmt.Sprintf("Cozmo's backpack lights set to (%d, %d, %d).", r, g, b), nil
}

func (s *Sim) setsHeadlight(ctx context.Context, args map[string]any) (string, error) {
	onOff, _ := args["on_off"].(string)
	switch strings.ToLower(onOff) {
	case "on":
		s.mu.Lock()
		s.headlight = true
		s.mu.Unlock()
		return "Cozmo's headlight turned on.", nil
	case "off":
		s.mu.Lock()
		s.headlight = false
		s.mu.Unlock()
		return "Cozmo's headlight turned off.", nil
	default:
		return fmt.Sprintf("Invalid option: %s", onOff), nil
	}
}

func (s *Sim) setsVolume(ctx context.Context, args map[string]any) (string, error) {
	volume := args["volume"].(float64)
	if volume < 0 || volume > 1 {
		return "", fmt.Errorf("volume must be between 0.0 and 1.0")
	}
	s.mu.Lock()
	s.volume = volume
	s.mu.Unlock()
	return fmt.Sprintf("Cozmo's volume set to %v.", trimFloat(volume)), nil
}

func (s *Sim) sees(ctx context.Context, args map[string]any) (string, error) {
	s.mu.Lock()
	// A 1x1 gray frame stands in for the camera; the Completer describes
	// whatever it receives on the next turn.
	s.image = []byte("P5 1 1 255 \x80")
	s.mu.Unlock()
	return "", nil
}

// cubeSeen reports whether the given object id matches the cube the sim
// world knows about.
func (s *Sim) cubeSeen(objectID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return objectID == s.cubeID
}

// trimFloat renders whole-valued floats without the trailing ".0" noise.
func trimFloat(f float64) any {
	if f == float64(int64(f)) {
		return int64(f)
	}
	return f
}
