// package moods maps mood labels to target audio-feature parameters for
// the Spotify recommendations endpoint.
package moods

// Profile holds the target audio-feature parameters for a mood.
//
// Values in the [0,1] range except tempo, which is in BPM. A zero value
// means the parameter is not set for that mood and must not be sent.
type Profile struct {
	Valence      float64
	Energy       float64
	Danceability float64
	Tempo        float64
}

// Params converts the profile to recommendation query parameters.
// Unset descriptors are omitted.
func (p Profile) Params() map[string]float64 {
	params := make(map[string]float64, 4)
	if p.Valence > 0 {
		params["target_valence"] = p.Valence
	}
	if p.Energy > 0 {
		params["target_energy"] = p.Energy
	}
	if p.Danceability > 0 {
		params["target_danceability"] = p.Danceability
	}
	if p.Tempo > 0 {
		params["target_tempo"] = p.Tempo
	}
	return params
}

// DefaultMood is the fallback profile key for unrecognized mood input.
const DefaultMood = "Happy"

var profiles = map[string]Profile{
	"Happy":     {Valence: 0.8, Energy: 0.7, Danceability: 0.7},
	"Energetic": {Energy: 0.9, Danceability: 0.8, Valence: 0.7},
	"Calm":      {Energy: 0.3, Valence: 0.6, Tempo: 100},
	"Sad":       {Valence: 0.2, Energy: 0.3, Tempo: 80},
	"Focused":   {Energy: 0.5, Valence: 0.5, Tempo: 120},
	"Relaxed":   {Energy: 0.3, Valence: 0.6, Tempo: 90},
	"Romantic":  {Valence: 0.7, Energy: 0.4, Tempo: 100},
	"Angry":     {Energy: 0.9, Valence: 0.2, Tempo: 140},
	"Nostalgic": {Valence: 0.6, Energy: 0.5, Tempo: 110},
	"Party":     {Energy: 0.9, Danceability: 0.9, Valence: 0.8},
}

// order fixes the display ordering for Names.
var order = []string{
	"Happy", "Energetic", "Calm", "Sad", "Focused",
	"Relaxed", "Romantic", "Angry", "Nostalgic", "Party",
}

// Parameters returns the profile for the given mood label and whether the
// label was recognized. Unknown moods fall back to the Happy profile so
// generation stays producible with malformed input.
func Parameters(mood string) (Profile, bool) {
	if profile, ok := profiles[mood]; ok {
		return profile, true
	}
	return profiles[DefaultMood], false
}

// Names returns all recognized mood labels in display order.
func Names() []string {
	names := make([]string, len(order))
	copy(names, order)
	return names
}
