package moods

import "testing"

func TestParameters(t *testing.T) {
	tests := []struct {
		name       string
		mood       string
		recognized bool
		want       Profile
	}{
		{
			name:       "happy",
			mood:       "Happy",
			recognized: true,
			want:       Profile{Valence: 0.8, Energy: 0.7, Danceability: 0.7},
		},
		{
			name:       "sad",
			mood:       "Sad",
			recognized: true,
			want:       Profile{Valence: 0.2, Energy: 0.3, Tempo: 80},
		},
		{
			name:       "party",
			mood:       "Party",
			recognized: true,
			want:       Profile{Valence: 0.8, Energy: 0.9, Danceability: 0.9},
		},
		{
			name:       "angry",
			mood:       "Angry",
			recognized: true,
			want:       Profile{Valence: 0.2, Energy: 0.9, Tempo: 140},
		},
		{
			name:       "unknown mood falls back to happy",
			mood:       "Melancholic",
			recognized: false,
			want:       Profile{Valence: 0.8, Energy: 0.7, Danceability: 0.7},
		},
		{
			name:       "lookup is case sensitive",
			mood:       "happy",
			recognized: false,
			want:       Profile{Valence: 0.8, Energy: 0.7, Danceability: 0.7},
		},
		{
			name:       "empty mood falls back to happy",
			mood:       "",
			recognized: false,
			want:       Profile{Valence: 0.8, Energy: 0.7, Danceability: 0.7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parameters(tt.mood)
			if ok != tt.recognized {
				t.Errorf("recognized = %v, want %v", ok, tt.recognized)
			}
			if got != tt.want {
				t.Errorf("Parameters(%q) = %+v, want %+v", tt.mood, got, tt.want)
			}
		})
	}
}

func TestProfileParams(t *testing.T) {
	t.Run("omits zero values", func(t *testing.T) {
		profile := Profile{Valence: 0.2, Energy: 0.3, Tempo: 80}
		params := profile.Params()

		if _, ok := params["target_danceability"]; ok {
			t.Error("zero danceability should be omitted")
		}
		if params["target_valence"] != 0.2 {
			t.Errorf("target_valence = %v, want 0.2", params["target_valence"])
		}
		if params["target_tempo"] != 80.0 {
			t.Errorf("target_tempo = %v, want 80", params["target_tempo"])
		}
	})

	t.Run("full profile", func(t *testing.T) {
		profile := Profile{Valence: 0.7, Energy: 0.4, Danceability: 0.5, Tempo: 100}
		if len(profile.Params()) != 4 {
			t.Errorf("expected 4 params, got %d", len(profile.Params()))
		}
	})
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != 10 {
		t.Fatalf("expected 10 moods, got %d", len(names))
	}

	if names[0] != DefaultMood {
		t.Errorf("first mood should be %s, got %s", DefaultMood, names[0])
	}

	for _, name := range names {
		if _, ok := Parameters(name); !ok {
			t.Errorf("listed mood %q not recognized by Parameters", name)
		}
	}
}
