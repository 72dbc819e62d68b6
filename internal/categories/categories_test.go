package categories

import (
	"errors"
	"log/slog"
	"os"
	"slices"
	"testing"

	"github.com/starford/uxr/internal/apperr"
	"github.com/starford/uxr/internal/index"
)

type memSettings struct {
	values  map[string]string
	failSet bool
}

func (m *memSettings) GetSetting(key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memSettings) SetSetting(key, value string) error {
	if m.failSet {
		return errors.New("disk full")
	}
	m.values[key] = value
	return nil
}

func logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

var _ index.Settings = (*memSettings)(nil)

func TestOpen_SeedsDefaults(t *testing.T) {
	for name, stored := range map[string]map[string]string{
		"missing": {},
		"empty":   {SettingsKey: "[]"},
		"corrupt": {SettingsKey: "{not json"},
		"invalid": {SettingsKey: `["", "..", "a/b"]`},
	} {
		t.Run(name, func(t *testing.T) {
			m := &memSettings{values: stored}
			s, err := Open(m, logger())
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(s.List(), Defaults) {
				t.Errorf("List = %v, want %v", s.List(), Defaults)
			}
			if m.values[SettingsKey] != `["General","Discovery","Usability","Concept Test"]` {
				t.Errorf("persisted = %q", m.values[SettingsKey])
			}
			if s.First() != "General" {
				t.Errorf("First = %q", s.First())
			}
		})
	}
}

func TestOpen_KeepsStoredOrder(t *testing.T) {
	m := &memSettings{values: map[string]string{SettingsKey: `["Usability", " General ", "Usability"]`}}
	s, err := Open(m, logger())
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Usability", "General"}; !slices.Equal(s.List(), want) {
		t.Errorf("List = %v, want %v", s.List(), want)
	}
}

func TestAdd_MonotonicAppend(t *testing.T) {
	m := &memSettings{values: map[string]string{}}
	s, _ := Open(m, logger())

	name, added, err := s.Add("  Field Study ")
	if err != nil || !added || name != "Field Study" {
		t.Fatalf("Add = %q, %v, %v", name, added, err)
	}
	if _, added, _ := s.Add("Field Study"); added {
		t.Error("duplicate reported as added")
	}
	want := append(slices.Clone(Defaults), "Field Study")
	if !slices.Equal(s.List(), want) {
		t.Errorf("List = %v, want %v", s.List(), want)
	}
	if !s.Contains("Field Study") {
		t.Error("Contains = false")
	}

	reopened, _ := Open(m, logger())
	if !slices.Equal(reopened.List(), want) {
		t.Errorf("reopened List = %v", reopened.List())
	}
}

func TestAdd_RejectsInvalid(t *testing.T) {
	s, _ := Open(&memSettings{values: map[string]string{}}, logger())
	for _, bad := range []string{"", "   ", "..", "a/b"} {
		if _, _, err := s.Add(bad); !errors.Is(err, apperr.ErrInvalidCategory) {
			t.Errorf("Add(%q) err = %v", bad, err)
		}
	}
}

func TestAdd_PersistFailureHidesCategory(t *testing.T) {
	m := &memSettings{values: map[string]string{}}
	s, _ := Open(m, logger())
	m.failSet = true
	if _, _, err := s.Add("Ghost"); err == nil {
		t.Fatal("expected error")
	}
	if s.Contains("Ghost") {
		t.Error("category visible although it was not persisted")
	}
}

func TestEnsure(t *testing.T) {
	s, _ := Open(&memSettings{values: map[string]string{}}, logger())
	if err := s.Ensure("General", "Archive", ".hidden"); err != nil {
		t.Fatal(err)
	}
	if want := append(slices.Clone(Defaults), "Archive"); !slices.Equal(s.List(), want) {
		t.Errorf("List = %v", s.List())
	}
}
