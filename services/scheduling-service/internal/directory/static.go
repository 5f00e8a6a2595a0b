package directory

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/interval"
)

// DefaultResourceID is the single implicit resource used when no directory
// file is configured (simple mode).
const DefaultResourceID = "default"

// Static is an in-memory directory loaded once at startup.
type Static struct {
	byID  map[string]Resource
	order []string
}

type fileResource struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Notes    string   `yaml:"notes"`
	Start    string   `yaml:"start"`
	End      string   `yaml:"end"`
	Weekdays []string `yaml:"weekdays"`
}

type directoryFile struct {
	Resources []fileResource `yaml:"resources"`
}

var weekdayNames = map[string]int{
	"sunday": 0, "monday": 1, "tuesday": 2, "wednesday": 3,
	"thursday": 4, "friday": 5, "saturday": 6,
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

// LoadStatic reads a YAML directory file. An empty path yields the
// simple-mode default: one resource, every day 07:00-19:00.
func LoadStatic(path string) (*Static, error) {
	if strings.TrimSpace(path) == "" {
		return NewStatic(DefaultSimpleResource()), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading directory file: %w", err)
	}
	var f directoryFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing directory file: %w", err)
	}
	if len(f.Resources) == 0 {
		return nil, fmt.Errorf("directory file %s defines no resources", path)
	}

	resources := make([]Resource, 0, len(f.Resources))
	for _, fr := range f.Resources {
		res, err := fr.toResource()
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}
	return NewStatic(resources...), nil
}

func (fr fileResource) toResource() (Resource, error) {
	if strings.TrimSpace(fr.ID) == "" {
		return Resource{}, fmt.Errorf("directory resource without id")
	}
	start, err := interval.Parse(fr.Start)
	if err != nil {
		return Resource{}, fmt.Errorf("resource %s: %w", fr.ID, err)
	}
	end, err := interval.Parse(fr.End)
	if err != nil {
		return Resource{}, fmt.Errorf("resource %s: %w", fr.ID, err)
	}
	window, err := interval.New(start, end)
	if err != nil {
		return Resource{}, fmt.Errorf("resource %s: %w", fr.ID, err)
	}

	res := Resource{ID: fr.ID, Name: fr.Name, Notes: fr.Notes}
	days := fr.Weekdays
	if len(days) == 0 {
		days = []string{"mon", "tue", "wed", "thu", "fri"}
	}
	for _, d := range days {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(d))]
		if !ok {
			return Resource{}, fmt.Errorf("resource %s: unknown weekday %q", fr.ID, d)
		}
		res.Hours[wd] = DayWindow{Working: true, Window: window}
	}
	return res, nil
}

// DefaultSimpleResource is the implicit single resource of the fixed-slot
// mode: bookable every day, 07:00 to 19:00.
func DefaultSimpleResource() Resource {
	window := interval.Interval{Start: 7 * 60, End: 19 * 60}
	r := Resource{ID: DefaultResourceID, Name: "Default calendar"}
	for wd := range r.Hours {
		r.Hours[wd] = DayWindow{Working: true, Window: window}
	}
	return r
}

func NewStatic(resources ...Resource) *Static {
	s := &Static{byID: make(map[string]Resource, len(resources))}
	for _, r := range resources {
		if _, dup := s.byID[r.ID]; !dup {
			s.order = append(s.order, r.ID)
		}
		s.byID[r.ID] = r
	}
	return s
}

func (s *Static) Resource(_ context.Context, id string) (Resource, error) {
	r, ok := s.byID[id]
	if !ok {
		return Resource{}, fmt.Errorf("%w: %s", ErrUnknownResource, id)
	}
	return r, nil
}

func (s *Static) List(_ context.Context) ([]Resource, error) {
	out := make([]Resource, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out, nil
}
