package mystery

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

var (
	ErrUnknownAnswer   = errors.New("unknown answer")
	ErrDuplicateID     = errors.New("duplicate mystery id")
	ErrInvalidMystery  = errors.New("invalid mystery")
	ErrMysteryNotFound = errors.New("mystery not found")
)

type archetype struct {
	Title       string `yaml:"title"`
	Icon        string `yaml:"icon"`
	Size        string `yaml:"size"`
	Temperature string `yaml:"temperature"`
	OrbitTime   string `yaml:"orbitTime"`
	Answer      Answer `yaml:"answer"`
}

type catalogFile struct {
	Base       []Mystery   `yaml:"base"`
	Archetypes []archetype `yaml:"archetypes"`
	Size       int         `yaml:"size"`
}

var (
	generatedDifficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
	generatedDistances    = []string{"Close to its star", "Far from its star", "Just perfect distance"}
)

// Catalog is the fixed, read-only pool mysteries are drawn from.
type Catalog struct {
	mysteries []Mystery
	byID      map[int]int
}

// LoadCatalog decodes the embedded catalog and expands it to its full size.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog decodes a catalog document: base entries first, then generated
// entries from the archetypes until the requested size is reached.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	all := make([]Mystery, 0, max(f.Size, len(f.Base)))
	all = append(all, f.Base...)
	if f.Size > len(f.Base) {
		if len(f.Archetypes) == 0 {
			return nil, fmt.Errorf("%w: catalog size %d needs archetypes", ErrInvalidMystery, f.Size)
		}
		for id := len(f.Base) + 1; id <= f.Size; id++ {
			all = append(all, generate(id, f.Archetypes))
		}
	}
	return NewCatalog(all)
}

func generate(id int, types []archetype) Mystery {
	t := types[id%len(types)]

	fact := "this world is truly special. We need to keep watching it!"
	if t.Answer == AnswerFalsePositive {
		fact = "the dip in light was caused by a star"
	}

	return Mystery{
		ID:    id,
		Title: fmt.Sprintf("%s #%d", t.Title, id),
		Description: fmt.Sprintf("A distant world discovered by the Kepler Space Dog team. Its characteristics suggest a mystery related to a %s.",
			strings.ToLower(t.Title)),
		Difficulty: generatedDifficulties[id%len(generatedDifficulties)],
		Icon:       t.Icon,
		Clues: map[string]string{
			ClueSize:        t.Size,
			ClueTemperature: t.Temperature,
			ClueOrbitTime:   t.OrbitTime,
			ClueDistance:    generatedDistances[id%len(generatedDistances)],
		},
		Answer:      t.Answer,
		FunFact:     "This is a unique find! The transit data suggests " + fact,
		RealExample: fmt.Sprintf("Generated Data ID %d", id),
	}
}

// NewCatalog validates entries and indexes them by id.
func NewCatalog(mysteries []Mystery) (*Catalog, error) {
	c := &Catalog{
		mysteries: make([]Mystery, len(mysteries)),
		byID:      make(map[int]int, len(mysteries)),
	}
	copy(c.mysteries, mysteries)
	for i, m := range c.mysteries {
		if !m.Answer.Valid() {
			return nil, fmt.Errorf("%w: mystery %d has answer %q", ErrInvalidMystery, m.ID, m.Answer)
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, m.ID)
		}
		c.byID[m.ID] = i
	}
	return c, nil
}

// Len returns the number of mysteries.
func (c *Catalog) Len() int { return len(c.mysteries) }

// All returns a copy of the catalog in source order.
func (c *Catalog) All() []Mystery {
	out := make([]Mystery, len(c.mysteries))
	copy(out, c.mysteries)
	return out
}

// Get looks a mystery up by id.
func (c *Catalog) Get(id int) (Mystery, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Mystery{}, false
	}
	return c.mysteries[i], true
}

// Resolve maps ids to mysteries, failing on the first unknown id.
func (c *Catalog) Resolve(ids []int) ([]Mystery, error) {
	out := make([]Mystery, 0, len(ids))
	for _, id := range ids {
		m, ok := c.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrMysteryNotFound, id)
		}
		out = append(out, m)
	}
	return out, nil
}
