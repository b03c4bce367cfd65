package content

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed data/*.json schema/*.json
var contentFS embed.FS

// Graph is the static, load-time registry of all narrative content.
// No runtime mutation: lookups are plain map reads.
type Graph struct {
	chapters   map[Key]*Chapter
	challenges map[ChallengeKey]*Chapter
	secrets    []Secret
	events     []Event
}

// Sources are the raw JSON tables a Graph is built from. The enhanced
// tables override base entries by exact key, last writer wins; there
// is no field-level merge, so an override must restate the whole
// chapter or it is dropped silently for missing keys.
type Sources struct {
	Story              []byte
	StoryEnhanced      []byte
	Challenges         []byte
	ChallengesEnhanced []byte
	Secrets            []byte
	Events             []byte
}

// LoadDefault builds the Graph from the content tables embedded in the
// binary.
func LoadDefault() (*Graph, error) {
	read := func(name string) []byte {
		data, err := contentFS.ReadFile("data/" + name)
		if err != nil {
			return nil
		}
		return data
	}
	return Load(Sources{
		Story:              read("story.json"),
		StoryEnhanced:      read("story_enhanced.json"),
		Challenges:         read("challenges.json"),
		ChallengesEnhanced: read("challenges_enhanced.json"),
		Secrets:            read("secrets.json"),
		Events:             read("events.json"),
	})
}

// LoadWithOverrides builds the Graph from the embedded tables, with
// any same-named file present in dir replacing its embedded
// counterpart wholesale.
func LoadWithOverrides(dir string) (*Graph, error) {
	read := func(name string) []byte {
		if data, err := os.ReadFile(filepath.Join(dir, name)); err == nil {
			return data
		}
		data, err := contentFS.ReadFile("data/" + name)
		if err != nil {
			return nil
		}
		return data
	}
	return Load(Sources{
		Story:              read("story.json"),
		StoryEnhanced:      read("story_enhanced.json"),
		Challenges:         read("challenges.json"),
		ChallengesEnhanced: read("challenges_enhanced.json"),
		Secrets:            read("secrets.json"),
		Events:             read("events.json"),
	})
}

// Load validates every source against its schema and builds the Graph.
// Invalid content fails the load; nothing is registered partially.
func Load(src Sources) (*Graph, error) {
	chapterSchema, err := compileSchema("chapters.schema.json")
	if err != nil {
		return nil, err
	}
	secretSchema, err := compileSchema("secrets.schema.json")
	if err != nil {
		return nil, err
	}
	eventSchema, err := compileSchema("events.schema.json")
	if err != nil {
		return nil, err
	}

	g := &Graph{
		chapters:   make(map[Key]*Chapter),
		challenges: make(map[ChallengeKey]*Chapter),
	}

	base, err := parseChapters("story", src.Story, chapterSchema)
	if err != nil {
		return nil, err
	}
	for _, ch := range base {
		g.chapters[Key{Year: ch.Year, Chapter: ch.Number}] = ch
	}
	overlay, err := parseChapters("story_enhanced", src.StoryEnhanced, chapterSchema)
	if err != nil {
		return nil, err
	}
	for _, ch := range overlay {
		g.chapters[Key{Year: ch.Year, Chapter: ch.Number}] = ch
	}

	challenges, err := parseChapters("challenges", src.Challenges, chapterSchema)
	if err != nil {
		return nil, err
	}
	for _, ch := range challenges {
		g.challenges[ChallengeKey{Tier: ch.Tier, Chapter: ch.Number}] = ch
	}
	challengeOverlay, err := parseChapters("challenges_enhanced", src.ChallengesEnhanced, chapterSchema)
	if err != nil {
		return nil, err
	}
	for _, ch := range challengeOverlay {
		g.challenges[ChallengeKey{Tier: ch.Tier, Chapter: ch.Number}] = ch
	}

	if len(src.Secrets) > 0 {
		if err := validateJSON("secrets", src.Secrets, secretSchema); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(src.Secrets, &g.secrets); err != nil {
			return nil, fmt.Errorf("parse secrets: %w", err)
		}
	}

	if len(src.Events) > 0 {
		if err := validateJSON("events", src.Events, eventSchema); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(src.Events, &g.events); err != nil {
			return nil, fmt.Errorf("parse events: %w", err)
		}
	}

	return g, nil
}

// Chapter returns the story chapter at (year, chapter), or nil.
func (g *Graph) Chapter(year, chapter int) *Chapter {
	return g.chapters[Key{Year: year, Chapter: chapter}]
}

// ChallengeChapter returns the challenge chapter at (tier, chapter),
// or nil.
func (g *Graph) ChallengeChapter(tier, chapter int) *Chapter {
	return g.challenges[ChallengeKey{Tier: tier, Chapter: chapter}]
}

// Secrets returns all secret definitions in declared order.
func (g *Graph) Secrets() []Secret {
	return g.secrets
}

// Events returns all climactic event definitions in declared order.
func (g *Graph) Events() []Event {
	return g.events
}

// Event returns the event with the given name, or nil.
func (g *Graph) Event(name string) *Event {
	for i := range g.events {
		if g.events[i].Name == name {
			return &g.events[i]
		}
	}
	return nil
}

func compileSchema(name string) (*jsonschema.Schema, error) {
	data, err := contentFS.ReadFile("schema/" + name)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", name, err)
	}
	schema, err := jsonschema.CompileString(name, string(data))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}

func validateJSON(name string, data []byte, schema *jsonschema.Schema) error {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("validate %s: %w", name, err)
	}
	return nil
}

func parseChapters(name string, data []byte, schema *jsonschema.Schema) ([]*Chapter, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if err := validateJSON(name, data, schema); err != nil {
		return nil, err
	}
	var chapters []*Chapter
	if err := json.Unmarshal(data, &chapters); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	for _, ch := range chapters {
		for i, choice := range ch.Choices {
			if choice.NextDialogue < 0 || choice.NextDialogue > len(ch.Dialogues) {
				return nil, fmt.Errorf("%s: chapter %q choice %d: next_dialogue %d out of range", name, ch.Title, i, choice.NextDialogue)
			}
		}
	}
	return chapters, nil
}
