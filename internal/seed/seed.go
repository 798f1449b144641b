// Package seed loads starter portfolio content from a YAML file.
//
// Keys follow the JSON field names of the API, so an exported admin payload
// can be pasted into a seed file unchanged:
//
//	profile:
//	  name: Ada Lovelace
//	categories:
//	  - name: Tools
//	projects:
//	  - title: Kiln
//	    category: tools
//	    techStack: [go, postgres]
package seed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"portfolio/api/internal/store"
)

// Project is a seeded project. Category names the category by slug.
type Project struct {
	store.Project
	Category string `json:"category"`
}

// Post is a seeded blog post. Category names the category by slug.
type Post struct {
	store.Post
	Category string `json:"category"`
}

type Document struct {
	Profile      *store.Profile      `json:"profile"`
	Categories   []store.Category    `json:"categories"`
	Projects     []Project           `json:"projects"`
	Posts        []Post              `json:"posts"`
	Testimonials []store.Testimonial `json:"testimonials"`
	Experiences  []store.Experience  `json:"experiences"`
	Education    []store.Education   `json:"education"`
	Skills       []store.Skill       `json:"skills"`
	IdeaNodes    []store.IdeaNode    `json:"ideaNodes"`
}

// contentSections hold rows that are published unless they say otherwise.
var contentSections = []string{"categories", "projects", "posts", "testimonials", "experiences", "education", "skills"}

func Load(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read seed file: %w", err)
	}
	doc, err := Parse(raw)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func Parse(raw []byte) (Document, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return Document{}, fmt.Errorf("parse seed yaml: %w", err)
	}
	if tree == nil {
		return Document{}, nil
	}
	for _, section := range contentSections {
		rows, _ := tree[section].([]any)
		for _, row := range rows {
			if fields, ok := row.(map[string]any); ok {
				if _, set := fields["visible"]; !set {
					fields["visible"] = true
				}
			}
		}
	}

	encoded, err := json.Marshal(normalize("", tree))
	if err != nil {
		return Document{}, fmt.Errorf("encode seed: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.DisallowUnknownFields()
	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode seed: %w", err)
	}
	return doc, nil
}

// dateFields are stored as plain date strings rather than timestamps.
var dateFields = map[string]bool{"startDate": true, "endDate": true}

// normalize turns YAML timestamps back into the strings the content types
// decode: dates for dateFields, RFC 3339 everywhere else.
func normalize(key string, value any) any {
	switch v := value.(type) {
	case map[string]any:
		for k, item := range v {
			v[k] = normalize(k, item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = normalize(key, item)
		}
		return v
	case time.Time:
		if dateFields[key] {
			return v.Format(time.DateOnly)
		}
		return v.Format(time.RFC3339)
	default:
		return v
	}
}

// Summary counts what an apply run created and skipped, keyed by section.
type Summary struct {
	Created map[string]int `json:"created"`
	Skipped map[string]int `json:"skipped"`
}

func NewSummary() Summary {
	return Summary{Created: map[string]int{}, Skipped: map[string]int{}}
}

func (s Summary) Total() int {
	total := 0
	for _, n := range s.Created {
		total += n
	}
	return total
}
