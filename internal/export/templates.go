package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"portfolio/api/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var resumeTemplate = template.Must(template.New("resume.html").Funcs(template.FuncMap{
	"join": func(items []string, sep string) string { return strings.Join(items, sep) },
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
	"dateRange": dateRange,
}).ParseFS(templateFS, "templates/resume.html"))

type templateData struct {
	Resume
	SkillGroups []SkillGroup
}

// RenderHTML renders the resume page.
func RenderHTML(resume Resume) (string, error) {
	if resume.GeneratedAt.IsZero() {
		resume.GeneratedAt = time.Now()
	}
	var buf bytes.Buffer
	if err := resumeTemplate.Execute(&buf, templateData{Resume: resume, SkillGroups: GroupSkills(resume.Skills)}); err != nil {
		return "", fmt.Errorf("render resume: %w", err)
	}
	return buf.String(), nil
}

// GroupSkills groups skills by category, keeping the first-seen order of
// categories and skills. Blank categories are grouped under "Other".
func GroupSkills(skills []store.Skill) []SkillGroup {
	groups := make([]SkillGroup, 0)
	index := map[string]int{}
	for _, skill := range skills {
		category := strings.TrimSpace(skill.Category)
		if category == "" {
			category = "Other"
		}
		i, ok := index[category]
		if !ok {
			i = len(groups)
			index[category] = i
			groups = append(groups, SkillGroup{Category: category})
		}
		groups[i].Skills = append(groups[i].Skills, skill)
	}
	return groups
}

func dateRange(start, end string, current bool) string {
	switch {
	case current && start != "":
		return start + " – Present"
	case start != "" && end != "":
		return start + " – " + end
	case start != "":
		return start
	default:
		return end
	}
}
