package store

var (
	CategorySchema = Schema{
		Table:         "categories",
		Columns:       []string{"name", "slug", "description", "color"},
		SearchColumns: []string{"name", "description"},
		Slug:          true,
	}
	ProjectSchema = Schema{
		Table: "projects",
		Columns: []string{"title", "slug", "summary", "content", "image_url", "gallery", "tech_stack",
			"github_url", "live_url", "category_id", "featured"},
		SearchColumns: []string{"title", "summary"},
		Featured:      true,
		Slug:          true,
	}
	PostSchema = Schema{
		Table: "posts",
		Columns: []string{"title", "slug", "excerpt", "content", "cover_image", "tags", "category_id",
			"featured", "published_at", "reading_minutes"},
		SearchColumns: []string{"title", "excerpt"},
		Featured:      true,
		Slug:          true,
		OrderBy:       "published_at DESC NULLS LAST, sort_order ASC, created_at DESC",
	}
	TestimonialSchema = Schema{
		Table:         "testimonials",
		Columns:       []string{"name", "role", "company", "content", "avatar_url", "rating", "featured"},
		SearchColumns: []string{"name", "company", "content"},
		Featured:      true,
	}
	ExperienceSchema = Schema{
		Table: "experiences",
		Columns: []string{"company", "position", "location", "start_date", "end_date", "is_current",
			"description", "tech_stack"},
		SearchColumns: []string{"company", "position"},
	}
	EducationSchema = Schema{
		Table:         "education",
		Columns:       []string{"institution", "degree", "field", "start_date", "end_date", "description"},
		SearchColumns: []string{"institution", "degree", "field"},
	}
	SkillSchema = Schema{
		Table:         "skills",
		Columns:       []string{"name", "category", "level", "icon"},
		SearchColumns: []string{"name", "category"},
	}
	IdeaNodeSchema = Schema{
		Table: "idea_nodes",
		Columns: []string{"title", "content", "color", "x", "y", "width", "height", "connections",
			"estimated_value", "tags"},
		SearchColumns: []string{"title", "content"},
		OrderBy:       "sort_order ASC, created_at ASC",
	}
)
