package schema

// Field describes one column of a contract: its canonical name, logical type,
// and how the cleaner should treat it.
type Field struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"` // "int" | "text" | "bool" | "timestamp"
	Required bool     `json:"required,omitempty"`
	Nullable bool     `json:"nullable,omitempty"`
	Layout   string   `json:"layout,omitempty"`  // timestamp layout override
	Aliases  []string `json:"aliases,omitempty"` // accepted source header names
}

// Contract is the target schema for one raw tabular dataset: the canonical
// column set plus the alias table used to rename source headers.
type Contract struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Columns returns the canonical column names in contract order.
func (c Contract) Columns() []string {
	cols := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		cols[i] = f.Name
	}
	return cols
}

// FieldByName returns the field with the given canonical name.
func (c Contract) FieldByName(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// AliasTable builds the source-header → canonical-name map for the cleaner.
// Each canonical name maps to itself so already-clean files pass through.
func (c Contract) AliasTable() map[string]string {
	m := make(map[string]string, len(c.Fields)*2)
	for _, f := range c.Fields {
		m[f.Name] = f.Name
		for _, a := range f.Aliases {
			m[a] = f.Name
		}
	}
	return m
}

// Trending is the canonical contract for raw trending measurement files.
// Aliases cover the header spellings seen across regional exports.
func Trending() Contract {
	return Contract{
		Name: "trending",
		Fields: []Field{
			{Name: "video_id", Type: "text", Required: true},
			{Name: "region", Type: "text", Required: true},
			{Name: "category_id", Type: "int", Nullable: true, Aliases: []string{"categoryId", "category"}},
			{Name: "title", Type: "text"},
			{Name: "description", Type: "text"},
			{Name: "tags", Type: "text", Aliases: []string{"tag_list"}},
			{Name: "views", Type: "int", Nullable: true, Aliases: []string{"view_count", "viewCount"}},
			{Name: "likes", Type: "int", Nullable: true, Aliases: []string{"like_count", "likeCount"}},
			{Name: "comments", Type: "int", Nullable: true, Aliases: []string{"comment_count", "commentCount"}},
			{Name: "published_at", Type: "timestamp", Required: true, Aliases: []string{"publish_time", "publishedAt"}},
		},
	}
}

// Joined is the output schema of the join stage: the trending contract plus
// the resolved label. Column names here are the stable interface consumed by
// the query layer; renames are breaking changes.
func Joined() Contract {
	t := Trending()
	fields := make([]Field, 0, len(t.Fields)+1)
	fields = append(fields, t.Fields...)
	fields = append(fields, Field{Name: "category_label", Type: "text", Nullable: true})
	return Contract{Name: "trending_joined", Fields: fields}
}
