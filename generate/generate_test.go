package generate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestParseFields(t *testing.T) {
	fields, err := ParseFields([]string{"title:string", "user:references", "published_at:datetime"})
	require.NoError(t, err)
	assert.Equal(t, []Field{
		{Name: "title", Type: "string"},
		{Name: "user_id", Type: "integer", Reference: "user"},
		{Name: "published_at", Type: "datetime"},
	}, fields)
	assert.Equal(t, "UserId", fields[1].GoName())
	assert.Equal(t, "PublishedAt", fields[2].GoName())

	for _, arg := range []string{"title", ":string", "title:"} {
		_, err := ParseFields([]string{arg})
		assert.ErrorIs(t, err, ErrInvalidField, arg)
	}
}

func TestInferTable(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"addPublishedAtToPosts", "posts"},
		{"AddTotalToOrders", "orders"},
		{"removeIndexFromBlogPosts", "blog_posts"},
		{"changeUsers", "users"},
		{"addCategory", "categories"},
		{"createPosts", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferTable(tt.name))
		})
	}
}

func TestModel(t *testing.T) {
	dir := t.TempDir()
	fields, err := ParseFields([]string{"title:string", "views:integer", "user:references", "published_at:datetime"})
	require.NoError(t, err)

	opts := ModelOptions{
		Name:          "blogPost",
		Fields:        fields,
		Dir:           filepath.Join(dir, "models"),
		MigrationsDir: filepath.Join(dir, "migrations"),
		Now:           fixedNow,
	}
	paths, err := Model(opts)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "models", "blog_post.go"),
		filepath.Join(dir, "migrations", "20240102030405_create_blog_posts_table.go"),
	}, paths)

	model := readFile(t, paths[0])
	assert.Contains(t, model, "package models")
	assert.Contains(t, model, `"github.com/gopsql/record"`)
	assert.Contains(t, model, "type BlogPost struct {")
	assert.Regexp(t, `UserId\s+int`, model)
	assert.Regexp(t, `PublishedAt\s+time\.Time`, model)
	assert.Contains(t, model, "func (BlogPost) TableName() string {\n\treturn \"blog_posts\"\n}")
	assert.Contains(t, model, "func (BlogPost) Relations(m *record.Model) error {")
	assert.Contains(t, model, `// m.BelongsTo("user", Users, "user_id")`)
	assert.Contains(t, model, "func (BlogPost) Validations(m *record.Model) {}")
	assert.Contains(t, model, "func (BlogPost) Callbacks(m *record.Model) {}")

	migration := readFile(t, paths[1])
	assert.Contains(t, migration, "package migrations")
	assert.Contains(t, migration, `migrate.MustRegister("20240102030405_create_blog_posts_table", CreateBlogPostsTable{})`)
	assert.Contains(t, migration, "func (CreateBlogPostsTable) Change(s *migrate.Schema) {")
	assert.Contains(t, migration, `s.CreateTable("blog_posts", func(t *migrate.Table) {`)
	assert.Contains(t, migration, `t.Column("user_id", "integer", migrate.Null(false))`)

	_, err = Model(opts)
	assert.ErrorIs(t, err, ErrFileExists)

	opts.Force = true
	opts.Table = "articles"
	_, err = Model(opts)
	require.NoError(t, err)
	assert.Contains(t, readFile(t, paths[0]), `return "articles"`)
}

func TestMigration(t *testing.T) {
	tests := []struct {
		name     string
		opts     MigrationOptions
		file     string
		contains []string
		absent   []string
	}{
		{
			name: "add columns",
			opts: MigrationOptions{Name: "addPublishedAtToPosts", Args: []string{"published_at:datetime", "views:integer"}},
			file: "20240102030405_add_published_at_to_posts.go",
			contains: []string{
				`migrate.MustRegister("20240102030405_add_published_at_to_posts", AddPublishedAtToPosts{})`,
				"func (AddPublishedAtToPosts) Change(s *migrate.Schema) {",
				`s.AddColumn("posts", "published_at", "datetime", migrate.DefaultExpr("CURRENT_TIMESTAMP"))`,
				`s.AddColumn("posts", "views", "integer")`,
			},
		},
		{
			name: "explicit table",
			opts: MigrationOptions{Name: "addSlug", Args: []string{"table:articles", "slug:string", "broken"}},
			file: "20240102030405_add_slug.go",
			contains: []string{
				`s.AddColumn("articles", "slug", "string")`,
			},
		},
		{
			name: "add index",
			opts: MigrationOptions{Name: "addIndexToPosts", Args: []string{"title"}},
			file: "20240102030405_add_index_to_posts.go",
			contains: []string{
				`s.AddIndex("posts", "title")`,
				"Change(s *migrate.Schema)",
			},
		},
		{
			name: "remove index",
			opts: MigrationOptions{Name: "removeIndexFromPosts", Args: []string{"title:string"}},
			file: "20240102030405_remove_index_from_posts.go",
			contains: []string{
				`s.RemoveIndex("posts", "title")`,
			},
		},
		{
			name: "remove column is up and down",
			opts: MigrationOptions{Name: "removeViewsFromPosts", Args: []string{"views:integer"}},
			file: "20240102030405_remove_views_from_posts.go",
			contains: []string{
				"func (RemoveViewsFromPosts) Up(s *migrate.Schema) {\n\ts.RemoveColumn(\"posts\", \"views\")\n}",
				"func (RemoveViewsFromPosts) Down(s *migrate.Schema) {\n\ts.AddColumn(\"posts\", \"views\", \"integer\")\n}",
			},
			absent: []string{"Change("},
		},
		{
			name: "change column",
			opts: MigrationOptions{Name: "changeTitleOnPosts", Args: []string{"table:posts", "title:text"}},
			file: "20240102030405_change_title_on_posts.go",
			contains: []string{
				`s.ChangeColumn("posts", "title", "text")`,
				`// s.ChangeColumn("posts", "title", <previous type>)`,
			},
		},
		{
			name: "table from reference column",
			opts: MigrationOptions{Name: "add-author", Args: []string{"author_id:integer"}},
			file: "20240102030405_add_author.go",
			contains: []string{
				`s.AddColumn("authors", "author_id", "integer")`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.opts.Dir = dir
			tt.opts.Now = fixedNow
			path, err := Migration(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, tt.file), path)
			content := readFile(t, path)
			assert.Contains(t, content, "package migrations")
			for _, s := range tt.contains {
				assert.Contains(t, content, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, content, s)
			}
		})
	}
}

func TestMigrationErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		opts MigrationOptions
		err  error
	}{
		{"no name", MigrationOptions{}, ErrInvalidName},
		{"no table", MigrationOptions{Name: "createThings", Args: []string{"title:string"}}, ErrNoTable},
		{"no fields", MigrationOptions{Name: "addTitleToPosts"}, ErrNoActions},
		{"only invalid fields", MigrationOptions{Name: "addTitleToPosts", Args: []string{"title"}}, ErrNoActions},
		{"index without column", MigrationOptions{Name: "addIndexToPosts"}, ErrNoActions},
		{"unknown verb", MigrationOptions{Name: "dropPosts", Args: []string{"table:posts", "title:string"}}, ErrNoActions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Dir = dir
			_, err := Migration(tt.opts)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	opts := MigrationOptions{Name: "addTitleToPosts", Args: []string{"title:string"}, Dir: dir, Now: fixedNow}
	_, err := Migration(opts)
	require.NoError(t, err)
	_, err = Migration(opts)
	assert.ErrorIs(t, err, ErrFileExists)
}
