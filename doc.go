// Package record is an ActiveRecord-style model layer for PostgreSQL.
//
// # Overview
//
// Package record maps Go structs to PostgreSQL tables, declares associations
// between them and builds queries that walk those associations. Queries are
// immutable values: every builder method returns a new Query, and the first
// error is kept and reported by Err, Execute or Load.
//
// # Models
//
//	type User struct {
//		Id   int
//		Name string
//	}
//
//	users := record.NewModel(User{}, conn)
//	posts := record.NewModelTable("posts", conn)
//
// Table names are the plural snake case of the struct name. A
// __TABLE_NAME__ field with the table name as its tag overrides it. Column
// names come from the "column" struct tag or the snake case field name.
//
// # Associations
//
// Associations are declared on the model, or in Relations, Validations and
// Callbacks methods of the struct that run once before the first query:
//
//	users.HasMany("posts", posts, "user_id")
//	posts.BelongsTo("user", users, "user_id")
//	users.HasManyThrough("comments", "posts", "")
//
//	func (Post) Relations(m *record.Model) error {
//		return m.BelongsTo("user", users, "")
//	}
//
// Declaring associations after a model has been queried is an error.
//
// # Queries
//
// GetAssoc moves a query from the owner to the associated records, and Joins
// adds INNER JOINs for one or more associations:
//
//	users.Find(1).GetAssoc("posts").OrderBy("id", "DESC").Limit(10)
//	// SELECT "posts".* FROM posts WHERE "posts"."user_id" = $1
//	//   ORDER BY "posts"."id" DESC LIMIT 10
//
//	posts.Joins("user").Where("title", "hi")
//
// String and StringValues render the SQL; ToSQL returns every statement a
// query will run, including lookups of owner records.
//
// # Execution
//
//	rows, err := users.Find(1).GetAssoc("posts").Execute(ctx)
//
//	var list []Post
//	err = users.Find(1).GetAssoc("posts").Load(ctx, &list)
//
//	n, err := users.Where("age", "> 18").Count().Value(ctx)
//
// FindOrFail, a missing owner record of an association, and Load of a
// single record with no rows return a RecordNotFoundError. Use IsNotFound
// to check for it.
//
// # Writes
//
// Create, Update, Save and Destroy run in a transaction. Changes are given
// as field or column name and value pairs, or as Changes maps:
//
//	users.Create("Name", "alice").Execute(ctx)
//	users.Find(1).Update("Name", "bob").Execute(ctx)
//	users.Find(1).Destroy().Execute(ctx)
//
// Validations registered with Validates run before every write, and
// BeforeSave callbacks may change the values written. Use Permit or
// PermitAllExcept with Filter to take changes from user input:
//
//	changes := users.Permit("Name").Filter(req.Body)
//	users.Create(changes).Execute(ctx)
//
// # Transactions
//
//	err := users.Transaction(ctx, func(ctx context.Context, tx record.Gateway) error {
//		_, err := tx.Execute(ctx, `UPDATE "users" SET "name" = $1`, []interface{}{"x"})
//		return err
//	})
//
// # Related packages
//
// Package dial opens connections with the pgx or pq driver, package migrate
// defines and runs schema migrations, and package generate writes models and
// migrations. The record command in cmd/record puts them together.
package record
