package record

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gopsql/db"
	"github.com/gopsql/logger"
)

type (
	// Model is a database table and it is created from struct. Table name
	// is inferred from the name of the struct, the tag of __TABLE_NAME__
	// field or its TableName() receiver. Column names are inferred from
	// struct field names or theirs "column" tags. Both table names and
	// field names are in snake_case by default.
	//
	// Associations are registered with HasMany(), HasOne(), BelongsTo() and
	// HasManyThrough(), or in a Relations(*Model) error method of the
	// struct. The registry is sealed when the first query is built from the
	// model and can not be changed afterwards.
	Model struct {
		connection db.DB
		gateway    Gateway
		logger     logger.Logger
		structType reflect.Type
		*modelInfo
	}

	// modelInfo is shared between a model and its clones.
	modelInfo struct {
		tableName    string
		modelFields  []Field
		associations associations
		validations  []validation
		beforeSave   []BeforeSaveFunc

		mu           sync.Mutex
		sealed       bool
		sealOnce     sync.Once
		sealErr      error
		relations    declState
		relationsErr error
	}

	// declState tracks the Relations hook of a model.
	declState int

	Field struct {
		Name       string // struct field name
		ColumnName string // column name in database
		JsonName   string // key name in json input and output
		Exported   bool   // false if field name is lower case (unexported)
	}
)

// Initialize a Model from a struct. For available options, see SetOptions().
func NewModel(object interface{}, options ...interface{}) (m *Model) {
	m = &Model{
		modelInfo: &modelInfo{
			tableName:   ToTableName(object),
			modelFields: parseStruct(object),
		},
		structType: reflect.TypeOf(object),
	}
	if m.structType != nil && m.structType.Kind() == reflect.Ptr {
		m.structType = m.structType.Elem()
	}
	m.SetOptions(options...)
	return
}

// Initialize a Model by defining table name only, for example:
//
//	record.NewModelTable("users", conn).Count()
//
// For available options, see SetOptions().
func NewModelTable(tableName string, options ...interface{}) (m *Model) {
	m = &Model{
		modelInfo: &modelInfo{
			tableName: tableName,
		},
	}
	m.SetOptions(options...)
	return
}

func (m Model) String() string {
	return `model (table: "` + m.tableName + `") has ` +
		strconv.Itoa(len(m.associations.names)) + " associations"
}

// Table name of the Model (see ToTableName()).
func (m Model) TableName() string {
	return m.tableName
}

// Type name of the Model.
func (m Model) TypeName() string {
	if m.structType != nil {
		return m.structType.Name()
	}
	return ""
}

func (m Model) name() string {
	if n := m.TypeName(); n != "" {
		return n
	}
	return m.tableName
}

// Get field by struct field name, nil will be returned if no such field.
func (m Model) FieldByName(name string) *Field {
	for _, f := range m.modelFields {
		if f.Name == name {
			return &f
		}
	}
	return nil
}

// Fields returns the fields parsed from the struct of the Model.
func (m Model) Fields() []Field {
	return m.modelFields
}

// Clone returns a copy of the model. The copy shares the association
// registry of the model.
func (m *Model) Clone() *Model {
	return &Model{
		connection: m.connection,
		gateway:    m.gateway,
		logger:     m.logger,
		structType: m.structType,
		modelInfo:  m.modelInfo,
	}
}

// Quiet returns a copy of the model without logger.
func (m *Model) Quiet() *Model {
	return m.Clone().SetLogger(nil)
}

// SetOptions sets database connection (see SetConnection()), gateway (see
// SetGateway()) and/or logger (see SetLogger()).
func (m *Model) SetOptions(options ...interface{}) *Model {
	for _, option := range options {
		switch o := option.(type) {
		case db.DB:
			m.SetConnection(o)
		case Gateway:
			m.SetGateway(o)
		case logger.Logger:
			m.SetLogger(o)
		}
	}
	return m
}

// Return database connection for the Model.
func (m *Model) Connection() db.DB {
	return m.connection
}

// Set a database connection for the Model. ErrNoConnection is returned by
// the execution methods if neither a connection nor a gateway is set.
func (m *Model) SetConnection(db db.DB) *Model {
	m.connection = db
	return m
}

// Set the gateway that executes the statements of the Model. It takes
// precedence over the connection.
func (m *Model) SetGateway(gateway Gateway) *Model {
	m.gateway = gateway
	return m
}

// Set the logger for the Model. Use logger.StandardLogger if you want to use
// Go's built-in standard logging package. By default, no logger is used, so
// the SQL statements are not printed to the console.
func (m *Model) SetLogger(logger logger.Logger) *Model {
	m.logger = logger
	return m
}

// Gateway returns the gateway of the Model, or a gateway over its
// connection. Nil is returned if neither is set.
func (m *Model) Gateway() Gateway {
	if m.gateway != nil {
		return m.gateway
	}
	if m.connection != nil {
		return NewGateway(m.connection, m.logger)
	}
	return nil
}

// HasMany registers an association whose foreign key column lives on the
// target table and references the id of this model. An empty foreign key
// defaults to "<singular table name>_id".
//
//	users.HasMany("posts", posts, "user_id")
func (m *Model) HasMany(name string, target *Model, foreignKey string) error {
	if foreignKey == "" {
		foreignKey = ToSingular(m.tableName) + "_id"
	}
	return m.register(HasMany{Name: name, Target: target, ForeignKey: foreignKey})
}

// HasOne is like HasMany but the target has at most one row per owner.
func (m *Model) HasOne(name string, target *Model, foreignKey string) error {
	if foreignKey == "" {
		foreignKey = ToSingular(m.tableName) + "_id"
	}
	return m.register(HasOne{Name: name, Target: target, ForeignKey: foreignKey})
}

// BelongsTo registers an association whose foreign key column lives on this
// model's table. An empty foreign key defaults to "<name>_id".
//
//	posts.BelongsTo("user", users, "user_id")
func (m *Model) BelongsTo(name string, target *Model, foreignKey string) error {
	if foreignKey == "" {
		foreignKey = name + "_id"
	}
	return m.register(BelongsTo{Name: name, Target: target, ForeignKey: foreignKey})
}

// HasManyThrough registers an association that reaches its target through
// another association of this model. The through association must already
// be registered and the model it points to must have an association named
// name (or its singular form) to the target. The Relations hook of that
// model runs first if it has not yet. An empty foreign key is taken from
// that association.
//
//	users.HasMany("memberships", memberships, "user_id")
//	memberships.BelongsTo("group", groups, "group_id")
//	users.HasManyThrough("groups", "memberships", "")
func (m *Model) HasManyThrough(name, through, foreignKey string) error {
	thr, ok := m.associations.get(through)
	if !ok {
		return &ConfigurationError{
			Reason: fmt.Sprintf("hasManyThrough %q: through association %q is not defined on %s", name, through, m.name()),
		}
	}
	if _, nested := thr.(HasManyThrough); nested {
		return &ConfigurationError{
			Reason: fmt.Sprintf("hasManyThrough %q: through association %q can not be another hasManyThrough", name, through),
		}
	}
	join := thr.TargetModel()
	if err := join.declareRelations(); err != nil {
		return err
	}
	rel, ok := join.nestedAssociation(name)
	if !ok {
		return &ConfigurationError{
			Reason: fmt.Sprintf("hasManyThrough %q: %s has no association %q or %q", name, join.name(), name, ToSingular(name)),
		}
	}
	if foreignKey == "" {
		switch r := rel.(type) {
		case HasMany:
			foreignKey = r.ForeignKey
		case HasOne:
			foreignKey = r.ForeignKey
		case BelongsTo:
			foreignKey = r.ForeignKey
		default:
			return &ConfigurationError{
				Reason: fmt.Sprintf("hasManyThrough %q: association of %s can not be another hasManyThrough", name, join.name()),
			}
		}
	}
	return m.register(HasManyThrough{
		Name:            name,
		Target:          rel.TargetModel(),
		ForeignKey:      foreignKey,
		Join:            join,
		JoinAssociation: through,
	})
}

func (m *Model) register(r Relation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sealed {
		return &ConfigurationError{
			Reason: fmt.Sprintf("association %q can not be added to %s after queries have been built", r.AssociationName(), m.name()),
		}
	}
	return m.associations.add(r)
}

// Associations returns the registered associations in declaration order.
func (m *Model) Associations() []Relation {
	return m.associations.list()
}

// association looks up name in the sealed registry of the model.
func (m *Model) association(name string) (Relation, error) {
	if err := m.seal(); err != nil {
		return nil, err
	}
	r, ok := m.associations.get(name)
	if !ok {
		return nil, &UnknownAssociationError{Model: m.name(), Association: name}
	}
	return r, nil
}

// nestedAssociation finds the association a HasManyThrough continues with.
func (m *Model) nestedAssociation(name string) (Relation, bool) {
	if r, ok := m.associations.get(name); ok {
		return r, true
	}
	return m.associations.get(ToSingular(name))
}

// seal runs the declaration hooks of the struct once and freezes the
// association registry. Hooks must not build queries.
func (m *Model) seal() error {
	m.sealOnce.Do(func() {
		m.sealErr = m.declare()
		m.mu.Lock()
		m.sealed = true
		m.mu.Unlock()
	})
	return m.sealErr
}

const (
	relationsPending declState = iota
	relationsRunning
	relationsDone
)

// declareRelations runs the Relations hook of the struct once without
// sealing the model, so a HasManyThrough of another model can see the
// associations of its join model. A call made while the hook is running,
// like one from a model whose hook refers back to this one, returns at once
// and sees the associations registered so far.
func (m *Model) declareRelations() error {
	if m.structType == nil {
		return nil
	}
	m.mu.Lock()
	if m.relations != relationsPending {
		err := m.relationsErr
		m.mu.Unlock()
		return err
	}
	m.relations = relationsRunning
	m.mu.Unlock()

	var err error
	obj := reflect.New(m.structType).Interface()
	if o, ok := obj.(interface{ Relations(*Model) error }); ok {
		err = o.Relations(m)
	}

	m.mu.Lock()
	m.relations = relationsDone
	m.relationsErr = err
	m.mu.Unlock()
	return err
}

func (m *Model) declare() error {
	if m.structType == nil {
		return nil
	}
	if err := m.declareRelations(); err != nil {
		return err
	}
	obj := reflect.New(m.structType).Interface()
	if o, ok := obj.(interface{ Validations(*Model) }); ok {
		o.Validations(m)
	}
	if o, ok := obj.(interface{ Callbacks(*Model) }); ok {
		o.Callbacks(m)
	}
	return nil
}

// Find returns a query of the record with the given id.
func (m *Model) Find(id interface{}) *Query {
	return newQuery(m, false).Find(id).Limit(1)
}

// FindOrFail is like Find but executing the query fails with a
// RecordNotFoundError when the record does not exist.
func (m *Model) FindOrFail(id interface{}) *Query {
	return newQuery(m, false).FindOrFail(id).Limit(1)
}

// FindBy returns a query of the first record matching the conditions. See
// Query.FindBy() for the accepted forms.
func (m *Model) FindBy(conds ...interface{}) *Query {
	return newQuery(m, false).FindBy(conds...).Limit(1)
}

// Where returns a query of all records matching the conditions.
func (m *Model) Where(conds ...interface{}) *Query {
	return newQuery(m, true).Where(conds...)
}

// All returns a query of all records.
func (m *Model) All() *Query {
	return newQuery(m, true).All()
}

// Select returns a query of all records with the given columns.
func (m *Model) Select(fields ...string) *Query {
	return newQuery(m, true).Select(fields...)
}

// First returns a query of the record with the lowest id.
func (m *Model) First() *Query {
	return newQuery(m, true).First()
}

// Last returns a query of the record with the highest id.
func (m *Model) Last() *Query {
	return newQuery(m, true).Last()
}

// Count returns a query counting the records, see Query.Count().
func (m *Model) Count(field ...string) *Query {
	return newQuery(m, true).Count(field...)
}

// Sum returns a query of the sum of field.
func (m *Model) Sum(field string) *Query {
	return newQuery(m, true).Sum(field)
}

// Average returns a query of the average of field.
func (m *Model) Average(field string) *Query {
	return newQuery(m, true).Average(field)
}

// Joins returns a query of all records joined with the associations.
func (m *Model) Joins(names ...interface{}) *Query {
	return newQuery(m, true).Joins(names...)
}

// GroupBy returns a query of all records grouped by the columns.
func (m *Model) GroupBy(columns ...string) *Query {
	return newQuery(m, true).GroupBy(columns...)
}

// Limit returns a query of at most count records.
func (m *Model) Limit(count interface{}) *Query {
	return newQuery(m, true).Limit(count)
}

// OrderBy returns a query of all records ordered by column.
func (m *Model) OrderBy(column, direction string) *Query {
	return newQuery(m, true).OrderBy(column, direction)
}

// columnName maps a struct field name to its column. Unknown names are
// treated as column names.
func (m Model) columnName(key string) string {
	if f := m.FieldByName(key); f != nil {
		return f.ColumnName
	}
	return key
}

// parseStruct collects column names and json names
func parseStruct(obj interface{}) (fields []Field) {
	var rt reflect.Type
	if o, ok := obj.(reflect.Type); ok {
		rt = o
	} else {
		rt = reflect.TypeOf(obj)
	}
	if rt == nil {
		return
	}
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.Anonymous {
			fields = append(fields, parseStruct(f.Type)...)
			continue
		}
		if f.Name == tableNameField {
			continue
		}

		columnName := f.Tag.Get("column")
		if columnName == "-" {
			continue
		}
		if idx := strings.Index(columnName, ","); idx != -1 {
			columnName = columnName[:idx]
		}
		if columnName == "" {
			if f.PkgPath != "" {
				continue // ignore unexported field if no column specified
			}
			columnName = ToUnderscore(f.Name)
		}

		jsonName := f.Tag.Get("json")
		if jsonName == "-" {
			jsonName = ""
		} else {
			if idx := strings.Index(jsonName, ","); idx != -1 {
				jsonName = jsonName[:idx]
			}
			if jsonName == "" {
				jsonName = f.Name
			}
		}

		fields = append(fields, Field{
			Name:       f.Name,
			Exported:   f.PkgPath == "",
			ColumnName: columnName,
			JsonName:   jsonName,
		})
	}
	return
}
