package datatypes

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// Field represents a column of a dataset schema together with its field id
type Field struct {
	ID       int32
	Name     string
	Type     arrow.DataType
	Nullable bool
	Children []Field
}

// String returns a short description of the field
func (f Field) String() string {
	return fmt.Sprintf("%s(id=%d, type=%s, nullable=%t)", f.Name, f.ID, f.Type, f.Nullable)
}

// ArrowField converts the field back into an Arrow field
func (f Field) ArrowField() arrow.Field {
	return arrow.Field{Name: f.Name, Type: f.Type, Nullable: f.Nullable}
}

// Schema is an ordered list of top-level fields with ids assigned
type Schema struct {
	Fields []Field
}

// SchemaFromArrow assigns field ids depth-first, starting at 0, to every field
// of an Arrow schema. Struct members and list elements receive ids after their
// parent.
func SchemaFromArrow(s *arrow.Schema) *Schema {
	schema := &Schema{}
	if s == nil {
		return schema
	}

	nextID := int32(0)
	for _, af := range s.Fields() {
		schema.Fields = append(schema.Fields, assignIDs(af, &nextID))
	}
	return schema
}

func assignIDs(af arrow.Field, nextID *int32) Field {
	field := Field{
		ID:       *nextID,
		Name:     af.Name,
		Type:     af.Type,
		Nullable: af.Nullable,
	}
	*nextID++

	switch dt := af.Type.(type) {
	case *arrow.StructType:
		for _, child := range dt.Fields() {
			field.Children = append(field.Children, assignIDs(child, nextID))
		}
	case arrow.ListLikeType:
		field.Children = append(field.Children, assignIDs(dt.ElemField(), nextID))
	}
	return field
}

// Field looks up a top-level field by name
func (s *Schema) Field(name string) (*Field, bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// FieldByID looks up a field by id at any depth
func (s *Schema) FieldByID(id int32) (*Field, bool) {
	return findByID(s.Fields, id)
}

func findByID(fields []Field, id int32) (*Field, bool) {
	for i := range fields {
		if fields[i].ID == id {
			return &fields[i], true
		}
		if f, ok := findByID(fields[i].Children, id); ok {
			return f, true
		}
	}
	return nil, false
}

// FieldIDs returns every field id of the schema in depth-first order
func (s *Schema) FieldIDs() []int32 {
	var ids []int32
	var walk func(fields []Field)
	walk = func(fields []Field) {
		for _, f := range fields {
			ids = append(ids, f.ID)
			walk(f.Children)
		}
	}
	walk(s.Fields)
	return ids
}

// ToArrow converts the schema back to an Arrow schema
func (s *Schema) ToArrow() *arrow.Schema {
	fields := make([]arrow.Field, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = f.ArrowField()
	}
	return arrow.NewSchema(fields, nil)
}
