package record

import (
	"encoding/json"
	"io"
	"reflect"
)

// PermittedModel limits which fields of a Model can be taken from user input.
// Create it with Permit() or PermitAllExcept() and pass the output of
// Filter() to Create(), Save() or Update().
type PermittedModel struct {
	*Model
	permitted []Field
}

// Permit allows only the given struct fields. If no field names are
// provided, no fields are permitted.
func (m *Model) Permit(fieldNames ...string) *PermittedModel {
	p := &PermittedModel{Model: m}
	for _, field := range m.modelFields {
		for _, name := range fieldNames {
			if name == field.Name {
				p.permitted = append(p.permitted, field)
				break
			}
		}
	}
	return p
}

// PermitAllExcept allows all struct fields except the given ones.
func (m *Model) PermitAllExcept(fieldNames ...string) *PermittedModel {
	p := &PermittedModel{Model: m}
outer:
	for _, field := range m.modelFields {
		for _, name := range fieldNames {
			if name == field.Name {
				continue outer
			}
		}
		p.permitted = append(p.permitted, field)
	}
	return p
}

// PermittedFields returns the permitted struct field names.
func (p PermittedModel) PermittedFields() (out []string) {
	for _, field := range p.permitted {
		out = append(out, field.Name)
	}
	return
}

// Filter keeps the permitted fields of the inputs, keyed by column name.
// Inputs can be maps or JSON (string, []byte or io.Reader) keyed by the
// fields' JSON names, or a struct. Later inputs override earlier ones.
//
//	changes := users.Permit("Name", "Email").Filter(req.Body)
//	users.Create(changes).Execute(ctx)
func (p PermittedModel) Filter(inputs ...interface{}) Changes {
	out := Changes{}
	for _, input := range inputs {
		switch in := input.(type) {
		case Changes:
			p.filterPermits(in, out)
		case map[string]interface{}:
			p.filterPermits(in, out)
		case string:
			var c map[string]interface{}
			if json.Unmarshal([]byte(in), &c) == nil {
				p.filterPermits(c, out)
			}
		case []byte:
			var c map[string]interface{}
			if json.Unmarshal(in, &c) == nil {
				p.filterPermits(c, out)
			}
		case io.Reader:
			var c map[string]interface{}
			if json.NewDecoder(in).Decode(&c) == nil {
				p.filterPermits(c, out)
			}
		default:
			rv := reflect.Indirect(reflect.ValueOf(in))
			if rv.Kind() != reflect.Struct {
				continue
			}
			for _, field := range p.permitted {
				if v := rv.FieldByName(field.Name); v.IsValid() && v.CanInterface() {
					out[field.ColumnName] = v.Interface()
				}
			}
		}
	}
	return out
}

// filterPermits converts JSON values to the types of the struct fields.
func (p PermittedModel) filterPermits(in map[string]interface{}, out Changes) {
	for _, field := range p.permitted {
		value, ok := in[field.JsonName]
		if !ok {
			continue
		}
		if p.structType == nil {
			out[field.ColumnName] = value
			continue
		}
		f, ok := p.structType.FieldByName(field.Name)
		if !ok {
			continue
		}
		b, err := json.Marshal(value)
		if err != nil {
			continue
		}
		x := reflect.New(f.Type)
		if err := json.Unmarshal(b, x.Interface()); err != nil {
			continue
		}
		out[field.ColumnName] = x.Elem().Interface()
	}
}
