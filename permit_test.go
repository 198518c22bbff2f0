package record

import (
	"reflect"
	"strings"
	"testing"
)

type permitTestUser struct {
	Id       int
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Password string `column:"password_digest" json:"password"`
}

func TestPermit(t *testing.T) {
	m := NewModel(permitTestUser{})
	cases := []struct {
		fields []string
		want   []string
	}{
		{nil, nil},
		{[]string{"Name"}, []string{"Name"}},
		{[]string{"Age", "Name", "Unknown"}, []string{"Name", "Age"}},
	}
	for i, c := range cases {
		got := m.Permit(c.fields...).PermittedFields()
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("case %d: PermittedFields() = %v, want %v", i, got, c.want)
		}
	}
	got := m.PermitAllExcept("Id", "Password").PermittedFields()
	if !reflect.DeepEqual(got, []string{"Name", "Age"}) {
		t.Errorf("PermitAllExcept() = %v", got)
	}
}

func TestFilter(t *testing.T) {
	m := NewModel(permitTestUser{})
	p := m.Permit("Name", "Age", "Password")
	cases := []struct {
		name   string
		inputs []interface{}
		want   Changes
	}{
		{
			"map",
			[]interface{}{map[string]interface{}{"name": "a", "age": 2, "id": 3}},
			Changes{"name": "a", "age": 2},
		},
		{
			"json string converts types",
			[]interface{}{`{"name":"b","age":20.0,"password":"x"}`},
			Changes{"name": "b", "age": 20, "password_digest": "x"},
		},
		{
			"wrong json type is dropped",
			[]interface{}{[]byte(`{"name":1,"age":3}`)},
			Changes{"age": 3},
		},
		{
			"reader",
			[]interface{}{strings.NewReader(`{"age":4}`)},
			Changes{"age": 4},
		},
		{
			"struct",
			[]interface{}{permitTestUser{Id: 1, Name: "c"}},
			Changes{"name": "c", "age": 0, "password_digest": ""},
		},
		{
			"later inputs override",
			[]interface{}{Changes{"name": "d"}, `{"name":"e"}`, "not json"},
			Changes{"name": "e"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := p.Filter(c.inputs...)
			if !reflect.DeepEqual(got, c.want) {
				t.Errorf("Filter() = %#v, want %#v", got, c.want)
			}
		})
	}

	sql := m.Create(p.Filter(`{"name":"f","id":9}`)).String()
	if want := `BEGIN; INSERT INTO "permit_test_users" ("name") VALUES ($1) RETURNING "id"; COMMIT;`; sql != want {
		t.Errorf("Create(Filter()) = %q, want %q", sql, want)
	}
}
