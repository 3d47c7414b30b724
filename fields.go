package nationbuilder

import (
	"reflect"
	"strings"
)

// collectJSONKeys adds the JSON keys of the fields of struct type t to keys,
// following embedded structs the way encoding/json does.
func collectJSONKeys(t reflect.Type, keys map[string]struct{}) {
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}

		name, _, _ := strings.Cut(tag, ",")
		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				collectJSONKeys(ft, keys)
				continue
			}
		}

		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		keys[name] = struct{}{}
	}
}
