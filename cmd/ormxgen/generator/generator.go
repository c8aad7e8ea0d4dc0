// Package generator renders Go declarations of ormx table structures from
// described database tables.
package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"strconv"
	"text/template"

	"github.com/iancoleman/strcase"

	"github.com/arllen133/ormx"
)

// Options controls the rendered file.
type Options struct {
	Package string
	// VarName defaults to the CamelCase table name.
	VarName string
}

type columnMeta struct {
	Name      string
	TypeConst string
	Modifiers string
}

type tableMeta struct {
	Package     string
	NeedsClause bool
	VarName     string
	Table       string
	Schema      string
	Columns     []columnMeta
}

var fileTemplate = template.Must(template.New("table").Parse(`// Code generated by ormxgen. DO NOT EDIT.

package {{.Package}}

import (
	"github.com/arllen133/ormx"
{{- if .NeedsClause}}
	"github.com/arllen133/ormx/clause"
{{- end}}
)

// {{.VarName}} is the structure of table {{.Table}}.
var {{.VarName}} = ormx.NewTableStructure({{printf "%q" .Table}}{{if .Schema}}, ormx.WithSchema({{printf "%q" .Schema}}){{end}}).
	MustAddColumns(
{{- range .Columns}}
		ormx.NewColumn({{printf "%q" .Name}}, ormx.{{.TypeConst}}){{.Modifiers}},
{{- end}}
	)
`))

var typeConsts = map[ormx.DataType]string{
	ormx.TypeBool:           "TypeBool",
	ormx.TypeInt:            "TypeInt",
	ormx.TypeFloat:          "TypeFloat",
	ormx.TypeString:         "TypeString",
	ormx.TypeText:           "TypeText",
	ormx.TypeBlob:           "TypeBlob",
	ormx.TypeDate:           "TypeDate",
	ormx.TypeTime:           "TypeTime",
	ormx.TypeTimestamp:      "TypeTimestamp",
	ormx.TypeTimestampTZ:    "TypeTimestampTZ",
	ormx.TypeTimezoneOffset: "TypeTimezoneOffset",
	ormx.TypeIPv4:           "TypeIPv4",
	ormx.TypeEmail:          "TypeEmail",
	ormx.TypeJSONArray:      "TypeJSONArray",
	ormx.TypeJSONObject:     "TypeJSONObject",
	ormx.TypeEnum:           "TypeEnum",
	ormx.TypeFile:           "TypeFile",
	ormx.TypeImage:          "TypeImage",
	ormx.TypePassword:       "TypePassword",
	ormx.TypeID:             "TypeID",
}

// Render returns the gofmt-ed Go source declaring desc as a TableStructure.
// Database defaults are declared as clause.Expr values.
func Render(desc *ormx.TableDescription, opts Options) ([]byte, error) {
	if opts.Package == "" {
		opts.Package = "schema"
	}
	if opts.VarName == "" {
		opts.VarName = strcase.ToCamel(desc.Name)
	}

	meta := tableMeta{
		Package: opts.Package,
		VarName: opts.VarName,
		Table:   desc.Name,
	}
	if desc.Schema != "public" {
		meta.Schema = desc.Schema
	}
	for _, col := range desc.Columns {
		typeConst, ok := typeConsts[col.OrmType]
		if !ok {
			return nil, fmt.Errorf("column %q: unsupported data type %q", col.Name, col.OrmType)
		}
		if col.Default != nil && !col.IsPrimaryKey {
			meta.NeedsClause = true
		}
		meta.Columns = append(meta.Columns, columnMeta{
			Name:      col.Name,
			TypeConst: typeConst,
			Modifiers: modifiers(col),
		})
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, meta); err != nil {
		return nil, err
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format generated source: %w", err)
	}
	return src, nil
}

func modifiers(col ormx.ColumnDescription) string {
	var out string
	if col.IsPrimaryKey {
		out += ".PrimaryKey()"
	}
	if col.Nullable {
		out += ".Nullable()"
	}
	if col.IsUnique && !col.IsPrimaryKey {
		out += ".Unique()"
	}
	if col.Default != nil && !col.IsPrimaryKey {
		out += ".Default(clause.Expr{SQL: " + strconv.Quote(fmt.Sprint(col.Default)) + "})"
	}
	return out
}
