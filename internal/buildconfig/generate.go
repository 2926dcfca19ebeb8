package buildconfig

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"io"
	"os"
	"strconv"
	"strings"
	"text/template"
)

// Field is one generated string constant.
type Field struct {
	Name  string
	Value string
}

// Fields resolves every declared key against p, in declaration order.
func Fields(p *Properties) []Field {
	fields := make([]Field, 0, len(Keys))
	for _, k := range Keys {
		fields = append(fields, Field{Name: k, Value: p.Value(k)})
	}
	return fields
}

type GenerateOptions struct {
	Package string
	Source  string
	Fields  []Field
}

var ErrNoPackage = errors.New("package name is required")

var fileTmpl = template.Must(template.New("buildconfig").Funcs(template.FuncMap{
	"quote": strconv.Quote,
}).Parse(`// Code generated by buildconfig from {{ .Source }}. DO NOT EDIT.

package {{ .Package }}

const (
{{- range .Fields }}
	{{ .Name }} = {{ quote .Value }}
{{- end }}
)
`))

// Generate writes gofmt-formatted Go source declaring one string constant per field.
func Generate(w io.Writer, opts GenerateOptions) error {
	if strings.TrimSpace(opts.Package) == "" {
		return ErrNoPackage
	}
	if opts.Source == "" {
		opts.Source = DefaultFile
	}

	var buf bytes.Buffer
	if err := fileTmpl.Execute(&buf, opts); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("format: %w", err)
	}

	_, err = w.Write(src)
	return err
}

// WriteFile generates into path, replacing it only when the content changed.
func WriteFile(path string, opts GenerateOptions) (bool, error) {
	var buf bytes.Buffer
	if err := Generate(&buf, opts); err != nil {
		return false, err
	}

	if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, buf.Bytes()) {
		return false, nil
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
