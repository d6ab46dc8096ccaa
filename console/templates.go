package console

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*
var templateFiles embed.FS

func parseTemplate(name string) (*template.Template, error) {
	content, err := fs.ReadFile(templateFiles, "templates/"+name)
	if err != nil {
		return nil, err
	}
	return template.New(name).Parse(string(content))
}

// formPage is the data behind the login and register forms.
type formPage struct {
	Title    string
	Action   string
	Redirect string
	Expired  bool
	Error    string
	Name     string
	Email    string
}
