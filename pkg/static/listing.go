package static

import (
	"bytes"
	"html/template"
	"path"
	"strings"

	"github.com/valyala/bytebufferpool"
)

var listingTemplate = template.Must(template.New("listing").Parse(`<html>
<head><title>Index of {{.Path}}</title></head>
<body>
<h1>Index of {{.Path}}</h1>
<hr>
<pre>
{{- if .Parent}}
<a href="{{.Parent}}">../</a>
{{- end}}
{{- range .Entries}}
<a href="{{.Href}}">{{.Label}}</a>{{if not .IsDir}}	{{.Size}}{{end}}
{{- end}}
</pre>
<hr>
</body>
</html>
`))

type listingRow struct {
	Href  string
	Label string
	IsDir bool
	Size  int64
}

// RenderListing renders an HTML index of entries for the URL path urlPath.
func RenderListing(urlPath string, entries []Entry) ([]byte, error) {
	if !strings.HasSuffix(urlPath, "/") {
		urlPath += "/"
	}
	data := struct {
		Path    string
		Parent  string
		Entries []listingRow
	}{Path: urlPath}

	if urlPath != "/" {
		data.Parent = path.Dir(strings.TrimSuffix(urlPath, "/"))
		if !strings.HasSuffix(data.Parent, "/") {
			data.Parent += "/"
		}
	}
	for _, e := range entries {
		row := listingRow{Href: urlPath + e.Name, Label: e.Name, IsDir: e.IsDir, Size: e.Size}
		if e.IsDir {
			row.Href += "/"
			row.Label += "/"
		}
		data.Entries = append(data.Entries, row)
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := listingTemplate.Execute(buf, data); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.B), nil
}
