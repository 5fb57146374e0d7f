package render

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var tpl = template.Must(template.New("").Funcs(template.FuncMap{
	"quote": quote,
	"list":  list,
}).ParseFS(templateFS, "templates/*.tmpl"))

// quote renders s as a JS string literal. Single quotes are preferred; a
// value that itself holds a single quote ("'self'") is double quoted.
func quote(s string) string {
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		return `"` + strings.ReplaceAll(s, `\`, `\\`) + `"`
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

func list(items []string) string {
	q := make([]string, 0, len(items))
	for _, it := range items {
		q = append(q, quote(it))
	}
	return strings.Join(q, ", ")
}

type ServerData struct {
	Host      string
	Port      int
	URL       string
	AdminPath string
	// BootstrapScript is required from the server's bootstrap hook when set.
	BootstrapScript string
}

type Directive struct {
	Name    string
	Sources []string
}

type MiddlewareData struct {
	CORSOrigins []string
	Headers     []string
	Methods     []string
	// Directives is the content-security-policy; nil keeps strapi's default
	// security middleware.
	Directives []Directive
	// ErrorHandler is an extra middleware appended last, e.g.
	// "global::error-handler".
	ErrorHandler string
}

func execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func Server(d ServerData) ([]byte, error) {
	if d.URL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if d.Host == "" {
		d.Host = "0.0.0.0"
	}
	if d.Port == 0 {
		d.Port = 1337
	}
	if d.AdminPath == "" {
		d.AdminPath = "/admin"
	}
	return execute("server.js.tmpl", d)
}

func Middlewares(d MiddlewareData) ([]byte, error) {
	if len(d.CORSOrigins) == 0 {
		return nil, fmt.Errorf("at least one CORS origin is required")
	}
	if len(d.Headers) == 0 {
		d.Headers = []string{"Content-Type", "Authorization", "X-Frame-Options", "Origin", "Accept"}
	}
	if len(d.Methods) == 0 {
		d.Methods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	return execute("middlewares.js.tmpl", d)
}

// DefaultDirectives builds strapi's usual policy with extra sources appended
// to img-src, media-src and script-src.
func DefaultDirectives(img, media, script []string) []Directive {
	withExtra := func(base []string, extra []string) []string {
		return append(append([]string{}, base...), extra...)
	}
	return []Directive{
		{Name: "connect-src", Sources: []string{"'self'", "https:", "http:"}},
		{Name: "img-src", Sources: withExtra([]string{"'self'", "data:", "blob:"}, img)},
		{Name: "media-src", Sources: withExtra([]string{"'self'", "data:", "blob:"}, media)},
		{Name: "script-src", Sources: withExtra([]string{"'self'", "'unsafe-inline'"}, script)},
		{Name: "style-src", Sources: []string{"'self'", "'unsafe-inline'"}},
	}
}

var serverURLField = regexp.MustCompile(`(url:\s*env\(\s*'URL'\s*,\s*')([^']*)(')`)

// SubstituteServerURL rewrites only the default of the url field in an
// existing server module.
func SubstituteServerURL(existing []byte, url string) ([]byte, error) {
	if !serverURLField.Match(existing) {
		return nil, fmt.Errorf("no url: env('URL', ...) field found")
	}
	repl := strings.ReplaceAll(url, "$", "$$")
	return serverURLField.ReplaceAll(existing, []byte("${1}"+repl+"${3}")), nil
}
