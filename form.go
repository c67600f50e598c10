package formlogin

import (
	"html/template"
	"strings"
)

const defaultFormSource = `<!DOCTYPE html>
<html>
<head><title>Log in</title></head>
<body>
{{- if .StatusMsg}}
<p class="status">{{.StatusMsg}}</p>
{{- end}}
<form method="post" action="{{.Action}}">
<input type="hidden" name="redirect_to" value="{{.RedirectTo}}">
<label for="login">Login</label>
<input type="text" id="login" name="login" value="{{.Login}}" autofocus>
<label for="password">Password</label>
<input type="password" id="password" name="password">
<input type="submit" value="Log in">
</form>
</body>
</html>
`

var defaultForm = template.Must(template.New("login").Parse(defaultFormSource))

type formData struct {
	FormOptions
	Action string
}

// DefaultFormTemplate returns the built-in login page posting to action.
func DefaultFormTemplate(action string) FormTemplate {
	return func(opts FormOptions) string {
		var b strings.Builder
		if err := defaultForm.Execute(&b, formData{FormOptions: opts, Action: action}); err != nil {
			// The template is static and its data is plain strings.
			return ""
		}
		return b.String()
	}
}
