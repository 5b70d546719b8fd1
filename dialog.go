package authproxy

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/authriver/mcp-oauth-proxy/storage"
)

// dialogData is everything the consent dialog template needs. Rendering is
// pure: same data, same HTML.
type dialogData struct {
	Server      ServerMetadata
	Client      *storage.Client
	Scope       []string
	RedirectURI string
	CSRFToken   string
	FormState   string
}

var dialogTemplate = template.Must(template.New("dialog").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Server.Name}} | Authorization Request</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
         background: #f5f5f7; margin: 0; display: flex; justify-content: center;
         align-items: center; min-height: 100vh; }
  .card { background: #fff; border-radius: 12px; box-shadow: 0 2px 12px rgba(0,0,0,.08);
          max-width: 420px; width: 100%; padding: 2rem; }
  .logo { max-height: 48px; margin-bottom: 1rem; }
  h1 { font-size: 1.25rem; margin: 0 0 .5rem; }
  p.desc { color: #555; margin: 0 0 1.5rem; }
  .client { background: #f0f0f2; border-radius: 8px; padding: 1rem; margin-bottom: 1.5rem; }
  .client strong { display: block; margin-bottom: .25rem; }
  .client span { color: #666; font-size: .875rem; word-break: break-all; }
  ul.scopes { margin: 0 0 1.5rem; padding-left: 1.25rem; color: #444; }
  .actions { display: flex; gap: .75rem; }
  button { flex: 1; padding: .625rem 1rem; border-radius: 8px; border: none;
           font-size: 1rem; cursor: pointer; }
  button.approve { background: #0969da; color: #fff; }
  button.deny { background: #e5e5ea; color: #333; }
</style>
</head>
<body>
<div class="card">
  {{if .Server.LogoURL}}<img class="logo" src="{{.Server.LogoURL}}" alt="">{{end}}
  <h1>{{.Server.Name}}</h1>
  {{if .Server.Description}}<p class="desc">{{.Server.Description}}</p>{{end}}
  <div class="client">
    <strong>{{.Client.ClientName}}</strong>
    <span>wants to access your account via {{.RedirectURI}}</span>
  </div>
  {{if .Scope}}
  <ul class="scopes">
    {{range .Scope}}<li>{{.}}</li>{{end}}
  </ul>
  {{end}}
  <form method="post" action="/authorize">
    <input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
    <input type="hidden" name="state" value="{{.FormState}}">
    <div class="actions">
      <button class="approve" type="submit" name="decision" value="approve">Approve</button>
      <button class="deny" type="submit" name="decision" value="deny">Deny</button>
    </div>
  </form>
</div>
</body>
</html>
`))

// renderDialog renders the consent dialog to a byte slice.
func renderDialog(data dialogData) ([]byte, error) {
	var buf bytes.Buffer
	if err := dialogTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render consent dialog: %w", err)
	}
	return buf.Bytes(), nil
}

var deniedTemplate = template.Must(template.New("denied").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Access Denied</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
         background: #f5f5f7; margin: 0; display: flex; justify-content: center;
         align-items: center; min-height: 100vh; }
  .card { background: #fff; border-radius: 12px; box-shadow: 0 2px 12px rgba(0,0,0,.08);
          max-width: 420px; width: 100%; padding: 2rem; text-align: center; }
  h1 { font-size: 1.25rem; margin: 0 0 .5rem; color: #b3261e; }
  p { color: #555; margin: 0; }
</style>
</head>
<body>
<div class="card">
  <h1>Access Denied</h1>
  <p>Your account is not authorized to access {{.ServerName}}.
     Contact the administrator if you believe this is a mistake.</p>
</div>
</body>
</html>
`))

// renderDeniedPage renders the allowlist denial page.
func renderDeniedPage(serverName string) ([]byte, error) {
	var buf bytes.Buffer
	if err := deniedTemplate.Execute(&buf, struct{ ServerName string }{serverName}); err != nil {
		return nil, fmt.Errorf("failed to render denial page: %w", err)
	}
	return buf.Bytes(), nil
}

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Name}}</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
         background: #f5f5f7; margin: 0; display: flex; justify-content: center;
         align-items: center; min-height: 100vh; }
  .card { background: #fff; border-radius: 12px; box-shadow: 0 2px 12px rgba(0,0,0,.08);
          max-width: 480px; width: 100%; padding: 2rem; }
  h1 { font-size: 1.25rem; margin: 0 0 .5rem; }
  p { color: #555; }
  code { background: #f0f0f2; border-radius: 4px; padding: .125rem .375rem; }
</style>
</head>
<body>
<div class="card">
  <h1>{{.Name}}</h1>
  {{if .Description}}<p>{{.Description}}</p>{{end}}
  <p>This is an OAuth authorization endpoint for MCP clients.
     Connect through an MCP client to begin authorization at
     <code>/authorize</code>.</p>
</div>
</body>
</html>
`))

// renderHomePage renders the informational landing page.
func renderHomePage(meta ServerMetadata) ([]byte, error) {
	var buf bytes.Buffer
	if err := homeTemplate.Execute(&buf, meta); err != nil {
		return nil, fmt.Errorf("failed to render home page: %w", err)
	}
	return buf.Bytes(), nil
}
