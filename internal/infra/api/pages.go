package api

import (
	"encoding/base64"
	"html/template"
	"net/http"

	"qr-ticket-system/internal/domain/model"
	"qr-ticket-system/internal/infra/barcode"
)

var pages = template.Must(template.New("ticket").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>{{if .Found}}{{.EventName}} ticket{{else}}Ticket not found{{end}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.ok{color:#057a55} .used{color:#b00020}
.small{font-size:12px;color:#666}
</style>
</head>
<body>
<div class="card">
{{if .Found}}
  <h2>{{.EventName}}</h2>
  <p>{{.HolderName}}</p>
  <img alt="QR code" width="{{.Width}}" src="{{.Image}}" />
  <p class="{{if .Redeemed}}used{{else}}ok{{end}}">{{if .Redeemed}}Already used{{else}}Valid{{end}}</p>
  <div class="small">Ticket {{.ID}} &middot; issued {{.IssuedAt}}</div>
{{else}}
  <h2 class="used">Ticket not found</h2>
  <p>Check the link or ask the event staff.</p>
{{end}}
</div>
</body>
</html>`))

type ticketPage struct {
	Found      bool
	ID         string
	EventName  string
	HolderName string
	IssuedAt   string
	Redeemed   bool
	Image      template.URL // data: URI
	Width      int
}

func renderTicket(w http.ResponseWriter, code int, c *model.Credential, width int) {
	data := ticketPage{}
	if c != nil {
		data = ticketPage{
			Found:      true,
			ID:         c.ID,
			EventName:  c.EventName,
			HolderName: c.HolderName,
			IssuedAt:   c.IssuedAt.Format("2006-01-02 15:04 MST"),
			Redeemed:   c.IsRedeemed(),
			Image: template.URL("data:" + barcode.ContentType(c.ImageFormat) + ";base64," +
				base64.StdEncoding.EncodeToString(c.Image)),
			Width: width,
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_ = pages.Execute(w, data)
}
