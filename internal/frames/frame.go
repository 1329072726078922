// Package frames renders frame cards: an HTML page whose meta tags describe
// an image and up to four buttons a social client can act on.
package frames

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"time"
)

const MaxButtons = 4

type ButtonAction string

const (
	ActionPost ButtonAction = "post"
	ActionLink ButtonAction = "link"
)

type Button struct {
	Label  string
	Action ButtonAction
	Target string
}

// Card is everything needed to render a frame page
type Card struct {
	Title    string
	ImageURL string
	Buttons  []Button
	PostURL  string
}

var cardTemplate = template.Must(template.New("frame").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html>
<head>
  <meta property="og:title" content="{{.Title}}" />
  <meta property="og:image" content="{{.ImageURL}}" />
  <meta property="fc:frame" content="vNext" />
  <meta property="fc:frame:image" content="{{.ImageURL}}" />
{{- range $i, $b := .Buttons}}{{$n := inc $i}}
  <meta property="fc:frame:button:{{$n}}" content="{{$b.Label}}" />
  <meta property="fc:frame:button:{{$n}}:action" content="{{$b.Action}}" />
{{- if $b.Target}}
  <meta property="fc:frame:button:{{$n}}:target" content="{{$b.Target}}" />
{{- end}}
{{- end}}
{{- if .PostURL}}
  <meta property="fc:frame:post_url" content="{{.PostURL}}" />
{{- end}}
</head>
<body>
  <h1>{{.Title}}</h1>
</body>
</html>
`))

// Render writes the card as HTML. Attribute values are escaped.
func (c Card) Render() ([]byte, error) {
	if len(c.Buttons) > MaxButtons {
		return nil, fmt.Errorf("frame supports at most %d buttons, got %d", MaxButtons, len(c.Buttons))
	}
	var buf bytes.Buffer
	if err := cardTemplate.Execute(&buf, c); err != nil {
		return nil, fmt.Errorf("failed to render frame: %w", err)
	}
	return buf.Bytes(), nil
}

// ImageParams describe the market snapshot drawn by the image generator
type ImageParams struct {
	Question     string
	OptionA      string
	OptionB      string
	ExpiresAt    time.Time
	OptionAVotes int64
	OptionBVotes int64
}

// ImageURL builds the open-graph image link served by the external generator
func ImageURL(baseURL string, p ImageParams) string {
	q := url.Values{}
	q.Set("question", p.Question)
	q.Set("optionA", p.OptionA)
	q.Set("optionB", p.OptionB)
	q.Set("expiresAt", p.ExpiresAt.UTC().Format(time.RFC3339))
	q.Set("optionAVotes", strconv.FormatInt(p.OptionAVotes, 10))
	q.Set("optionBVotes", strconv.FormatInt(p.OptionBVotes, 10))
	return baseURL + "/api/og?" + q.Encode()
}
