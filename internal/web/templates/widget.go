// Package templates renders the upload widget page.
package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/uploader/internal/uploader"
)

// PageParams describes one widget session page.
type PageParams struct {
	SessionID   string
	Description string
	InputName   string
	Accept      string
	Multiple    bool
	Capacity    int
	Items       []uploader.View
}

// Page renders the complete widget page for a session.
func Page(p PageParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		e := &errWriter{w: w}
		e.printf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Upload</title>
<style>%s</style>
</head>
<body>
<main class="uploader" id="uploader" data-session="%s" data-capacity="%d">
<label class="uploader-description" for="uploader-input">%s</label>
<input type="file" id="uploader-input" name="%s"`,
			stylesheet,
			templ.EscapeString(p.SessionID),
			p.Capacity,
			templ.EscapeString(p.Description),
			templ.EscapeString(p.InputName),
		)
		if p.Accept != "" {
			e.printf(` accept="%s"`, templ.EscapeString(p.Accept))
		}
		if p.Multiple {
			e.printf(` multiple`)
		}
		e.printf(`>
`)
		if label := capacityLabel(p.Capacity); label != "" {
			e.printf(`<small class="uploader-capacity">%s</small>
`, label)
		}
		e.printf(`<div id="uploader-alert" role="alert"></div>
`)
		if e.err != nil {
			return e.err
		}
		if err := ItemList(p.Items).Render(ctx, w); err != nil {
			return err
		}
		e.printf("</main>\n<script>%s</script>\n</body>\n</html>\n", script)
		return e.err
	})
}

// ItemList renders the tracked files with their status and actions.
func ItemList(items []uploader.View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		e := &errWriter{w: w}
		e.printf(`<ul id="uploader-items" class="uploader-items">`)
		for _, v := range items {
			e.printf(`<li class="item phase-%s" data-name="%s"><span class="item-name">%s</span><span class="item-status">%s</span>`,
				templ.EscapeString(string(v.Phase)),
				templ.EscapeString(v.Name),
				templ.EscapeString(v.DisplayName),
				templ.EscapeString(v.Status),
			)
			if v.CanRetry {
				e.printf(`<button type="button" data-action="retry">Retry</button>`)
			}
			if v.CanDelete {
				e.printf(`<button type="button" data-action="delete">Delete</button>`)
			}
			e.printf(`</li>`)
		}
		e.printf("</ul>\n")
		return e.err
	})
}

// ErrorAlert renders an error message with its suggested action.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		e := &errWriter{w: w}
		e.printf(`<div class="alert alert-error" role="alert"><strong>%s</strong>`, templ.EscapeString(message))
		if action != "" {
			e.printf(` <span>%s</span>`, templ.EscapeString(action))
		}
		if code != "" {
			e.printf(` <code>%s</code>`, templ.EscapeString(code))
		}
		e.printf("</div>\n")
		return e.err
	})
}

// errWriter keeps the first write error so components can emit markup
// without checking every call.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

// capacityLabel is shown next to the input when more than one file is allowed.
func capacityLabel(n int) string {
	if n <= 1 {
		return ""
	}
	return "up to " + strconv.Itoa(n) + " files"
}
