package sitehttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/mdpreview/internal/httpmw"
	"github.com/keithlinneman/mdpreview/internal/page"
)

// Site is implemented by *sitehandler.Handler.
type Site interface {
	Index() http.Handler
	Page() http.Handler
	Octicon() http.Handler
	Stylesheet() http.Handler
	Live() http.Handler
}

type Routes struct {
	Site Site
}

func New(site Site) *Routes {
	return &Routes{Site: site}
}

// RegisterRoutes mounts the preview routes. Handlers are registered for
// every method and reject anything but GET/HEAD themselves, so the 405
// carries an Allow header. chi tries static segments before parameters and
// the catch-all last, which gives the resolution order:
//
//	/                        index page
//	/static/octicons/{file}  icon font
//	/static/style.css        stylesheet
//	/__live-update[/...]     live updates
//	/*                       any other page
//
// Each route tags its logger and span with a handler name.
func (rt *Routes) RegisterRoutes(r chi.Router) {
	r.Handle("/", httpmw.Scope("index")(rt.Site.Index()))
	r.Handle("/static/octicons/{file}", httpmw.Scope("octicon")(rt.Site.Octicon()))
	r.Handle("/static/style.css", httpmw.Scope("stylesheet")(rt.Site.Stylesheet()))

	live := httpmw.Scope("live")(rt.Site.Live())
	r.Handle(page.LivePrefix, live)
	r.Handle(page.LivePrefix+"/*", live)

	pages := httpmw.Scope("page")(rt.Site.Page())
	r.Handle("/*", pages)
	r.NotFound(pages.ServeHTTP)
}
