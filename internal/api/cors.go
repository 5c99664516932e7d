package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// corsPolicy is the header set sent to the browser editor. The editor may be
// hosted elsewhere than the API, so every route carries it.
type corsPolicy struct {
	origin  string
	methods string
	headers string
	maxAge  string
}

func newCORSPolicy(origin string) corsPolicy {
	if origin == "" {
		origin = "*"
	}
	return corsPolicy{
		origin: origin,
		methods: strings.Join([]string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		}, ", "),
		// Last-Event-ID lets EventSource resume the notification stream
		headers: strings.Join([]string{
			"Content-Type", "Authorization", "Accept", "Origin", "Last-Event-ID",
		}, ", "),
		maxAge: strconv.Itoa(86400),
	}
}

func (p corsPolicy) apply(set func(name, value string)) {
	set("Access-Control-Allow-Origin", p.origin)
	set("Access-Control-Allow-Methods", p.methods)
	set("Access-Control-Allow-Headers", p.headers)
	set("Access-Control-Max-Age", p.maxAge)
}

// middleware decorates huma responses and short-circuits OPTIONS.
func (p corsPolicy) middleware(ctx huma.Context, next func(huma.Context)) {
	p.apply(ctx.SetHeader)
	if ctx.Method() == http.MethodOptions {
		ctx.SetStatus(http.StatusNoContent)
		return
	}
	next(ctx)
}

// preflight answers OPTIONS on the raw mux. Huma only sees requests for
// routes it registered, so preflights for the others never reach middleware.
func (p corsPolicy) preflight(mux *http.ServeMux) {
	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, _ *http.Request) {
		p.apply(w.Header().Set)
		w.WriteHeader(http.StatusNoContent)
	})
}
