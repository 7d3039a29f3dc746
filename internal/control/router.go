package control

import (
	"context"
	"log/slog"
	"strings"
)

// Request contains route parameters and the payload that followed the path.
type Request struct {
	Ctx     context.Context
	Params  map[string]string
	Payload string
}

// Response holds the JSON string to return to the client.
type Response struct {
	JSON string
}

// HandlerFunc processes a request and populates the response. The logger is
// connection scoped.
type HandlerFunc func(req *Request, res *Response, logger *slog.Logger) error

// Router matches paths against patterns with {name} placeholders.
type Router struct {
	routes []route
}

type route struct {
	parts   []string // lower-cased pattern segments
	names   []string // placeholder names as registered, "" for literals
	handler HandlerFunc
}

func NewRouter() *Router { return &Router{} }

// Register adds a handler for a pattern like "command/{name}".
func (r *Router) Register(pattern string, handler HandlerFunc) {
	orig := strings.Split(pattern, "/")
	rt := route{
		parts:   strings.Split(strings.ToLower(pattern), "/"),
		names:   make([]string, len(orig)),
		handler: handler,
	}
	for i, p := range orig {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			rt.names[i] = p[1 : len(p)-1]
		}
	}
	r.routes = append(r.routes, rt)
}

// Match returns the handler and params for path, or nil if nothing matches.
// Literal segments compare case-insensitively; parameters keep their case.
func (r *Router) Match(path string) (HandlerFunc, map[string]string) {
	parts := strings.Split(path, "/")
	for _, rt := range r.routes {
		if len(rt.parts) != len(parts) {
			continue
		}
		params := map[string]string{}
		ok := true
		for i, p := range parts {
			if rt.names[i] != "" {
				params[rt.names[i]] = p
				continue
			}
			if rt.parts[i] != strings.ToLower(p) {
				ok = false
				break
			}
		}
		if ok {
			return rt.handler, params
		}
	}
	return nil, nil
}
