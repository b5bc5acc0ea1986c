package method

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/omarluq/multilogin/internal/auth"
	"github.com/omarluq/multilogin/internal/config"
	"github.com/omarluq/multilogin/internal/extract"
	"github.com/omarluq/multilogin/internal/health"
	"github.com/omarluq/multilogin/internal/registry"
	"github.com/omarluq/multilogin/internal/router"
)

// Patterns served by the process itself; login methods may not claim them.
var reservedPatterns = []string{"GET /health", "GET /login/methods"}

var allowedVerbs = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}

type options struct {
	tracker *health.Tracker
}

// Option customises Resolve.
type Option func(*options)

// WithTracker guards every verifier with a circuit breaker from tracker,
// keyed by "<method>/<client type>". A nil tracker leaves verifiers as is.
func WithTracker(tracker *health.Tracker) Option {
	return func(o *options) {
		o.tracker = tracker
	}
}

// Resolve turns the login section into a Table. Every problem in every
// method is collected into a single *ConfigurationError. A disabled login
// section resolves to an empty table.
func Resolve(cfg config.LoginConfig, reg *registry.Registry, opts ...Option) (*Table, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	table := &Table{byName: map[string]*Resolved{}}
	if !cfg.Enabled {
		return table, nil
	}

	errs := &ConfigurationError{}
	global := cfg.Global.WithDefaults()
	if global.VerifyTimeoutMS < 0 {
		errs.Add("login.global.verify_timeout_ms must be >= 0")
	}

	owners := map[string]string{}
	for _, p := range reservedPatterns {
		owners[p] = "built-in route"
	}

	for _, name := range slices.Sorted(maps.Keys(cfg.Methods)) {
		r := &resolver{name: name, raw: cfg.Methods[name], global: global, reg: reg, tracker: o.tracker, errs: errs}
		m, ok := r.resolve()
		if !ok {
			continue
		}
		if owner, taken := owners[m.Pattern()]; taken {
			r.fail("%s is already served by %s", m.Pattern(), owner)
			continue
		}
		owners[m.Pattern()] = fmt.Sprintf("method %q", name)
		table.methods = append(table.methods, m)
		table.byName[name] = m
	}

	if err := errs.toError(); err != nil {
		return nil, err
	}
	return table, nil
}

// resolver resolves a single method and records its problems.
type resolver struct {
	reg     *registry.Registry
	tracker *health.Tracker
	errs    *ConfigurationError
	name    string
	raw     config.MethodConfig
	global  config.GlobalConfig
	failed  bool
}

func (r *resolver) fail(format string, args ...any) {
	r.failed = true
	r.errs.Addf("login.methods[%s]: "+format, append([]any{r.name}, args...)...)
}

func (r *resolver) resolve() (*Resolved, bool) {
	if strings.TrimSpace(r.name) == "" {
		r.errs.Add("login.methods: blank method name")
		return nil, false
	}

	m := &Resolved{
		name:          r.name,
		path:          r.path(),
		httpMethod:    r.verb(),
		verifyTimeout: r.global.GetVerifyTimeoutOption().OrEmpty(),
	}
	m.params, m.principal, m.credential = r.parameters()
	m.clientTypes = r.clientTypes()
	m.clientHeader = r.clientHeader()
	r.capabilities(m)
	if len(m.clientTypes) > 0 {
		m.dispatcher, m.verifierNames = r.routes(m.clientTypes)
	}

	if r.failed {
		return nil, false
	}
	return m, true
}

func (r *resolver) path() string {
	p := strings.TrimSpace(r.raw.Path)
	if p == "" {
		return config.DefaultPathPrefix + r.name
	}
	if !strings.HasPrefix(p, "/") {
		r.fail("path must start with / (got %q)", r.raw.Path)
	}
	if strings.ContainsAny(p, "{} \t") {
		r.fail("path must be a literal path without wildcards or spaces (got %q)", r.raw.Path)
	}
	if strings.HasSuffix(p, "/") {
		r.fail("path must not end with / (got %q)", r.raw.Path)
	}
	return p
}

func (r *resolver) verb() string {
	v := strings.ToUpper(strings.TrimSpace(r.raw.HTTPMethod))
	if v == "" {
		return config.DefaultHTTPMethod
	}
	if !slices.Contains(allowedVerbs, v) {
		r.fail("unsupported http_method %q", r.raw.HTTPMethod)
	}
	return v
}

// parameters synthesises or validates the declared parameter set.
func (r *resolver) parameters() (params, principal, credential []string) {
	principal = lo.Uniq(r.raw.PrincipalParams)
	credential = lo.Uniq(r.raw.CredentialParams)

	all := slices.Concat(r.raw.Params, principal, credential)
	if slices.ContainsFunc(all, func(s string) bool { return strings.TrimSpace(s) == "" }) {
		r.fail("parameter names must not be blank")
	}

	if len(r.raw.Params) == 0 {
		params = lo.Uniq(slices.Concat(principal, credential))
		if len(params) == 0 {
			r.fail("no parameters declared")
		}
		return params, principal, credential
	}

	params = lo.Uniq(r.raw.Params)
	if missing := lo.Without(principal, params...); len(missing) > 0 {
		r.fail("principal_params not in params: %s", strings.Join(missing, ", "))
	}
	if missing := lo.Without(credential, params...); len(missing) > 0 {
		r.fail("credential_params not in params: %s", strings.Join(missing, ", "))
	}
	return params, principal, credential
}

func (r *resolver) clientTypes() []string {
	types := r.global.ClientTypes
	if r.raw.ClientTypes != nil {
		types = r.raw.ClientTypes
	}
	types = lo.Map(types, func(s string, _ int) string { return strings.TrimSpace(s) })

	if len(types) == 0 {
		r.fail("no client types configured")
		return nil
	}
	if slices.Contains(types, "") {
		r.fail("client type names must not be blank")
	}
	if dups := lo.FindDuplicates(types); len(dups) > 0 {
		r.fail("duplicate client types: %s", strings.Join(dups, ", "))
	}
	return slices.Clone(types)
}

func (r *resolver) clientHeader() string {
	if r.raw.ClientHeader != nil {
		if h := strings.TrimSpace(*r.raw.ClientHeader); h != "" {
			return h
		}
		r.fail("client_header must not be blank")
	}
	return r.global.ClientHeader
}

func override(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

// capabilities looks up handlers, extractors and the client type resolver.
func (r *resolver) capabilities(m *Resolved) {
	m.successName = override(r.raw.Handler.Success, r.global.Handler.Success)
	m.success = need(r, m.successName, registry.KindSuccessHandler, r.reg.SuccessHandler)

	m.failureName = override(r.raw.Handler.Failure, r.global.Handler.Failure)
	m.failure = need(r, m.failureName, registry.KindFailureHandler, r.reg.FailureHandler)

	m.resolverName = override(r.raw.ClientTypeResolver, r.global.ClientTypeResolver)
	m.resolver = need(r, m.resolverName, registry.KindResolver, r.reg.Resolver)

	m.extractorNames = r.global.ParameterExtractors
	if len(r.raw.ParameterExtractors) > 0 {
		m.extractorNames = r.raw.ParameterExtractors
	}
	m.extractorNames = lo.Uniq(m.extractorNames)
	extractors := make([]extract.Extractor, 0, len(m.extractorNames))
	for _, n := range m.extractorNames {
		if e := need(r, n, registry.KindExtractor, r.reg.Extractor); e != nil {
			extractors = append(extractors, e)
		}
	}
	m.extractor = extract.NewChain(extractors...)
}

// need looks name up and records a problem listing the known names when it
// is missing.
func need[T any](r *resolver, name, kind string, get func(string) (T, bool)) T {
	v, ok := get(name)
	if !ok {
		r.fail("unknown %s %q (registered: %s)", kind, name, strings.Join(r.reg.Names(kind), ", "))
	}
	return v
}

// routes builds the client type to verifier table. Every client type needs
// exactly one verifier and every binding must name a configured client type.
func (r *resolver) routes(clientTypes []string) (*router.Dispatcher, map[string]string) {
	bindings := r.bindings(clientTypes)
	if bindings == nil {
		return nil, nil
	}

	for _, key := range slices.Sorted(maps.Keys(bindings)) {
		if !slices.Contains(clientTypes, key) {
			r.fail("verifier bound to unknown client type %q", key)
		}
	}

	routes := make(map[string]auth.Verifier, len(clientTypes))
	for _, ct := range clientTypes {
		vname, ok := bindings[ct]
		if !ok {
			r.fail("client type %q has no verifier", ct)
			continue
		}
		v := need(r, vname, registry.KindVerifier, r.reg.Verifier)
		if v == nil {
			continue
		}
		routes[ct] = r.tracker.Guard(r.name+"/"+ct, v)
	}
	return router.NewDispatcher(routes), bindings
}

func (r *resolver) bindings(clientTypes []string) map[string]string {
	switch {
	case len(r.raw.Verifiers) > 0 && len(r.raw.Providers) > 0:
		r.fail("verifiers and providers are mutually exclusive")
		return nil
	case len(r.raw.Verifiers) > 0:
		out := make(map[string]string, len(r.raw.Verifiers))
		for _, k := range slices.Sorted(maps.Keys(r.raw.Verifiers)) {
			key := strings.TrimSpace(k)
			if _, dup := out[key]; dup {
				r.fail("duplicate verifier binding for client type %q", key)
				continue
			}
			out[key] = strings.TrimSpace(r.raw.Verifiers[k])
		}
		return out
	case len(r.raw.Providers) > 0:
		if len(r.raw.Providers) != len(clientTypes) {
			r.fail("%d providers for %d client types (%s)",
				len(r.raw.Providers), len(clientTypes), strings.Join(clientTypes, ", "))
			return nil
		}
		return lo.SliceToMap(lo.Zip2(clientTypes, r.raw.Providers), func(p lo.Tuple2[string, string]) (string, string) {
			return p.A, strings.TrimSpace(p.B)
		})
	default:
		r.fail("no verifiers configured")
		return nil
	}
}
