// Package registry maintains the catalog of callable domain actions,
// indexed by id, domain, and category.
package registry

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/agendo/engine/middleware"
	"github.com/agendo/engine/types"
)

// CatalogProvider supplies the initial function definitions for a business
// domain at registry start-up. Implementations live outside this module.
type CatalogProvider interface {
	Functions(domain string) []types.RegisteredFunction
}

// Registry is the catalog of registered functions. All index mutations
// happen under a single write lock so no partial-update window is ever
// observable by concurrent readers.
type Registry struct {
	mu          sync.RWMutex
	functions   map[string]types.RegisteredFunction
	byDomain    map[string][]string // domain -> function ids
	byCategory  map[types.Category][]string
	middlewares map[string]middleware.Middleware
	logger      *zap.Logger
}

// New creates an empty registry with the default named middleware
// (logging and booking validation) installed.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		functions:   make(map[string]types.RegisteredFunction),
		byDomain:    make(map[string][]string),
		byCategory:  make(map[types.Category][]string),
		middlewares: make(map[string]middleware.Middleware),
		logger:      logger.With(zap.String("component", "registry")),
	}
	r.RegisterMiddleware(middleware.Logging(logger))
	r.RegisterMiddleware(middleware.BookingValidation())
	return r
}

// RegisterMiddleware installs a named middleware that functions may
// reference from their middleware list. Re-registering a name replaces
// the previous middleware.
func (r *Registry) RegisterMiddleware(mw middleware.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares[mw.Name] = mw
}

// Register adds a function to the catalog. It returns false when the id
// is already present. The function's category is resolved (declared
// category wins, otherwise inferred from the name) and default middleware
// is attached before insertion.
func (r *Registry) Register(fn types.RegisteredFunction) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.functions[fn.ID]; exists {
		r.logger.Warn("function already registered", zap.String("id", fn.ID))
		return false
	}

	if fn.Category == "" {
		fn.Category = types.CategorizeName(fn.Name)
	}
	fn.MiddlewareNames = attachDefaults(fn)

	r.functions[fn.ID] = fn
	r.byDomain[fn.Domain] = append(r.byDomain[fn.Domain], fn.ID)
	r.byCategory[fn.Category] = append(r.byCategory[fn.Category], fn.ID)

	r.logger.Info("function registered",
		zap.String("id", fn.ID),
		zap.String("name", fn.Name),
		zap.String("domain", fn.Domain),
		zap.String("category", string(fn.Category)),
	)
	return true
}

// attachDefaults prepends the default middleware names for a function:
// every function logs, booking functions also validate date/time args.
func attachDefaults(fn types.RegisteredFunction) []string {
	names := []string{middleware.NameLogging}
	if fn.Category == types.CategoryBooking {
		names = append(names, middleware.NameBookingValidation)
	}
	for _, existing := range fn.MiddlewareNames {
		if existing != middleware.NameLogging && existing != middleware.NameBookingValidation {
			names = append(names, existing)
		}
	}
	return names
}

// Unregister removes a function from the primary map and both secondary
// indices in one critical section. It returns false when the id is absent.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn, exists := r.functions[id]
	if !exists {
		return false
	}

	delete(r.functions, id)
	r.byDomain[fn.Domain] = removeID(r.byDomain[fn.Domain], id)
	if len(r.byDomain[fn.Domain]) == 0 {
		delete(r.byDomain, fn.Domain)
	}
	r.byCategory[fn.Category] = removeID(r.byCategory[fn.Category], id)
	if len(r.byCategory[fn.Category]) == 0 {
		delete(r.byCategory, fn.Category)
	}

	r.logger.Info("function unregistered", zap.String("id", id))
	return true
}

func removeID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// GetFunction returns a function by id.
func (r *Registry) GetFunction(id string) (types.RegisteredFunction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[id]
	return fn, ok
}

// GetFunctionByName resolves a function by name. When domain is non-empty
// only that domain's functions are searched: an action named identically
// in two domains is a distinct object. With an empty domain the whole
// registry is scanned and the first match wins.
func (r *Registry) GetFunctionByName(name, domain string) (types.RegisteredFunction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if domain != "" {
		for _, id := range r.byDomain[domain] {
			if fn := r.functions[id]; fn.Name == name {
				return fn, true
			}
		}
		return types.RegisteredFunction{}, false
	}
	for _, fn := range r.functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return types.RegisteredFunction{}, false
}

// GetAvailableFunctions returns the functions visible to the caller's
// tenant domain, excluding deprecated entries.
func (r *Registry) GetAvailableFunctions(cctx types.ConversationContext) []types.RegisteredFunction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byDomain[cctx.Domain()]
	available := make([]types.RegisteredFunction, 0, len(ids))
	for _, id := range ids {
		fn := r.functions[id]
		if fn.Metadata.Deprecated {
			continue
		}
		available = append(available, fn)
	}
	return available
}

// GetByCategory returns all functions of the given category.
func (r *Registry) GetByCategory(category types.Category) []types.RegisteredFunction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fns := make([]types.RegisteredFunction, 0, len(r.byCategory[category]))
	for _, id := range r.byCategory[category] {
		fns = append(fns, r.functions[id])
	}
	return fns
}

// SearchFunctions matches the query against function names, descriptions
// and tags. Exact name matches sort first; everything else keeps scan
// order.
func (r *Registry) SearchFunctions(query string) []types.RegisteredFunction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lower := strings.ToLower(query)
	var exact, fuzzy []types.RegisteredFunction
	for _, fn := range r.functions {
		switch {
		case strings.EqualFold(fn.Name, query):
			exact = append(exact, fn)
		case strings.Contains(strings.ToLower(fn.Name), lower),
			strings.Contains(strings.ToLower(fn.Description), lower),
			matchesTag(fn.Metadata.Tags, lower):
			fuzzy = append(fuzzy, fn)
		}
	}
	return append(exact, fuzzy...)
}

func matchesTag(tags []string, lowerQuery string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), lowerQuery) {
			return true
		}
	}
	return false
}

// MiddlewareFor resolves a function's middleware names to the installed
// middleware values. Unknown names are skipped.
func (r *Registry) MiddlewareFor(fn types.RegisteredFunction) []middleware.Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mws := make([]middleware.Middleware, 0, len(fn.MiddlewareNames))
	for _, name := range fn.MiddlewareNames {
		if mw, ok := r.middlewares[name]; ok {
			mws = append(mws, mw)
		}
	}
	return mws
}

// LoadCatalog registers every function a provider supplies for the given
// domains and returns the number of functions actually inserted.
func (r *Registry) LoadCatalog(provider CatalogProvider, domains ...string) int {
	registered := 0
	for _, domain := range domains {
		for _, fn := range provider.Functions(domain) {
			if r.Register(fn) {
				registered++
			}
		}
	}
	return registered
}
