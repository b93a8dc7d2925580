package qstate

import "strings"

// Matcher reports whether item belongs to the result set described by query.
type Matcher func(query Descriptor, item Entity) bool

// ManagerOption configures a Manager at construction time.
type ManagerOption func(*managerConfig)

type managerConfig struct {
	itemKey      string
	defaultQuery Descriptor
	matcher      Matcher
	pageField    string
	sizeField    string
}

// WithItemKey sets the entity field used as identifier.
func WithItemKey(field string) ManagerOption {
	return func(cfg *managerConfig) {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			cfg.itemKey = trimmed
		}
	}
}

// WithDefaultQuery sets the descriptor values implied when a query omits them.
// Values matching these defaults are dropped from canonical query keys.
func WithDefaultQuery(defaults Descriptor) ManagerOption {
	return func(cfg *managerConfig) {
		if len(defaults) == 0 {
			cfg.defaultQuery = nil
			return
		}
		cfg.defaultQuery = make(Descriptor, len(defaults))
		for key, value := range defaults {
			cfg.defaultQuery[key] = value
		}
	}
}

// WithMatcher enables membership updates of stored queries when entities are
// received outside of a query.
func WithMatcher(matcher Matcher) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.matcher = matcher
	}
}

// WithPagination names the descriptor fields holding the page number and the
// page size. Stored queries that differ only by these fields are treated as
// pages of one result set when the matcher updates them: a newly matching
// entity is appended to the first page only while it has room, and every
// page's found count moves together.
func WithPagination(pageField, sizeField string) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.pageField = strings.TrimSpace(pageField)
		cfg.sizeField = strings.TrimSpace(sizeField)
	}
}

func applyManagerOptions(opts []ManagerOption) managerConfig {
	cfg := managerConfig{itemKey: DefaultItemKey}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// ReceiveOption configures a single Receive call.
type ReceiveOption func(*receiveConfig)

type receiveConfig struct {
	query    Descriptor
	hasQuery bool
	found    int
	hasFound bool
	patch    bool
}

// WithQuery associates the received entities with query.
func WithQuery(query Descriptor) ReceiveOption {
	return func(cfg *receiveConfig) {
		if query == nil {
			query = Descriptor{}
		}
		cfg.query = query
		cfg.hasQuery = true
	}
}

// WithFound sets the total number of server-side matches for the query.
func WithFound(found int) ReceiveOption {
	return func(cfg *receiveConfig) {
		if found < 0 {
			found = 0
		}
		cfg.found = found
		cfg.hasFound = true
	}
}

// AsPatch merges the received fields into existing records.
func AsPatch() ReceiveOption {
	return func(cfg *receiveConfig) {
		cfg.patch = true
	}
}

func applyReceiveOptions(opts []ReceiveOption) receiveConfig {
	var cfg receiveConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
