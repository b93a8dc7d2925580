// Package sites holds the site slice of the state tree.
package sites

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-query-state/internal/hydrate"
)

// ErrMissingID reports a site payload without a usable ID.
var ErrMissingID = errors.New("sites: payload has no ID")

// Site is a site record as returned by the sites API.
type Site struct {
	ID             int64           `json:"ID"`
	Name           string          `json:"name,omitempty"`
	URL            string          `json:"URL"`
	Jetpack        bool            `json:"jetpack,omitempty"`
	IsVIP          bool            `json:"is_vip,omitempty"`
	SingleUserSite *bool           `json:"single_user_site,omitempty"`
	Capabilities   map[string]bool `json:"capabilities,omitempty"`
	Options        map[string]any  `json:"options,omitempty"`
}

// Option returns the named site option, or nil.
func (s Site) Option(name string) any {
	if s.Options == nil {
		return nil
	}
	return s.Options[name]
}

// OptionString returns the named site option when it is a string.
func (s Site) OptionString(name string) string {
	value, _ := s.Option(name).(string)
	return value
}

// Can reports whether the current user holds capability on the site.
func (s Site) Can(capability string) bool {
	return s.Capabilities[capability]
}

var decoder = hydrate.NewDecoder[Site](
	hydrate.WithPreHook[Site](normalizePayload),
	hydrate.WithPostHook[Site](requireID),
)

// Decode converts a raw site payload into a Site.
func Decode(raw map[string]any) (Site, error) {
	return decoder.Decode(hydrate.Context{Kind: "site", Key: fmt.Sprint(raw["ID"])}, raw)
}

// normalizePayload accepts string IDs and trims the URL so API quirks do not
// reach the store.
func normalizePayload(_ hydrate.Context, raw map[string]any) (map[string]any, error) {
	if id, ok := raw["ID"].(string); ok {
		var parsed int64
		if _, err := fmt.Sscan(strings.TrimSpace(id), &parsed); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMissingID, id)
		}
		raw["ID"] = parsed
	}
	if u, ok := raw["URL"].(string); ok {
		raw["URL"] = strings.TrimSpace(u)
	}
	if options, ok := raw["options"]; ok {
		if _, isMap := options.(map[string]any); !isMap {
			delete(raw, "options")
		}
	}
	return raw, nil
}

func requireID(_ hydrate.Context, site *Site) error {
	if site.ID == 0 {
		return ErrMissingID
	}
	return nil
}
