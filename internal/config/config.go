// Package config turns the current navigation target into an immutable
// operation descriptor. One descriptor is built per page load or per chained
// same-document transition and discarded when its operation finishes.
package config

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/dgellow/auth-front/internal/navigation"
	"github.com/dgellow/auth-front/internal/urlutil"
)

// Mode identifies which operation the gateway redirected here for.
type Mode string

const (
	ModeLogin             Mode = "login"
	ModeReauth            Mode = "reauth"
	ModeSignout           Mode = "signout"
	ModeSelectAuthSession Mode = "selectAuthSession"
	ModeUnknown           Mode = "unknown"
)

// ProjectMarkerPrefix marks a tenant identifier that denotes the tenant-less
// top-level namespace of a project ("_<projectID>").
const ProjectMarkerPrefix = "_"

var (
	emailRe      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	providerIDRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// SelectedTenantInfo is the tenant hint a tenant-selection surface hands to
// the next sign-in surface, either through a same-document navigation payload
// or through the legacy hash fragment.
type SelectedTenantInfo struct {
	Email       string
	TenantID    string
	ProviderIDs []string
}

// OperationConfig is the parsed, sanitized navigation state. Fields are fixed
// at construction; treat values as read-only.
type OperationConfig struct {
	Mode               Mode
	APIKey             string
	TenantID           string
	RedirectURL        string
	State              string
	Locale             string
	SelectedTenantInfo *SelectedTenantInfo
}

// Parse builds an OperationConfig from the navigation URL and, when present,
// the same-document state payload. st may be nil on hosts without
// navigation-state support.
func Parse(u *url.URL, st *navigation.State) *OperationConfig {
	q := u.Query()
	cfg := &OperationConfig{
		Mode:        parseMode(q.Get("mode")),
		APIKey:      q.Get("apiKey"),
		TenantID:    q.Get("tid"),
		RedirectURL: urlutil.Sanitize(q.Get("redirect_uri")),
		State:       q.Get("state"),
		Locale:      q.Get("hl"),
	}
	cfg.SelectedTenantInfo = resolveTenantInfo(cfg, u, st)
	return cfg
}

func parseMode(s string) Mode {
	switch Mode(s) {
	case ModeLogin, ModeReauth, ModeSignout, ModeSelectAuthSession:
		return Mode(s)
	default:
		return ModeUnknown
	}
}

// NormalizeTenantID collapses the project-marker form to the empty string so
// tenant identities can be compared across their two spellings.
func NormalizeTenantID(tid string) string {
	if strings.HasPrefix(tid, ProjectMarkerPrefix) {
		return ""
	}
	return tid
}

// resolveTenantInfo picks the navigation payload over the hash hint, then
// cross-checks the hint's tenant identity against the config's own. A stale
// or foreign hint must never leak into the wrong handshake, so any mismatch
// discards the whole structure.
func resolveTenantInfo(cfg *OperationConfig, u *url.URL, st *navigation.State) *SelectedTenantInfo {
	if cfg.TenantID == "" {
		return nil
	}

	var info *SelectedTenantInfo
	if st != nil && st.Kind == navigation.KindSignIn && st.TenantHint != nil {
		info = &SelectedTenantInfo{
			Email:       st.TenantHint.Email,
			TenantID:    st.TenantHint.TenantID,
			ProviderIDs: st.TenantHint.ProviderIDs,
		}
	} else {
		info = parseHashHint(u.Fragment, cfg.TenantID)
	}
	if info == nil {
		return nil
	}

	if !emailRe.MatchString(info.Email) {
		info.Email = ""
	}
	info.ProviderIDs = sanitizeProviderIDs(info.ProviderIDs)

	if NormalizeTenantID(info.TenantID) != NormalizeTenantID(cfg.TenantID) {
		return nil
	}
	return info
}

// parseHashHint understands "#hint=<email>;<providerId1>,<providerId2>,...".
// Retained only for hosts lacking navigation-state support; the hint carries
// no tenant id of its own, so it inherits the config's.
func parseHashHint(fragment, tenantID string) *SelectedTenantInfo {
	hint, ok := strings.CutPrefix(fragment, "hint=")
	if !ok {
		return nil
	}
	email, providers, _ := strings.Cut(hint, ";")
	info := &SelectedTenantInfo{Email: email, TenantID: tenantID}
	if providers != "" {
		info.ProviderIDs = strings.Split(providers, ",")
	}
	return info
}

func sanitizeProviderIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if providerIDRe.MatchString(id) {
			out = append(out, id)
		}
	}
	return out
}
