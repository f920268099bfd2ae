// Package notify wires the recipient, config file and update components
// into the host's filter and action names.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vrsandeep/techmail/internal/hooks"
	"github.com/vrsandeep/techmail/internal/recipient"
	"github.com/vrsandeep/techmail/internal/updates"
)

// Filter names.
const (
	FilterAutoCoreUpdateEmail   = "auto_core_update_email"
	FilterAutoPluginUpdateEmail = "auto_plugin_theme_update_email"
	FilterRecoveryModeEmail     = "recovery_mode_email"
	FilterSiteHealthEmails      = "site_status_tests_notifications_emails"
	FilterUpdatePlugins         = "site_transient_update_plugins"
	FilterPluginsAPI            = "plugins_api"
	FilterAutoUpdatePlugin      = "auto_update_plugin"
	FilterPluginActionLinks     = "plugin_action_links"
)

// Action names.
const (
	ActionActivate      = "activate"
	ActionDeactivate    = "deactivate"
	ActionUninstall     = "uninstall"
	ActionAddressSaved  = "update_option_" + recipient.SettingKey
	settingsPage        = "options-general.php"
	pluginsAPIPriority  = 20
	settingsLinkPattern = `<a href="%s">Settings</a>`
)

// ErrBadArguments is returned when a hook is dispatched with a payload
// of the wrong shape.
var ErrBadArguments = errors.New("bad hook arguments")

// Bindings connects the registry to the components.
type Bindings struct {
	resolver   *recipient.Resolver
	reconciler *updates.Reconciler
	adminURL   string
}

// NewBindings creates bindings. adminURL prefixes the settings link and
// may be empty for a relative link.
func NewBindings(resolver *recipient.Resolver, reconciler *updates.Reconciler, adminURL string) *Bindings {
	return &Bindings{resolver: resolver, reconciler: reconciler, adminURL: adminURL}
}

// Register adds every filter and action to reg.
func (b *Bindings) Register(reg *hooks.Registry) {
	for _, name := range []string{FilterAutoCoreUpdateEmail, FilterAutoPluginUpdateEmail, FilterRecoveryModeEmail} {
		reg.AddFilter(name, hooks.DefaultPriority, b.redirectFilter)
	}
	reg.AddFilter(FilterSiteHealthEmails, hooks.DefaultPriority, func(ctx context.Context, value any, args ...any) (any, error) {
		return b.SiteHealthRecipients(), nil
	})
	reg.AddFilter(FilterUpdatePlugins, hooks.DefaultPriority, b.updatePluginsFilter)
	reg.AddFilter(FilterPluginsAPI, pluginsAPIPriority, b.pluginsAPIFilter)
	reg.AddFilter(FilterAutoUpdatePlugin, hooks.DefaultPriority, b.autoUpdateFilter)
	reg.AddFilter(FilterPluginActionLinks, hooks.DefaultPriority, b.actionLinksFilter)

	reg.AddAction(ActionActivate, hooks.DefaultPriority, func(ctx context.Context, args ...any) error {
		b.resolver.Install()
		return nil
	})
	uninstall := func(ctx context.Context, args ...any) error {
		b.resolver.Uninstall()
		return nil
	}
	reg.AddAction(ActionDeactivate, hooks.DefaultPriority, uninstall)
	reg.AddAction(ActionUninstall, hooks.DefaultPriority, uninstall)
	reg.AddAction(ActionAddressSaved, hooks.DefaultPriority, b.addressSavedAction)
}

// RedirectEmail overwrites the "to" field of an outgoing email.
func (b *Bindings) RedirectEmail(email map[string]any) map[string]any {
	if email == nil {
		email = map[string]any{}
	}
	email["to"] = b.resolver.Resolve()
	return email
}

// SiteHealthRecipients is the single-element recipient list for site
// health notifications.
func (b *Bindings) SiteHealthRecipients() []string {
	return []string{b.resolver.Resolve()}
}

// PluginActionLinks prepends the settings link to links.
func (b *Bindings) PluginActionLinks(links []any) []any {
	link := fmt.Sprintf(settingsLinkPattern, b.adminURL+settingsPage)
	return append([]any{link}, links...)
}

func (b *Bindings) redirectFilter(ctx context.Context, value any, args ...any) (any, error) {
	switch email := value.(type) {
	case map[string]any:
		return b.RedirectEmail(email), nil
	case nil:
		return b.RedirectEmail(nil), nil
	default:
		return value, fmt.Errorf("%w: email payload must be an object, got %T", ErrBadArguments, value)
	}
}

func (b *Bindings) updatePluginsFilter(ctx context.Context, value any, args ...any) (any, error) {
	updates, ok := value.(map[string]any)
	if !ok {
		return value, nil
	}
	return b.reconciler.MergeAvailableUpdates(ctx, updates), nil
}

// pluginsAPIFilter expects args (action string, query object with "slug").
func (b *Bindings) pluginsAPIFilter(ctx context.Context, value any, args ...any) (any, error) {
	if len(args) < 2 {
		return value, nil
	}
	action, _ := args[0].(string)
	query, _ := args[1].(map[string]any)
	slug, _ := query["slug"].(string)
	return b.reconciler.DescribeForInfoPopup(ctx, action, slug, value), nil
}

// autoUpdateFilter expects args (item object with "plugin").
func (b *Bindings) autoUpdateFilter(ctx context.Context, value any, args ...any) (any, error) {
	if len(args) < 1 {
		return value, nil
	}
	item, _ := args[0].(map[string]any)
	return b.reconciler.AutoUpdateApproved(value, item), nil
}

func (b *Bindings) actionLinksFilter(ctx context.Context, value any, args ...any) (any, error) {
	if len(args) > 0 {
		if plugin, _ := args[0].(string); plugin != b.reconciler.Identity().Plugin {
			return value, nil
		}
	}
	links, _ := value.([]any)
	return b.PluginActionLinks(links), nil
}

// addressSavedAction follows the host's update_option argument order
// (old value, new value, option name). The value is already stored, so
// only the config file declaration is brought in line with it.
func (b *Bindings) addressSavedAction(ctx context.Context, args ...any) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: expected old and new value", ErrBadArguments)
	}
	address, ok := args[1].(string)
	if !ok {
		return fmt.Errorf("%w: address must be a string, got %T", ErrBadArguments, args[1])
	}
	switch address = strings.TrimSpace(address); {
	case address == "":
		address = b.resolver.Default()
	case !recipient.Valid(address):
		return fmt.Errorf("%w: %q", recipient.ErrInvalidAddress, address)
	}
	b.resolver.OnAddressChanged(address)
	return nil
}
