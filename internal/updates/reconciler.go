// Package updates decides whether the host should be offered a newer
// release of the plugin and answers the host's plugin information queries.
package updates

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/vrsandeep/techmail/internal/logger"
	"github.com/vrsandeep/techmail/internal/release"
)

// PluginInformationAction is the only plugins_api action answered.
const PluginInformationAction = "plugin_information"

// DescriptorProvider yields the current release descriptor, if any.
type DescriptorProvider interface {
	Get(ctx context.Context) (*release.Descriptor, bool)
}

// Identity describes the plugin as the host knows it.
type Identity struct {
	// Plugin is the basename used as key in update structures,
	// e.g. "technical-email/technical-email.php".
	Plugin string
	Slug   string
	// ID is the update record id, e.g. "tio.studio/technical-email".
	ID               string
	Homepage         string
	Author           string
	InstalledVersion string
	Icons            map[string]string
}

// Advertisement is the record merged into the host's available updates.
type Advertisement struct {
	ID         string            `json:"id"`
	Slug       string            `json:"slug"`
	Plugin     string            `json:"plugin"`
	NewVersion string            `json:"new_version"`
	Package    string            `json:"package"`
	URL        string            `json:"url"`
	Icons      map[string]string `json:"icons,omitempty"`
}

// PluginInfo is the display record for the host's plugin details popup.
type PluginInfo struct {
	Name         string            `json:"name"`
	Slug         string            `json:"slug"`
	Version      string            `json:"version"`
	Author       string            `json:"author,omitempty"`
	Homepage     string            `json:"homepage,omitempty"`
	DownloadLink string            `json:"download_link"`
	Requires     string            `json:"requires,omitempty"`
	Tested       string            `json:"tested,omitempty"`
	LastUpdated  string            `json:"last_updated,omitempty"`
	Sections     map[string]string `json:"sections"`
}

// Reconciler compares the installed version with the remote release.
type Reconciler struct {
	descriptors DescriptorProvider
	id          Identity
	log         *logrus.Entry
}

// NewReconciler creates a reconciler for the plugin described by id.
func NewReconciler(descriptors DescriptorProvider, id Identity, l *logrus.Logger) *Reconciler {
	if id.ID == "" {
		id.ID = id.Slug
	}
	return &Reconciler{
		descriptors: descriptors,
		id:          id,
		log:         logger.Component(l, "updates"),
	}
}

// Identity returns the plugin identity the reconciler answers for.
func (r *Reconciler) Identity() Identity {
	return r.id
}

// CheckForUpdate returns an advertisement when the remote release is
// strictly newer than installedVersion, and false otherwise.
func (r *Reconciler) CheckForUpdate(ctx context.Context, installedVersion string) (*Advertisement, bool) {
	d, ok := r.descriptors.Get(ctx)
	if !ok {
		return nil, false
	}

	remote := NormalizeVersion(d.Version)
	newer, err := IsNewerVersion(installedVersion, remote)
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"installed": installedVersion,
			"remote":    d.Version,
		}).Warn("Cannot compare plugin versions")
		return nil, false
	}
	if !newer {
		return nil, false
	}

	return &Advertisement{
		ID:         r.id.ID,
		Slug:       r.id.Slug,
		Plugin:     r.id.Plugin,
		NewVersion: remote,
		Package:    d.DownloadURL,
		URL:        r.id.Homepage,
		Icons:      r.id.Icons,
	}, true
}

// MergeAvailableUpdates folds the update decision for this plugin into
// the host's available-updates structure. Only the entries keyed by this
// plugin are touched. A structure without checked versions is returned
// unchanged, as is any structure when no descriptor is available.
func (r *Reconciler) MergeAvailableUpdates(ctx context.Context, updates map[string]any) map[string]any {
	if updates == nil {
		return updates
	}
	checked, _ := updates["checked"].(map[string]any)
	if len(checked) == 0 {
		return updates
	}

	installed, _ := checked[r.id.Plugin].(string)
	if installed == "" {
		installed = r.id.InstalledVersion
	}

	d, ok := r.descriptors.Get(ctx)
	if !ok {
		return updates
	}

	response := objectField(updates, "response")
	noUpdate := objectField(updates, "no_update")

	if adv, ok := r.CheckForUpdate(ctx, installed); ok {
		response[r.id.Plugin] = adv
		delete(noUpdate, r.id.Plugin)
		r.log.WithFields(logrus.Fields{
			"installed": installed,
			"available": adv.NewVersion,
		}).Info("Plugin update available")
		return updates
	}

	delete(response, r.id.Plugin)
	noUpdate[r.id.Plugin] = &Advertisement{
		ID:         r.id.ID,
		Slug:       r.id.Slug,
		Plugin:     r.id.Plugin,
		NewVersion: installed,
		Package:    d.DownloadURL,
		URL:        r.id.Homepage,
		Icons:      r.id.Icons,
	}
	return updates
}

// DescribeForInfoPopup answers a plugins_api query. Requests for other
// actions or slugs, and requests made while no descriptor is available,
// return current unchanged.
func (r *Reconciler) DescribeForInfoPopup(ctx context.Context, action, slug string, current any) any {
	if action != PluginInformationAction || slug != r.id.Slug {
		return current
	}
	d, ok := r.descriptors.Get(ctx)
	if !ok {
		return current
	}

	info := &PluginInfo{
		Name:         d.Name,
		Slug:         d.Slug,
		Version:      NormalizeVersion(d.Version),
		Author:       d.Author,
		Homepage:     d.Homepage,
		DownloadLink: d.DownloadURL,
		Requires:     d.Requires,
		Tested:       d.Tested,
		LastUpdated:  d.LastUpdated,
		Sections:     d.Sections,
	}
	if info.Slug == "" {
		info.Slug = r.id.Slug
	}
	if info.Author == "" {
		info.Author = r.id.Author
	}
	if info.Homepage == "" {
		info.Homepage = r.id.Homepage
	}
	if info.Sections == nil {
		info.Sections = map[string]string{}
	}
	return info
}

// AutoUpdateApproved returns true for this plugin's item and passes the
// host's decision through for every other item.
func (r *Reconciler) AutoUpdateApproved(update any, item map[string]any) any {
	if plugin, _ := item["plugin"].(string); plugin == r.id.Plugin {
		return true
	}
	return update
}

// objectField returns updates[key] as an object, creating it when absent.
func objectField(updates map[string]any, key string) map[string]any {
	if m, ok := updates[key].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	updates[key] = m
	return m
}
