// Package recipient decides who receives the host's system notification
// emails and keeps the config file declaration in step with that choice.
package recipient

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vrsandeep/techmail/internal/logger"
)

// SettingKey is the settings store key holding the technical address.
const SettingKey = "technical_email_address"

// ErrInvalidAddress is returned by Save for input that is not a plain email address.
var ErrInvalidAddress = errors.New("invalid email address")

// SettingsStore is the key/value store the address is persisted in.
// A missing key reads as the empty string.
type SettingsStore interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// settingDeleter is implemented by stores that can drop a key, so a
// cleared address leaves no row behind.
type settingDeleter interface {
	DeleteSetting(key string) error
}

// ConfigWriter writes the address into the host config file. Failures
// are absorbed by the writer.
type ConfigWriter interface {
	Apply(address string, remove bool)
}

// Resolver resolves the current recipient address.
type Resolver struct {
	settings       SettingsStore
	writer         ConfigWriter
	defaultAddress string
	log            *logrus.Entry
}

// NewResolver creates a resolver. defaultAddress is returned whenever the
// store has no usable value.
func NewResolver(settings SettingsStore, writer ConfigWriter, defaultAddress string, l *logrus.Logger) *Resolver {
	return &Resolver{
		settings:       settings,
		writer:         writer,
		defaultAddress: defaultAddress,
		log:            logger.Component(l, "recipient"),
	}
}

// Default returns the compiled-in fallback address.
func (r *Resolver) Default() string {
	return r.defaultAddress
}

// Resolve returns the stored address, or the default when none is stored.
// It never returns the empty string as long as the default is set.
func (r *Resolver) Resolve() string {
	value, err := r.settings.GetSetting(SettingKey)
	if err != nil {
		r.log.WithError(err).Warn("Could not read technical address, using default")
		return r.defaultAddress
	}
	if value = strings.TrimSpace(value); value == "" {
		return r.defaultAddress
	}
	return value
}

// OnAddressChanged mirrors a new address into the config file. The empty
// string removes the declaration.
func (r *Resolver) OnAddressChanged(newAddress string) {
	if newAddress == "" {
		r.writer.Apply("", true)
		return
	}
	r.writer.Apply(newAddress, false)
}

// Save validates and stores address, then rewrites the declaration with
// the address now in effect. Saving an empty value falls back to the default.
func (r *Resolver) Save(address string) (string, error) {
	clean := Sanitize(address)
	if clean == "" && strings.TrimSpace(address) != "" {
		return "", ErrInvalidAddress
	}
	if err := r.store(clean); err != nil {
		return "", err
	}
	effective := r.Resolve()
	r.OnAddressChanged(effective)
	r.log.WithField("address", effective).Info("Technical address saved")
	return effective, nil
}

func (r *Resolver) store(address string) error {
	if d, ok := r.settings.(settingDeleter); ok && address == "" {
		return d.DeleteSetting(SettingKey)
	}
	return r.settings.SetSetting(SettingKey, address)
}

// Install writes the address in effect into the config file.
func (r *Resolver) Install() {
	r.OnAddressChanged(r.Resolve())
}

// Uninstall removes the declaration from the config file.
func (r *Resolver) Uninstall() {
	r.OnAddressChanged("")
}
