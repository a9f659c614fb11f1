// Package db builds the concrete store driver for a profile.
package db

import (
	"github.com/pkg/errors"

	"github.com/fixitapp/fixit/internal/profile"
	"github.com/fixitapp/fixit/store"
	"github.com/fixitapp/fixit/store/db/postgres"
	"github.com/fixitapp/fixit/store/db/sqlite"
)

// NewDBDriver creates a new db driver based on profile.
// SQLite is the default for single-box installs; postgres adds vector
// search for the similar-question feature.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver: %s", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
