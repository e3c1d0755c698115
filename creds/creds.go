// Package creds loads the NordVPN service credentials from the environment.
// A .env file in the working directory is merged into the environment first,
// without overriding variables that are already set.
package creds

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/sveliz/nordctl/common"
)

// Credentials holds the NordVPN service username and password. These are
// the manual-configuration credentials, not the account login. They are
// passed by value and must never be logged.
type Credentials struct {
	Username string
	Password string
}

// Load reads NORD_USER and NORD_PASS from the environment, merging a .env
// file from the working directory beforehand when one exists.
func Load() (Credentials, error) {
	if common.FileExists(".env") {
		// godotenv.Load never overrides variables already exported.
		if err := godotenv.Load(); err != nil {
			return Credentials{}, fmt.Errorf("error reading .env file: %w", err)
		}
	}

	username := os.Getenv(common.EnvUsername)
	password := os.Getenv(common.EnvPassword)

	if username == "" || password == "" {
		return Credentials{}, fmt.Errorf("%w: set %s and %s in the environment or a .env file\n"+
			"Get service credentials from: https://my.nordaccount.com/dashboard/nordvpn/manual-configuration/",
			common.ErrNoCredentials, common.EnvUsername, common.EnvPassword)
	}

	return Credentials{Username: username, Password: password}, nil
}

// Configured reports whether credentials can be loaded.
func Configured() bool {
	_, err := Load()
	return err == nil
}
