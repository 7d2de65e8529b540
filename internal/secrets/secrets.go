// Package secrets resolves per-source credentials from the environment.
package secrets

import (
	"os"
	"strings"
)

// Source looks up credentials scoped to a source id. Implementations must be
// safe for concurrent use.
type Source interface {
	APIKey(sourceID string) string
	Username(sourceID string) string
	Password(sourceID string) string
}

// Env resolves secrets from environment variables of the form
// PROJECTWATCH_SOURCE_<ID>_API_KEY, _USERNAME, and _PASSWORD, where <ID> is
// the upper-cased source id with dashes replaced by underscores.
type Env struct{}

func (Env) APIKey(sourceID string) string   { return os.Getenv(envKey(sourceID, "API_KEY")) }
func (Env) Username(sourceID string) string { return os.Getenv(envKey(sourceID, "USERNAME")) }
func (Env) Password(sourceID string) string { return os.Getenv(envKey(sourceID, "PASSWORD")) }

func envKey(sourceID, suffix string) string {
	id := strings.ToUpper(strings.ReplaceAll(sourceID, "-", "_"))
	return "PROJECTWATCH_SOURCE_" + id + "_" + suffix
}

// Static is a fixed in-memory secret source, used in tests.
type Static struct {
	Keys      map[string]string
	Usernames map[string]string
	Passwords map[string]string
}

func (s Static) APIKey(sourceID string) string   { return s.Keys[sourceID] }
func (s Static) Username(sourceID string) string { return s.Usernames[sourceID] }
func (s Static) Password(sourceID string) string { return s.Passwords[sourceID] }
