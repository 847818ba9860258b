//go:build race

package session

import "golang.org/x/crypto/bcrypt"

// Race-instrumented builds pay a heavy CPU tax; the default cost keeps
// the password tests from dominating the run.
func passwordHashCost() int {
	return bcrypt.DefaultCost
}
