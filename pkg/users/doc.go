// Package users stores user accounts.
//
// Emails are stored lower-cased and are unique regardless of case. The store
// never sees plaintext passwords; callers hash with auth.PasswordHasher first.
package users
