// Package cli provides the prodhub command-line interface.
//
// # Overview
//
// The prodhub binary runs the API server and the operational tasks around it.
// Every command reads its settings from PRODHUB_* environment variables, optionally
// loaded from a .env file first.
//
// # Commands
//
// serve: Run the HTTP API
//
//	prodhub serve
//	prodhub serve --env-file ./deploy/prod.env
//
// Serve applies pending migrations, seeds the module catalog when a catalog file is
// configured, starts the background jobs and blocks until SIGINT or SIGTERM.
//
// migrate: Apply pending schema migrations
//
//	prodhub migrate
//	prodhub migrate status
//
// bootstrap-admin: Create or promote the first global superadmin
//
//	prodhub bootstrap-admin --email root@example.com --password 's3cret!'
//
// The password may also be supplied through PRODHUB_BOOTSTRAP_PASSWORD to keep it out
// of the shell history.
//
// # Exit Codes
//
//	0: Success
//	1: Error (configuration, database or validation failure)
package cli
