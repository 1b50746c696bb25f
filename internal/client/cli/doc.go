// Package cli provides the speechcoach command-line client.
//
// Invoked with a subcommand it runs that command and exits:
//
//	speechcoach-cli register
//	speechcoach-cli login
//	speechcoach-cli refresh
//	speechcoach-cli logout [--all]
//	speechcoach-cli whoami
//
// Without one it starts an interactive REPL accepting the same commands.
// Tokens are kept in a JSON file (see config.Config.TokenFile) so a login
// survives between invocations.
package cli
