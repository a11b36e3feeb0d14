// Package secret resolves secret references in configuration values.
//
// A value goes through two stages:
//   - Strict environment expansion (see ExpandEnvStrict)
//   - Secret reference resolution through registered Providers (see Resolver)
//
// References use the prefix "secretref:" followed by a provider name and a
// provider-specific reference:
//
//	password: secretref:file:redis-password
//	headers:
//	  Authorization: Bearer secretref:env:STATUS_TOKEN
//
// # Providers
//
// EnvProvider reads process environment variables and FileProvider reads files
// from a directory (for example mounted container secrets). Additional
// providers are added by name to a Registry and built from configuration with
// Registry.Create.
package secret
