// Package secrets resolves ${secret:name} references in configuration
// values, such as a Postgres DSN or a Git access token, so credentials stay
// out of the config file.
//
//	mgr := secrets.NewManager(secrets.NewEnvProvider(""), fileProvider)
//	dsn, err := mgr.Resolve(ctx, "postgres://custodian:${secret:pg-password}@db/custodian")
//
// The environment provider reads CUSTODIAN_SECRET_PG_PASSWORD for
// "pg-password"; the file provider reads <dir>/pg-password.
package secrets
