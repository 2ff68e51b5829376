// Package config provides configuration management for Custodian.
//
// Configuration is read from a YAML file, filled in with defaults, overridden
// from the environment and validated as a whole.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("custodian.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("custodian.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CUSTODIAN_SECTION_FIELD:
//
//   - CUSTODIAN_STORE_BACKEND overrides store.backend
//   - CUSTODIAN_POLICY_PATH overrides policy.path
//   - CUSTODIAN_RETENTION_SCHEDULE overrides retention.schedule
//   - CUSTODIAN_AUDIT_SINKS overrides audit.sinks (comma separated)
//
// Environment variables always take precedence over file-based configuration.
// Defaults fill in whatever neither source set.
//
// # Validation
//
// Validate collects every problem into a ValidationError of FieldErrors so
// a broken file is reported in one pass:
//
//	var verr config.ValidationError
//	if errors.As(err, &verr) {
//	    for _, fe := range verr.Errors {
//	        fmt.Println(fe.Field, fe.Message)
//	    }
//	}
//
// # Global Configuration
//
// Initialize stores the loaded configuration for the process; GetConfig and
// MustGetConfig read it back and ReloadConfig re-reads the same file.
package config
