// Package secret resolves configuration values that must not live in the
// config file, such as the provider API key.
//
// A value is first expanded strictly against the environment (${VAR} must be
// set, $$ is a literal dollar). If the result has the form
// secretref:<provider>:<ref>, the named Provider supplies the final value:
//
//	r := secret.NewResolver(secret.EnvProvider{}, secret.NewFileProvider("/run/secrets"))
//	key, err := r.ResolveValue(ctx, "secretref:file:openai_api_key")
package secret
