// Package backend provides execution backends for the fallback cascade and
// a factory to construct them by provider name. Supported providers are
// "anthropic" (Messages API) and "local" (degraded offline tier).
package backend
