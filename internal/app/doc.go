// Package app wires the sessiond demo shell: environment configuration,
// logging, the durable store, the accounts API client and the HTTP router
// whose pages are gated by the session guards.
package app
