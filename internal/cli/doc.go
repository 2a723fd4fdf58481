// Package cli implements the meshctl commands over the TaskMesh HTTP API.
package cli
