// Package cmd implements the cobra command tree for the voxctl CLI,
// including subcommands for credential inspection, source diagnostics,
// and version information.
package cmd
