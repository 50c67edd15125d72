// Package cli provides the lexrag command line interface built on cobra.
//
// Commands read their services from package-level variables that the
// composition root installs through SetBootstrap or SetServices. Tests
// install fakes the same way.
package cli
