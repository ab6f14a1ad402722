// Package cli turns command-line arguments into an app.Config. Usage
// mistakes come back as an ExitError carrying exit code 2.
package cli
