// Package git reads the revision of the project being built so the build
// report can name the exact sources it came from.
package git
