// Package prompt separates interactive confirmation from business logic.
// Stages receive a Confirmer and never read the terminal themselves, so an
// unattended implementation (always yes) and a scripted test implementation
// can stand in without simulating terminal input.
package prompt
