// Package testdata holds Go sources exercised by the rewrite tests.
// The files are embedded and fed to the rewriter as text; they are kept
// compilable on purpose so the cases stay honest.
package testdata
