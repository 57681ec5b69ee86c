// Package gitignore matches paths against gitignore patterns for the
// source scanner, following the syntax documented at
// https://git-scm.com/docs/gitignore: wildcards (*, ?, **), rooted
// patterns (/build), negations (!important.log), directory-only
// patterns (build/) and nested .gitignore files. A Matcher is safe for
// concurrent use.
//
// Heavy-usage scans skip gitignore matching unless scan.respect_gitignore
// is set; vendored and generated code can pull in GPU workloads too.
//
// Usage:
//
//	m := gitignore.New()
//	m.AddPattern("*.ckpt")
//	m.AddPattern("!baseline.ckpt")
//	m.AddPattern("/outputs/")
//
//	m.Match("runs/epoch3.ckpt", false) // true
//	m.Match("baseline.ckpt", false)    // false, negated
//
// Patterns from a nested .gitignore apply below its directory:
//
//	m.AddFromFile("/repo/.gitignore", "")
//	m.AddFromFile("/repo/training/.gitignore", "training")
package gitignore
