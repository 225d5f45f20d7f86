// Package pattern parses the watch selection language.
//
// A pattern is a small glob-like expression:
//
//	word     any run of characters other than / { } , * !
//	*        any part of a single path segment
//	**       any number of path segments
//	!atom    the atom must not be present
//	{a,b}    alternation, which may hold whole paths such as {src/**,go.mod}
//	a/b      path segments
//	ab       atoms written next to each other share one segment
//
// There is no escaping. Parsing produces a Selector tree; turning it into
// concrete segment matchers is the job of package route.
package pattern
