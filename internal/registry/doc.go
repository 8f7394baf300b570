// Package registry maintains the shared catalog of registered agents.
//
// The catalog is persisted as a single markdown document at
// <root>/active-agents.md:
//
//	# Active Agents
//
//	## alice
//
//	Reviews pull requests
//
//	**Capabilities:** go, review
//	**Working in:** /src/project
//	**Started:** 2025-12-24T15:02:33Z
//	**Status:** active
//
// In memory the document is a [Document]: the lines before the first record
// plus an ordered list of typed [Record] values. Every mutation re-reads the
// document under an exclusive advisory lock, edits the typed records, and
// writes the rendered text back with a temp-file rename, so concurrent
// registrations from separate processes cannot lose each other's updates.
package registry
