// Package listwalk walks paginated listing sites, extracting one record
// per listed item while staying under anti-bot and rate-limit radars. It
// decides, page after page, which URL to fetch next, how long to wait
// before fetching it, and how to react when a site pushes back.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., goquery/, rod/, sqlite/).
package listwalk
