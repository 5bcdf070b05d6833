// package repositories contains the persistence layer: sqlite-backed storage
// for catalog search results so repeated requests for the same song skip the
// network round-trip.
package repositories
