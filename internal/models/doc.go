// package models defines the data model for the track sync service.
//
// Requests, catalog candidates, match decisions, and workflow records are
// plain value types shared by the matching core, the workflow backends, and
// the HTTP surface.
package models
