// Package fleet defines the core entities shared across planning,
// provisioning, probing and bootstrap: node roles, node records with their
// status lifecycle, and the typed error taxonomy used to roll failures up
// into a run summary.
package fleet
