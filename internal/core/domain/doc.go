// Package domain defines the core domain types shared across the fleet
// manager: the error taxonomy surfaced by the public API and the basic
// identifiers (zone, node, group) the rest of the packages build on.
package domain
