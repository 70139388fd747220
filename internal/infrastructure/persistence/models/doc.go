// Package models contains the GORM persistence models. Domain aggregates stay
// free of ORM tags; each model converts to and from its aggregate with
// ToDomain and FromDomain. Loaded aggregates are marked with their stored
// version so repositories can save them with an optimistic lock.
package models
