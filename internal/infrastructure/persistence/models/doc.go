// Package models holds the GORM persistence models backing the ledger
// repositories. They mirror the domain aggregates but carry all ORM tags
// and table mappings, so the domain layer stays free of infrastructure
// concerns. Each model knows how to convert to and from its domain
// counterpart; repositories only ever touch the models.
package models
