// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities are free of GORM tags and infrastructure concerns
// 2. Persistence models contain all GORM annotations and table mappings
// 3. Mappers (ToDomain / FromDomain) convert between the two
// 4. Repositories use persistence models for database operations
//
// Structure:
// - base.go: Base persistence models (BaseModel, AggregateModel, OwnedAggregateModel)
// - identity.go: Users, roles and their join tables
// - crm.go: Leads, deals, tasks, expenses, notes, notifications, settings
// - document.go: Invoices and quotations with their line items
//
// Every column that is "not null" here also appears in migrations/. AutoMigrate
// is only used by tests against SQLite.
package models
