// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
// - base.go: BaseModel shared by every table
// - catalog.go: units, inputs and input provider prices
// - partner.go: providers
// - production.go: BOM templates and lines, products, additional costs, budgets and budget lines
// - import_history.go: import run history
package models
