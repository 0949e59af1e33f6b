// Package models contains read models of tables the reconciliation service
// does not own. Products and warehouses belong to the catalog service; the
// service only checks that they exist within a store.
package models
