// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (persisted pairing state) and contracts (store
// interfaces) only.
package domain
