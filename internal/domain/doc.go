// Package domain defines core data models, interfaces and error sentinels
// shared across the app. It contains plain types (wire/state) and contracts
// (interfaces) only.
package domain
