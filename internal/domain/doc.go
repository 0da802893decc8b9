// Package domain defines core data models, collaborator contracts and the
// error taxonomy shared across the relay client.
// It contains plain types (wire/state), interfaces and errors only.
package domain
