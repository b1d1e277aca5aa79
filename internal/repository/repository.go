// Package repository defines data access contracts for documents and the
// facility/resident directory. Implementations contain SQL only, no
// business logic.
package repository
